package model

import "slices"

// SessionType is the closed set of agenda item kinds used by the dataset.
type SessionType string

const (
	TypeKeynote  SessionType = "keynote"
	TypeSession  SessionType = "session"
	TypeWorkshop SessionType = "workshop"
	TypeBreak    SessionType = "break"
	TypeClosing  SessionType = "closing"
	TypeCoffee   SessionType = "coffee"
	TypeDrinks   SessionType = "drinks"
	TypeMeal     SessionType = "meal"
)

// Valid reports whether t is one of the known session types.
func (t SessionType) Valid() bool {
	switch t {
	case TypeKeynote, TypeSession, TypeWorkshop, TypeBreak, TypeClosing, TypeCoffee, TypeDrinks, TypeMeal:
		return true
	}
	return false
}

// ConferenceInfo describes the event itself. StartDate and EndDate are
// ISO dates (YYYY-MM-DD).
type ConferenceInfo struct {
	Name        string `json:"name"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Venue       string `json:"venue"`
	Description string `json:"description"`
}

// Room is a physical location referenced by AgendaItem.Room.
type Room struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Capacity    *int   `json:"capacity,omitempty"`
	Description string `json:"description"`
	MapLink     string `json:"mapLink,omitempty"`
}

// SocialLinks holds optional speaker profile links.
type SocialLinks struct {
	Twitter  string `json:"twitter,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
}

type Speaker struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Title    string      `json:"title"`
	Bio      string      `json:"bio"`
	ImageURL string      `json:"imageUrl"`
	Social   SocialLinks `json:"social"`
}

// AgendaItem is a single session or break.
//
// Speaker and Room are free text: they may hold a Speaker/Room id, a display
// name, or nothing at all. Time and EndTime are "HH:MM" strings; Duration is
// display text and is never derived from them.
type AgendaItem struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	Speaker      string      `json:"speaker"`
	SpeakerTitle string      `json:"speakerTitle"`
	Time         string      `json:"time"`
	EndTime      string      `json:"endTime"`
	Duration     string      `json:"duration"`
	Room         string      `json:"room"`
	Tags         []string    `json:"tags"`
	IsBreak      bool        `json:"isBreak"`
	Type         SessionType `json:"type"`
	ImageURL     string      `json:"imageUrl,omitempty"`

	// IsCommon is nil for legacy items that predate the flag.
	IsCommon *bool `json:"isCommon,omitempty"`
}

// Clone returns a copy that shares no slices or pointers with a.
func (a AgendaItem) Clone() AgendaItem {
	a.Tags = slices.Clone(a.Tags)
	if a.IsCommon != nil {
		v := *a.IsCommon
		a.IsCommon = &v
	}
	return a
}

// HasTag reports whether tag is present with exact, case-sensitive match.
func (a AgendaItem) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// DayData is one day of a schedule. Agenda is in document order, not
// necessarily sorted.
type DayData struct {
	Date          string       `json:"date"`
	DateFormatted string       `json:"dateFormatted"`
	Theme         string       `json:"theme"`
	Agenda        []AgendaItem `json:"agenda"`
}

// BreakoutGroupData holds a group's extra sessions per day key.
type BreakoutGroupData struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Days        DayMap `json:"days"`
}

type (
	DayMap   = OrderedMap[DayData]
	GroupMap = OrderedMap[BreakoutGroupData]
)

// Dataset is the whole agenda document. It is read-only once loaded.
type Dataset struct {
	Conference     ConferenceInfo `json:"conference"`
	CommonSessions DayMap         `json:"commonSessions"`
	BreakoutGroups GroupMap       `json:"breakoutGroups"`
	Speakers       []Speaker      `json:"speakers"`
	Rooms          []Room         `json:"rooms"`
}
