package agenda

import (
	"time"

	"github.com/teambition/rrule-go"

	appLog "confagenda/internal/log"
	"confagenda/internal/model"
)

const (
	dateLayout = "2006-01-02"

	// maxWindowDays bounds the conference window enumerated by buildCalendar.
	maxWindowDays = 60
)

// Room finds a room by exact id.
func (e *Engine) Room(id string) (model.Room, bool) {
	for _, r := range e.ds.Rooms {
		if r.ID == id {
			return r, true
		}
	}
	return model.Room{}, false
}

// Speaker finds a speaker by exact id.
func (e *Engine) Speaker(id string) (model.Speaker, bool) {
	for _, s := range e.ds.Speakers {
		if s.ID == id {
			return s, true
		}
	}
	return model.Speaker{}, false
}

// RoomLabel is the display text for an AgendaItem.Room reference: the room
// name when ref is a known id, otherwise ref unchanged.
func (e *Engine) RoomLabel(ref string) string {
	if r, ok := e.Room(ref); ok && r.Name != "" {
		return r.Name
	}
	return ref
}

// SpeakerLabel is RoomLabel for AgendaItem.Speaker.
func (e *Engine) SpeakerLabel(ref string) string {
	if s, ok := e.Speaker(ref); ok && s.Name != "" {
		return s.Name
	}
	return ref
}

// CurrentDay picks the day key to open by default at instant now:
//   - before the conference window: the first common day
//   - after the window: the last common day
//   - inside the window: the day whose date is today, else the first day
//
// "Today" is the calendar date of now in the engine's location. Returns ""
// when the common schedule is empty.
func (e *Engine) CurrentDay(now time.Time) string {
	keys := e.ds.CommonSessions.Keys()
	if len(keys) == 0 {
		return ""
	}
	first, last := keys[0], keys[len(keys)-1]

	start, end, ok := e.window()
	if !ok {
		return first
	}

	local := now.In(e.loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, e.loc)
	switch {
	case today.Before(start):
		return first
	case today.After(end):
		return last
	}
	if key, ok := e.calendar[today.Format(dateLayout)]; ok {
		return key
	}
	return first
}

// DefaultDay is CurrentDay when groupKey's merged schedule has that day,
// otherwise its first day, or "" when it has none.
func (e *Engine) DefaultDay(groupKey string, now time.Time) string {
	current := e.CurrentDay(now)
	keys := e.DayKeys(groupKey)
	for _, k := range keys {
		if k == current {
			return k
		}
	}
	if len(keys) > 0 {
		return keys[0]
	}
	return ""
}

func (e *Engine) window() (start, end time.Time, ok bool) {
	conf := e.ds.Conference
	start, err := time.ParseInLocation(dateLayout, isoDate(conf.StartDate), e.loc)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err = time.ParseInLocation(dateLayout, isoDate(conf.EndDate), e.loc)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// buildCalendar enumerates every date of the conference window and maps it
// to the first common day whose date matches.
func (e *Engine) buildCalendar() map[string]string {
	calendar := make(map[string]string)

	start, end, ok := e.window()
	if !ok {
		if e.ds.CommonSessions.Len() > 0 {
			appLog.Info("conference window unavailable; current day falls back to first day",
				"start", e.ds.Conference.StartDate,
				"end", e.ds.Conference.EndDate,
			)
		}
		return calendar
	}
	if end.Before(start) || end.Sub(start) > maxWindowDays*24*time.Hour {
		appLog.Info("conference window ignored",
			"start", e.ds.Conference.StartDate,
			"end", e.ds.Conference.EndDate,
		)
		return calendar
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: start,
		Until:   end,
	})
	if err != nil {
		appLog.Error("conference window rrule failed", err)
		return calendar
	}

	byDate := make(map[string]string)
	for _, k := range e.ds.CommonSessions.Keys() {
		day, _ := e.ds.CommonSessions.Get(k)
		d := isoDate(day.Date)
		if _, dup := byDate[d]; !dup && d != "" {
			byDate[d] = k
		}
	}

	for _, t := range r.All() {
		d := t.Format(dateLayout)
		if key, ok := byDate[d]; ok {
			calendar[d] = key
		}
	}
	return calendar
}

// isoDate trims a date or date-time string to its YYYY-MM-DD prefix.
func isoDate(s string) string {
	if len(s) >= len(dateLayout) {
		return s[:len(dateLayout)]
	}
	return s
}
