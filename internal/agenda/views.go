package agenda

import (
	"cmp"
	"slices"
	"strings"

	"confagenda/internal/model"
)

const (
	maxFeatured = 3
	featuredTag = "Featured"
)

// FeaturedSessions returns up to three non-break keynotes or "Featured"
// tagged items, in time order.
func (e *Engine) FeaturedSessions(dayKey, groupKey string) []model.AgendaItem {
	out := make([]model.AgendaItem, 0, maxFeatured)
	for _, item := range e.MergedAgenda(dayKey, groupKey) {
		if item.IsBreak {
			continue
		}
		if item.Type != model.TypeKeynote && !item.HasTag(featuredTag) {
			continue
		}
		out = append(out, item)
		if len(out) == maxFeatured {
			break
		}
	}
	return out
}

// TimeSlot groups items sharing the exact same start time string.
type TimeSlot struct {
	Time  string             `json:"time"`
	Items []model.AgendaItem `json:"items"`
}

// TimeSlots buckets the merged agenda by its literal time string. "9:00"
// and "09:00" are separate slots. Slots are ordered by minutes; unparsable
// slots come last.
func (e *Engine) TimeSlots(dayKey, groupKey string) []TimeSlot {
	var (
		slots []TimeSlot
		index = make(map[string]int)
	)
	for _, item := range e.MergedAgenda(dayKey, groupKey) {
		i, ok := index[item.Time]
		if !ok {
			i = len(slots)
			index[item.Time] = i
			slots = append(slots, TimeSlot{Time: item.Time})
		}
		slots[i].Items = append(slots[i].Items, item)
	}
	slices.SortStableFunc(slots, func(a, b TimeSlot) int {
		return cmp.Compare(sortKey(a.Time), sortKey(b.Time))
	})
	if slots == nil {
		return []TimeSlot{}
	}
	return slots
}

// DayMatches is the per-day result of Search and SessionsByTag.
type DayMatches struct {
	Day   string             `json:"day"`
	Items []model.AgendaItem `json:"items"`
}

// Search does a case-insensitive substring match over title, description,
// speaker and tags across every merged day. Days without a match are
// omitted; an empty query matches everything.
func (e *Engine) Search(query, groupKey string) []DayMatches {
	term := strings.ToLower(query)
	return e.filterDays(groupKey, func(item model.AgendaItem) bool {
		if strings.Contains(strings.ToLower(item.Title), term) ||
			strings.Contains(strings.ToLower(item.Description), term) ||
			strings.Contains(strings.ToLower(item.Speaker), term) {
			return true
		}
		for _, tag := range item.Tags {
			if strings.Contains(strings.ToLower(tag), term) {
				return true
			}
		}
		return false
	})
}

// SessionsByTag returns items carrying tag, compared case-insensitively
// but otherwise exactly.
func (e *Engine) SessionsByTag(tag, groupKey string) []DayMatches {
	want := strings.ToLower(tag)
	return e.filterDays(groupKey, func(item model.AgendaItem) bool {
		for _, t := range item.Tags {
			if strings.ToLower(t) == want {
				return true
			}
		}
		return false
	})
}

func (e *Engine) filterDays(groupKey string, match func(model.AgendaItem) bool) []DayMatches {
	out := []DayMatches{}
	for _, day := range e.Days(groupKey) {
		var items []model.AgendaItem
		for _, item := range day.Agenda {
			if match(item) {
				items = append(items, item)
			}
		}
		if len(items) > 0 {
			out = append(out, DayMatches{Day: day.Key, Items: items})
		}
	}
	return out
}

// DayTheme drives the day tabs.
type DayTheme struct {
	Day   string `json:"day"`
	Theme string `json:"theme"`
	Date  string `json:"date"`
}

func (e *Engine) DayThemes(groupKey string) []DayTheme {
	days := e.Days(groupKey)
	out := make([]DayTheme, 0, len(days))
	for _, d := range days {
		out = append(out, DayTheme{Day: d.Key, Theme: d.Theme, Date: d.DateFormatted})
	}
	return out
}

// Tags lists distinct tags across the merged day set in first-seen order.
func (e *Engine) Tags(groupKey string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, day := range e.Days(groupKey) {
		for _, item := range day.Agenda {
			for _, t := range item.Tags {
				if t == "" || seen[t] {
					continue
				}
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}
