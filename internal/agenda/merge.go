package agenda

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"

	"confagenda/internal/model"
)

// unparsedMinutes is the sort key for times that are not HH:MM. Such items
// sort after every valid time.
const unparsedMinutes = math.MaxInt

// maxHour allows late-night sessions written past midnight, e.g. "25:30".
const maxHour = 47

// Minutes converts an "HH:MM" clock string to minutes since midnight. Only
// the first two colon-separated fields are read, so "09:00:00" is accepted.
// ok is false when either field is missing, empty or not a base-10 integer,
// when the hour is outside 0-47 or when the minute is outside 0-59.
func Minutes(clock string) (minutes int, ok bool) {
	parts := strings.Split(clock, ":")
	if len(parts) < 2 {
		return 0, false
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, false
	}
	if h < 0 || h > maxHour || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

func sortKey(clock string) int {
	if m, ok := Minutes(clock); ok {
		return m
	}
	return unparsedMinutes
}

// sortByTime returns a stably sorted deep copy of items, so callers may
// edit the result without touching the dataset.
func sortByTime(items []model.AgendaItem) []model.AgendaItem {
	out := make([]model.AgendaItem, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	slices.SortStableFunc(out, func(a, b model.AgendaItem) int {
		return cmp.Compare(sortKey(a.Time), sortKey(b.Time))
	})
	return out
}

// DayEntry is one day of a merged schedule.
type DayEntry struct {
	Key           string             `json:"key"`
	Date          string             `json:"date"`
	DateFormatted string             `json:"dateFormatted"`
	Theme         string             `json:"theme"`
	Agenda        []model.AgendaItem `json:"agenda"`
}

// MergedAgenda returns the time-ordered agenda for dayKey. With an empty
// groupKey only the common schedule is used. Common items precede group
// items that share a start time. The result is a fresh slice and is empty,
// not nil, when neither schedule has the day.
func (e *Engine) MergedAgenda(dayKey, groupKey string) []model.AgendaItem {
	entry, ok := e.mergeDay(dayKey, e.groupDays(groupKey))
	if !ok {
		return []model.AgendaItem{}
	}
	return entry.Agenda
}

// Day returns the merged day, or false when neither schedule defines it.
func (e *Engine) Day(dayKey, groupKey string) (DayEntry, bool) {
	return e.mergeDay(dayKey, e.groupDays(groupKey))
}

// HasDay reports whether dayKey is part of the merged day set for groupKey.
func (e *Engine) HasDay(dayKey, groupKey string) bool {
	return e.ds.CommonSessions.Has(dayKey) || e.groupDays(groupKey).Has(dayKey)
}

// DayKeys lists the merged day set: common days in document order, then
// days only the group defines, in the group's order.
func (e *Engine) DayKeys(groupKey string) []string {
	keys := e.ds.CommonSessions.Keys()
	for _, k := range e.groupDays(groupKey).Keys() {
		if !e.ds.CommonSessions.Has(k) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Days returns every merged day for groupKey in DayKeys order.
func (e *Engine) Days(groupKey string) []DayEntry {
	groupDays := e.groupDays(groupKey)
	keys := e.DayKeys(groupKey)
	out := make([]DayEntry, 0, len(keys))
	for _, k := range keys {
		if entry, ok := e.mergeDay(k, groupDays); ok {
			out = append(out, entry)
		}
	}
	return out
}

func (e *Engine) groupDays(groupKey string) model.DayMap {
	if groupKey == "" {
		return model.DayMap{}
	}
	return e.GroupSessions(groupKey)
}

func (e *Engine) mergeDay(dayKey string, groupDays model.DayMap) (DayEntry, bool) {
	common, hasCommon := e.ds.CommonSessions.Get(dayKey)
	group, hasGroup := groupDays.Get(dayKey)

	var (
		meta  model.DayData
		items []model.AgendaItem
	)
	switch {
	case hasCommon && hasGroup:
		meta = common
		items = make([]model.AgendaItem, 0, len(common.Agenda)+len(group.Agenda))
		items = append(items, common.Agenda...)
		items = append(items, group.Agenda...)
	case hasCommon:
		meta = common
		items = common.Agenda
	case hasGroup:
		meta = group
		items = group.Agenda
	default:
		return DayEntry{}, false
	}

	return DayEntry{
		Key:           dayKey,
		Date:          meta.Date,
		DateFormatted: meta.DateFormatted,
		Theme:         meta.Theme,
		Agenda:        sortByTime(items),
	}, true
}
