package agenda

import (
	"fmt"

	"confagenda/internal/model"
)

// Issue is a data problem that does not stop the agenda from rendering.
type Issue struct {
	Schedule string // "common" or the group key
	Day      string
	ItemID   string
	Problem  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s/%s/%s: %s", i.Schedule, i.Day, i.ItemID, i.Problem)
}

// Check reports items with unparsable times, unknown types or ids repeated
// within a day. Unparsable times still render; they sort last.
func Check(ds *model.Dataset) []Issue {
	if ds == nil {
		return nil
	}
	var issues []Issue
	issues = append(issues, checkDays("common", ds.CommonSessions)...)
	for _, k := range ds.BreakoutGroups.Keys() {
		g, _ := ds.BreakoutGroups.Get(k)
		issues = append(issues, checkDays(k, g.Days)...)
	}
	return issues
}

func checkDays(schedule string, days model.DayMap) []Issue {
	var issues []Issue
	for _, dayKey := range days.Keys() {
		day, _ := days.Get(dayKey)
		seen := make(map[string]bool, len(day.Agenda))
		for _, item := range day.Agenda {
			add := func(problem string) {
				issues = append(issues, Issue{Schedule: schedule, Day: dayKey, ItemID: item.ID, Problem: problem})
			}
			if _, ok := Minutes(item.Time); !ok {
				add(fmt.Sprintf("unparsable start time %q", item.Time))
			}
			if item.Type != "" && !item.Type.Valid() {
				add(fmt.Sprintf("unknown type %q", item.Type))
			}
			if item.ID != "" {
				if seen[item.ID] {
					add("duplicate id")
				}
				seen[item.ID] = true
			}
		}
	}
	return issues
}
