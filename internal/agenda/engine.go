// Package agenda merges common and breakout-group schedules and derives the
// views the pages and API render: per-day agendas, featured sessions, time
// slots, search and tag filters.
//
// An Engine is built once from a loaded dataset and never mutated, so it is
// safe for concurrent use.
package agenda

import (
	"time"

	"confagenda/internal/model"
)

// Engine answers agenda queries over one immutable dataset.
type Engine struct {
	ds  *model.Dataset
	loc *time.Location

	// calendar maps an ISO date inside the conference window to its day key.
	calendar map[string]string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocation sets the zone used to decide which calendar day "now" is.
// Without it the process-local zone is used.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// New builds an Engine. ds must not be modified afterwards.
func New(ds *model.Dataset, opts ...Option) *Engine {
	if ds == nil {
		ds = &model.Dataset{}
	}
	e := &Engine{
		ds:  ds,
		loc: time.Local,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.calendar = e.buildCalendar()
	return e
}

func (e *Engine) Conference() model.ConferenceInfo { return e.ds.Conference }

func (e *Engine) Location() *time.Location { return e.loc }

// GroupSummary is the list view of a breakout group.
type GroupSummary struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Groups lists breakout groups in document order.
func (e *Engine) Groups() []GroupSummary {
	keys := e.ds.BreakoutGroups.Keys()
	out := make([]GroupSummary, 0, len(keys))
	for _, k := range keys {
		g, _ := e.ds.BreakoutGroups.Get(k)
		out = append(out, GroupSummary{Key: k, Name: g.Name, Description: g.Description})
	}
	return out
}

func (e *Engine) Group(key string) (model.BreakoutGroupData, bool) {
	return e.ds.BreakoutGroups.Get(key)
}

func (e *Engine) HasGroup(key string) bool {
	return e.ds.BreakoutGroups.Has(key)
}

// CommonSessions returns the unmerged common schedule.
func (e *Engine) CommonSessions() model.DayMap { return e.ds.CommonSessions }

// GroupSessions returns a group's own days, or an empty map for an unknown group.
func (e *Engine) GroupSessions(groupKey string) model.DayMap {
	g, ok := e.ds.BreakoutGroups.Get(groupKey)
	if !ok {
		return model.DayMap{}
	}
	return g.Days
}

func (e *Engine) Rooms() []model.Room { return e.ds.Rooms }

func (e *Engine) Speakers() []model.Speaker { return e.ds.Speakers }
