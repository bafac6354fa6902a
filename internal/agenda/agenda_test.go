package agenda

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"confagenda/internal/dataset"
	"confagenda/internal/model"
)

func item(id, clock string) model.AgendaItem {
	return model.AgendaItem{ID: id, Title: id, Time: clock, Type: model.TypeSession}
}

func dayMap(days ...struct {
	key  string
	data model.DayData
}) model.DayMap {
	var m model.DayMap
	for _, d := range days {
		m.Set(d.key, d.data)
	}
	return m
}

func day(key, date string, items ...model.AgendaItem) struct {
	key  string
	data model.DayData
} {
	return struct {
		key  string
		data model.DayData
	}{key, model.DayData{Date: date, DateFormatted: key + " formatted", Theme: key + " theme", Agenda: items}}
}

func ids(items []model.AgendaItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

// northDataset is the worked example: common Thursday keynote and break, a
// group welcome that shares the keynote's start time.
func northDataset() *model.Dataset {
	ds := &model.Dataset{
		Conference: model.ConferenceInfo{StartDate: "2025-11-20", EndDate: "2025-11-22"},
		CommonSessions: dayMap(
			day("thursday", "2025-11-20",
				model.AgendaItem{ID: "keynote", Title: "Keynote", Time: "09:00", Type: model.TypeKeynote},
				model.AgendaItem{ID: "break", Title: "Break", Time: "10:30", IsBreak: true, Type: model.TypeBreak},
			),
			day("friday", "2025-11-21"),
			day("saturday", "2025-11-22"),
		),
	}
	ds.BreakoutGroups.Set("north", model.BreakoutGroupData{
		Name: "North",
		Days: dayMap(
			day("thursday", "2025-11-20",
				model.AgendaItem{ID: "north-welcome", Title: "North Welcome", Time: "09:00"},
			),
			day("sunday", "2025-11-23", item("north-sun", "10:00")),
		),
	})
	return ds
}

func TestMergedAgendaWorkedExample(t *testing.T) {
	e := New(northDataset())

	got := ids(e.MergedAgenda("thursday", "north"))
	want := []string{"keynote", "north-welcome", "break"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merged agenda mismatch (-want +got):\n%s", diff)
	}
}

func TestMergedAgendaCases(t *testing.T) {
	e := New(northDataset())

	tests := []struct {
		name  string
		day   string
		group string
		want  []string
	}{
		{"common only", "thursday", "", []string{"keynote", "break"}},
		{"group without that day", "friday", "north", []string{}},
		{"group-only day", "sunday", "north", []string{"north-sun"}},
		{"group day without group key", "sunday", "", []string{}},
		{"unknown group falls back to common", "thursday", "south", []string{"keynote", "break"}},
		{"unknown day", "monday", "north", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.MergedAgenda(tt.day, tt.group)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestMergedAgendaStableWithinSource(t *testing.T) {
	ds := &model.Dataset{
		CommonSessions: dayMap(day("d", "",
			item("c-late", "11:00"),
			item("c-a", "09:00"),
			item("c-b", "09:00"),
		)),
	}
	ds.BreakoutGroups.Set("g", model.BreakoutGroupData{Days: dayMap(day("d", "",
		item("g-a", "09:00"),
		item("g-early", "08:00"),
		item("g-b", "09:00"),
	))})
	e := New(ds)

	got := ids(e.MergedAgenda("d", "g"))
	assert.Equal(t, []string{"g-early", "c-a", "c-b", "g-a", "g-b", "c-late"}, got)
}

func TestMergedAgendaSortedAndIdempotent(t *testing.T) {
	ds, err := dataset.Load(filepath.Join("..", "..", "testdata", "agenda.json"))
	require.NoError(t, err)
	e := New(ds)

	for _, g := range append([]GroupSummary{{Key: ""}}, e.Groups()...) {
		for _, d := range e.DayKeys(g.Key) {
			agenda := e.MergedAgenda(d, g.Key)
			for i := 1; i < len(agenda); i++ {
				assert.LessOrEqual(t, sortKey(agenda[i-1].Time), sortKey(agenda[i].Time),
					"group %q day %q not sorted at %d", g.Key, d, i)
			}
			assert.Equal(t, agenda, sortByTime(agenda))
		}
	}
}

func TestMergedAgendaDoesNotMutateInput(t *testing.T) {
	ds := northDataset()
	e := New(ds)

	_ = e.MergedAgenda("thursday", "north")
	agenda := e.MergedAgenda("thursday", "")
	agenda[0].Title = "changed"

	thu, _ := ds.CommonSessions.Get("thursday")
	assert.Equal(t, "Keynote", thu.Agenda[0].Title)
	assert.Equal(t, "keynote", thu.Agenda[0].ID)
}

func TestReturnedItemsAreIndependentOfDataset(t *testing.T) {
	common := true
	ds := &model.Dataset{
		CommonSessions: dayMap(day("thursday", "2025-11-20",
			model.AgendaItem{ID: "ai-talk", Time: "09:00", Tags: []string{"AI"}, IsCommon: &common},
		)),
	}
	e := New(ds)

	first := e.MergedAgenda("thursday", "")
	require.Len(t, first, 1)
	first[0].Tags[0] = "mutated"
	*first[0].IsCommon = false

	again := e.MergedAgenda("thursday", "")
	assert.Equal(t, []string{"AI"}, again[0].Tags)
	require.NotNil(t, again[0].IsCommon)
	assert.True(t, *again[0].IsCommon)
	assert.Len(t, e.SessionsByTag("AI", ""), 1)

	slots := e.TimeSlots("thursday", "")
	slots[0].Items[0].Tags[0] = "mutated"
	assert.Len(t, e.Search("ai", ""), 1)

	thu, _ := ds.CommonSessions.Get("thursday")
	assert.Equal(t, []string{"AI"}, thu.Agenda[0].Tags)
}

func TestOutOfRangeTimesSortLast(t *testing.T) {
	ds := &model.Dataset{
		CommonSessions: dayMap(day("d", "",
			item("huge", "153722867280912931:00"),
			item("neg", "-1:00"),
			item("valid", "09:00"),
			item("bad-minute", "10:75"),
		)),
	}
	e := New(ds)
	assert.Equal(t, []string{"valid", "huge", "neg", "bad-minute"}, ids(e.MergedAgenda("d", "")))
}

func TestUnparsableTimesSortLast(t *testing.T) {
	ds := &model.Dataset{
		CommonSessions: dayMap(day("d", "",
			item("bad-1", "tbd"),
			item("late", "17:00"),
			item("bad-2", ""),
			item("early", "8:15"),
			item("bad-3", "12"),
		)),
	}
	e := New(ds)
	assert.Equal(t, []string{"early", "late", "bad-1", "bad-2", "bad-3"}, ids(e.MergedAgenda("d", "")))
}

func TestMinutes(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"09:00", 540, true},
		{"9:05", 545, true},
		{"23:59", 1439, true},
		{"09:00:30", 540, true},
		{" 10 : 15 ", 615, true},
		{"10", 0, false},
		{"", 0, false},
		{"ab:cd", 0, false},
		{"10:", 0, false},
		{"25:30", 1530, true},
		{"47:59", 2879, true},
		{"48:00", 0, false},
		{"-1:00", 0, false},
		{"09:-5", 0, false},
		{"09:60", 0, false},
		{"153722867280912931:00", 0, false},
	}
	for _, tt := range tests {
		got, ok := Minutes(tt.in)
		assert.Equal(t, tt.ok, ok, "Minutes(%q) ok", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, "Minutes(%q)", tt.in)
		}
	}
}

func TestDaysOrderAndMetadata(t *testing.T) {
	e := New(northDataset())

	assert.Equal(t, []string{"thursday", "friday", "saturday", "sunday"}, e.DayKeys("north"))
	assert.Equal(t, []string{"thursday", "friday", "saturday"}, e.DayKeys(""))

	days := e.Days("north")
	require.Len(t, days, 4)
	assert.Equal(t, "2025-11-23", days[3].Date)
	assert.Equal(t, "sunday theme", days[3].Theme)

	thu, ok := e.Day("thursday", "north")
	require.True(t, ok)
	assert.Equal(t, "thursday formatted", thu.DateFormatted)

	assert.True(t, e.HasDay("sunday", "north"))
	assert.False(t, e.HasDay("sunday", ""))
}

func TestFeaturedSessions(t *testing.T) {
	ds := &model.Dataset{
		CommonSessions: dayMap(day("d", "",
			model.AgendaItem{ID: "k2", Time: "10:00", Type: model.TypeKeynote},
			model.AgendaItem{ID: "brk", Time: "08:00", Type: model.TypeKeynote, IsBreak: true},
			model.AgendaItem{ID: "lower", Time: "08:30", Tags: []string{"featured"}},
			model.AgendaItem{ID: "f1", Time: "09:00", Tags: []string{"Featured"}},
			model.AgendaItem{ID: "plain", Time: "09:30"},
			model.AgendaItem{ID: "f2", Time: "11:00", Tags: []string{"x", "Featured"}},
			model.AgendaItem{ID: "k3", Time: "12:00", Type: model.TypeKeynote},
		)),
	}
	e := New(ds)

	got := e.FeaturedSessions("d", "")
	assert.Equal(t, []string{"f1", "k2", "f2"}, ids(got))
	assert.LessOrEqual(t, len(got), 3)
	for _, it := range got {
		assert.False(t, it.IsBreak)
		assert.True(t, it.Type == model.TypeKeynote || it.HasTag("Featured"))
	}

	assert.Empty(t, e.FeaturedSessions("missing", ""))
}

func TestTimeSlots(t *testing.T) {
	ds := &model.Dataset{
		CommonSessions: dayMap(day("d", "",
			item("a", "10:00"),
			item("b", "9:00"),
			item("c", "09:00"),
			item("d", "10:00"),
			item("e", "later"),
		)),
	}
	e := New(ds)

	slots := e.TimeSlots("d", "")
	require.Len(t, slots, 4)
	assert.Equal(t, "9:00", slots[0].Time)
	assert.Equal(t, []string{"b"}, ids(slots[0].Items))
	assert.Equal(t, "09:00", slots[1].Time)
	assert.Equal(t, []string{"c"}, ids(slots[1].Items))
	assert.Equal(t, "10:00", slots[2].Time)
	assert.Equal(t, []string{"a", "d"}, ids(slots[2].Items))
	assert.Equal(t, "later", slots[3].Time)

	assert.NotNil(t, e.TimeSlots("missing", ""))
}

func TestSearch(t *testing.T) {
	ds, err := dataset.Load(filepath.Join("..", "..", "testdata", "agenda.json"))
	require.NoError(t, err)
	e := New(ds)

	res := e.Search("BLUEPRINT", "")
	require.Len(t, res, 2)
	assert.Equal(t, "thursday", res[0].Day)
	assert.Equal(t, []string{"thu-keynote"}, ids(res[0].Items))
	assert.Equal(t, "friday", res[1].Day)
	assert.Equal(t, []string{"fri-workshop"}, ids(res[1].Items))

	// Speaker field and tags participate.
	res = e.Search("circle leads", "delivery-circle-1")
	require.Len(t, res, 1)
	assert.Equal(t, []string{"dc1-thu-intro"}, ids(res[0].Items))

	res = e.Search("socia", "")
	require.Len(t, res, 2)
	assert.Equal(t, "thursday", res[0].Day)
	assert.Equal(t, "saturday", res[1].Day)

	assert.Empty(t, e.Search("no such thing", ""))
}

func TestSearchEmptyQueryMatchesEverything(t *testing.T) {
	e := New(northDataset())

	res := e.Search("", "north")
	total := 0
	for _, d := range res {
		total += len(d.Items)
	}
	assert.Equal(t, 4, total)
	// friday and saturday have no items and are omitted.
	assert.Equal(t, "thursday", res[0].Day)
	assert.Equal(t, "sunday", res[1].Day)
}

func TestSessionsByTag(t *testing.T) {
	ds, err := dataset.Load(filepath.Join("..", "..", "testdata", "agenda.json"))
	require.NoError(t, err)
	e := New(ds)

	res := e.SessionsByTag("featured", "")
	require.Len(t, res, 2)
	assert.Equal(t, []string{"thu-keynote"}, ids(res[0].Items))

	// Exact match only: "Feat" is a substring, not a tag.
	assert.Empty(t, e.SessionsByTag("Feat", ""))

	res = e.SessionsByTag("STRATEGY", "management")
	require.Len(t, res, 2)
	assert.Equal(t, "thursday", res[0].Day)
	assert.Equal(t, "sunday", res[1].Day)
}

func TestDayThemesAndTags(t *testing.T) {
	ds, err := dataset.Load(filepath.Join("..", "..", "testdata", "agenda.json"))
	require.NoError(t, err)
	e := New(ds)

	themes := e.DayThemes("management")
	require.Len(t, themes, 4)
	assert.Equal(t, DayTheme{Day: "thursday", Theme: "Arrival & Kick-off", Date: "Thursday, November 20"}, themes[0])
	assert.Equal(t, "sunday", themes[3].Day)

	assert.Equal(t, []string{"Strategy", "Featured", "Circle", "Social", "Blueprint"}, e.Tags("delivery-circle-1"))
}

func TestRoomAndSpeakerLookup(t *testing.T) {
	ds, err := dataset.Load(filepath.Join("..", "..", "testdata", "agenda.json"))
	require.NoError(t, err)
	e := New(ds)

	r, ok := e.Room("room-a")
	require.True(t, ok)
	assert.Equal(t, "Room A", r.Name)

	_, ok = e.Room("nonexistent-id")
	assert.False(t, ok)
	assert.Equal(t, "nonexistent-id", e.RoomLabel("nonexistent-id"))
	assert.Equal(t, "Main Hall", e.RoomLabel("main-hall"))

	s, ok := e.Speaker("spk-2")
	require.True(t, ok)
	assert.Equal(t, "Petr Dvorak", s.Name)
	assert.Equal(t, "Circle Leads", e.SpeakerLabel("Circle Leads"))
	assert.Equal(t, "", e.SpeakerLabel(""))
}

func TestGroups(t *testing.T) {
	e := New(northDataset())
	assert.Equal(t, []GroupSummary{{Key: "north", Name: "North"}}, e.Groups())
	assert.True(t, e.HasGroup("north"))
	assert.False(t, e.HasGroup("south"))
	assert.Equal(t, 0, e.GroupSessions("south").Len())
}

func TestCurrentDay(t *testing.T) {
	prague, err := time.LoadLocation("Europe/Prague")
	require.NoError(t, err)
	e := New(northDataset(), WithLocation(prague))

	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"before window", time.Date(2025, 11, 1, 12, 0, 0, 0, prague), "thursday"},
		{"first day", time.Date(2025, 11, 20, 8, 0, 0, 0, prague), "thursday"},
		{"second day", time.Date(2025, 11, 21, 23, 30, 0, 0, prague), "friday"},
		{"last day", time.Date(2025, 11, 22, 0, 5, 0, 0, prague), "saturday"},
		{"after window", time.Date(2025, 11, 23, 9, 0, 0, 0, prague), "saturday"},
		// 23:30 UTC on the 20th is already the 21st in Prague.
		{"venue zone decides", time.Date(2025, 11, 20, 23, 30, 0, 0, time.UTC), "friday"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.CurrentDay(tt.now))
		})
	}
}

func TestCurrentDayUnmatchedDateFallsBackToFirst(t *testing.T) {
	ds := northDataset()
	ds.Conference.EndDate = "2025-11-25"
	e := New(ds, WithLocation(time.UTC))

	assert.Equal(t, "thursday", e.CurrentDay(time.Date(2025, 11, 24, 12, 0, 0, 0, time.UTC)))
}

func TestCurrentDayWithoutWindowOrDays(t *testing.T) {
	ds := northDataset()
	ds.Conference.StartDate = "soon"
	e := New(ds)
	assert.Equal(t, "thursday", e.CurrentDay(time.Now()))

	assert.Equal(t, "", New(&model.Dataset{}).CurrentDay(time.Now()))
	assert.Equal(t, "", New(nil).CurrentDay(time.Now()))
}

func TestDefaultDay(t *testing.T) {
	ds := northDataset()
	ds.CommonSessions = dayMap(day("saturday", "2025-11-22"))
	ds.Conference = model.ConferenceInfo{StartDate: "2025-11-22", EndDate: "2025-11-22"}
	e := New(ds, WithLocation(time.UTC))

	now := time.Date(2025, 11, 22, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "saturday", e.DefaultDay("north", now))

	empty := New(&model.Dataset{})
	assert.Equal(t, "", empty.DefaultDay("north", now))
}

func TestCheck(t *testing.T) {
	ds := &model.Dataset{
		CommonSessions: dayMap(day("d", "",
			item("a", "09:00"),
			item("a", "10:00"),
			model.AgendaItem{ID: "b", Time: "soon", Type: "panel"},
		)),
	}
	issues := Check(ds)
	require.Len(t, issues, 3)
	assert.Equal(t, "common/d/a: duplicate id", issues[0].String())
	assert.Contains(t, issues[1].Problem, "unparsable")
	assert.Contains(t, issues[2].Problem, "unknown type")

	sample, err := dataset.Load(filepath.Join("..", "..", "testdata", "agenda.json"))
	require.NoError(t, err)
	assert.Empty(t, Check(sample))
}
