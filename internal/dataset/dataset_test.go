package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSampleDataset(t *testing.T) {
	ds, err := Load(filepath.Join("..", "..", "testdata", "agenda.json"))
	require.NoError(t, err)

	assert.Equal(t, "EMEA Consulting Conference 2025", ds.Conference.Name)
	assert.Equal(t, []string{"thursday", "friday", "saturday"}, ds.CommonSessions.Keys())
	assert.Equal(t,
		[]string{"delivery-circle-1", "delivery-circle-2", "delivery-circle-3", "management"},
		ds.BreakoutGroups.Keys(),
	)
	assert.Len(t, ds.Rooms, 4)
	require.NotNil(t, ds.Rooms[0].Capacity)
	assert.Equal(t, 800, *ds.Rooms[0].Capacity)
	assert.Nil(t, ds.Rooms[1].Capacity)

	thu, ok := ds.CommonSessions.Get("thursday")
	require.True(t, ok)
	// Document order is kept; sorting is the engine's job.
	assert.Equal(t, "thu-break", thu.Agenda[0].ID)
	require.NotNil(t, thu.Agenda[0].IsCommon)
	assert.True(t, *thu.Agenda[0].IsCommon)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"conference":`), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestParseAcceptsRegionsAlias(t *testing.T) {
	ds, err := Parse([]byte(`{
		"conference": {"name": "x"},
		"commonSessions": {},
		"regions": {
			"north": {"name": "North", "days": {"thursday": {"agenda": []}}},
			"south": {"name": "South", "days": {}},
		},
	}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"north", "south"}, ds.BreakoutGroups.Keys())
	north, _ := ds.BreakoutGroups.Get("north")
	assert.True(t, north.Days.Has("thursday"))
}

func TestParsePrefersBreakoutGroups(t *testing.T) {
	ds, err := Parse([]byte(`{
		"breakoutGroups": {"a": {"name": "A"}},
		"regions": {"b": {"name": "B"}}
	}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ds.BreakoutGroups.Keys())
}
