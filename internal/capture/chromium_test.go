package capture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargets(t *testing.T) {
	days := map[string][]string{
		"delivery-circle-1": {"thursday", "friday"},
		"delivery-circle-3": nil,
		"management":        {"thursday", "sunday"},
	}
	got := Targets([]string{"delivery-circle-1", "delivery-circle-3", "management"},
		func(g string) []string { return days[g] })
	assert.Equal(t, []Target{
		{"delivery-circle-1", "thursday"},
		{"delivery-circle-1", "friday"},
		{"management", "thursday"},
		{"management", "sunday"},
	}, got)
}

func TestPageURLAndFileName(t *testing.T) {
	tg := Target{Group: "delivery-circle-1", Day: "friday"}
	assert.Equal(t, "http://127.0.0.1:8080/delivery-circle-1/friday?print=1", PageURL("http://127.0.0.1:8080/", tg))
	assert.Equal(t, "delivery-circle-1-friday.png", FileName(tg))

	odd := Target{Group: "a b", Day: "x/y"}
	assert.Equal(t, "http://h/a%20b/x%2Fy?print=1", PageURL("http://h", odd))
	assert.Equal(t, "a_b-x_y.png", FileName(odd))
}

func TestPagePNGValidatesOptions(t *testing.T) {
	err := PagePNG(context.Background(), Options{OutputPath: "x.png"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "URL is required")

	err = PagePNG(context.Background(), Options{URL: "http://example.invalid"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OutputPath is required")
}

func TestApplyDefaults(t *testing.T) {
	var o Options
	o.applyDefaults()
	assert.Equal(t, DefaultWidth, o.Width)
	assert.Equal(t, DefaultHeight, o.Height)
	assert.Equal(t, int64(DefaultTimeoutSec), int64(o.Timeout.Seconds()))
}
