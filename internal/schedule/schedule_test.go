package schedule

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"confagenda/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestAddRejectsBadSpecAndDuplicates(t *testing.T) {
	s := New(time.UTC)
	defer s.Stop()

	noop := func(context.Context) error { return nil }
	assert.Error(t, s.Add("bad", "not a spec", noop))
	assert.Error(t, s.Add("nil", "@every 1h", nil))
	require.NoError(t, s.Add("sync", "@every 1h", noop))
	assert.Error(t, s.Add("sync", "@every 1h", noop))

	_, ok := s.Next("missing")
	assert.False(t, ok)
}

func TestRunExecutesAndStops(t *testing.T) {
	s := New(time.UTC)
	var runs atomic.Int32
	require.NoError(t, s.Add("tick", "@every 1s", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return runs.Load() > 0 }, 5*time.Second, 50*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestStopCancelsRunningJob(t *testing.T) {
	s := New(time.UTC)
	started := make(chan struct{})
	finished := make(chan struct{})
	go s.RunNow("slow", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(finished)
		return ctx.Err()
	})
	<-started
	s.Stop()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not observe cancellation")
	}
}

type fakeMirror struct {
	users   []model.User
	records []model.AttendeeRecord
	err     error
}

func (m *fakeMirror) ReplaceAll(_ context.Context, users []model.User) error {
	m.users = users
	return m.err
}

func (m *fakeMirror) ImportRecords(_ context.Context, records []model.AttendeeRecord) error {
	m.records = records
	return m.err
}

type fakeSource struct {
	records []model.AttendeeRecord
	err     error
}

func (s fakeSource) Records(context.Context) ([]model.AttendeeRecord, error) {
	return s.records, s.err
}

func TestMirrorFromRecords(t *testing.T) {
	ctx := context.Background()
	mirror := &fakeMirror{}
	recs := []model.AttendeeRecord{{PegaID: "P1", DeliveryCircle: "1"}}

	require.NoError(t, MirrorFromRecords(fakeSource{records: recs}, mirror)(ctx))
	assert.Equal(t, recs, mirror.records)

	assert.ErrorIs(t, MirrorFromRecords(fakeSource{}, mirror)(ctx), errEmptyRoster)

	down := errors.New("down")
	assert.ErrorIs(t, MirrorFromRecords(fakeSource{err: down}, mirror)(ctx), down)
}

func TestMirrorFromFile(t *testing.T) {
	ctx := context.Background()
	mirror := &fakeMirror{}
	require.NoError(t, MirrorFromFile(filepath.Join("..", "..", "testdata", "users.json"), mirror)(ctx))
	assert.Len(t, mirror.users, 3)

	empty := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"users": []}`), 0o600))
	assert.ErrorIs(t, MirrorFromFile(empty, &fakeMirror{})(ctx), errEmptyRoster)

	assert.Error(t, MirrorFromFile(filepath.Join(t.TempDir(), "missing.json"), mirror)(ctx))
}
