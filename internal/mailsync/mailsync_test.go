package mailsync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type blockingSyncer struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingSyncer) Sync(ctx context.Context) (Result, error) {
	close(b.started)
	select {
	case <-b.release:
		return Result{Message: "done"}, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

type failingSyncer struct{}

func (failingSyncer) Sync(context.Context) (Result, error) {
	return Result{}, errors.New("mailbox unreachable")
}

func TestStubSyncer(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s := &StubSyncer{Now: func() time.Time { return now }}

	res, err := s.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Message: "Sync completed", Timestamp: now}, res)
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule(""))
	assert.NoError(t, ValidateSchedule("*/15 * * * *"))
	assert.Error(t, ValidateSchedule("every tuesday"))
	assert.Error(t, ValidateSchedule("0 0 0 * * *"))
}

func TestScheduler_SyncRecordsStatus(t *testing.T) {
	s := NewScheduler(NewStubSyncer(), testLogger())

	res, err := s.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Sync completed", res.Message)

	st := s.Status()
	assert.False(t, st.Running)
	assert.False(t, st.LastRun.IsZero())
	assert.Empty(t, st.LastError)
}

func TestScheduler_SyncError(t *testing.T) {
	s := NewScheduler(failingSyncer{}, testLogger())
	_, err := s.Sync(context.Background())
	require.Error(t, err)
	assert.Equal(t, "mailbox unreachable", s.Status().LastError)
}

func TestScheduler_RejectsOverlap(t *testing.T) {
	b := &blockingSyncer{started: make(chan struct{}), release: make(chan struct{})}
	s := NewScheduler(b, testLogger())

	done := make(chan error, 1)
	go func() {
		_, err := s.Sync(context.Background())
		done <- err
	}()
	<-b.started

	_, err := s.Sync(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)
	assert.True(t, s.Status().Running)

	close(b.release)
	require.NoError(t, <-done)
}

func TestScheduler_SetSchedule(t *testing.T) {
	s := NewScheduler(NewStubSyncer(), testLogger())
	require.NoError(t, s.SetSchedule("0 * * * *"))

	s.Start()
	defer s.Stop()

	st := s.Status()
	assert.Equal(t, "0 * * * *", st.Schedule)
	assert.False(t, st.NextRun.IsZero())

	assert.Error(t, s.SetSchedule("bogus"))
	require.NoError(t, s.SetSchedule(""))
	assert.Empty(t, s.Status().Schedule)
}
