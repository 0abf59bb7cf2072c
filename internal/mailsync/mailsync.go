// Package mailsync is the seam between finmail and an upstream mailbox.
package mailsync

import (
	"context"
	"time"
)

// Result reports one completed sync.
type Result struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Syncer pulls new mail into the store.
type Syncer interface {
	Sync(ctx context.Context) (Result, error)
}

// StubSyncer acknowledges a sync without contacting any mailbox.
type StubSyncer struct {
	Now func() time.Time
}

func NewStubSyncer() *StubSyncer {
	return &StubSyncer{Now: time.Now}
}

func (s *StubSyncer) Sync(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return Result{Message: "Sync completed", Timestamp: s.Now().UTC()}, nil
}
