// Package lockout keeps short-lived brute-force protection state for logins.
package lockout

import (
	"context"
	"time"
)

// State is the current lockout envelope for a login key.
type State struct {
	FailedCount int
	LockedUntil *time.Time
}

// Locked reports whether the key is locked at now.
func (s State) Locked(now time.Time) bool {
	return s.LockedUntil != nil && now.Before(*s.LockedUntil)
}

type Store interface {
	Get(ctx context.Context, key string) (State, error)
	RecordFailure(ctx context.Context, key string, now time.Time, threshold int, window time.Duration) (State, error)
	Clear(ctx context.Context, key string) error
}

// Nop never locks anybody out. It is used when no Redis is configured.
type Nop struct{}

func (Nop) Get(context.Context, string) (State, error) { return State{}, nil }

func (Nop) RecordFailure(context.Context, string, time.Time, int, time.Duration) (State, error) {
	return State{}, nil
}

func (Nop) Clear(context.Context, string) error { return nil }
