package ratelimit

import (
	"context"
	"time"
)

// Result describes one rate-limit decision.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Store decides whether a keyed caller is within its fixed window.
// Implementations keep the per-key (count, reset) state; entries expire
// lazily once their window has passed.
type Store interface {
	Check(ctx context.Context, key string) (Result, error)
}
