// Package session persists intake sessions for the duration of a call,
// either in process memory or in Redis when calls can migrate between
// instances.
package session

import (
	"context"
	"errors"

	"github.com/brightline-health/intake-voice-agent/internal/intake"
)

// ErrNotFound reports an unknown or expired session ID.
var ErrNotFound = errors.New("session: not found")

// Store is the persistence contract for live intake sessions.
type Store interface {
	Save(ctx context.Context, s *intake.Session) error
	Load(ctx context.Context, id string) (*intake.Session, error)
	Delete(ctx context.Context, id string) error
}
