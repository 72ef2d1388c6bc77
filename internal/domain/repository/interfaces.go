package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PortfolioDash/internal/domain/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionBusy     = errors.New("session is busy")
	// ErrSessionEnded is returned for ids removed by Delete. It matches
	// ErrSessionNotFound too.
	ErrSessionEnded = fmt.Errorf("%w: ended", ErrSessionNotFound)
)

// SessionStore persists dashboard sessions between requests.
type SessionStore interface {
	Load(ctx context.Context, id string) (*models.Session, error)
	// Save fails with ErrSessionEnded once the id has been deleted, even
	// when the write raced the delete.
	Save(ctx context.Context, s *models.Session) error
	// Delete ends the id for good: it can never be loaded or saved again.
	Delete(ctx context.Context, id string) error
	// Lock serializes mutating events on one session. It returns
	// ErrSessionBusy when another event holds the lock.
	Lock(ctx context.Context, id string) (unlock func(), err error)
}

// ActivitySink stores or forwards activity events.
type ActivitySink interface {
	Record(ctx context.Context, ev models.ActivityEvent) error
	Close() error
}

type Metrics interface {
	RecordBackendCall(endpoint, outcome string, d time.Duration)
	RecordEvent(kind string)
	RecordError(kind string)
}
