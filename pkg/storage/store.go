package storage

import (
	"context"
	"errors"

	"github.com/vexa-ai/bot-manager/pkg/types"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the capability interface over the relational store. Two
// implementations exist: BoltStore (embedded, default) and PostgresStore
// (shared deployments).
type Store interface {
	// GetOrCreateUser resolves a user, creating the row with the store's
	// default quota when absent. An existing row keeps its stored quota,
	// including a nil one.
	GetOrCreateUser(ctx context.Context, id int) (*types.User, error)

	// GetMeeting looks up a meeting by internal id. Returns ErrNotFound
	// when absent.
	GetMeeting(ctx context.Context, id int) (*types.Meeting, error)

	// CreateSession records one bot session row.
	CreateSession(ctx context.Context, session *types.Session) error

	// UpdateSessionStatus updates the status label of a session by
	// connection id.
	UpdateSessionStatus(ctx context.Context, connectionID, status string) error

	// Close releases the underlying store.
	Close() error
}
