package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vexa-ai/bot-manager/pkg/types"
)

// PostgresStore implements Store against the shared relational database.
// The users and meetings tables are owned by the wider deployment; this
// store only adds session rows and lazily created users.
type PostgresStore struct {
	pool *pgxpool.Pool

	defaultBotLimit int
}

// NewPostgresStore connects a pgx pool and verifies connectivity.
func NewPostgresStore(ctx context.Context, dsn string, defaultBotLimit int) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{pool: pool, defaultBotLimit: defaultBotLimit}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// GetOrCreateUser resolves a user, inserting the row with the default
// quota when absent. An existing row keeps its stored quota, including a
// NULL one.
func (s *PostgresStore) GetOrCreateUser(ctx context.Context, id int) (*types.User, error) {
	user := &types.User{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, max_concurrent_bots, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET id = users.id
		RETURNING id, max_concurrent_bots, created_at`,
		id, s.defaultBotLimit,
	).Scan(&user.ID, &user.MaxConcurrentBots, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create user %d: %w", id, err)
	}
	return user, nil
}

// GetMeeting looks up a meeting by internal id.
func (s *PostgresStore) GetMeeting(ctx context.Context, id int) (*types.Meeting, error) {
	meeting := &types.Meeting{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, platform, platform_specific_id, created_at
		FROM meetings WHERE id = $1`,
		id,
	).Scan(&meeting.ID, &meeting.Platform, &meeting.PlatformSpecificID, &meeting.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: meeting %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get meeting %d: %w", id, err)
	}
	return meeting, nil
}

// CreateSession records one bot session row.
func (s *PostgresStore) CreateSession(ctx context.Context, session *types.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO meeting_sessions (meeting_id, connection_id, status, started_at)
		VALUES ($1, $2, $3, $4)`,
		session.MeetingID, session.ConnectionID, session.Status, session.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session %s: %w", session.ConnectionID, err)
	}
	return nil
}

// UpdateSessionStatus updates a session's status by connection id.
func (s *PostgresStore) UpdateSessionStatus(ctx context.Context, connectionID, status string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE meeting_sessions SET status = $2 WHERE connection_id = $1`,
		connectionID, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update session %s: %w", connectionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: session %s", ErrNotFound, connectionID)
	}
	return nil
}
