package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/vexa-ai/bot-manager/pkg/types"
)

var (
	// Bucket names
	bucketUsers    = []byte("users")
	bucketMeetings = []byte("meetings")
	bucketSessions = []byte("sessions")
)

// BoltStore implements Store using BoltDB
type BoltStore struct {
	db *bolt.DB

	// defaultBotLimit is assigned to lazily created users. Existing rows
	// are never touched.
	defaultBotLimit int
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string, defaultBotLimit int) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "bot-manager.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketUsers,
			bucketMeetings,
			bucketSessions,
		}

		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, defaultBotLimit: defaultBotLimit}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func itob(id int) []byte {
	return []byte(strconv.Itoa(id))
}

// GetOrCreateUser resolves a user, creating the row on first use.
func (s *BoltStore) GetOrCreateUser(_ context.Context, id int) (*types.User, error) {
	var user types.User
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		if data := b.Get(itob(id)); data != nil {
			return json.Unmarshal(data, &user)
		}

		limit := s.defaultBotLimit
		user = types.User{
			ID:                id,
			MaxConcurrentBots: &limit,
			CreatedAt:         time.Now().UTC(),
		}
		data, err := json.Marshal(&user)
		if err != nil {
			return err
		}
		return b.Put(itob(id), data)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetMeeting looks up a meeting by id.
func (s *BoltStore) GetMeeting(_ context.Context, id int) (*types.Meeting, error) {
	var meeting types.Meeting
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMeetings)
		data := b.Get(itob(id))
		if data == nil {
			return fmt.Errorf("%w: meeting %d", ErrNotFound, id)
		}
		return json.Unmarshal(data, &meeting)
	})
	if err != nil {
		return nil, err
	}
	return &meeting, nil
}

// PutMeeting stores a meeting record. Meetings are owned by the booking
// subsystem; this exists for the embedded store where no other writer
// shares the database.
func (s *BoltStore) PutMeeting(_ context.Context, meeting *types.Meeting) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMeetings)
		data, err := json.Marshal(meeting)
		if err != nil {
			return err
		}
		return b.Put(itob(meeting.ID), data)
	})
}

// CreateSession records a session keyed by connection id.
func (s *BoltStore) CreateSession(_ context.Context, session *types.Session) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		data, err := json.Marshal(session)
		if err != nil {
			return err
		}
		return b.Put([]byte(session.ConnectionID), data)
	})
}

// UpdateSessionStatus rewrites the status of a stored session.
func (s *BoltStore) UpdateSessionStatus(_ context.Context, connectionID, status string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		data := b.Get([]byte(connectionID))
		if data == nil {
			return fmt.Errorf("%w: session %s", ErrNotFound, connectionID)
		}
		var session types.Session
		if err := json.Unmarshal(data, &session); err != nil {
			return err
		}
		session.Status = status
		updated, err := json.Marshal(&session)
		if err != nil {
			return err
		}
		return b.Put([]byte(connectionID), updated)
	})
}

// GetSession returns a stored session by connection id.
func (s *BoltStore) GetSession(_ context.Context, connectionID string) (*types.Session, error) {
	var session types.Session
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessions)
		data := b.Get([]byte(connectionID))
		if data == nil {
			return fmt.Errorf("%w: session %s", ErrNotFound, connectionID)
		}
		return json.Unmarshal(data, &session)
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}
