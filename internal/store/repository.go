package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"fleetchat/internal/types"
)

var bucketSessionIndex = []byte("session_index")

type Repository interface {
	SessionIndex() SessionIndexStore
	Close() error
}

type bboltRepository struct {
	db       *bolt.DB
	sessions SessionIndexStore
}

func NewBboltRepository(path string) (Repository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("repository db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := initBboltSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &bboltRepository{
		db:       db,
		sessions: &bboltSessionIndexStore{db: db, limit: DefaultSessionIndexLimit},
	}, nil
}

func (r *bboltRepository) SessionIndex() SessionIndexStore {
	return r.sessions
}

func (r *bboltRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func initBboltSchema(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSessionIndex)
		return err
	})
}

// SessionRecorder adapts a SessionIndexStore to the session store's
// recorder hook.
type SessionRecorder struct {
	Index SessionIndexStore
}

func (r SessionRecorder) RecordSession(ctx context.Context, session types.Session) error {
	if r.Index == nil {
		return nil
	}
	_, err := r.Index.UpsertRecord(ctx, &session)
	return err
}
