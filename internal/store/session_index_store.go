package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"

	bolt "go.etcd.io/bbolt"

	"fleetchat/internal/types"
)

const DefaultSessionIndexLimit = 20

// SessionIndexStore remembers sessions used from this machine, most recent
// first. It is a lookup aid for restore and is never read automatically.
type SessionIndexStore interface {
	ListRecords(ctx context.Context) ([]*types.Session, error)
	GetRecord(ctx context.Context, sessionID string) (*types.Session, bool, error)
	UpsertRecord(ctx context.Context, record *types.Session) (*types.Session, error)
	DeleteRecord(ctx context.Context, sessionID string) error
}

type bboltSessionIndexStore struct {
	db    *bolt.DB
	limit int
	mu    sync.Mutex
}

func (s *bboltSessionIndexStore) ListRecords(ctx context.Context) ([]*types.Session, error) {
	out := make([]*types.Session, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessionIndex)
		if b == nil {
			return nil
		}
		var err error
		out, err = decodeSessions(b)
		return err
	})
	if err != nil {
		return nil, err
	}
	sortSessions(out)
	return out, nil
}

func (s *bboltSessionIndexStore) GetRecord(ctx context.Context, sessionID string) (*types.Session, bool, error) {
	var (
		record *types.Session
		ok     bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessionIndex)
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(strings.TrimSpace(sessionID)))
		if len(raw) == 0 {
			return nil
		}
		var decoded types.Session
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return err
		}
		record = &decoded
		ok = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return record, ok, nil
}

func (s *bboltSessionIndexStore) UpsertRecord(ctx context.Context, record *types.Session) (*types.Session, error) {
	if record == nil {
		return nil, errors.New("session record is required")
	}
	id := strings.TrimSpace(record.ID)
	if id == "" {
		return nil, errors.New("session id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := record.Clone()
	stored.ID = id
	payload, err := json.Marshal(stored)
	if err != nil {
		return nil, err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketSessionIndex)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(id), payload); err != nil {
			return err
		}
		return s.pruneLocked(b)
	})
	if err != nil {
		return nil, err
	}
	return stored.Clone(), nil
}

func (s *bboltSessionIndexStore) DeleteRecord(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessionIndex)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(strings.TrimSpace(sessionID)))
	})
}

// pruneLocked drops the oldest records beyond the limit.
func (s *bboltSessionIndexStore) pruneLocked(b *bolt.Bucket) error {
	if s.limit <= 0 {
		return nil
	}
	records, err := decodeSessions(b)
	if err != nil {
		return err
	}
	if len(records) <= s.limit {
		return nil
	}
	sortSessions(records)
	for _, stale := range records[s.limit:] {
		if err := b.Delete([]byte(stale.ID)); err != nil {
			return err
		}
	}
	return nil
}

func decodeSessions(b *bolt.Bucket) ([]*types.Session, error) {
	out := make([]*types.Session, 0)
	err := b.ForEach(func(k, v []byte) error {
		var record types.Session
		if err := json.Unmarshal(v, &record); err != nil {
			return err
		}
		out = append(out, &record)
		return nil
	})
	return out, err
}

func sortSessions(records []*types.Session) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].LastUsedAt.After(records[j].LastUsedAt)
	})
}
