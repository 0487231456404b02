package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const snapshotBucket = "snapshots"

type entry struct {
	StoredAt time.Time       `json:"stored_at"`
	Data     json.RawMessage `json:"data"`
}

// SnapshotStore keeps serialised tournament snapshots in BoltDB. Entries
// older than the TTL read as misses and are dropped by Purge.
type SnapshotStore struct {
	db  *bbolt.DB
	ttl time.Duration
	now func() time.Time
}

func NewSnapshotStore(dbPath string, ttl time.Duration) (*SnapshotStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}

	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot cache at %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(snapshotBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &SnapshotStore{db: db, ttl: ttl, now: time.Now}, nil
}

// Get returns the raw snapshot stored under key if it has not expired.
func (s *SnapshotStore) Get(key string) ([]byte, bool, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket([]byte(snapshotBucket)).Get([]byte(key))
		if raw == nil {
			return nil
		}

		var e entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return err
		}
		if s.expired(e) {
			return nil
		}
		data = append([]byte(nil), e.Data...)
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return data, data != nil, nil
}

func (s *SnapshotStore) Set(key string, data []byte) error {
	raw, err := json.Marshal(entry{StoredAt: s.now(), Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(snapshotBucket)).Put([]byte(key), raw)
	})
}

func (s *SnapshotStore) Delete(key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(snapshotBucket)).Delete([]byte(key))
	})
}

// Purge removes expired and unreadable entries and reports how many went.
func (s *SnapshotStore) Purge() (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(snapshotBucket))
		var stale [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			var e entry
			if err := json.Unmarshal(v, &e); err != nil || s.expired(e) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		// Deleting inside ForEach invalidates the cursor.
		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

func (s *SnapshotStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SnapshotStore) expired(e entry) bool {
	return s.ttl > 0 && s.now().Sub(e.StoredAt) > s.ttl
}
