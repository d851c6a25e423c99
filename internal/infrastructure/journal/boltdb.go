package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/fastygo/productsync/domain"
)

var (
	entriesBucket = []byte("deliveries")
	orderBucket   = []byte("deliveries_by_time")
)

// Store persists completed deliveries in a BoltDB file. Entries are indexed
// twice: by delivery key for lookups and by time-ordered key for cleanup.
type Store struct {
	db *bolt.DB
}

// Open initializes the BoltDB file and ensures the buckets exist.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("journal path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{entriesBucket, orderBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Put records a delivery. Recording the same key again replaces the entry.
func (s *Store) Put(delivery domain.Delivery) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if delivery.Key == "" {
		return errors.New("delivery key is required")
	}
	entry := entryFromDelivery(delivery)

	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		entries := tx.Bucket(entriesBucket)
		order := tx.Bucket(orderBucket)

		if previous := entries.Get([]byte(entry.Key)); previous != nil {
			var old Entry
			if err := json.Unmarshal(previous, &old); err == nil {
				if err := order.Delete(orderKey(old)); err != nil {
					return err
				}
			}
		}
		if err := entries.Put([]byte(entry.Key), payload); err != nil {
			return err
		}
		return order.Put(orderKey(entry), []byte(entry.Key))
	})
}

// Get returns the entry stored under key, or nil.
func (s *Store) Get(key string) (*Entry, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	var entry *Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(entriesBucket).Get([]byte(key))
		if raw == nil {
			return nil
		}
		var decoded Entry
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return fmt.Errorf("decode journal entry %q: %w", key, err)
		}
		entry = &decoded
		return nil
	})
	return entry, err
}

// Size returns the number of stored entries.
func (s *Store) Size() (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(entriesBucket).Stats().KeyN
		return nil
	})
	return count, err
}

// Cleanup removes entries recorded before olderThan and returns how many were removed.
func (s *Store) Cleanup(olderThan time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	limit := timePrefix(olderThan)
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		entries := tx.Bucket(entriesBucket)
		order := tx.Bucket(orderBucket)

		var expired [][2][]byte
		c := order.Cursor()
		for k, v := c.First(); k != nil && string(k) < limit; k, v = c.Next() {
			expired = append(expired, [2][]byte{append([]byte(nil), k...), append([]byte(nil), v...)})
		}
		for _, pair := range expired {
			if err := entries.Delete(pair[1]); err != nil {
				return err
			}
			if err := order.Delete(pair[0]); err != nil {
				return err
			}
		}
		removed = len(expired)
		return nil
	})
	return removed, err
}

// Close closes the Bolt database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func orderKey(entry Entry) []byte {
	return []byte(timePrefix(entry.RecordedAt) + "_" + entry.Key)
}

func timePrefix(t time.Time) string {
	nanos := t.UnixNano()
	if nanos < 0 {
		nanos = 0
	}
	return fmt.Sprintf("%020d", nanos)
}
