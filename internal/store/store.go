// Package store provides the durable key/value store shared by the scan
// orchestrator (single producer) and every attached UI surface (passive
// readers). Writes are last-writer-wins with no transactional locking.
package store

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/elitetrace/factcheckd/internal/verdict"
)

// Bucket names.
const (
	bucketSettings = "settings"
	bucketState    = "state"
	bucketHistory  = "history"
)

// Keys within buckets.
const (
	keyAPIKey    = "apikey"
	keyScanState = "scanstate"
	keyEntries   = "entries"
)

// MaxHistoryEntries caps the rolling history; the oldest entry is evicted
// when a new one is appended at the front.
const MaxHistoryEntries = 20

// ScanState is the process-wide transient scan status. It is reset to the
// zero value on explicit reset, set scanning at scan start, and cleared with
// either a result or nothing on completion.
type ScanState struct {
	IsScanning       bool             `json:"isScanning"`
	ScanStatusText   string           `json:"scanStatusText"`
	LatestScanResult *verdict.Verdict `json:"latestScanResult"`
}

// Store is a bbolt-backed implementation of the persistent store.
type Store struct {
	db *bolt.DB
}

// Open creates or opens the store at the given path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range []string{bucketSettings, bucketState, bucketHistory} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// APIKey returns the stored model API key, or empty string when unset.
// Absence is the caller's precondition failure to surface, not this layer's.
func (s *Store) APIKey() (string, error) {
	var key string
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucketSettings)).Get([]byte(keyAPIKey))
		if data != nil {
			key = string(data)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("read api key: %w", err)
	}
	return key, nil
}

// SetAPIKey stores the model API key.
func (s *Store) SetAPIKey(key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSettings)).Put([]byte(keyAPIKey), []byte(key))
	})
	if err != nil {
		return fmt.Errorf("write api key: %w", err)
	}
	return nil
}

// ScanState returns the persisted scan state, zero-valued when never set.
func (s *Store) ScanState() (ScanState, error) {
	var state ScanState
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucketState)).Get([]byte(keyScanState))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &state)
	})
	if err != nil {
		return ScanState{}, fmt.Errorf("read scan state: %w", err)
	}
	return state, nil
}

// SetScanState persists the scan state wholesale.
func (s *Store) SetScanState(state ScanState) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("marshal scan state: %w", err)
		}
		return tx.Bucket([]byte(bucketState)).Put([]byte(keyScanState), data)
	})
	if err != nil {
		return fmt.Errorf("write scan state: %w", err)
	}
	return nil
}

// History returns the rolling verdict history, newest first.
func (s *Store) History() ([]verdict.HistoryEntry, error) {
	var entries []verdict.HistoryEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucketHistory)).Get([]byte(keyEntries))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &entries)
	})
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if entries == nil {
		entries = []verdict.HistoryEntry{}
	}
	return entries, nil
}

// AppendHistory prepends an entry, evicting beyond MaxHistoryEntries, and
// returns the updated history. The orchestrator only ever appends; entries
// are never individually mutated or removed.
func (s *Store) AppendHistory(entry verdict.HistoryEntry) ([]verdict.HistoryEntry, error) {
	var updated []verdict.HistoryEntry
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketHistory))

		var entries []verdict.HistoryEntry
		if data := bucket.Get([]byte(keyEntries)); data != nil {
			if err := json.Unmarshal(data, &entries); err != nil {
				return fmt.Errorf("unmarshal history: %w", err)
			}
		}

		entries = append([]verdict.HistoryEntry{entry}, entries...)
		if len(entries) > MaxHistoryEntries {
			entries = entries[:MaxHistoryEntries]
		}

		data, err := json.Marshal(entries)
		if err != nil {
			return fmt.Errorf("marshal history: %w", err)
		}
		if err := bucket.Put([]byte(keyEntries), data); err != nil {
			return err
		}
		updated = entries
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}
	return updated, nil
}

// ClearHistory removes all history entries in one explicit operation.
func (s *Store) ClearHistory() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketHistory)).Delete([]byte(keyEntries))
	})
	if err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
