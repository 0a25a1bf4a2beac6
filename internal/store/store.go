package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/mmcdole/collie/internal/domain"
)

// Bucket names
var (
	bucketStatus   = []byte("status")
	bucketAutoSync = []byte("autosync")
	bucketLogTail  = []byte("logtail")
)

// Every bucket holds a single record under this key
const currentKey = "current"

// SnapshotStore implements domain.SnapshotStore using BoltDB.
// Each server URL gets its own database so switching servers never mixes state.
type SnapshotStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte
}

var _ domain.SnapshotStore = (*SnapshotStore)(nil)

// NewSnapshotStore opens the store for serverURL under baseCacheDir.
// An empty baseCacheDir keeps everything in memory.
func NewSnapshotStore(baseCacheDir, serverURL string) (*SnapshotStore, error) {
	if baseCacheDir == "" {
		// Memory-only mode (no persistence)
		return &SnapshotStore{cache: make(map[string][]byte)}, nil
	}

	dir := baseCacheDir
	if serverURL != "" {
		dir = filepath.Join(baseCacheDir, hashServerURL(serverURL))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "collie.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketStatus, bucketAutoSync, bucketLogTail} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SnapshotStore{db: db, cache: make(map[string][]byte)}, nil
}

func hashServerURL(serverURL string) string {
	normalized := strings.TrimRight(strings.ToLower(serverURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (s *SnapshotStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Status ===

func (s *SnapshotStore) GetStatus() (*domain.SyncStatus, bool) {
	var status domain.SyncStatus
	if !s.get(bucketStatus, currentKey, &status) {
		return nil, false
	}
	return &status, true
}

func (s *SnapshotStore) SaveStatus(status domain.SyncStatus) error {
	return s.set(bucketStatus, currentKey, status)
}

// === Auto-sync ===

func (s *SnapshotStore) GetAutoSync() (*domain.AutoSyncState, bool) {
	var state domain.AutoSyncState
	if !s.get(bucketAutoSync, currentKey, &state) {
		return nil, false
	}
	return &state, true
}

func (s *SnapshotStore) SaveAutoSync(state domain.AutoSyncState) error {
	return s.set(bucketAutoSync, currentKey, state)
}

// === Log tail ===

func (s *SnapshotStore) GetLogTail() (*domain.LogTail, bool) {
	var tail domain.LogTail
	if !s.get(bucketLogTail, currentKey, &tail) {
		return nil, false
	}
	return &tail, true
}

func (s *SnapshotStore) SaveLogTail(tail domain.LogTail) error {
	return s.set(bucketLogTail, currentKey, tail)
}

// ClearLogTail forgets the persisted tail; a new job starts from an empty cursor
func (s *SnapshotStore) ClearLogTail() {
	s.delete(bucketLogTail, currentKey)
}

// === Generic helpers ===

func (s *SnapshotStore) get(bucket []byte, key string, dest any) bool {
	cacheKey := string(bucket) + ":" + key

	// Check memory cache first
	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	// Read from BoltDB
	var data []byte
	_ = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (s *SnapshotStore) set(bucket []byte, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	cacheKey := string(bucket) + ":" + key

	// Update memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	// Write to BoltDB
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func (s *SnapshotStore) delete(bucket []byte, key string) {
	cacheKey := string(bucket) + ":" + key

	// Clear from memory cache
	s.mu.Lock()
	delete(s.cache, cacheKey)
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	_ = s.db.Update(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bucket); b != nil {
			return b.Delete([]byte(key))
		}
		return nil
	})
}
