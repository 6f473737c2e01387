package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/xyqotech/xyqo-home/model"
)

// fingerprintLen is the hex-digest prefix length used as the public
// processing id. Short enough to be a readable identifier; collision
// resistance at this length is a known single-tenant tradeoff.
const fingerprintLen = 16

// ErrNotFound signals a fingerprint with no cached entry.
var ErrNotFound = errors.New("report not found")

// Fingerprint returns the content-addressed identifier for an upload:
// hex SHA-256 of the raw bytes, truncated. Identical bytes always map to
// the identical fingerprint.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}

// CacheEntry is the cached outcome of one analysis: the structured
// document plus the rendered report bytes.
type CacheEntry struct {
	Fingerprint string
	Analysis    *model.AnalysisDocument
	Report      []byte
	ContentType string
	CreatedAt   time.Time
}

// ReportStore maps fingerprints to cache entries. Implementations must be
// safe for concurrent use by in-flight requests.
type ReportStore interface {
	// Put stores an entry, overwriting any previous one for the same
	// fingerprint. Idempotent.
	Put(ctx context.Context, entry *CacheEntry) error
	// Get returns the entry for a fingerprint, or ErrNotFound.
	Get(ctx context.Context, fingerprint string) (*CacheEntry, error)
}

// MemoryStore is the in-process ReportStore. Entries live for the process
// lifetime; a restart loses all cached reports, which is acceptable for
// the stateless-by-design deployment. maxReports of 0 means unlimited.
type MemoryStore struct {
	entries    map[string]*CacheEntry
	mu         sync.RWMutex
	maxReports int
}

func NewMemoryStore(maxReports int) *MemoryStore {
	if maxReports < 0 {
		maxReports = 0
	}
	return &MemoryStore{
		entries:    make(map[string]*CacheEntry),
		maxReports: maxReports,
	}
}

func (s *MemoryStore) Put(_ context.Context, entry *CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	s.entries[entry.Fingerprint] = entry

	s.cleanupIfNeeded()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, fingerprint string) (*CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[fingerprint]
	if !ok {
		return nil, ErrNotFound
	}
	return entry, nil
}

// Count returns the number of cached entries.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// cleanupIfNeeded removes oldest entries if the store exceeds maxReports.
// Must be called with the lock held.
func (s *MemoryStore) cleanupIfNeeded() {
	if s.maxReports <= 0 {
		return
	}
	if len(s.entries) <= s.maxReports {
		return
	}

	entries := make([]*CacheEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	removeCount := len(entries) - s.maxReports
	for i := 0; i < removeCount; i++ {
		delete(s.entries, entries[i].Fingerprint)
	}
}
