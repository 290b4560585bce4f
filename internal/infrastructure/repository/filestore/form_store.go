package filestore

import (
	"fmt"
	"os"
	"sync"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/betforge/coupon-engine/internal/domain/history"
	"github.com/betforge/coupon-engine/internal/platform/logging"
)

type formEntry struct {
	Timestamp int64                 `json:"timestamp"`
	Results   []history.MatchResult `json:"results"`
}

// FormStore persists recent-form lookups keyed by normalized team name.
// Each entry carries its own stored timestamp and is TTL-gated
// independently; the whole document is rewritten on every mutation.
type FormStore struct {
	mu      sync.Mutex
	path    string
	ttl     time.Duration
	entries map[string]formEntry
	logger  *logging.Logger
	now     func() time.Time
}

func NewFormStore(path string, ttl time.Duration, logger *logging.Logger) *FormStore {
	if logger == nil {
		logger = logging.Default()
	}

	s := &FormStore{
		path:    path,
		ttl:     ttl,
		entries: make(map[string]formEntry),
		logger:  logger,
		now:     time.Now,
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("load form cache failed, starting empty", "path", path, "error", err)
		}
		return s
	}
	if err := sonic.Unmarshal(raw, &s.entries); err != nil {
		logger.Warn("decode form cache failed, starting empty", "path", path, "error", err)
		s.entries = make(map[string]formEntry)
	}

	return s
}

// Get returns the cached results for key when the entry is still fresh.
func (s *FormStore) Get(key string) ([]history.MatchResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if s.now().Sub(time.UnixMilli(entry.Timestamp)) >= s.ttl {
		return nil, false
	}

	return entry.Results, true
}

// Put stores fresh results under key and rewrites the whole document.
func (s *FormStore) Put(key string, results []history.MatchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = formEntry{
		Timestamp: s.now().UnixMilli(),
		Results:   results,
	}
	if err := s.persistLocked(); err != nil {
		s.logger.Warn("persist form cache failed", "path", s.path, "error", err)
	}
}

func (s *FormStore) persistLocked() error {
	raw, err := sonic.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode form cache: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("write form cache: %w", err)
	}
	return nil
}
