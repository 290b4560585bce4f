package filestore

import (
	"fmt"
	"os"
	"sync"

	sonic "github.com/bytedance/sonic"
	"github.com/betforge/coupon-engine/internal/platform/logging"
)

// IdentityStore persists the team-name to provider-id map as one flat JSON
// document. Identities are assumed stable, so entries never expire.
// Misses are not stored; resolution is re-attempted on every miss.
type IdentityStore struct {
	mu     sync.Mutex
	path   string
	ids    map[string]int64
	logger *logging.Logger
}

func NewIdentityStore(path string, logger *logging.Logger) *IdentityStore {
	if logger == nil {
		logger = logging.Default()
	}

	s := &IdentityStore{
		path:   path,
		ids:    make(map[string]int64),
		logger: logger,
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("load identity cache failed, starting empty", "path", path, "error", err)
		}
		return s
	}
	if err := sonic.Unmarshal(raw, &s.ids); err != nil {
		logger.Warn("decode identity cache failed, starting empty", "path", path, "error", err)
		s.ids = make(map[string]int64)
	}

	return s
}

func (s *IdentityStore) Lookup(key string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.ids[key]
	return id, ok
}

// Put records a resolved identity and rewrites the whole document.
func (s *IdentityStore) Put(key string, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids[key] = id
	if err := s.persistLocked(); err != nil {
		s.logger.Warn("persist identity cache failed", "path", s.path, "error", err)
	}
}

func (s *IdentityStore) persistLocked() error {
	raw, err := sonic.Marshal(s.ids)
	if err != nil {
		return fmt.Errorf("encode identity cache: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("write identity cache: %w", err)
	}
	return nil
}
