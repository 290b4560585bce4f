package filecache

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/betforge/coupon-engine/internal/platform/logging"
)

// Store is a TTL-gated disk cache, one file per key. Validity is judged
// against the file's modification time, so a fresh Save is always valid.
// Callers are expected to check IsValid before Load.
type Store struct {
	mu       sync.Mutex
	dir      string
	ttl      time.Duration
	logger   *logging.Logger
	disabled bool
	now      func() time.Time
}

func NewStore(dir string, ttl time.Duration, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}

	s := &Store{
		dir:    dir,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		// Cache becomes a pass-through for this run; fetches still work.
		logger.Warn("create cache directory failed, disk cache disabled", "dir", dir, "error", err)
		s.disabled = true
	}

	return s
}

// IsValid reports whether a cache entry exists and its age is under the TTL.
func (s *Store) IsValid(key string) bool {
	if s.disabled {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.pathFor(key))
	if err != nil {
		return false
	}
	return s.now().Sub(info.ModTime()) < s.ttl
}

// Load returns the raw stored payload. It fails when the entry is absent;
// freshness is IsValid's job.
func (s *Store) Load(key string) ([]byte, error) {
	if s.disabled {
		return nil, fmt.Errorf("disk cache is disabled")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.pathFor(key))
	if err != nil {
		return nil, fmt.Errorf("load cache entry %q: %w", key, err)
	}
	return raw, nil
}

// Save overwrites the entry for key. Payloads that parse as a JSON array
// are stored pretty-printed for readability; anything else is stored
// verbatim. The cosmetic pass is best-effort only.
func (s *Store) Save(key string, payload []byte) error {
	if s.disabled {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := payload
	var arr []any
	if err := sonic.Unmarshal(payload, &arr); err == nil {
		if pretty, err := sonic.MarshalIndent(arr, "", "  "); err == nil {
			out = pretty
		}
	}

	if err := os.WriteFile(s.pathFor(key), out, 0o644); err != nil {
		return fmt.Errorf("save cache entry %q: %w", key, err)
	}
	return nil
}

// pathFor maps a key to a filesystem-safe location. The sanitized name
// keeps files readable; the fnv suffix keeps the mapping injective even
// when sanitization collides.
func (s *Store) pathFor(key string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))

	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, key)

	return filepath.Join(s.dir, fmt.Sprintf("cache_%s_%08x.json", sanitized, h.Sum32()))
}
