package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists carts by owner. Load of an unknown owner returns no items
// and no error.
type Store interface {
	Load(ctx context.Context, owner string) ([]Item, error)
	Save(ctx context.Context, owner string, items []Item) error
	Delete(ctx context.Context, owner string) error
}

// ── Memory ───────────────────────────────────────────────────────────────────

// MemoryStore keeps carts in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[string][]Item
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string][]Item)}
}

func (s *MemoryStore) Load(_ context.Context, owner string) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Item(nil), s.carts[owner]...), nil
}

func (s *MemoryStore) Save(_ context.Context, owner string, items []Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[owner] = append([]Item(nil), items...)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, owner)
	return nil
}

// ── File ─────────────────────────────────────────────────────────────────────

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// FileStore writes one JSON file per owner under dir.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cart: create %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(owner string) string {
	return filepath.Join(s.dir, "cart-"+unsafeName.ReplaceAllString(owner, "_")+".json")
}

func (s *FileStore) Load(_ context.Context, owner string) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(owner))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode cart file: %w", err)
	}
	return items, nil
}

// Save writes to a temp file and renames it over the old one.
func (s *FileStore) Save(_ context.Context, owner string, items []Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, "cart-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path(owner))
}

func (s *FileStore) Delete(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(owner))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Prune deletes carts nobody has touched for ttl.
func (s *FileStore) Prune(_ context.Context, ttl time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matches, err := filepath.Glob(filepath.Join(s.dir, "cart-*.json"))
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-ttl)
	n := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return n, err
		}
		n++
	}
	return n, nil
}

// ── Redis ────────────────────────────────────────────────────────────────────

// DefaultTTL is how long an untouched cart stays in Redis.
const DefaultTTL = 30 * 24 * time.Hour

// RedisStore keeps each cart as a JSON string at foodle:cart:<owner>.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func redisKey(owner string) string { return "foodle:cart:" + owner }

func (s *RedisStore) Load(ctx context.Context, owner string) ([]Item, error) {
	data, err := s.rdb.Get(ctx, redisKey(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return items, nil
}

func (s *RedisStore) Save(ctx context.Context, owner string, items []Item) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, redisKey(owner), data, s.ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, owner string) error {
	return s.rdb.Del(ctx, redisKey(owner)).Err()
}
