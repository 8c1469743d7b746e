package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/bilgisen/studio/internal/cache"
	"github.com/bilgisen/studio/internal/models"
	"github.com/rs/zerolog"
)

const updatedSuffix = "_updated"

// LocalStore mirrors the remote collections in a key-value store. It never
// returns storage failures: they are logged and the call degrades to seed
// data (reads) or to a no-op that still reports the computed result (writes).
type LocalStore struct {
	kv  cache.KV
	now func() time.Time
	log zerolog.Logger

	// Serialises read-modify-write cycles within this process.
	mu sync.Mutex
}

type LocalOption func(*LocalStore)

func WithLocalClock(now func() time.Time) LocalOption {
	return func(s *LocalStore) { s.now = now }
}

func WithLocalLogger(l zerolog.Logger) LocalOption {
	return func(s *LocalStore) { s.log = l }
}

func NewLocalStore(kv cache.KV, opts ...LocalOption) *LocalStore {
	s := &LocalStore{
		kv:  kv,
		now: time.Now,
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LocalStore) GetAll(ctx context.Context, c Collection) ([]Record, error) {
	return s.load(ctx, c), nil
}

func (s *LocalStore) Create(ctx context.Context, c Collection, fields Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec, next := applyCreate(c, s.load(ctx, c), fields, now)
	s.store(ctx, c.LocalKey, next, now)
	return rec, nil
}

func (s *LocalStore) Update(ctx context.Context, c Collection, id string, patch Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	recs := s.load(ctx, c)
	rec, err := applyUpdate(c, recs, id, patch, now)
	if err != nil {
		return nil, err
	}
	s.store(ctx, c.LocalKey, recs, now)
	return rec, nil
}

func (s *LocalStore) Remove(ctx context.Context, c Collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, removed := applyRemove(s.load(ctx, c), id)
	if removed {
		s.store(ctx, c.LocalKey, next, s.now())
	}
	return nil
}

func (s *LocalStore) GetDocument(ctx context.Context, page string) (Record, error) {
	key := pageKey(page)
	raw, ok := s.get(ctx, key)
	if ok {
		rec, err := NewRecordFromJSON([]byte(raw))
		if err == nil {
			return rec, nil
		}
		s.fail("decode", key, err)
	}
	if rec, ok := seedDocument(page); ok {
		return rec, nil
	}
	return Record{}, nil
}

func (s *LocalStore) SaveDocument(ctx context.Context, page string, doc Record) (Record, error) {
	now := s.now()
	stamped := stampDocument(doc, now)
	s.store(ctx, pageKey(page), stamped, now)
	return stamped, nil
}

// LastUpdated returns the time of the last local write to key, if any.
func (s *LocalStore) LastUpdated(ctx context.Context, key string) (string, bool) {
	return s.get(ctx, key+updatedSuffix)
}

func (s *LocalStore) load(ctx context.Context, c Collection) []Record {
	raw, ok := s.get(ctx, c.LocalKey)
	if !ok {
		return seedCollection(c)
	}
	recs, err := parseCollection([]byte(raw))
	if err != nil {
		s.fail("decode", c.LocalKey, err)
		return seedCollection(c)
	}
	return recs
}

func (s *LocalStore) get(ctx context.Context, key string) (string, bool) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		s.fail("read", key, err)
		return "", false
	}
	return raw, ok
}

func (s *LocalStore) store(ctx context.Context, key string, v any, now time.Time) {
	data, err := json.Marshal(v)
	if err != nil {
		s.fail("encode", key, err)
		return
	}
	if err := s.kv.Set(ctx, key, string(data)); err != nil {
		s.fail("write", key, err)
		return
	}
	if err := s.kv.Set(ctx, key+updatedSuffix, models.FormatTime(now)); err != nil {
		s.fail("write", key+updatedSuffix, err)
	}
}

func (s *LocalStore) fail(op, key string, err error) {
	s.log.Warn().
		Err(&Error{Op: op, Path: key, Kind: ErrStorage, Err: err}).
		Msg("Local storage operation failed, continuing with defaults")
}

func pageKey(page string) string {
	return fmt.Sprintf("page_%s", page)
}
