package content

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/bilgisen/studio/internal/models"
	"github.com/bilgisen/studio/internal/storage"
	"github.com/rs/zerolog"
)

// RemoteStore is the GitHub-backed document store as seen by the service.
type RemoteStore interface {
	storage.DocumentStore
	IsConfigured() bool
	CheckRevision(ctx context.Context, c storage.Collection) (bool, error)
}

const (
	SourceGitHub = "github"
	SourceLocal  = "local"
)

// Service is the single entry point for reading and writing site content.
// Whether it talks to GitHub is decided once, at construction.
type Service struct {
	policy  *policy
	remote  RemoteStore
	cache   *memo
	journal *journal
	now     func() time.Time
	log     zerolog.Logger

	checkEvery time.Duration
	checkMu    sync.Mutex
	lastCheck  time.Time
}

type Option func(*Service)

// WithCacheTTL bounds how long cached reads are served. Zero keeps them
// until a write invalidates them.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) { s.cache.ttl = ttl }
}

func WithJournalSize(n int) Option {
	return func(s *Service) { s.journal = newJournal(n) }
}

// WithRemoteCheckInterval throttles how often Status asks GitHub whether
// the data files moved. Zero disables the check.
func WithRemoteCheckInterval(d time.Duration) Option {
	return func(s *Service) { s.checkEvery = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
		s.cache.now = now
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.log = l
		s.policy.log = l
	}
}

func New(remote RemoteStore, local storage.DocumentStore, opts ...Option) *Service {
	useRemote := remote != nil && remote.IsConfigured()
	s := &Service{
		policy: &policy{
			useRemote: useRemote,
			remote:    remote,
			local:     local,
			log:       zerolog.Nop(),
		},
		remote:  remote,
		cache:   newMemo(0, time.Now),
		journal: newJournal(256),
		now:     time.Now,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.log.Info().
		Str("source", s.Source()).
		Msg("Content service ready")
	return s
}

// IsRemoteConfigured reports whether GitHub is the active store.
func (s *Service) IsRemoteConfigured() bool {
	return s.policy.useRemote
}

// Source names the active store.
func (s *Service) Source() string {
	if s.policy.useRemote {
		return SourceGitHub
	}
	return SourceLocal
}

// collection reads all records of c through the cache.
func (s *Service) collection(ctx context.Context, c storage.Collection) ([]storage.Record, error) {
	if v, ok := s.cache.get(c.Name); ok {
		return v.([]storage.Record), nil
	}
	tok := s.cache.token(c.Name)

	recs, primary, err := read(s.policy, "list "+c.Name, func(st storage.DocumentStore) ([]storage.Record, error) {
		return st.GetAll(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	// Fallback data is not cached so the next read tries GitHub again.
	if primary {
		s.cache.set(c.Name, tok, recs)
	}
	return recs, nil
}

func (s *Service) find(ctx context.Context, c storage.Collection, match func(storage.Record) bool, what string) (storage.Record, error) {
	recs, err := s.collection(ctx, c)
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		if match(r) {
			return r, nil
		}
	}
	return nil, &storage.Error{Op: "get", Path: c.Name + "#" + what, Kind: storage.ErrNotFound}
}

func (s *Service) create(ctx context.Context, c storage.Collection, fields storage.Record) (storage.Record, error) {
	rec, err := write(s.policy, "create "+c.Name, func(st storage.DocumentStore) (storage.Record, error) {
		return st.Create(ctx, c, fields)
	})
	if err != nil {
		return nil, err
	}
	s.changed(c.Name, c.Name, "create", rec)
	return rec, nil
}

func (s *Service) update(ctx context.Context, c storage.Collection, id string, patch storage.Record) (storage.Record, error) {
	rec, err := write(s.policy, "update "+c.Name, func(st storage.DocumentStore) (storage.Record, error) {
		return st.Update(ctx, c, id, patch)
	})
	if err != nil {
		return nil, err
	}
	s.changed(c.Name, c.Name, "update", rec)
	return rec, nil
}

func (s *Service) remove(ctx context.Context, c storage.Collection, id string) error {
	_, err := write(s.policy, "delete "+c.Name, func(st storage.DocumentStore) (struct{}, error) {
		return struct{}{}, st.Remove(ctx, c, id)
	})
	if err != nil {
		return err
	}
	s.changed(c.Name, c.Name, "delete", map[string]string{"id": id})
	return nil
}

// changed invalidates exactly one cache key and journals the update.
func (s *Service) changed(cacheKey, typ, action string, data any) {
	s.cache.invalidate(cacheKey)

	var raw json.RawMessage
	if data != nil {
		var err error
		if raw, err = json.Marshal(data); err != nil {
			s.log.Warn().Err(err).Str("type", typ).Msg("Could not encode update payload")
			raw = nil
		}
	}
	s.journal.append(models.ContentUpdate{
		Type:      typ,
		Action:    action,
		Data:      raw,
		Timestamp: models.FormatTime(s.now()),
	})
}
