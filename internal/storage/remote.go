package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"sync"
	"time"

	"github.com/bilgisen/studio/internal/github"
	"github.com/rs/zerolog"
)

// ContentsAPI is the part of the GitHub client the remote store needs.
type ContentsAPI interface {
	IsConfigured() bool
	GetFile(ctx context.Context, path string) (*github.File, error)
	PutFile(ctx context.Context, req github.PutFileRequest) (*github.File, error)
}

// RemoteStore keeps collections as JSON files in a GitHub repository. Each
// write is a read for the current SHA followed by a SHA-guarded PUT.
type RemoteStore struct {
	api      ContentsAPI
	dataPath string
	now      func() time.Time
	log      zerolog.Logger

	// Blob SHAs produced by this process's own commits, by file path.
	mu       sync.Mutex
	observed map[string]string
}

type RemoteOption func(*RemoteStore)

// WithClock overrides the time source used for ids and timestamps.
func WithClock(now func() time.Time) RemoteOption {
	return func(s *RemoteStore) { s.now = now }
}

func WithRemoteLogger(l zerolog.Logger) RemoteOption {
	return func(s *RemoteStore) { s.log = l }
}

func NewRemoteStore(api ContentsAPI, dataPath string, opts ...RemoteOption) *RemoteStore {
	if dataPath == "" {
		dataPath = "data"
	}
	s := &RemoteStore{
		api:      api,
		dataPath: dataPath,
		now:      time.Now,
		log:      zerolog.Nop(),
		observed: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsConfigured reports whether remote credentials are present.
func (s *RemoteStore) IsConfigured() bool {
	return s.api != nil && s.api.IsConfigured()
}

func (s *RemoteStore) filePath(name string) string {
	return path.Join(s.dataPath, name)
}

func (s *RemoteStore) GetAll(ctx context.Context, c Collection) ([]Record, error) {
	p := s.filePath(c.File)
	recs, _, err := s.readCollection(ctx, p)
	if err != nil {
		return nil, s.wrap("get", p, err)
	}
	return recs, nil
}

// Revision returns the current blob SHA of the collection file.
func (s *RemoteStore) Revision(ctx context.Context, c Collection) (string, error) {
	p := s.filePath(c.File)
	f, err := s.api.GetFile(ctx, p)
	if err != nil {
		return "", s.wrap("revision", p, err)
	}
	return f.SHA, nil
}

// CheckRevision reports whether the collection file changed since the last
// check or since this process last committed it. The first call for a file
// only records a baseline.
func (s *RemoteStore) CheckRevision(ctx context.Context, c Collection) (bool, error) {
	sha, err := s.Revision(ctx, c)
	if errors.Is(err, ErrNotFound) {
		sha, err = "", nil
	}
	if err != nil {
		return false, err
	}

	p := s.filePath(c.File)
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, seen := s.observed[p]
	s.observed[p] = sha
	return seen && prev != sha, nil
}

func (s *RemoteStore) Create(ctx context.Context, c Collection, fields Record) (Record, error) {
	p := s.filePath(c.File)
	recs, sha, err := s.readCollection(ctx, p)
	if err != nil && !isNotFound(err) {
		return nil, s.wrap("create", p, err)
	}
	// A missing file is created by this write.
	if recs == nil {
		recs = []Record{}
	}

	rec, next := applyCreate(c, recs, fields, s.now())
	if err := s.write(ctx, p, sha, next, "create "+rec.ID()); err != nil {
		return nil, s.wrap("create", p, err)
	}
	return rec, nil
}

func (s *RemoteStore) Update(ctx context.Context, c Collection, id string, patch Record) (Record, error) {
	p := s.filePath(c.File)
	recs, sha, err := s.readCollection(ctx, p)
	if err != nil {
		return nil, s.wrap("update", p, err)
	}

	rec, err := applyUpdate(c, recs, id, patch, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.write(ctx, p, sha, recs, "update "+id); err != nil {
		return nil, s.wrap("update", p, err)
	}
	return rec, nil
}

func (s *RemoteStore) Remove(ctx context.Context, c Collection, id string) error {
	p := s.filePath(c.File)
	recs, sha, err := s.readCollection(ctx, p)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return s.wrap("delete", p, err)
	}

	next, removed := applyRemove(recs, id)
	if !removed {
		return nil
	}
	if err := s.write(ctx, p, sha, next, "delete "+id); err != nil {
		return s.wrap("delete", p, err)
	}
	return nil
}

func (s *RemoteStore) GetDocument(ctx context.Context, page string) (Record, error) {
	p := s.filePath(PageFile(page))
	f, err := s.api.GetFile(ctx, p)
	if err != nil {
		return nil, s.wrap("get", p, err)
	}
	rec, err := NewRecordFromJSON(f.Content)
	if err != nil {
		return nil, &Error{Op: "get", Path: p, Kind: ErrTransport, Err: err}
	}
	return rec, nil
}

func (s *RemoteStore) SaveDocument(ctx context.Context, page string, doc Record) (Record, error) {
	p := s.filePath(PageFile(page))
	var sha string
	f, err := s.api.GetFile(ctx, p)
	switch {
	case err == nil:
		sha = f.SHA
	case !isNotFound(err):
		return nil, s.wrap("save", p, err)
	}

	stamped := stampDocument(doc, s.now())
	if err := s.write(ctx, p, sha, stamped, "save"); err != nil {
		return nil, s.wrap("save", p, err)
	}
	return stamped, nil
}

func (s *RemoteStore) readCollection(ctx context.Context, p string) ([]Record, string, error) {
	f, err := s.api.GetFile(ctx, p)
	if err != nil {
		return nil, "", err
	}
	recs, err := parseCollection(f.Content)
	if err != nil {
		return nil, "", fmt.Errorf("parse %s: %w", p, err)
	}
	return recs, f.SHA, nil
}

func (s *RemoteStore) write(ctx context.Context, p, sha string, v any, action string) error {
	data, err := encode(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", p, err)
	}

	f, err := s.api.PutFile(ctx, github.PutFileRequest{
		Path:    p,
		Content: data,
		SHA:     sha,
		Message: fmt.Sprintf("Update %s via studio admin (%s)", p, action),
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.observed[p] = f.SHA
	s.mu.Unlock()

	s.log.Info().
		Str("path", p).
		Str("action", action).
		Str("sha", f.SHA).
		Msg("Committed document")
	return nil
}

// wrap classifies a client error into the storage taxonomy.
func (s *RemoteStore) wrap(op, p string, err error) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}

	var re *github.ResponseError
	if errors.As(err, &re) {
		kind := ErrTransport
		switch {
		case re.StatusCode == http.StatusUnauthorized, re.StatusCode == http.StatusForbidden:
			kind = ErrAuth
		case re.StatusCode == http.StatusNotFound:
			kind = ErrNotFound
		case re.IsConflict():
			kind = ErrConflict
		}
		return &Error{Op: op, Path: p, Kind: kind, Err: err}
	}
	return &Error{Op: op, Path: p, Kind: ErrTransport, Err: err}
}

func isNotFound(err error) bool {
	return err != nil && github.StatusCode(err) == http.StatusNotFound
}

// NewRecordFromJSON parses a JSON object into a Record.
func NewRecordFromJSON(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	if rec == nil {
		rec = Record{}
	}
	return rec, nil
}
