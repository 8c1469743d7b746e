// Package githubtest provides an in-memory stand-in for the GitHub Contents API.
package githubtest

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

const (
	Token = "test-token"
	Owner = "studio"
	Repo  = "site"
)

// Commit is one accepted PUT.
type Commit struct {
	Path    string
	Message string
	Branch  string
}

type blob struct {
	content []byte
	sha     string
}

// Server is a fake Contents API for one repository. Reads and writes are
// guarded by the same blob SHA rules as the real service.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	files    map[string]blob
	commits  []Commit
	failWith int
	gate     *readGate
}

type readGate struct {
	n       int
	arrived int
	open    chan struct{}
}

func NewServer() *Server {
	s := &Server{files: make(map[string]blob)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Seed stores content at path without recording a commit.
func (s *Server) Seed(path string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = blob{content: content, sha: hash(content, len(s.files))}
}

// File returns the stored bytes at path.
func (s *Server) File(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[path]
	return b.content, ok
}

// SHA returns the current blob SHA at path.
func (s *Server) SHA(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[path].sha
}

func (s *Server) Commits() []Commit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Commit(nil), s.commits...)
}

// FailWith makes every following request answer status. Zero disables it.
func (s *Server) FailWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = status
}

// HoldReads blocks GET requests until n of them are in flight, so that
// concurrent writers all observe the same SHA.
func (s *Server) HoldReads(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = &readGate{n: n, open: make(chan struct{})}
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+Token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
		return
	}

	prefix := fmt.Sprintf("/repos/%s/%s/contents/", Owner, Repo)
	if !strings.HasPrefix(r.URL.Path, prefix) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}
	path := strings.TrimPrefix(r.URL.Path, prefix)

	s.mu.Lock()
	status := s.failWith
	s.mu.Unlock()
	if status != 0 {
		writeJSON(w, status, map[string]string{"message": http.StatusText(status)})
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.get(w, r, path)
	case http.MethodPut:
		s.put(w, r, path)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) get(w http.ResponseWriter, r *http.Request, path string) {
	s.mu.Lock()
	gate := s.gate
	if gate != nil {
		gate.arrived++
		if gate.arrived == gate.n {
			close(gate.open)
			s.gate = nil
		}
	}
	b, ok := s.files[path]
	s.mu.Unlock()

	if gate != nil {
		<-gate.open
	}

	if r.URL.Query().Get("ref") == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "missing ref"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"type":     "file",
		"path":     path,
		"sha":      b.sha,
		"encoding": "base64",
		"content":  wrap(base64.StdEncoding.EncodeToString(b.content)),
	})
}

func (s *Server) put(w http.ResponseWriter, r *http.Request, path string) {
	var body struct {
		Message string `json:"message"`
		Content string `json:"content"`
		SHA     string `json:"sha"`
		Branch  string `json:"branch"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	content, err := base64.StdEncoding.DecodeString(body.Content)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.files[path]
	switch {
	case exists && body.SHA == "":
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": `Invalid request. "sha" wasn't supplied.`})
		return
	case exists && body.SHA != current.sha:
		writeJSON(w, http.StatusConflict, map[string]string{"message": fmt.Sprintf("%s does not match %s", path, body.SHA)})
		return
	case !exists && body.SHA != "":
		writeJSON(w, http.StatusConflict, map[string]string{"message": fmt.Sprintf("%s does not match %s", path, body.SHA)})
		return
	}

	next := blob{content: content, sha: hash(content, len(s.commits)+1)}
	s.files[path] = next
	s.commits = append(s.commits, Commit{Path: path, Message: body.Message, Branch: body.Branch})

	writeJSON(w, http.StatusOK, map[string]any{
		"content": map[string]string{"type": "file", "path": path, "sha": next.sha},
	})
}

func hash(content []byte, salt int) string {
	sum := sha1.Sum(append([]byte(fmt.Sprintf("%d:", salt)), content...))
	return hex.EncodeToString(sum[:])
}

func wrap(s string) string {
	var b strings.Builder
	for len(s) > 60 {
		b.WriteString(s[:60])
		b.WriteByte('\n')
		s = s[60:]
	}
	b.WriteString(s)
	return b.String()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
