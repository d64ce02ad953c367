// Package remotetest provides an in-memory todo API for tests.
package remotetest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"

	"github.com/Makepad-fr/tada-sync/internal/logging"
	"github.com/Makepad-fr/tada-sync/internal/model"
	"github.com/Makepad-fr/tada-sync/internal/remote"
)

// Failure selects how an endpoint misbehaves.
type Failure int

const (
	OK         Failure = iota
	FailStatus         // HTTP 500
	FailReject         // 200 with success=false
)

// Request is one recorded call.
type Request struct {
	Path   string
	Header http.Header
	Body   map[string]any
}

// Server is a fake todo API. The zero value is not usable; call New.
type Server struct {
	mu       sync.Mutex
	items    []model.Item
	requests []Request
	failures map[string]Failure
	holds    map[string]chan struct{}
	logger   *log.Logger
}

// New returns a server seeded with items.
func New(items ...model.Item) *Server {
	return &Server{
		items:    model.Clone(items),
		failures: make(map[string]Failure),
		holds:    make(map[string]chan struct{}),
		logger:   logging.Discard(),
	}
}

// SetLogger routes the per-request log lines.
func (s *Server) SetLogger(l *log.Logger) { s.logger = l }

// Start serves s on a local port until the test ends.
func Start(t testing.TB, s *Server) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// Handler returns the router for the four endpoints.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, req)
			s.logger.Debug("handled", "path", req.URL.Path, "status", m.Code, "duration", m.Duration)
		})
	})
	r.Methods(http.MethodPost).Path(remote.PathList).HandlerFunc(s.handle(s.list))
	r.Methods(http.MethodPost).Path(remote.PathSubmit).HandlerFunc(s.handle(s.submit))
	r.Methods(http.MethodPost).Path(remote.PathUpdateToggle).HandlerFunc(s.handle(s.toggle))
	r.Methods(http.MethodPost).Path(remote.PathUpdateTitle).HandlerFunc(s.handle(s.title))
	return r
}

// Fail makes path misbehave until reset with OK.
func (s *Server) Fail(path string, f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = f
}

// Hold blocks responses on path until the returned release func is called.
// The request is recorded before it blocks.
func (s *Server) Hold(path string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.holds[path] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.holds, path)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Items returns the server-side list.
func (s *Server) Items() []model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.Clone(s.items)
}

// Requests returns recorded calls, optionally filtered by path.
func (s *Server) Requests(path string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Request
	for _, r := range s.requests {
		if path == "" || r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

type handlerFunc func(body map[string]any) (status int, resp any)

func (s *Server) handle(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		raw, _ := io.ReadAll(req.Body)
		body := map[string]any{}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &body)
		}
		path := req.URL.Path

		s.mu.Lock()
		s.requests = append(s.requests, Request{Path: path, Header: req.Header.Clone(), Body: body})
		hold := s.holds[path]
		s.mu.Unlock()

		if hold != nil {
			select {
			case <-hold:
			case <-req.Context().Done():
				return
			}
		}

		s.mu.Lock()
		f := s.failures[path]
		s.mu.Unlock()

		switch f {
		case FailStatus:
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		case FailReject:
			writeJSON(w, http.StatusOK, map[string]any{"success": false})
			return
		}

		status, resp := h(body)
		writeJSON(w, status, resp)
	}
}

func (s *Server) list(map[string]any) (int, any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return http.StatusOK, map[string]any{"success": true, "initTodo": model.Clone(s.items)}
}

func (s *Server) submit(body map[string]any) (int, any) {
	id, _ := body["id"].(string)
	title, _ := body["title"].(string)
	completed, _ := body["completed"].(bool)
	if id == "" || title == "" {
		return http.StatusBadRequest, map[string]any{"success": false}
	}
	s.mu.Lock()
	s.items = model.Append(s.items, model.Item{ID: id, Title: title, Completed: completed})
	s.mu.Unlock()
	return http.StatusOK, map[string]any{"success": true}
}

func (s *Server) toggle(body map[string]any) (int, any) {
	id, _ := body["id"].(string)
	completed, _ := body["completed"].(bool)
	s.mu.Lock()
	s.items = model.WithCompleted(s.items, id, completed)
	s.mu.Unlock()
	return http.StatusOK, map[string]any{"success": true}
}

func (s *Server) title(body map[string]any) (int, any) {
	id, _ := body["id"].(string)
	title, _ := body["title"].(string)
	s.mu.Lock()
	s.items = model.WithTitle(s.items, id, title)
	it, _, _ := model.Find(s.items, id)
	s.mu.Unlock()
	return http.StatusOK, map[string]any{"success": true, "data": it}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
