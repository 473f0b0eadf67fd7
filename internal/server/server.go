// Package server exposes the search engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/filesearch/internal/config"
	"github.com/standardbeagle/filesearch/internal/debug"
	"github.com/standardbeagle/filesearch/internal/errors"
	"github.com/standardbeagle/filesearch/internal/results"
	"github.com/standardbeagle/filesearch/internal/search"
	"github.com/standardbeagle/filesearch/internal/version"
)

// Server serves GET /filesearch and GET /ping.
type Server struct {
	cfg       *config.Config
	engine    *search.Engine
	listener  net.Listener
	server    *http.Server
	startTime time.Time
	requests  atomic.Int64
	wg        sync.WaitGroup
	mu        sync.RWMutex
	running   bool
}

// NewServer creates a server for engine. Nothing listens until Start.
func NewServer(cfg *config.Config, engine *search.Engine) *Server {
	return &Server{
		cfg:       cfg,
		engine:    engine,
		startTime: time.Now(),
	}
}

// Handler returns the request router. Tests mount it on httptest servers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerHandlers(mux)
	return mux
}

func (s *Server) registerHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/filesearch", s.handleSearch)
	mux.HandleFunc("/ping", s.handlePing)
}

// Start listens on addr and serves in the background. An addr ending in
// ":0" picks a free port; Addr reports it.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("server already running")
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.running = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			debug.LogServer("Server error: %v\n", err)
		}
	}()

	debug.LogServer("File search server listening on %s\n", listener.Addr())
	debug.LogServer("Workspace root: %s\n", s.cfg.Workspace.Root)
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting connections and waits for in-flight searches.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	srv := s.server
	s.mu.Unlock()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.wg.Wait()

	debug.LogServer("File search server shut down cleanly\n")
	return nil
}

// handleSearch answers /filesearch?q=&sort=&rows=&start=. Parameter values
// arrive percent-decoded; a literal "+" in q must be sent as %2B.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.requests.Add(1)

	params := r.URL.Query()
	rows, start, err := results.ParsePagination(params.Get("rows"), params.Get("start"),
		s.cfg.Search.DefaultRows, s.cfg.Search.MaxRows)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp, err := s.engine.Search(r.Context(), search.Request{
		Query: params.Get("q"),
		Sort:  params.Get("sort"),
		Rows:  rows,
		Start: start,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(resp.Diagnostics) > 0 {
		debug.LogServer("%d unreadable files skipped for q=%q\n", len(resp.Diagnostics), params.Get("q"))
	}

	body, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	etag := fmt.Sprintf(`"%016x"`, xxhash.Sum64(body))
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if ignored := ignoredHeader(resp); ignored != "" {
		w.Header().Set(IgnoredHeader, ignored)
	}
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(body)
}

// handlePing returns uptime and build information
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	response := PingResponse{
		Uptime:   time.Since(s.startTime).Seconds(),
		Version:  version.Version,
		BuildID:  version.BuildID(),
		Root:     s.cfg.Workspace.Root,
		Requests: s.requests.Load(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// writeError maps a search failure to a status. Nothing is written once the
// client has gone away.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if r.Context().Err() != nil {
		debug.LogServer("client went away: %v\n", err)
		return
	}

	status := statusFor(err)
	response := ErrorResponse{Error: err.Error()}

	var pe *errors.ParseError
	var se *errors.ScopeError
	switch {
	case stderrors.As(err, &pe):
		response.Type = string(pe.Type)
		response.Key = pe.Key
	case stderrors.As(err, &se):
		response.Type = string(se.Type)
		response.Location = se.Location
	}
	if status >= http.StatusInternalServerError {
		debug.LogServer("search failed: %v\n", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

func statusFor(err error) int {
	switch {
	case errors.IsClientError(err):
		return http.StatusBadRequest
	case errors.IsScopeError(err):
		return http.StatusNotFound
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// etagMatches implements the If-None-Match list comparison, including "*".
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

func ignoredHeader(resp *search.Response) string {
	if len(resp.Ignored) == 0 {
		return ""
	}
	pairs := make([]string, len(resp.Ignored))
	for i, f := range resp.Ignored {
		pairs[i] = f.Key + ":" + f.Value
	}
	return strings.Join(pairs, ",")
}
