// Package web provides a local read-only JSON API over a corpus index.
package web

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/snipdex/snipdex/internal/corpus"
	"github.com/snipdex/snipdex/internal/diag"
)

// Server serves the JSON API. The index is held behind a lock so watch mode
// can swap in a fresh build while requests are in flight.
type Server struct {
	mu       sync.RWMutex
	idx      *corpus.Index
	version  string
	rootPath string
	mux      *http.ServeMux
}

// NewServer returns a Server answering for the given index.
func NewServer(idx *corpus.Index, version, rootPath string) *Server {
	s := &Server{
		idx:      idx,
		version:  version,
		rootPath: rootPath,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/records", s.handleRecords)
	mux.HandleFunc("/api/records/", s.handleRecordByID) // /api/records/{id}
	mux.HandleFunc("/api/tags/", s.handleTag)           // /api/tags/{tag}
	mux.HandleFunc("/api/duplicates", s.handleDuplicates)
	mux.HandleFunc("/api/diagnostics", s.handleDiagnostics)
	s.mux = mux

	return s
}

// SetIndex atomically replaces the served index. Used by watch mode after a
// rebuild.
func (s *Server) SetIndex(idx *corpus.Index) {
	s.mu.Lock()
	s.idx = idx
	s.mu.Unlock()
}

func (s *Server) index() *corpus.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Serve starts the API server on the given address and blocks.
func Serve(addr string, s *Server) error {
	handler := localhostOnly(securityHeaders(s))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	fmt.Fprintf(os.Stderr, "snipdex API: http://%s\n", listener.Addr())
	return http.Serve(listener, handler)
}

// --- Middleware ---

func localhostOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if idx := strings.LastIndex(host, ":"); idx >= 0 {
			host = host[:idx]
		}
		host = strings.Trim(host, "[]") // strip IPv6 brackets

		if host == "localhost" {
			next.ServeHTTP(w, r)
			return
		}
		if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
			next.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Forbidden", http.StatusForbidden)
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		next.ServeHTTP(w, r)
	})
}

// --- Handlers ---

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, map[string]any{
		"name":    "snipdex",
		"version": s.version,
		"endpoints": []string{
			"/api/stats",
			"/api/records",
			"/api/records/{id}",
			"/api/tags/{tag}",
			"/api/duplicates",
			"/api/diagnostics",
		},
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	idx := s.index()
	if idx == nil {
		writeError(w, http.StatusServiceUnavailable, "index not built yet")
		return
	}

	stats := idx.Stats()
	writeJSON(w, struct {
		corpus.Stats
		Root    string `json:"root"`
		Version string `json:"version"`
	}{stats, s.rootPath, s.version})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	idx := s.index()
	if idx == nil {
		writeError(w, http.StatusServiceUnavailable, "index not built yet")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	records := make([]*corpus.DocumentRecord, 0, idx.Len())
	for rec := range idx.All() {
		records = append(records, rec)
		if limit > 0 && len(records) >= limit {
			break
		}
	}
	writeJSON(w, records)
}

func (s *Server) handleRecordByID(w http.ResponseWriter, r *http.Request) {
	idx := s.index()
	if idx == nil {
		writeError(w, http.StatusServiceUnavailable, "index not built yet")
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/api/records/")
	id, err := url.PathUnescape(raw)
	if err != nil || id == "" {
		writeError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	rec := idx.Get(id)
	if rec == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("record not found: %s", id))
		return
	}
	writeJSON(w, rec)
}

func (s *Server) handleTag(w http.ResponseWriter, r *http.Request) {
	idx := s.index()
	if idx == nil {
		writeError(w, http.StatusServiceUnavailable, "index not built yet")
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/api/tags/")
	tag, err := url.PathUnescape(raw)
	if err != nil || tag == "" {
		writeError(w, http.StatusBadRequest, "invalid tag")
		return
	}

	records := make([]*corpus.DocumentRecord, 0)
	for rec := range idx.FindByTag(tag) {
		records = append(records, rec)
	}
	writeJSON(w, records)
}

func (s *Server) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	idx := s.index()
	if idx == nil {
		writeError(w, http.StatusServiceUnavailable, "index not built yet")
		return
	}

	dups := make(map[string][]*corpus.DocumentRecord)
	for _, id := range idx.DuplicateIDs() {
		dups[id] = idx.Duplicates(id)
	}
	writeJSON(w, dups)
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	idx := s.index()
	if idx == nil {
		writeError(w, http.StatusServiceUnavailable, "index not built yet")
		return
	}

	diags := idx.Diagnostics()
	if diags == nil {
		diags = []diag.Diagnostic{}
	}
	writeJSON(w, diags)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
