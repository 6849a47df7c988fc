// Package rubriktest provides an in-process fake appliance for tests.
package rubriktest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"rbkoracle/internal/config"
	"rbkoracle/internal/rubrik"
)

// Cluster is what GET /api/v1/cluster/me returns.
type Cluster struct {
	ID       string
	Name     string
	Version  string
	Timezone string
}

// DefaultCluster is a 7.0 cluster in America/Chicago.
var DefaultCluster = Cluster{
	ID:       "cluster-1",
	Name:     "test-cluster",
	Version:  "7.0.2-p1-12345",
	Timezone: "America/Chicago",
}

// Request is one recorded call.
type Request struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

// Server routes "METHOD /api/..." to handlers and records every call.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []Request
}

// NewServer starts a fake appliance serving cluster.
func NewServer(t *testing.T, cluster Cluster) *Server {
	t.Helper()

	s := &Server{routes: make(map[string]http.HandlerFunc)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)

	s.JSON(http.MethodGet, "/api/v1/cluster/me", map[string]any{
		"id":       cluster.ID,
		"name":     cluster.Name,
		"version":  cluster.Version,
		"timezone": map[string]string{"timezone": cluster.Timezone},
	})
	return s
}

// Handle registers h for method and path (query string excluded).
func (s *Server) Handle(method, path string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[method+" "+path] = h
}

// JSON registers a handler answering 200 with v.
func (s *Server) JSON(method, path string, v any) {
	s.Handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, v)
	})
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Requests returns the calls made so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Count returns how many calls hit method and path.
func (s *Server) Count(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// Connect opens a token-authenticated session against the server.
func (s *Server) Connect(t *testing.T) *rubrik.Session {
	t.Helper()
	sess, err := rubrik.Connect(context.Background(), &config.Credentials{
		NodeIP: s.URL,
		Token:  "test-token",
	}, rubrik.Options{})
	if err != nil {
		t.Fatalf("connect to fake appliance: %v", err)
	}
	return sess
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Body:   body,
	})
	h, ok := s.routes[r.Method+" "+r.URL.Path]
	s.mu.Unlock()

	if !ok {
		WriteJSON(w, http.StatusNotFound, map[string]string{"message": "no route for " + r.Method + " " + r.URL.Path})
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	h(w, r)
}
