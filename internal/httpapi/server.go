// Package httpapi exposes the small set of gateway-introspection endpoints
// from spec §6 that aren't part of the chat or tool-protocol surfaces:
// GET /health and GET /models.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"chatmemory-gateway/internal/config"
)

// Version is stamped at build time via -ldflags; left at "dev" otherwise.
var Version = "dev"

// Server serves the ancillary health/models endpoints.
type Server struct {
	backends config.BackendTable
	mux      *http.ServeMux
}

// NewServer wires the /health and /models handlers.
func NewServer(backends config.BackendTable) *Server {
	s := &Server{backends: backends, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /models", s.handleModels)
	return s
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type healthResponse struct {
	Status          string   `json:"status"`
	Version         string   `json:"version"`
	Timestamp       int64    `json:"timestamp"`
	SupportedModels []string `json:"supported_models"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:          "ok",
		Version:         Version,
		Timestamp:       time.Now().Unix(),
		SupportedModels: s.modelNames(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) modelNames() []string {
	names := make([]string, 0, len(s.backends.Backends))
	for name := range s.backends.Backends {
		names = append(names, name)
	}
	return names
}

type modelsResponse struct {
	Aliases  map[string]string         `json:"aliases"`
	Backends map[string]config.Backend `json:"backends"`
	Default  string                    `json:"default"`
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	redacted := make(map[string]config.Backend, len(s.backends.Backends))
	for name, b := range s.backends.Backends {
		b.APIKey = ""
		redacted[name] = b
	}
	resp := modelsResponse{
		Aliases:  s.backends.Aliases,
		Backends: redacted,
		Default:  s.backends.Default,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
