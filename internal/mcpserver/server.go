package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"chatmemory-gateway/internal/tools"
)

// SessionHeader is the header clients use to carry a session id on requests
// after "initialize", and the header the server echoes the minted id on.
const SessionHeader = "Mcp-Session-Id"

const heartbeatInterval = 25 * time.Second

type sessionCtxKey struct{}

// SessionFromContext returns the resolved session for the in-flight call.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionCtxKey{}).(*Session)
	return s
}

// Server is the HTTP surface for the tool-protocol transport (spec §4.9,
// §6 "POST /mcp, GET /mcp, DELETE /mcp").
type Server struct {
	Router   *Router
	Sessions *SessionTable
}

// NewServer wires a router and a fresh session table.
func NewServer(router *Router) *Server {
	return &Server{Router: router, Sessions: NewSessionTable()}
}

// ServeHTTP implements http.Handler, dispatching on the HTTP verb per spec.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handlePost(w, r)
	case http.MethodGet:
		s.handleStream(w, r)
	case http.MethodDelete:
		s.handleDelete(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeResponse(w, Response{JSONRPC: "2.0", Error: newError(ParseErrorCode, "failed to read request body")})
		return
	}
	defer r.Body.Close()

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeResponse(w, Response{JSONRPC: "2.0", Error: newError(ParseErrorCode, "failed to parse JSON-RPC request")})
		return
	}
	if req.JSONRPC != "2.0" {
		writeResponse(w, Response{JSONRPC: "2.0", ID: req.ID, Error: newError(InvalidRequestCode, "jsonrpc version must be 2.0")})
		return
	}

	var sess *Session
	if req.Method == "initialize" {
		sess = s.Sessions.Create()
	} else {
		sess = s.Sessions.Touch(r.Header.Get(SessionHeader))
	}

	ctx := context.WithValue(r.Context(), sessionCtxKey{}, sess)
	if userID := r.Header.Get("X-User-Id"); userID != "" {
		ctx = tools.WithUserID(ctx, userID)
	}
	resp := s.Router.Dispatch(ctx, req)

	w.Header().Set(SessionHeader, sess.ID)
	writeResponse(w, resp)
}

func writeResponse(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK) // JSON-RPC errors are still carried in a 200 body.
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("mcpserver: failed to encode response")
	}
}

// handleStream opens a long-lived SSE connection that exists only to hold
// the connection open with periodic comment lines; no server-initiated
// events are defined (spec §4.9).
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(SessionHeader)
	if id != "" {
		s.Sessions.Delete(id)
	}
	w.WriteHeader(http.StatusNoContent)
}
