package mcpserver

import (
	"context"
	"encoding/json"
	"sync"
)

// Router dispatches JSON-RPC requests by method name.
type Router struct {
	mu sync.RWMutex
	m  map[string]HandlerFunc
}

// NewRouter returns an empty method router.
func NewRouter() *Router {
	return &Router{m: make(map[string]HandlerFunc)}
}

// Register installs the handler for a JSON-RPC method.
func (r *Router) Register(method string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[method] = h
}

// Dispatch looks up and invokes the handler for req.Method, returning a
// fully-formed JSON-RPC response. Unknown methods map to MethodNotFoundCode.
func (r *Router) Dispatch(ctx context.Context, req Request) Response {
	r.mu.RLock()
	h, ok := r.m[req.Method]
	r.mu.RUnlock()
	if !ok {
		return Response{JSONRPC: "2.0", ID: req.ID, Error: newError(MethodNotFoundCode, "method not found: "+req.Method)}
	}
	result, rpcErr := h(ctx, req.Params)
	if rpcErr != nil {
		return Response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
	}
	return Response{JSONRPC: "2.0", ID: req.ID, Result: result}
}

// unmarshalParams is a small convenience used by every handler.
func unmarshalParams(raw json.RawMessage, v any) *Error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return newError(InvalidParamsCode, "invalid params: "+err.Error())
	}
	return nil
}
