package mcpserver

import (
	"context"
	"encoding/json"

	"chatmemory-gateway/internal/tools"
)

// RegisterStandardMethods installs the fixed JSON-RPC method set from
// spec §4.9 onto router, dispatching tool calls through registry.
func RegisterStandardMethods(router *Router, registry tools.Registry, serverName, serverVersion string) {
	router.Register("initialize", func(ctx context.Context, raw json.RawMessage) (any, *Error) {
		return map[string]any{
			"protocolVersion": "2024-11-05",
			"serverInfo":      map[string]string{"name": serverName, "version": serverVersion},
			"capabilities":    map[string]any{"tools": map[string]any{}},
		}, nil
	})

	router.Register("notifications/initialized", func(ctx context.Context, raw json.RawMessage) (any, *Error) {
		return map[string]any{}, nil
	})

	router.Register("ping", func(ctx context.Context, raw json.RawMessage) (any, *Error) {
		return map[string]any{"pong": true}, nil
	})

	router.Register("tools/list", func(ctx context.Context, raw json.RawMessage) (any, *Error) {
		return map[string]any{"tools": registry.Schemas()}, nil
	})

	router.Register("tools/call", func(ctx context.Context, raw json.RawMessage) (any, *Error) {
		var params struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if rpcErr := unmarshalParams(raw, &params); rpcErr != nil {
			return nil, rpcErr
		}
		if params.Name == "" {
			return nil, newError(InvalidParamsCode, "missing tool name")
		}
		result, err := registry.Dispatch(ctx, params.Name, params.Arguments)
		if err != nil {
			return nil, newError(InternalErrorCode, err.Error())
		}
		return result, nil
	})
}
