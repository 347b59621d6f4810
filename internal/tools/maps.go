package tools

import (
	"context"
	"encoding/json"

	"chatmemory-gateway/internal/maps"
)

// mapsUnavailable is returned by every map tool when no maps client was
// configured (spec §4.10 "degrade, never fail the request").
const mapsUnavailable = "Map lookups are not configured."

// GeocodeTool implements the "geocode" map tool.
type GeocodeTool struct{ client *maps.Client }

func NewGeocodeTool(c *maps.Client) *GeocodeTool { return &GeocodeTool{client: c} }
func (t *GeocodeTool) Name() string              { return "geocode" }
func (t *GeocodeTool) Schema() Schema {
	return Schema{
		Name:        "geocode",
		Description: "Resolve an address to coordinates.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"address": map[string]any{"type": "string"},
				"city":    map[string]any{"type": "string"},
			},
			"required": []string{"address"},
		},
	}
}

func (t *GeocodeTool) Call(ctx context.Context, raw json.RawMessage) (Result, error) {
	if t.client == nil {
		return TextResult(mapsUnavailable), nil
	}
	var args struct {
		Address string `json:"address"`
		City    string `json:"city"`
	}
	if err := json.Unmarshal(raw, &args); err != nil || args.Address == "" {
		return ErrorResult("address is required"), nil
	}
	out, err := t.client.Geocode(ctx, args.Address, args.City)
	if err != nil {
		return ErrorResult("geocode failed: " + err.Error()), nil
	}
	return TextResult(out), nil
}

// AroundTool implements the "around" map tool (nearby search).
type AroundTool struct{ client *maps.Client }

func NewAroundTool(c *maps.Client) *AroundTool { return &AroundTool{client: c} }
func (t *AroundTool) Name() string             { return "around" }
func (t *AroundTool) Schema() Schema {
	return Schema{
		Name:        "around",
		Description: "Find points of interest near a location.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"location": map[string]any{"type": "string", "description": "lng,lat"},
				"keywords": map[string]any{"type": "string"},
				"radius":   map[string]any{"type": "integer", "description": "meters, default 1000"},
			},
			"required": []string{"location"},
		},
	}
}

func (t *AroundTool) Call(ctx context.Context, raw json.RawMessage) (Result, error) {
	if t.client == nil {
		return TextResult(mapsUnavailable), nil
	}
	var args struct {
		Location string `json:"location"`
		Keywords string `json:"keywords"`
		Radius   int    `json:"radius"`
	}
	if err := json.Unmarshal(raw, &args); err != nil || args.Location == "" {
		return ErrorResult("location is required"), nil
	}
	if args.Radius <= 0 {
		args.Radius = 1000
	}
	out, err := t.client.Around(ctx, args.Location, args.Keywords, args.Radius)
	if err != nil {
		return ErrorResult("around search failed: " + err.Error()), nil
	}
	return TextResult(out), nil
}

// MapSearchTool implements the "map_search" keyword-search map tool.
type MapSearchTool struct{ client *maps.Client }

func NewMapSearchTool(c *maps.Client) *MapSearchTool { return &MapSearchTool{client: c} }
func (t *MapSearchTool) Name() string                { return "map_search" }
func (t *MapSearchTool) Schema() Schema {
	return Schema{
		Name:        "map_search",
		Description: "Search for places by keyword, optionally scoped to a city.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"keywords": map[string]any{"type": "string"},
				"city":     map[string]any{"type": "string"},
			},
			"required": []string{"keywords"},
		},
	}
}

func (t *MapSearchTool) Call(ctx context.Context, raw json.RawMessage) (Result, error) {
	if t.client == nil {
		return TextResult(mapsUnavailable), nil
	}
	var args struct {
		Keywords string `json:"keywords"`
		City     string `json:"city"`
	}
	if err := json.Unmarshal(raw, &args); err != nil || args.Keywords == "" {
		return ErrorResult("keywords is required"), nil
	}
	out, err := t.client.Search(ctx, args.Keywords, args.City)
	if err != nil {
		return ErrorResult("search failed: " + err.Error()), nil
	}
	return TextResult(out), nil
}

// DistanceTool implements the "distance" map tool.
type DistanceTool struct{ client *maps.Client }

func NewDistanceTool(c *maps.Client) *DistanceTool { return &DistanceTool{client: c} }
func (t *DistanceTool) Name() string               { return "distance" }
func (t *DistanceTool) Schema() Schema {
	return Schema{
		Name:        "distance",
		Description: "Measure the distance between two points.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"origin":      map[string]any{"type": "string", "description": "lng,lat"},
				"destination": map[string]any{"type": "string", "description": "lng,lat"},
			},
			"required": []string{"origin", "destination"},
		},
	}
}

func (t *DistanceTool) Call(ctx context.Context, raw json.RawMessage) (Result, error) {
	if t.client == nil {
		return TextResult(mapsUnavailable), nil
	}
	var args struct {
		Origin      string `json:"origin"`
		Destination string `json:"destination"`
	}
	if err := json.Unmarshal(raw, &args); err != nil || args.Origin == "" || args.Destination == "" {
		return ErrorResult("origin and destination are required"), nil
	}
	out, err := t.client.Distance(ctx, args.Origin, args.Destination)
	if err != nil {
		return ErrorResult("distance lookup failed: " + err.Error()), nil
	}
	return TextResult(out), nil
}

// RouteTool implements the "route" map tool.
type RouteTool struct{ client *maps.Client }

func NewRouteTool(c *maps.Client) *RouteTool { return &RouteTool{client: c} }
func (t *RouteTool) Name() string            { return "route" }
func (t *RouteTool) Schema() Schema {
	return Schema{
		Name:        "route",
		Description: "Plan a route between two points.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"origin":      map[string]any{"type": "string", "description": "lng,lat"},
				"destination": map[string]any{"type": "string", "description": "lng,lat"},
				"mode":        map[string]any{"type": "string", "description": "driving, walking, or transit"},
			},
			"required": []string{"origin", "destination"},
		},
	}
}

func (t *RouteTool) Call(ctx context.Context, raw json.RawMessage) (Result, error) {
	if t.client == nil {
		return TextResult(mapsUnavailable), nil
	}
	var args struct {
		Origin      string `json:"origin"`
		Destination string `json:"destination"`
		Mode        string `json:"mode"`
	}
	if err := json.Unmarshal(raw, &args); err != nil || args.Origin == "" || args.Destination == "" {
		return ErrorResult("origin and destination are required"), nil
	}
	out, err := t.client.Route(ctx, args.Origin, args.Destination, args.Mode)
	if err != nil {
		return ErrorResult("route planning failed: " + err.Error()), nil
	}
	return TextResult(out), nil
}
