package maps

import (
	"fmt"
	"strings"
)

// formatGeocode renders an AMap-shaped geocode response's first result.
func formatGeocode(out map[string]any) string {
	geocodes, _ := out["geocodes"].([]any)
	if len(geocodes) == 0 {
		return "No location found."
	}
	g, _ := geocodes[0].(map[string]any)
	addr, _ := g["formatted_address"].(string)
	loc, _ := g["location"].(string)
	if addr == "" {
		return "No location found."
	}
	return fmt.Sprintf("%s (%s)", addr, loc)
}

// formatPOIs renders a list of points of interest.
func formatPOIs(out map[string]any) string {
	pois, _ := out["pois"].([]any)
	if len(pois) == 0 {
		return "No places found."
	}
	var lines []string
	for _, raw := range pois {
		p, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := p["name"].(string)
		addr, _ := p["address"].(string)
		loc, _ := p["location"].(string)
		lines = append(lines, fmt.Sprintf("%s - %s (%s)", name, addr, loc))
	}
	if len(lines) == 0 {
		return "No places found."
	}
	return strings.Join(lines, "\n")
}

// formatDistance renders the first distance result's value in meters.
func formatDistance(out map[string]any) string {
	results, _ := out["results"].([]any)
	if len(results) == 0 {
		return "No distance available."
	}
	r, _ := results[0].(map[string]any)
	dist, _ := r["distance"].(string)
	duration, _ := r["duration"].(string)
	if dist == "" {
		return "No distance available."
	}
	return fmt.Sprintf("%s meters, ~%s seconds", dist, duration)
}

// formatRoute renders a route's total distance and duration.
func formatRoute(out map[string]any) string {
	route, _ := out["route"].(map[string]any)
	if route == nil {
		return "No route available."
	}
	paths, _ := route["paths"].([]any)
	if len(paths) == 0 {
		return "No route available."
	}
	p, _ := paths[0].(map[string]any)
	dist, _ := p["distance"].(string)
	duration, _ := p["duration"].(string)
	if dist == "" {
		return "No route available."
	}
	return fmt.Sprintf("%s meters, ~%s seconds", dist, duration)
}
