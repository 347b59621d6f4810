package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatmemory-gateway/internal/config"
	"chatmemory-gateway/internal/maps"
)

func TestGeocodeTool_ReturnsFormattedAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"geocodes":[{"formatted_address":"1 Main St","location":"1.0,2.0"}]}`))
	}))
	defer srv.Close()
	client := maps.NewClient(config.MapsConfig{BaseURL: srv.URL}, srv.Client())

	tool := NewGeocodeTool(client)
	raw, _ := json.Marshal(map[string]any{"address": "1 Main St"})
	res, err := tool.Call(context.Background(), raw)
	require.NoError(t, err)
	assert.Contains(t, res.Content[0].Text, "1 Main St")
}

func TestGeocodeTool_NilClientDegradesGracefully(t *testing.T) {
	tool := NewGeocodeTool(nil)
	raw, _ := json.Marshal(map[string]any{"address": "1 Main St"})
	res, err := tool.Call(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, mapsUnavailable, res.Content[0].Text)
}

func TestDistanceTool_MissingArgsIsError(t *testing.T) {
	tool := NewDistanceTool(maps.NewClient(config.MapsConfig{BaseURL: "http://127.0.0.1:1"}, nil))
	res, err := tool.Call(context.Background(), json.RawMessage(`{"origin":"1,2"}`))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
