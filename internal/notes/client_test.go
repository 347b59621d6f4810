package notes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatmemory-gateway/internal/config"
)

func TestClient_MirrorDiary_Success(t *testing.T) {
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Auth-Token")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":1}}`))
	}))
	defer srv.Close()

	client := NewClient(config.NotesConfig{BaseURL: srv.URL, RepoID: "42", Token: "secret"}, srv.Client())
	err := client.MirrorDiary(context.Background(), time.Now(), "content", "happy")
	require.NoError(t, err)
	assert.Equal(t, "secret", gotToken)
}

func TestClient_MirrorDiary_UpstreamErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`oops`))
	}))
	defer srv.Close()

	client := NewClient(config.NotesConfig{BaseURL: srv.URL}, srv.Client())
	err := client.MirrorDiary(context.Background(), time.Now(), "content", "happy")
	assert.Error(t, err)
}

func TestNewClient_NilWhenUnconfigured(t *testing.T) {
	client := NewClient(config.NotesConfig{}, nil)
	assert.Nil(t, client)
}
