// Package config loads process configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend describes one upstream LLM provider reachable through the proxy.
type Backend struct {
	Name         string            `yaml:"name"`
	BaseURL      string            `yaml:"base_url"`
	APIKey       string            `yaml:"api_key"`
	UpstreamName string            `yaml:"upstream_model_name"`
	Headers      map[string]string `yaml:"headers"`
}

// BackendTable is the on-disk shape of backends.yaml: alias -> canonical name,
// and canonical name -> Backend.
type BackendTable struct {
	Aliases    map[string]string  `yaml:"aliases"`
	Backends   map[string]Backend `yaml:"backends"`
	Default    string             `yaml:"default"`
	OpenRouter Backend            `yaml:"openrouter"`
}

// Config holds every environment-derived setting the gateway needs.
type Config struct {
	LogPath  string
	LogLevel string

	// Ports for the three HTTP surfaces described in spec §6.
	ChatPort      string
	NotesPort     string
	AssistantPort string

	StoreURL string
	StoreKey string

	BackendsFile string

	OutboundProxyURL string

	Embedding EmbeddingConfig
	Rerank    RerankConfig
	Notes     NotesConfig
	Maps      MapsConfig
	Push      PushConfig
	Summary   SummaryConfig
	Retrieval RetrievalConfig
	OTel      OTelConfig
}

// EmbeddingConfig configures the external embedding service (spec §4.5/§6).
type EmbeddingConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	Dimensions int
}

// RerankConfig configures the external reranker (spec §4.6).
type RerankConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NotesConfig configures the notes-publishing egress service (spec §4.9/§6).
type NotesConfig struct {
	BaseURL string
	Token   string
	RepoID  string
}

// MapsConfig configures the geocoding/routing egress service (spec §4.9/§6).
type MapsConfig struct {
	BaseURL  string
	APIKey   string
	CacheTTL time.Duration
}

// PushConfig configures the push-notification egress service (spec §6).
type PushConfig struct {
	APIKey string
}

// SummaryConfig tunes the summary pipeline (spec §4.7).
type SummaryConfig struct {
	BaseURL             string
	APIKey              string
	Model               string
	WindowSize          int
	MaxTokens           int
	Temperature         float64
	EmbeddingEvictAfter time.Duration
}

// RetrievalConfig tunes the hybrid retrieval engine (spec §4.6).
type RetrievalConfig struct {
	Deadline      time.Duration
	RerankTimeout time.Duration
	MaxSynonyms   int
}

// OTelConfig toggles optional OpenTelemetry export.
type OTelConfig struct {
	OTLPEndpoint   string
	ServiceName    string
	MetricsEnabled bool
}

// Load reads configuration from the environment, optionally overlaid by a
// local .env file. Missing values fall back to the documented defaults so
// the gateway can run against nothing but a store in local development.
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Config{
		LogPath:          strings.TrimSpace(os.Getenv("LOG_PATH")),
		LogLevel:         strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		ChatPort:         firstNonEmpty(os.Getenv("CHAT_PORT"), "8080"),
		NotesPort:        firstNonEmpty(os.Getenv("NOTES_PORT"), "8081"),
		AssistantPort:    firstNonEmpty(os.Getenv("ASSISTANT_PORT"), "8082"),
		StoreURL:         strings.TrimSpace(os.Getenv("STORE_URL")),
		StoreKey:         strings.TrimSpace(os.Getenv("STORE_KEY")),
		BackendsFile:     firstNonEmpty(os.Getenv("BACKENDS_FILE"), "backends.yaml"),
		OutboundProxyURL: strings.TrimSpace(os.Getenv("OUTBOUND_PROXY_URL")),
	}

	cfg.Embedding = EmbeddingConfig{
		BaseURL:    strings.TrimSpace(os.Getenv("EMBEDDING_BASE_URL")),
		APIKey:     strings.TrimSpace(os.Getenv("EMBEDDING_API_KEY")),
		Model:      firstNonEmpty(os.Getenv("EMBEDDING_MODEL"), "text-embedding-3-small"),
		Timeout:    durationFromEnv("EMBEDDING_TIMEOUT_SECONDS", 30*time.Second),
		Dimensions: intFromEnv("EMBEDDING_DIMENSIONS", 1536),
	}
	cfg.Rerank = RerankConfig{
		BaseURL: strings.TrimSpace(os.Getenv("RERANK_BASE_URL")),
		APIKey:  strings.TrimSpace(os.Getenv("RERANK_API_KEY")),
		Model:   firstNonEmpty(os.Getenv("RERANK_MODEL"), "rerank-multilingual"),
		Timeout: durationFromEnv("RERANK_TIMEOUT_SECONDS", 5*time.Second),
	}
	cfg.Notes = NotesConfig{
		BaseURL: strings.TrimSpace(os.Getenv("NOTES_BASE_URL")),
		Token:   strings.TrimSpace(os.Getenv("NOTES_TOKEN")),
		RepoID:  strings.TrimSpace(os.Getenv("NOTES_REPO_ID")),
	}
	cfg.Maps = MapsConfig{
		BaseURL:  strings.TrimSpace(os.Getenv("MAPS_BASE_URL")),
		APIKey:   strings.TrimSpace(os.Getenv("MAPS_API_KEY")),
		CacheTTL: durationFromEnv("MAPS_CACHE_TTL_SECONDS", 600*time.Second),
	}
	cfg.Push = PushConfig{
		APIKey: strings.TrimSpace(os.Getenv("PUSH_API_KEY")),
	}
	cfg.Summary = SummaryConfig{
		BaseURL:             strings.TrimSpace(os.Getenv("SUMMARY_BASE_URL")),
		APIKey:              strings.TrimSpace(os.Getenv("SUMMARY_API_KEY")),
		Model:               firstNonEmpty(os.Getenv("SUMMARY_MODEL"), "gpt-4o-mini"),
		WindowSize:          intFromEnv("SUMMARY_WINDOW_SIZE", 5),
		MaxTokens:           intFromEnv("SUMMARY_MAX_TOKENS", 200),
		Temperature:         floatFromEnv("SUMMARY_TEMPERATURE", 0.3),
		EmbeddingEvictAfter: time.Duration(intFromEnv("SUMMARY_EMBEDDING_EVICT_DAYS", 7)) * 24 * time.Hour,
	}
	cfg.Retrieval = RetrievalConfig{
		Deadline:      durationFromEnv("RETRIEVAL_DEADLINE_SECONDS", 3*time.Second),
		RerankTimeout: durationFromEnv("RETRIEVAL_RERANK_TIMEOUT_SECONDS", 5*time.Second),
		MaxSynonyms:   intFromEnv("RETRIEVAL_MAX_SYNONYMS", 5),
	}
	cfg.OTel = OTelConfig{
		OTLPEndpoint:   strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		ServiceName:    firstNonEmpty(os.Getenv("OTEL_SERVICE_NAME"), "chatmemory-gateway"),
		MetricsEnabled: boolFromEnv("OTEL_METRICS_ENABLED", false),
	}

	return cfg, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

func intFromEnv(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
	}
	return def
}

func durationFromEnv(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return def
}
