// Command gateway runs the memory-augmented LLM proxy gateway: the
// chat-completions proxy, the tool-protocol server, and the ancillary
// health/models endpoints, all on one listener (spec §6).
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"chatmemory-gateway/internal/autoinject"
	"chatmemory-gateway/internal/background"
	"chatmemory-gateway/internal/config"
	"chatmemory-gateway/internal/embedding"
	"chatmemory-gateway/internal/httpapi"
	"chatmemory-gateway/internal/llmclient"
	"chatmemory-gateway/internal/maps"
	"chatmemory-gateway/internal/mcpserver"
	"chatmemory-gateway/internal/notes"
	"chatmemory-gateway/internal/observability"
	"chatmemory-gateway/internal/proxycore"
	"chatmemory-gateway/internal/retrieval"
	"chatmemory-gateway/internal/scene"
	"chatmemory-gateway/internal/store"
	"chatmemory-gateway/internal/summary"
	"chatmemory-gateway/internal/synonym"
	"chatmemory-gateway/internal/tools"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("gateway: load config")
	}
	observability.InitLogger(cfg.LogPath, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTel.OTLPEndpoint != "" {
		shutdown, err := observability.InitOTel(ctx, cfg.OTel)
		if err != nil {
			log.Warn().Err(err).Msg("gateway: otel disabled")
		} else {
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(sctx)
			}()
		}
	}

	backends, err := config.LoadBackends(cfg.BackendsFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.BackendsFile).Msg("gateway: load backends table")
	}

	httpClient := observability.NewHTTPClient(&http.Client{Timeout: 120 * time.Second})

	st := openStore(ctx, cfg)
	defer st.Close()

	expander := synonym.NewExpander()
	refreshSynonyms(ctx, st, expander)

	scenes := scene.NewDetector()

	var embedder *embedding.Client
	if cfg.Embedding.BaseURL != "" {
		embedder = embedding.NewClient(cfg.Embedding, httpClient)
	}

	var reranker *retrieval.Reranker
	if cfg.Rerank.BaseURL != "" {
		reranker = retrieval.NewReranker(cfg.Rerank, httpClient)
	}

	retrievalEngine := retrieval.NewEngine(st, embedder, expander, reranker, cfg.Retrieval)

	llm := llmclient.NewClient(httpClient)
	summaryPipeline := summary.NewPipeline(st, llm, cfg.Summary)

	exec := background.NewExecutor(16)
	capturer := proxycore.NewCapturer(st, embedder, summaryPipeline, exec)
	autoInject := autoinject.NewEngine(retrievalEngine, st)

	go background.RunEmbeddingJanitor(ctx, st, cfg.Summary.EmbeddingEvictAfter, time.Hour)

	toolHTTPClient := observability.NewHTTPClient(&http.Client{Timeout: 15 * time.Second})
	router := buildRouter(retrievalEngine, st, scenes, exec, cfg, toolHTTPClient)

	introspection := httpapi.NewServer(backends)

	mux := http.NewServeMux()
	mux.Handle("/v1/chat/completions", proxycore.NewHandler(backends, cfg.OutboundProxyURL, scenes, autoInject, capturer))
	mux.Handle("/mcp", mcpserver.NewServer(router))
	mux.Handle("/health", introspection)
	mux.Handle("/models", introspection)

	addr := ":" + cfg.ChatPort
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Info().Str("addr", addr).Msg("gateway: listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("gateway: listen")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("gateway: shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("gateway: shutdown error")
	}
	exec.Wait()
}

// openStore builds a PostgresStore if STORE_URL is configured, otherwise
// falls back to the process-local MemoryStore so the gateway still runs
// against nothing but backends.yaml in local development.
func openStore(ctx context.Context, cfg config.Config) store.Store {
	if cfg.StoreURL == "" {
		log.Warn().Msg("gateway: STORE_URL not set, using in-memory store (no persistence across restarts)")
		return store.NewMemoryStore()
	}
	pool, err := store.OpenPool(ctx, cfg.StoreURL)
	if err != nil {
		log.Fatal().Err(err).Msg("gateway: connect to store")
	}
	pg := store.NewPostgresStore(pool, cfg.Embedding.Dimensions)
	if err := pg.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("gateway: init schema")
	}
	return pg
}

func refreshSynonyms(ctx context.Context, st store.Store, expander *synonym.Expander) {
	groups, err := st.Synonyms(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("gateway: load synonym table failed, starting empty")
		return
	}
	converted := make([]synonym.Group, 0, len(groups))
	for _, g := range groups {
		converted = append(converted, synonym.Group{Term: g.Term, Synonyms: g.Synonyms})
	}
	expander.Refresh(converted)
}

// buildRouter wires the JSON-RPC method table and tool registry for the
// tool-protocol server (spec §4.9).
func buildRouter(retrievalEngine *retrieval.Engine, st store.Store, scenes *scene.Detector, exec *background.Executor, cfg config.Config, httpClient *http.Client) *mcpserver.Router {
	registry := tools.NewRegistry()
	registry.Register(tools.NewSearchMemoryTool(retrievalEngine, st, scenes))
	registry.Register(tools.NewInitContextTool(st))
	registry.Register(tools.NewSendStickerTool())
	registry.Register(tools.NewSaveDiaryTool(st, notes.NewClient(cfg.Notes, httpClient), exec))

	if mapsClient := maps.NewClient(cfg.Maps, httpClient); mapsClient != nil {
		registry.Register(tools.NewGeocodeTool(mapsClient))
		registry.Register(tools.NewAroundTool(mapsClient))
		registry.Register(tools.NewMapSearchTool(mapsClient))
		registry.Register(tools.NewDistanceTool(mapsClient))
		registry.Register(tools.NewRouteTool(mapsClient))
	}

	router := mcpserver.NewRouter()
	mcpserver.RegisterStandardMethods(router, registry, "chatmemory-gateway", httpapi.Version)
	return router
}
