// Package main is the entry point for the virtual contributor engine.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/contrib-ai/virtual-contributor-engine/internal/config"
	"github.com/contrib-ai/virtual-contributor-engine/internal/embedding"
	"github.com/contrib-ai/virtual-contributor-engine/internal/handler"
	"github.com/contrib-ai/virtual-contributor-engine/internal/llm"
	"github.com/contrib-ai/virtual-contributor-engine/internal/middleware"
	natsclient "github.com/contrib-ai/virtual-contributor-engine/internal/nats"
	"github.com/contrib-ai/virtual-contributor-engine/internal/pipeline"
	"github.com/contrib-ai/virtual-contributor-engine/internal/retriever"
	"github.com/contrib-ai/virtual-contributor-engine/internal/session"
	"github.com/contrib-ai/virtual-contributor-engine/internal/vectordb"
	"github.com/contrib-ai/virtual-contributor-engine/pkg/logger"
	"github.com/contrib-ai/virtual-contributor-engine/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting virtual contributor engine")

	// Initialize tracing if enabled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "virtual-contributor-engine", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	// Connect to NATS
	natsClient, err := natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer natsClient.Close()

	// Vector store and embeddings
	store := vectordb.NewClient(vectordb.Config{URL: cfg.VectorDBURL})

	embedder, err := embedding.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel)
	if err != nil {
		log.Error("failed to create embedder", zap.Error(err))
		os.Exit(1)
	}

	// Initialize LLM client
	var llmClient llm.Client
	if cfg.AnthropicAPIKey != "" {
		llmClient, err = llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.ChatModel)
	} else {
		llmClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ChatModel)
	}
	if err != nil {
		log.Error("failed to create LLM client", zap.Error(err))
		os.Exit(1)
	}

	// Assemble the pipeline and the queue consumer
	knowledgeRetriever := retriever.New(embedder, store, log, cfg.RetrievalCount)
	answerPipeline := pipeline.New(llmClient, knowledgeRetriever, log)
	sessions := session.NewStore(cfg.HistoryWindow)

	engine := natsclient.NewEngine(natsClient, answerPipeline, sessions, log)
	if err := engine.Start(ctx); err != nil {
		log.Error("failed to start engine", zap.Error(err))
		os.Exit(1)
	}

	// Ops HTTP server
	healthHandler := handler.NewHealthHandler(natsClient, store)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("ops server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("ops server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down engine")

	// Stop new deliveries; in-flight pipeline runs abort at their next
	// external call once the context is cancelled.
	engine.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("ops server forced to shutdown", zap.Error(err))
	}

	log.Info("engine stopped")
}
