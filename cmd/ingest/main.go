// Package main is the entry point for the batch ingestion job.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/contrib-ai/virtual-contributor-engine/internal/config"
	"github.com/contrib-ai/virtual-contributor-engine/internal/embedding"
	"github.com/contrib-ai/virtual-contributor-engine/internal/ingest"
	"github.com/contrib-ai/virtual-contributor-engine/internal/vectordb"
	"github.com/contrib-ai/virtual-contributor-engine/pkg/logger"
)

func main() {
	cfg := config.Load()

	dir := flag.String("dir", cfg.IngestDataDir, "directory with source documents")
	knowledgeBaseID := flag.String("kb", "", "body of knowledge id to ingest into")
	flag.Parse()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	if *knowledgeBaseID == "" {
		log.Error("missing required -kb flag")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := vectordb.NewClient(vectordb.Config{URL: cfg.VectorDBURL})

	embedder, err := embedding.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel)
	if err != nil {
		log.Error("failed to create embedder", zap.Error(err))
		os.Exit(1)
	}

	ingester := ingest.NewIngester(embedder, store, log, cfg.ChunkSize, cfg.ChunkOverlap)

	log.Info("starting ingestion",
		zap.String("dir", *dir),
		zap.String("knowledge_base_id", *knowledgeBaseID),
	)

	if err := ingester.Run(ctx, *dir, *knowledgeBaseID); err != nil {
		log.Error("ingestion failed", zap.Error(err))
		os.Exit(1)
	}
}
