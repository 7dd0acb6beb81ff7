package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/contrib-ai/virtual-contributor-engine/internal/embedding"
	"github.com/contrib-ai/virtual-contributor-engine/internal/retriever"
	"github.com/contrib-ai/virtual-contributor-engine/internal/vectordb"
	"github.com/contrib-ai/virtual-contributor-engine/pkg/logger"
	"github.com/contrib-ai/virtual-contributor-engine/pkg/metrics"
)

// Ingester chunks, embeds and stores source documents into a knowledge
// collection.
type Ingester struct {
	embedder     embedding.Embedder
	store        *vectordb.Client
	logger       *logger.Logger
	chunkSize    int
	chunkOverlap int
}

// NewIngester creates a new ingester.
func NewIngester(embedder embedding.Embedder, store *vectordb.Client, log *logger.Logger, chunkSize, chunkOverlap int) *Ingester {
	return &Ingester{
		embedder:     embedder,
		store:        store,
		logger:       log,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Run loads all documents under dir into the knowledge collection of
// the given body of knowledge. Each document gets a fresh document id
// per run; re-ingesting into an existing collection appends rather than
// replaces.
func (i *Ingester) Run(ctx context.Context, dir, knowledgeBaseID string) error {
	docs, err := LoadDirectory(dir)
	if err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("no documents found under %s", dir)
	}

	collection := retriever.CollectionName(knowledgeBaseID)
	total := 0

	for _, doc := range docs {
		chunks := SplitText(doc.Text, i.chunkSize, i.chunkOverlap)
		if len(chunks) == 0 {
			i.logger.Warn("document produced no chunks", zap.String("path", doc.Path))
			continue
		}

		documentID := uuid.New().String()
		ids := make([]string, len(chunks))
		embeddings := make([][]float32, len(chunks))
		metadatas := make([]map[string]any, len(chunks))

		for idx, chunk := range chunks {
			vector, err := i.embedder.Embed(ctx, chunk)
			if err != nil {
				return fmt.Errorf("failed to embed chunk %d of %s: %w", idx, doc.Path, err)
			}

			ids[idx] = fmt.Sprintf("%s-%d", documentID, idx)
			embeddings[idx] = vector
			metadatas[idx] = map[string]any{
				"documentId":    documentID,
				"source":        doc.Path,
				"title":         doc.Name,
				"type":          "document",
				"chunkIndex":    idx,
				"embeddingType": i.embedder.Model(),
			}
		}

		if err := i.store.Upsert(ctx, collection, ids, embeddings, chunks, metadatas); err != nil {
			return fmt.Errorf("failed to store %s: %w", doc.Path, err)
		}

		total += len(chunks)
		metrics.IngestedChunks.WithLabelValues(knowledgeBaseID).Add(float64(len(chunks)))

		i.logger.Info("document ingested",
			zap.String("path", doc.Path),
			zap.Int("chunks", len(chunks)),
		)
	}

	i.logger.Info("ingestion complete",
		zap.String("collection", collection),
		zap.Int("documents", len(docs)),
		zap.Int("chunks", total),
	)

	return nil
}
