// Package retriever loads knowledge documents by embedding similarity.
package retriever

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/contrib-ai/virtual-contributor-engine/internal/embedding"
	"github.com/contrib-ai/virtual-contributor-engine/internal/model"
	"github.com/contrib-ai/virtual-contributor-engine/internal/vectordb"
	"github.com/contrib-ai/virtual-contributor-engine/pkg/logger"
	"github.com/contrib-ai/virtual-contributor-engine/pkg/metrics"
)

// KnowledgeRetriever embeds a query and searches the knowledge
// collection of a body of knowledge.
type KnowledgeRetriever struct {
	embedder embedding.Embedder
	store    *vectordb.Client
	logger   *logger.Logger
	numDocs  int
}

// New creates a new knowledge retriever returning up to numDocs
// documents per query.
func New(embedder embedding.Embedder, store *vectordb.Client, log *logger.Logger, numDocs int) *KnowledgeRetriever {
	if numDocs < 1 {
		numDocs = 4
	}
	return &KnowledgeRetriever{
		embedder: embedder,
		store:    store,
		logger:   log,
		numDocs:  numDocs,
	}
}

// CollectionName returns the knowledge collection for a body of
// knowledge id.
func CollectionName(knowledgeBaseID string) string {
	return fmt.Sprintf("%s-knowledge", knowledgeBaseID)
}

// Retrieve returns up to numDocs documents relevant to the query,
// ordered by decreasing similarity. A missing collection or a failed
// embedding or search call is recoverable: it is logged and an empty
// result is returned, never an error.
func (r *KnowledgeRetriever) Retrieve(ctx context.Context, query, knowledgeBaseID string) []model.RetrievedDocument {
	if query == "" {
		return nil
	}

	collection := CollectionName(knowledgeBaseID)

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Error("failed to embed query",
			zap.String("collection", collection),
			zap.Error(err),
		)
		return nil
	}

	result, err := r.store.Query(ctx, collection, vector, r.numDocs)
	if err != nil {
		r.logger.Error("failed to query knowledge collection",
			zap.String("collection", collection),
			zap.Error(err),
		)
		return nil
	}

	docs := mapDocuments(result)
	metrics.RetrievedDocuments.Observe(float64(len(docs)))

	r.logger.Info("knowledge documents selected",
		zap.String("collection", collection),
		zap.Int("count", len(docs)),
	)

	return docs
}

// mapDocuments flattens the first (and only) result batch into
// documents with stable zero-based indices.
func mapDocuments(result *vectordb.QueryResult) []model.RetrievedDocument {
	if result == nil || len(result.Documents) == 0 {
		return nil
	}

	texts := result.Documents[0]
	docs := make([]model.RetrievedDocument, 0, len(texts))

	for i, text := range texts {
		doc := model.RetrievedDocument{
			Index: i,
			Text:  text,
		}
		if len(result.IDs) > 0 && i < len(result.IDs[0]) {
			doc.DocumentID = result.IDs[0][i]
		}
		if len(result.Metadatas) > 0 && i < len(result.Metadatas[0]) {
			applyMetadata(&doc, result.Metadatas[0][i])
		}
		docs = append(docs, doc)
	}

	return docs
}

func applyMetadata(doc *model.RetrievedDocument, meta map[string]any) {
	if v, ok := meta["source"].(string); ok {
		doc.SourceID = v
	}
	if v, ok := meta["title"].(string); ok {
		doc.Title = v
	}
	if v, ok := meta["type"].(string); ok {
		doc.DocType = v
	}
	if v, ok := meta["documentId"].(string); ok {
		doc.DocumentID = v
	}
	if v, ok := meta["chunkIndex"].(float64); ok {
		idx := int(v)
		doc.ChunkIndex = &idx
	}
	if v, ok := meta["embeddingType"].(string); ok {
		doc.EmbeddingType = v
	}
}
