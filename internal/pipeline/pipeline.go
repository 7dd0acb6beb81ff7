// Package pipeline implements the query-answering pipeline: condense,
// retrieve, respond, reconcile. The stages run strictly sequentially as
// a plain function composition; the orchestrator is the single place
// that converts a stage failure into the user-safe unavailable
// response.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/contrib-ai/virtual-contributor-engine/internal/llm"
	"github.com/contrib-ai/virtual-contributor-engine/internal/model"
	"github.com/contrib-ai/virtual-contributor-engine/pkg/logger"
	"github.com/contrib-ai/virtual-contributor-engine/pkg/metrics"
)

// Retriever loads knowledge documents for a query. An empty result
// means "no grounding available" and is not an error.
type Retriever interface {
	Retrieve(ctx context.Context, query, knowledgeBaseID string) []model.RetrievedDocument
}

// Pipeline answers requests against a body of knowledge. It holds no
// per-request state and is safe to invoke concurrently.
type Pipeline struct {
	condenser  *Condenser
	retriever  Retriever
	responder  *Responder
	reconciler *Reconciler
	logger     *logger.Logger
	tracer     trace.Tracer
}

// New creates a pipeline using one LLM client for all three completion
// purposes (condensing, answering, translating).
func New(client llm.Client, retriever Retriever, log *logger.Logger) *Pipeline {
	return &Pipeline{
		condenser:  NewCondenser(client, log),
		retriever:  retriever,
		responder:  NewResponder(client),
		reconciler: NewReconciler(client, log),
		logger:     log,
		tracer:     otel.Tracer("pipeline"),
	}
}

// Unavailable returns the fixed user-facing response emitted when a
// required stage failed. The caller never sees internal error detail.
func Unavailable(displayName string) *model.Response {
	text := fmt.Sprintf("%s - the Virtual Contributor is currently unavailable.", displayName)
	return &model.Response{
		Result:         text,
		OriginalResult: text,
		Sources:        []model.SourceAttribution{},
	}
}

// Answer runs the full pipeline for one request. It never returns an
// error: any unrecoverable stage failure is logged with full detail and
// converted into the unavailable response.
func (p *Pipeline) Answer(ctx context.Context, req *model.Request) *model.Response {
	ctx, span := p.tracer.Start(ctx, "pipeline.answer")
	defer span.End()

	query := req.Message
	if len(req.History) > 0 {
		condensed, err := p.condense(ctx, req)
		if err != nil {
			p.logger.Error("condenser stage failed",
				zap.String("knowledge_base_id", req.KnowledgeBaseID),
				zap.Error(err),
			)
			metrics.RecordRequest(model.OperationQuery, "unavailable")
			return Unavailable(req.DisplayName)
		}
		query = condensed
	}

	docs := p.retrieve(ctx, query, req.KnowledgeBaseID)
	if len(docs) == 0 {
		p.logger.Info("no knowledge available for query",
			zap.String("knowledge_base_id", req.KnowledgeBaseID),
		)
		metrics.RecordRequest(model.OperationQuery, "empty")
		return &model.Response{Sources: []model.SourceAttribution{}}
	}

	raw, err := p.respond(ctx, query, docs, req)
	if err != nil {
		p.logger.Error("responder stage failed",
			zap.String("knowledge_base_id", req.KnowledgeBaseID),
			zap.Error(err),
		)
		metrics.RecordRequest(model.OperationQuery, "unavailable")
		return Unavailable(req.DisplayName)
	}

	resp, err := p.reconcile(ctx, raw, docs)
	if err != nil {
		p.logger.Error("reconciler stage failed",
			zap.String("knowledge_base_id", req.KnowledgeBaseID),
			zap.Error(err),
		)
		metrics.RecordRequest(model.OperationQuery, "unavailable")
		return Unavailable(req.DisplayName)
	}

	metrics.RecordRequest(model.OperationQuery, "ok")
	return resp
}

func (p *Pipeline) condense(ctx context.Context, req *model.Request) (string, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.condense")
	defer span.End()

	start := time.Now()
	defer func() { metrics.RecordStage("condense", time.Since(start).Seconds()) }()

	return p.condenser.Condense(ctx, req.History, req.Message)
}

func (p *Pipeline) retrieve(ctx context.Context, query, knowledgeBaseID string) []model.RetrievedDocument {
	ctx, span := p.tracer.Start(ctx, "pipeline.retrieve")
	defer span.End()

	start := time.Now()
	defer func() { metrics.RecordStage("retrieve", time.Since(start).Seconds()) }()

	return p.retriever.Retrieve(ctx, query, knowledgeBaseID)
}

func (p *Pipeline) respond(ctx context.Context, query string, docs []model.RetrievedDocument, req *model.Request) (string, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.respond")
	defer span.End()

	start := time.Now()
	defer func() { metrics.RecordStage("respond", time.Since(start).Seconds()) }()

	return p.responder.Respond(ctx, query, docs, req.DisplayName, req.Description)
}

func (p *Pipeline) reconcile(ctx context.Context, raw string, docs []model.RetrievedDocument) (*model.Response, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.reconcile")
	defer span.End()

	start := time.Now()
	defer func() { metrics.RecordStage("reconcile", time.Since(start).Seconds()) }()

	return p.reconciler.Reconcile(ctx, raw, docs)
}
