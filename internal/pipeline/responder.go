package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/contrib-ai/virtual-contributor-engine/internal/llm"
	"github.com/contrib-ai/virtual-contributor-engine/internal/model"
	"github.com/contrib-ai/virtual-contributor-engine/internal/prompts"
	"github.com/contrib-ai/virtual-contributor-engine/pkg/metrics"
)

// Responder builds the grounded expert prompt and invokes the LLM. It
// returns the raw model text; JSON recovery is centralized in the
// reconciler because the model is not guaranteed to return valid JSON.
type Responder struct {
	llm llm.Client
}

// NewResponder creates a new expert responder.
func NewResponder(client llm.Client) *Responder {
	return &Responder{llm: client}
}

// Respond answers the query grounded in the given knowledge documents.
// Callers must not invoke it with an empty document list; the
// orchestrator short-circuits that case before this stage.
func (r *Responder) Respond(ctx context.Context, query string, docs []model.RetrievedDocument, displayName, description string) (string, error) {
	system, err := prompts.RenderExpertSystem(displayName, CombineDocuments(docs), description)
	if err != nil {
		return "", fmt.Errorf("failed to render expert prompt: %w", err)
	}

	resp, err := r.llm.Complete(ctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: query},
		},
	})
	if err != nil {
		metrics.RecordLLMCall(r.llm.Name(), "respond", "error")
		return "", fmt.Errorf("expert LLM call failed: %w", err)
	}

	metrics.RecordLLMCall(r.llm.Name(), "respond", "success")
	metrics.RecordTokens(resp.Model, resp.TokensIn, resp.TokensOut)

	return resp.Content, nil
}

// CombineDocuments renders documents as "[source:<index>] <text>" blocks
// separated by blank lines. The indices are the join keys the model
// reports its relevance scores against.
func CombineDocuments(docs []model.RetrievedDocument) string {
	chunks := make([]string, len(docs))
	for i, doc := range docs {
		chunks[i] = fmt.Sprintf("[source:%d] %s", doc.Index, doc.Text)
	}
	return strings.Join(chunks, "\n\n")
}
