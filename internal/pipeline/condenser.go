package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/contrib-ai/virtual-contributor-engine/internal/llm"
	"github.com/contrib-ai/virtual-contributor-engine/internal/model"
	"github.com/contrib-ai/virtual-contributor-engine/internal/prompts"
	"github.com/contrib-ai/virtual-contributor-engine/pkg/logger"
	"github.com/contrib-ai/virtual-contributor-engine/pkg/metrics"
)

// Condenser rewrites a context-dependent follow-up question into a
// standalone query using the conversation history.
type Condenser struct {
	llm    llm.Client
	logger *logger.Logger
}

// NewCondenser creates a new question condenser.
func NewCondenser(client llm.Client, log *logger.Logger) *Condenser {
	return &Condenser{llm: client, logger: log}
}

// Condense produces a standalone query from the history and the latest
// message. With empty history the latest message is returned unchanged
// and no LLM call is made. The model's output is passed through without
// modification; if the latest message is a sentiment the prompt
// instructs the model to return it verbatim.
func (c *Condenser) Condense(ctx context.Context, history []model.Turn, latestMessage string) (string, error) {
	if len(history) == 0 {
		return latestMessage, nil
	}

	prompt, err := prompts.RenderCondenser(HistoryAsConversation(history), latestMessage)
	if err != nil {
		return "", fmt.Errorf("failed to render condenser prompt: %w", err)
	}

	resp, err := c.llm.Complete(ctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: llm.RoleUser, Content: prompt},
		},
	})
	if err != nil {
		metrics.RecordLLMCall(c.llm.Name(), "condense", "error")
		return "", fmt.Errorf("condenser LLM call failed: %w", err)
	}

	metrics.RecordLLMCall(c.llm.Name(), "condense", "success")
	metrics.RecordTokens(resp.Model, resp.TokensIn, resp.TokensOut)

	return resp.Content, nil
}

// HistoryAsConversation serializes history turns as "role: content"
// lines, oldest first.
func HistoryAsConversation(history []model.Turn) string {
	lines := make([]string, len(history))
	for i, turn := range history {
		lines[i] = fmt.Sprintf("%s: %s", turn.Role, turn.Content)
	}
	return strings.Join(lines, "\n")
}
