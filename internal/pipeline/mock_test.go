package pipeline

import (
	"context"
	"sync"

	"github.com/contrib-ai/virtual-contributor-engine/internal/llm"
	"github.com/contrib-ai/virtual-contributor-engine/internal/model"
)

// mockLLMClient replays scripted responses and records every request.
type mockLLMClient struct {
	mu        sync.Mutex
	responses []string
	requests  []*llm.CompletionRequest
	err       error
}

func (m *mockLLMClient) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}

	idx := len(m.requests) - 1
	var content string
	if idx < len(m.responses) {
		content = m.responses[idx]
	} else if len(m.responses) > 0 {
		content = m.responses[len(m.responses)-1]
	}

	return &llm.CompletionResponse{Content: content, Model: "mock-model"}, nil
}

func (m *mockLLMClient) Name() string { return "mock" }

func (m *mockLLMClient) Models() []string { return []string{"mock-model"} }

func (m *mockLLMClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// mockRetriever returns a fixed document set and records the last query.
type mockRetriever struct {
	docs      []model.RetrievedDocument
	lastQuery string
	calls     int
}

func (m *mockRetriever) Retrieve(ctx context.Context, query, knowledgeBaseID string) []model.RetrievedDocument {
	m.lastQuery = query
	m.calls++
	return m.docs
}
