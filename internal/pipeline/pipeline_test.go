package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contrib-ai/virtual-contributor-engine/internal/model"
	"github.com/contrib-ai/virtual-contributor-engine/pkg/logger"
)

func TestAnswerEndToEnd(t *testing.T) {
	client := &mockLLMClient{responses: []string{
		`{"answer":"X is ...","source_scores":{"0":8,"1":0},"human_language":"en","answer_language":"en","knowledge_language":"en"}`,
	}}
	ret := &mockRetriever{docs: []model.RetrievedDocument{
		{Index: 0, Text: "X is a thing.", SourceID: "https://kb/x", Title: "About X", DocType: "article"},
		{Index: 1, Text: "Y is unrelated.", SourceID: "https://kb/y", Title: "About Y", DocType: "article"},
	}}

	p := New(client, ret, logger.NewNop())

	resp := p.Answer(context.Background(), &model.Request{
		Message:         "What is X?",
		KnowledgeBaseID: "kb1",
		DisplayName:     "Bob",
	})

	assert.Equal(t, "X is ...", resp.Result)
	assert.Equal(t, "X is ...", resp.OriginalResult)
	assert.Equal(t, "en", resp.HumanLanguage)
	assert.Equal(t, "en", resp.ResultLanguage)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "https://kb/x", resp.Sources[0].Source)

	// no history, so the retriever saw the raw message and only the
	// expert call hit the LLM
	assert.Equal(t, "What is X?", ret.lastQuery)
	assert.Equal(t, 1, client.callCount())
}

func TestAnswerCondensesWhenHistoryPresent(t *testing.T) {
	client := &mockLLMClient{responses: []string{
		"What is the capital of France?",
		`{"answer":"Paris","source_scores":{"0":9},"human_language":"en","answer_language":"en","knowledge_language":"en"}`,
	}}
	ret := &mockRetriever{docs: []model.RetrievedDocument{
		{Index: 0, Text: "Paris is the capital of France.", SourceID: "https://kb/fr", Title: "France", DocType: "article"},
	}}

	p := New(client, ret, logger.NewNop())

	resp := p.Answer(context.Background(), &model.Request{
		Message: "And its capital?",
		History: []model.Turn{
			{Role: model.RoleHuman, Content: "Tell me about France."},
			{Role: model.RoleAssistant, Content: "France is a country."},
		},
		KnowledgeBaseID: "kb1",
		DisplayName:     "Bob",
	})

	assert.Equal(t, "Paris", resp.Result)
	assert.Equal(t, "What is the capital of France?", ret.lastQuery,
		"retrieval should use the condensed query")
	assert.Equal(t, 2, client.callCount())
}

func TestAnswerEmptyRetrievalShortCircuits(t *testing.T) {
	client := &mockLLMClient{}
	ret := &mockRetriever{}

	p := New(client, ret, logger.NewNop())

	resp := p.Answer(context.Background(), &model.Request{
		Message:         "What is X?",
		KnowledgeBaseID: "missing-kb",
		DisplayName:     "Bob",
	})

	assert.Equal(t, "", resp.Result)
	assert.Equal(t, "", resp.OriginalResult)
	assert.Empty(t, resp.Sources)
	assert.Equal(t, 0, client.callCount(), "expert responder must not be invoked")
}

func TestAnswerResponderFailureReturnsUnavailable(t *testing.T) {
	client := &mockLLMClient{err: errors.New("network error")}
	ret := &mockRetriever{docs: []model.RetrievedDocument{
		{Index: 0, Text: "chunk", SourceID: "https://kb/x", Title: "X", DocType: "article"},
	}}

	p := New(client, ret, logger.NewNop())

	resp := p.Answer(context.Background(), &model.Request{
		Message:         "What is X?",
		KnowledgeBaseID: "kb1",
		DisplayName:     "Bob",
	})

	assert.Equal(t, "Bob - the Virtual Contributor is currently unavailable.", resp.Result)
	assert.Equal(t, resp.Result, resp.OriginalResult)
	assert.Empty(t, resp.Sources)
}

func TestAnswerCondenserFailureReturnsUnavailable(t *testing.T) {
	client := &mockLLMClient{err: errors.New("network error")}
	ret := &mockRetriever{}

	p := New(client, ret, logger.NewNop())

	resp := p.Answer(context.Background(), &model.Request{
		Message:         "follow-up",
		History:         []model.Turn{{Role: model.RoleHuman, Content: "first"}},
		KnowledgeBaseID: "kb1",
		DisplayName:     "Alice",
	})

	assert.Equal(t, "Alice - the Virtual Contributor is currently unavailable.", resp.Result)
	assert.Equal(t, 0, ret.calls, "retrieval must not run after a condenser failure")
}

func TestAnswerIsDeterministicForSameRequest(t *testing.T) {
	makePipeline := func() (*Pipeline, *mockLLMClient) {
		client := &mockLLMClient{responses: []string{
			`{"answer":"X is ...","source_scores":{"0":8},"human_language":"en","answer_language":"en","knowledge_language":"en"}`,
		}}
		ret := &mockRetriever{docs: []model.RetrievedDocument{
			{Index: 0, Text: "X is a thing.", SourceID: "https://kb/x", Title: "X", DocType: "article"},
		}}
		return New(client, ret, logger.NewNop()), client
	}

	req := &model.Request{Message: "What is X?", KnowledgeBaseID: "kb1", DisplayName: "Bob"}

	p1, _ := makePipeline()
	p2, _ := makePipeline()

	first := p1.Answer(context.Background(), req)
	second := p2.Answer(context.Background(), req)

	assert.Equal(t, first, second)
}
