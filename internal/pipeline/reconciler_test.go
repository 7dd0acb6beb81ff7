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

func testDocs() []model.RetrievedDocument {
	return []model.RetrievedDocument{
		{Index: 0, Text: "alpha", DocumentID: "d0", SourceID: "https://kb/alpha", Title: "Alpha", DocType: "reference_manual"},
		{Index: 1, Text: "beta", DocumentID: "d1", SourceID: "https://kb/beta", Title: "Beta", DocType: "faq"},
	}
}

func TestReconcileMalformedJSONFallsBack(t *testing.T) {
	client := &mockLLMClient{}
	reconciler := NewReconciler(client, logger.NewNop())

	resp, err := reconciler.Reconcile(context.Background(), "not json at all", testDocs())
	require.NoError(t, err)

	assert.Equal(t, "not json at all", resp.Result)
	assert.Equal(t, "not json at all", resp.OriginalResult)
	assert.Empty(t, resp.Sources)
	assert.Equal(t, "en", resp.HumanLanguage)
	assert.Equal(t, "en", resp.ResultLanguage)
	assert.Equal(t, 0, client.callCount(), "fallback languages match so no translation happens")
}

func TestReconcileMatchingLanguagesSkipTranslation(t *testing.T) {
	client := &mockLLMClient{}
	reconciler := NewReconciler(client, logger.NewNop())

	raw := `{"answer":"X is ...","source_scores":{"0":8,"1":0},"human_language":"en","answer_language":"en","knowledge_language":"en"}`
	resp, err := reconciler.Reconcile(context.Background(), raw, testDocs())
	require.NoError(t, err)

	assert.Equal(t, resp.OriginalResult, resp.Result)
	assert.Equal(t, "X is ...", resp.Result)
	assert.Equal(t, 0, client.callCount(), "no translation call expected")

	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "https://kb/alpha", resp.Sources[0].Source)
	assert.Equal(t, 8.0, resp.Sources[0].Score)
}

func TestReconcileTranslatesWhenLanguagesDiffer(t *testing.T) {
	client := &mockLLMClient{responses: []string{"X ist ..."}}
	reconciler := NewReconciler(client, logger.NewNop())

	raw := `{"answer":"X is ...","source_scores":{},"human_language":"de","answer_language":"en","knowledge_language":"en"}`
	resp, err := reconciler.Reconcile(context.Background(), raw, testDocs())
	require.NoError(t, err)

	assert.Equal(t, "X ist ...", resp.Result)
	assert.Equal(t, "X is ...", resp.OriginalResult)
	assert.Equal(t, "de", resp.ResultLanguage)
	assert.Equal(t, "en", resp.KnowledgeLanguage)
	require.Equal(t, 1, client.callCount())
	assert.Contains(t, client.requests[0].Messages[0].Content, "'de'")
}

func TestReconcileTranslationFailureIsFatal(t *testing.T) {
	client := &mockLLMClient{err: errors.New("timeout")}
	reconciler := NewReconciler(client, logger.NewNop())

	raw := `{"answer":"X is ...","source_scores":{},"human_language":"de","answer_language":"en","knowledge_language":"en"}`
	_, err := reconciler.Reconcile(context.Background(), raw, testDocs())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "translation to de failed")
}

func TestReconcileAcceptsResultFieldAliases(t *testing.T) {
	client := &mockLLMClient{}
	reconciler := NewReconciler(client, logger.NewNop())

	raw := `{"result":"via alias","source_scores":{},"human_language":"en","result_language":"en","knowledge_language":"en"}`
	resp, err := reconciler.Reconcile(context.Background(), raw, testDocs())
	require.NoError(t, err)

	assert.Equal(t, "via alias", resp.Result)
	assert.Equal(t, "en", resp.ResultLanguage)
}

func TestReconcileUnwrapsFencedJSON(t *testing.T) {
	client := &mockLLMClient{}
	reconciler := NewReconciler(client, logger.NewNop())

	raw := "```json\n{\"answer\":\"fenced\",\"source_scores\":{},\"human_language\":\"en\",\"answer_language\":\"en\",\"knowledge_language\":\"en\"}\n```"
	resp, err := reconciler.Reconcile(context.Background(), raw, testDocs())
	require.NoError(t, err)

	assert.Equal(t, "fenced", resp.Result)
}

func TestNormalizeScoreKeys(t *testing.T) {
	reconciler := NewReconciler(&mockLLMClient{}, logger.NewNop())

	normalized := reconciler.normalizeScoreKeys(map[string]float64{
		"source:3": 7,
		"2":        4,
		"src5x":    1,
		"nothing":  9,
	})

	assert.Equal(t, map[string]float64{"3": 7, "2": 4, "5": 1}, normalized)
}

func TestAttributeSourcesDeduplicatesBySourceID(t *testing.T) {
	reconciler := NewReconciler(&mockLLMClient{}, logger.NewNop())

	docs := []model.RetrievedDocument{
		{Index: 0, SourceID: "https://kb/alpha", Title: "Alpha", DocType: "article"},
		{Index: 1, SourceID: "https://kb/alpha", Title: "Alpha", DocType: "article"},
	}

	sources := reconciler.attributeSources(docs, map[string]float64{"0": 7, "1": 5})

	require.Len(t, sources, 1)
	assert.Equal(t, 7.0, sources[0].Score, "first occurrence wins")
}

func TestAttributeSourcesFiltersNonPositiveScores(t *testing.T) {
	reconciler := NewReconciler(&mockLLMClient{}, logger.NewNop())

	docs := testDocs()
	sources := reconciler.attributeSources(docs, map[string]float64{"0": 0, "1": 3})

	require.Len(t, sources, 1)
	assert.Equal(t, "https://kb/beta", sources[0].Source)
}

func TestAttributeSourcesFormatsTitle(t *testing.T) {
	reconciler := NewReconciler(&mockLLMClient{}, logger.NewNop())

	sources := reconciler.attributeSources(testDocs(), map[string]float64{"0": 6})

	require.Len(t, sources, 1)
	assert.Equal(t, "[Reference manual] Alpha", sources[0].Title)
	assert.Equal(t, "reference_manual", sources[0].Type)
	assert.Equal(t, "https://kb/alpha", sources[0].URI)
}
