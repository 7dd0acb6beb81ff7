package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/contrib-ai/virtual-contributor-engine/internal/llm"
	"github.com/contrib-ai/virtual-contributor-engine/internal/model"
	"github.com/contrib-ai/virtual-contributor-engine/internal/prompts"
	"github.com/contrib-ai/virtual-contributor-engine/pkg/logger"
	"github.com/contrib-ai/virtual-contributor-engine/pkg/metrics"
)

// Reconciler turns raw model text into a Response: it parses the
// structured reply (with a defined fallback on malformed JSON),
// translates the answer when the human's language differs, and joins
// relevance scores with the retrieved documents into an attributed,
// deduplicated source list.
type Reconciler struct {
	llm    llm.Client
	logger *logger.Logger
}

// NewReconciler creates a new output reconciler.
func NewReconciler(client llm.Client, log *logger.Logger) *Reconciler {
	return &Reconciler{llm: client, logger: log}
}

// Reconcile builds the final Response from the raw model text and the
// documents the answer was grounded in. A translation failure is the
// only error it can return; parse and score-key problems are always
// recovered locally.
func (r *Reconciler) Reconcile(ctx context.Context, rawModelText string, docs []model.RetrievedDocument) (*model.Response, error) {
	out := r.parseModelOutput(rawModelText)
	scores := r.normalizeScoreKeys(out.SourceScores)

	resp := &model.Response{
		Result:            out.AnswerText,
		OriginalResult:    out.AnswerText,
		HumanLanguage:     out.HumanLanguage,
		ResultLanguage:    out.AnswerLanguage,
		KnowledgeLanguage: out.KnowledgeLanguage,
		Sources:           r.attributeSources(docs, scores),
	}

	if out.HumanLanguage != "" && out.AnswerLanguage != "" && out.HumanLanguage != out.AnswerLanguage {
		translated, err := r.translate(ctx, out.AnswerText, out.HumanLanguage)
		if err != nil {
			return nil, fmt.Errorf("translation to %s failed: %w", out.HumanLanguage, err)
		}
		resp.Result = translated
		resp.ResultLanguage = out.HumanLanguage
		metrics.TranslationsTotal.Inc()
	}

	metrics.SourcesEmitted.Observe(float64(len(resp.Sources)))

	return resp, nil
}

// rawModelOutput accepts both naming conventions the model uses for the
// answer and its language tag.
type rawModelOutput struct {
	Answer            string             `json:"answer"`
	Result            string             `json:"result"`
	SourceScores      map[string]float64 `json:"source_scores"`
	HumanLanguage     string             `json:"human_language"`
	AnswerLanguage    string             `json:"answer_language"`
	ResultLanguage    string             `json:"result_language"`
	KnowledgeLanguage string             `json:"knowledge_language"`
}

// parseModelOutput parses the model's structured reply. Malformed JSON
// is an expected outcome, not a bug: the raw text becomes the answer
// with empty scores and English language tags.
func (r *Reconciler) parseModelOutput(raw string) model.ModelOutput {
	var parsed rawModelOutput
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &parsed); err != nil {
		r.logger.Warn("model returned malformed JSON, using degraded output",
			zap.Error(err),
		)
		return model.ModelOutput{
			AnswerText:        raw,
			SourceScores:      map[string]float64{},
			HumanLanguage:     "en",
			AnswerLanguage:    "en",
			KnowledgeLanguage: "en",
		}
	}

	answer := parsed.Answer
	if answer == "" {
		answer = parsed.Result
	}
	answerLanguage := parsed.AnswerLanguage
	if answerLanguage == "" {
		answerLanguage = parsed.ResultLanguage
	}
	scores := parsed.SourceScores
	if scores == nil {
		scores = map[string]float64{}
	}

	return model.ModelOutput{
		AnswerText:        answer,
		SourceScores:      scores,
		HumanLanguage:     parsed.HumanLanguage,
		AnswerLanguage:    answerLanguage,
		KnowledgeLanguage: parsed.KnowledgeLanguage,
	}
}

var digitRun = regexp.MustCompile(`\d+`)

// normalizeScoreKeys maps score keys like "0", "source:0" or "src0x" to
// the bare digit run. Keys without digits are dropped with a warning.
// When two keys normalize to the same index the first value kept wins.
func (r *Reconciler) normalizeScoreKeys(scores map[string]float64) map[string]float64 {
	normalized := make(map[string]float64, len(scores))
	for key, score := range scores {
		index := digitRun.FindString(key)
		if index == "" {
			r.logger.Warn("dropping score key without source index",
				zap.String("key", key),
			)
			continue
		}
		if _, exists := normalized[index]; !exists {
			normalized[index] = score
		}
	}
	return normalized
}

// attributeSources joins normalized scores with the retrieved documents
// by index. Only positive scores are kept, and the output is
// deduplicated by source id with the first occurrence winning.
func (r *Reconciler) attributeSources(docs []model.RetrievedDocument, scores map[string]float64) []model.SourceAttribution {
	sources := make([]model.SourceAttribution, 0, len(docs))
	seen := make(map[string]bool, len(docs))

	for _, doc := range docs {
		score, ok := scores[strconv.Itoa(doc.Index)]
		if !ok || score <= 0 {
			continue
		}
		if seen[doc.SourceID] {
			continue
		}
		seen[doc.SourceID] = true

		sources = append(sources, model.SourceAttribution{
			DocumentID:    doc.DocumentID,
			Source:        doc.SourceID,
			Title:         fmt.Sprintf("[%s] %s", formatDocType(doc.DocType), doc.Title),
			Type:          doc.DocType,
			Score:         score,
			URI:           doc.SourceID,
			ChunkIndex:    doc.ChunkIndex,
			EmbeddingType: doc.EmbeddingType,
		})
	}

	return sources
}

// translate converts the answer into the target language with a single
// LLM call.
func (r *Reconciler) translate(ctx context.Context, text, targetLanguage string) (string, error) {
	system, err := prompts.RenderTranslator(targetLanguage)
	if err != nil {
		return "", fmt.Errorf("failed to render translator prompt: %w", err)
	}

	resp, err := r.llm.Complete(ctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: text},
		},
	})
	if err != nil {
		metrics.RecordLLMCall(r.llm.Name(), "translate", "error")
		return "", err
	}

	metrics.RecordLLMCall(r.llm.Name(), "translate", "success")
	metrics.RecordTokens(resp.Model, resp.TokensIn, resp.TokensOut)

	return resp.Content, nil
}

// formatDocType turns "reference_manual" into "Reference manual".
func formatDocType(docType string) string {
	formatted := strings.ToLower(strings.ReplaceAll(docType, "_", " "))
	runes := []rune(formatted)
	if len(runes) > 0 {
		runes[0] = unicode.ToUpper(runes[0])
	}
	return string(runes)
}

// stripCodeFences unwraps a markdown-fenced JSON block, which some
// models produce despite the schema instructions.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
