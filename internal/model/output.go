package model

// ModelOutput is the canonical form of the LLM's structured reply.
// Score keys are kept as the raw strings the model produced; the
// reconciler normalizes them to bare indices.
type ModelOutput struct {
	AnswerText        string
	SourceScores      map[string]float64
	HumanLanguage     string
	AnswerLanguage    string
	KnowledgeLanguage string
}
