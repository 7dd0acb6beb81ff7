package model

// SourceAttribution maps an answer back to one retrieved document with
// its relevance score. The source list of a Response holds unique
// Source values and only entries with a positive score.
type SourceAttribution struct {
	DocumentID    string  `json:"documentId"`
	Source        string  `json:"source"`
	Title         string  `json:"title"`
	Type          string  `json:"type"`
	Score         float64 `json:"score"`
	URI           string  `json:"uri"`
	ChunkIndex    *int    `json:"chunkIndex,omitempty"`
	EmbeddingType string  `json:"embeddingType,omitempty"`
}

// Response is the outcome of one pipeline run. OriginalResult holds the
// pre-translation answer; when no translation occurred the two result
// fields are equal.
type Response struct {
	Result            string              `json:"result"`
	OriginalResult    string              `json:"originalResult"`
	HumanLanguage     string              `json:"humanLanguage"`
	ResultLanguage    string              `json:"resultLanguage"`
	KnowledgeLanguage string              `json:"knowledgeLanguage"`
	Sources           []SourceAttribution `json:"sources"`
}

// OutboundEnvelope is the wire shape published to the result queue. The
// original input is echoed so the platform can route the response.
type OutboundEnvelope struct {
	Response *Response       `json:"response"`
	Original *InboundMessage `json:"original"`
}
