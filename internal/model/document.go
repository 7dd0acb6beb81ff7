package model

// RetrievedDocument is one knowledge chunk returned by a similarity
// search. Index is the position within a single retrieval result and is
// the join key used to attach relevance scores later; it is not a stable
// document identifier across calls.
type RetrievedDocument struct {
	Index         int
	Text          string
	DocumentID    string
	SourceID      string
	Title         string
	DocType       string
	ChunkIndex    *int
	EmbeddingType string
}
