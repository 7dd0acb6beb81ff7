package retriever

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contrib-ai/virtual-contributor-engine/internal/vectordb"
	"github.com/contrib-ai/virtual-contributor-engine/pkg/logger"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *fakeEmbedder) Model() string { return "fake-embedder" }

// fakeChroma serves the two endpoints retrieval touches: collection
// lookup and similarity query.
func fakeChroma(t *testing.T, queryResult *vectordb.QueryResult, missingCollection bool) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/collections/kb1-knowledge", func(w http.ResponseWriter, r *http.Request) {
		if missingCollection {
			http.Error(w, "collection not found", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "col-1", "name": "kb1-knowledge"})
	})
	mux.HandleFunc("/api/v1/collections/col-1/query", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 4, body["n_results"])
		json.NewEncoder(w).Encode(queryResult)
	})

	return httptest.NewServer(mux)
}

func TestRetrieveMapsDocuments(t *testing.T) {
	srv := fakeChroma(t, &vectordb.QueryResult{
		IDs:       [][]string{{"id-0", "id-1"}},
		Documents: [][]string{{"X is a thing.", "Y is another."}},
		Metadatas: [][]map[string]any{{
			{
				"source":        "https://kb/x",
				"title":         "About X",
				"type":          "reference_manual",
				"documentId":    "doc-x",
				"chunkIndex":    float64(2),
				"embeddingType": "text-embedding-3-small",
			},
			{
				"source": "https://kb/y",
				"title":  "About Y",
				"type":   "article",
			},
		}},
		Distances: [][]float64{{0.1, 0.4}},
	}, false)
	defer srv.Close()

	store := vectordb.NewClient(vectordb.Config{URL: srv.URL})
	emb := &fakeEmbedder{vector: []float32{0.1, 0.2}}
	r := New(emb, store, logger.NewNop(), 4)

	docs := r.Retrieve(context.Background(), "What is X?", "kb1")
	require.Len(t, docs, 2)

	assert.Equal(t, 0, docs[0].Index)
	assert.Equal(t, "X is a thing.", docs[0].Text)
	assert.Equal(t, "https://kb/x", docs[0].SourceID)
	assert.Equal(t, "About X", docs[0].Title)
	assert.Equal(t, "reference_manual", docs[0].DocType)
	assert.Equal(t, "doc-x", docs[0].DocumentID)
	require.NotNil(t, docs[0].ChunkIndex)
	assert.Equal(t, 2, *docs[0].ChunkIndex)
	assert.Equal(t, "text-embedding-3-small", docs[0].EmbeddingType)

	assert.Equal(t, 1, docs[1].Index)
	assert.Equal(t, "id-1", docs[1].DocumentID, "falls back to the Chroma id")
	assert.Nil(t, docs[1].ChunkIndex)
}

func TestRetrieveMissingCollectionIsRecoverable(t *testing.T) {
	srv := fakeChroma(t, nil, true)
	defer srv.Close()

	store := vectordb.NewClient(vectordb.Config{URL: srv.URL})
	r := New(&fakeEmbedder{vector: []float32{0.1}}, store, logger.NewNop(), 4)

	docs := r.Retrieve(context.Background(), "What is X?", "kb1")
	assert.Empty(t, docs)
}

func TestRetrieveEmbeddingFailureIsRecoverable(t *testing.T) {
	srv := fakeChroma(t, nil, false)
	defer srv.Close()

	store := vectordb.NewClient(vectordb.Config{URL: srv.URL})
	emb := &fakeEmbedder{err: errors.New("embedding api down")}
	r := New(emb, store, logger.NewNop(), 4)

	docs := r.Retrieve(context.Background(), "What is X?", "kb1")
	assert.Empty(t, docs)
}

func TestRetrieveEmptyQuery(t *testing.T) {
	emb := &fakeEmbedder{vector: []float32{0.1}}
	r := New(emb, vectordb.NewClient(vectordb.Config{URL: "http://unused"}), logger.NewNop(), 4)

	docs := r.Retrieve(context.Background(), "", "kb1")
	assert.Empty(t, docs)
	assert.Equal(t, 0, emb.calls)
}

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "kb1-knowledge", CollectionName("kb1"))
}
