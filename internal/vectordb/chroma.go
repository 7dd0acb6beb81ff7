// Package vectordb provides a minimal REST client for a Chroma server.
package vectordb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client is a minimal REST client to Chroma. Collections are addressed
// by name; the id lookup happens on every call so the client holds no
// state that can go stale if a collection is recreated.
type Client struct {
	baseURL string
	client  *http.Client
}

// Config configures the Chroma client.
type Config struct {
	URL     string
	Timeout time.Duration
}

// NewClient creates a new Chroma client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.URL,
		client:  &http.Client{Timeout: timeout},
	}
}

// QueryResult mirrors Chroma's batched query response. The engine only
// ever sends one query embedding, so callers consume batch zero.
type QueryResult struct {
	IDs       [][]string         `json:"ids"`
	Documents [][]string         `json:"documents"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Distances [][]float64        `json:"distances"`
}

type collectionInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Ping checks server availability.
func (c *Client) Ping(ctx context.Context) error {
	return c.getJSON(ctx, fmt.Sprintf("%s/api/v1/heartbeat", c.baseURL), nil)
}

// GetCollection resolves a collection name to its id.
func (c *Client) GetCollection(ctx context.Context, name string) (string, error) {
	var info collectionInfo
	url := fmt.Sprintf("%s/api/v1/collections/%s", c.baseURL, name)
	if err := c.getJSON(ctx, url, &info); err != nil {
		return "", fmt.Errorf("collection %s not found: %w", name, err)
	}
	return info.ID, nil
}

// EnsureCollection creates the collection if missing and returns its id.
func (c *Client) EnsureCollection(ctx context.Context, name string) (string, error) {
	var info collectionInfo
	body := map[string]any{"name": name, "get_or_create": true}
	url := fmt.Sprintf("%s/api/v1/collections", c.baseURL)
	if err := c.postJSON(ctx, url, body, &info); err != nil {
		return "", fmt.Errorf("failed to ensure collection %s: %w", name, err)
	}
	return info.ID, nil
}

// Query runs a similarity search against the named collection and
// returns up to k results ordered by decreasing similarity.
func (c *Client) Query(ctx context.Context, collection string, embedding []float32, k int) (*QueryResult, error) {
	if k <= 0 {
		k = 4
	}

	id, err := c.GetCollection(ctx, collection)
	if err != nil {
		return nil, err
	}

	req := map[string]any{
		"query_embeddings": [][]float32{embedding},
		"n_results":        k,
		"include":          []string{"documents", "metadatas", "distances"},
	}

	var result QueryResult
	url := fmt.Sprintf("%s/api/v1/collections/%s/query", c.baseURL, id)
	if err := c.postJSON(ctx, url, req, &result); err != nil {
		return nil, fmt.Errorf("query against %s failed: %w", collection, err)
	}
	return &result, nil
}

// Upsert writes documents with their embeddings and metadata into the
// named collection, creating it when missing.
func (c *Client) Upsert(ctx context.Context, collection string, ids []string, embeddings [][]float32, documents []string, metadatas []map[string]any) error {
	if len(ids) != len(embeddings) || len(ids) != len(documents) || len(ids) != len(metadatas) {
		return fmt.Errorf("ids, embeddings, documents and metadatas must have equal length")
	}

	id, err := c.EnsureCollection(ctx, collection)
	if err != nil {
		return err
	}

	body := map[string]any{
		"ids":        ids,
		"embeddings": embeddings,
		"documents":  documents,
		"metadatas":  metadatas,
	}
	url := fmt.Sprintf("%s/api/v1/collections/%s/upsert", c.baseURL, id)
	if err := c.postJSON(ctx, url, body, nil); err != nil {
		return fmt.Errorf("upsert into %s failed: %w", collection, err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("chroma %s %s failed: %s", req.Method, req.URL.Path, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
