package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// KnowledgeItem is one ranked knowledge-base hit.
type KnowledgeItem struct {
	SourceID  string  `json:"source_id"`
	Excerpt   string  `json:"excerpt"`
	Relevance float64 `json:"relevance"`
}

// Searcher is the knowledge-retrieval capability consumed while building the
// enrichment stage's prompt.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]KnowledgeItem, error)
}

// Client performs vector similarity search against Qdrant, embedding queries
// through Ollama.
type Client struct {
	qdrantURL  string
	ollamaURL  string
	model      string
	collection string
	httpClient *http.Client
}

func NewClient(qdrantURL, ollamaURL, embeddingModel, collection string) *Client {
	if collection == "" {
		collection = "documents"
	}
	return &Client{
		qdrantURL:  qdrantURL,
		ollamaURL:  ollamaURL,
		model:      embeddingModel,
		collection: collection,
		httpClient: &http.Client{},
	}
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

func (c *Client) getEmbedding(ctx context.Context, text string) ([]float64, error) {
	url := fmt.Sprintf("%s/api/embeddings", c.ollamaURL)
	body, err := json.Marshal(embeddingRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama error %d: %s", resp.StatusCode, string(b))
	}

	var result embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return result.Embedding, nil
}

type qdrantSearchRequest struct {
	Vector      []float64 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type qdrantSearchResponse struct {
	Result []struct {
		ID      any            `json:"id"`
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

// Search embeds the query and runs a top-k similarity search. Cosine scores
// from Qdrant already land in [0, 1]; they are clamped anyway so a bad
// payload can never leak an out-of-range relevance downstream.
func (c *Client) Search(ctx context.Context, query string, topK int) ([]KnowledgeItem, error) {
	vector, err := c.getEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.qdrantURL, c.collection)
	body, err := json.Marshal(qdrantSearchRequest{
		Vector:      vector,
		Limit:       topK,
		WithPayload: true,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("qdrant search failed: %s : %s", resp.Status, string(b))
	}

	var result qdrantSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	items := make([]KnowledgeItem, 0, len(result.Result))
	for _, hit := range result.Result {
		item := KnowledgeItem{
			SourceID:  fmt.Sprintf("%v", hit.ID),
			Relevance: clamp01(hit.Score),
		}
		if excerpt, ok := hit.Payload["excerpt"].(string); ok {
			item.Excerpt = excerpt
		}
		if sourceID, ok := hit.Payload["source_id"].(string); ok {
			item.SourceID = sourceID
		}
		items = append(items, item)
	}
	return items, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// MockSearcher returns canned knowledge hits for environments without a
// vector store.
type MockSearcher struct{}

func (MockSearcher) Search(ctx context.Context, query string, topK int) ([]KnowledgeItem, error) {
	items := []KnowledgeItem{
		{
			SourceID:  "kb-001",
			Excerpt:   "Common causes of high CPU include inefficient queries, memory leaks, and infinite loops.",
			Relevance: 0.85,
		},
		{
			SourceID:  "kb-002",
			Excerpt:   "Containers may restart due to OOM kills, application crashes, or liveness probe failures.",
			Relevance: 0.72,
		},
	}
	if topK > 0 && topK < len(items) {
		items = items[:topK]
	}
	return items, nil
}
