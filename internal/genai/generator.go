// Package genai talks to the external content-generation service. The service
// is opaque here: we post a topic or source text and get question records
// back. Prompting and model selection are its business, not ours.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"livequiz-service/internal/app"
	"livequiz-service/internal/domain"
)

// Client calls the generation service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type generateResponse struct {
	Questions []domain.Question `json:"questions"`
}

func (c *Client) Generate(ctx context.Context, req app.GenerateRequest) ([]domain.Question, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call generation service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generation service returned status %d", resp.StatusCode)
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode generate response: %w", err)
	}
	if len(parsed.Questions) == 0 {
		return nil, fmt.Errorf("generation service returned no questions")
	}
	return parsed.Questions, nil
}

// Static returns canned questions regardless of the request; it stands in for
// the real service in demos and tests.
type Static struct {
	Questions []domain.Question
}

func (s *Static) Generate(_ context.Context, _ app.GenerateRequest) ([]domain.Question, error) {
	if len(s.Questions) == 0 {
		return nil, fmt.Errorf("no canned questions configured")
	}
	out := make([]domain.Question, len(s.Questions))
	copy(out, s.Questions)
	return out, nil
}
