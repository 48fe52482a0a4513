package aisearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// backend is one model provider: it takes a fully built prompt and returns
// the model's raw text answer.
type backend interface {
	complete(ctx context.Context, prompt string) (string, error)
}

// backendFor selects a provider by model name. Returns nil for model names
// no provider claims; the service reports that as unsupported.
func backendFor(cfg Config) backend {
	client := &http.Client{Timeout: requestTimeout}

	switch {
	case strings.HasPrefix(cfg.Model, "gemini-"):
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = geminiDefaultBaseURL
		}
		return &geminiBackend{model: cfg.Model, apiKey: cfg.APIKey, baseURL: baseURL, client: client}
	case strings.HasPrefix(cfg.Model, "gpt-"):
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = openaiDefaultBaseURL
		}
		return &openaiBackend{model: cfg.Model, apiKey: cfg.APIKey, baseURL: baseURL, client: client}
	default:
		return nil
	}
}

// classifyStatus maps provider HTTP statuses onto failure categories.
func classifyStatus(status int) Category {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return CategoryAuth
	case status == http.StatusTooManyRequests:
		return CategoryRateLimited
	default:
		return CategoryUnknown
	}
}

// geminiBackend talks to the Gemini generateContent API.
type geminiBackend struct {
	model   string
	apiKey  string
	baseURL string
	client  *http.Client
}

func (g *geminiBackend) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]any{{"text": prompt}}},
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", newError(CategoryUnknown, err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", newError(CategoryUnknown, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", newError(CategoryNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", newError(classifyStatus(resp.StatusCode), fmt.Errorf("gemini returned status %d", resp.StatusCode))
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", newError(CategoryMalformedResponse, err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", newError(CategoryMalformedResponse, fmt.Errorf("gemini answer has no candidates"))
	}

	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

// openaiBackend talks to any OpenAI-compatible chat completions endpoint.
type openaiBackend struct {
	model   string
	apiKey  string
	baseURL string
	client  *http.Client
}

func (o *openaiBackend) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model": o.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", newError(CategoryUnknown, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", newError(CategoryUnknown, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", newError(CategoryNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", newError(classifyStatus(resp.StatusCode), fmt.Errorf("provider returned status %d", resp.StatusCode))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", newError(CategoryMalformedResponse, err)
	}
	if len(parsed.Choices) == 0 {
		return "", newError(CategoryMalformedResponse, fmt.Errorf("answer has no choices"))
	}

	return parsed.Choices[0].Message.Content, nil
}
