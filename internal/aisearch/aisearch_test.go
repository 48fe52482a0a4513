package aisearch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/villagehub/bizdir/internal/domain"
)

var snapshot = []domain.Business{
	{ID: "biz-1", ShopName: "Lakshmi Stores", Services: []string{"groceries"}},
	{ID: "biz-2", ShopName: "Ravi Electricals", Services: []string{"repairs"}},
}

// openAIServer fakes an OpenAI-compatible chat completions endpoint that
// always answers with the given model text.
func openAIServer(t *testing.T, answer string, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": answer}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestSearch_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want Category
	}{
		{"no model", Config{}, CategoryNotConfigured},
		{"no key", Config{Model: "gpt-4o-mini"}, CategoryKeyMissing},
		{"unsupported model", Config{Model: "claude-haiku", APIKey: "k"}, CategoryUnsupportedModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.cfg)
			_, err := svc.Search(context.Background(), "milk", snapshot)

			var aiErr *Error
			require.ErrorAs(t, err, &aiErr)
			assert.Equal(t, tt.want, aiErr.Category)
			assert.NotEmpty(t, aiErr.Message())
		})
	}
}

func TestSearch_OpenAIBackend(t *testing.T) {
	answer := `{"summary": "One grocery shop matches.", "matches": [{"business_id": "biz-1"}, {"text": "Delivery may be available."}]}`
	server := openAIServer(t, answer, nil)
	defer server.Close()

	svc := NewService(Config{Model: "gpt-4o-mini", APIKey: "test-key", BaseURL: server.URL})
	result, err := svc.Search(context.Background(), "who sells milk", snapshot)

	require.NoError(t, err)
	assert.Equal(t, "One grocery shop matches.", result.Summary)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "biz-1", result.Items[0].BusinessID)
	assert.Equal(t, "Delivery may be available.", result.Items[1].Text)
}

func TestSearch_GeminiBackend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-1.5-flash")
		assert.Contains(t, r.URL.RawQuery, "key=test-key")

		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{
					"parts": []map[string]string{
						{"text": "```json\n{\"summary\": \"Found it.\", \"matches\": [{\"business_id\": \"biz-2\"}]}\n```"},
					},
				}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	svc := NewService(Config{Model: "gemini-1.5-flash", APIKey: "test-key", BaseURL: server.URL})
	result, err := svc.Search(context.Background(), "electrician", snapshot)

	require.NoError(t, err)
	assert.Equal(t, "Found it.", result.Summary)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "biz-2", result.Items[0].BusinessID)
}

func TestSearch_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   Category
	}{
		{http.StatusUnauthorized, CategoryAuth},
		{http.StatusForbidden, CategoryAuth},
		{http.StatusTooManyRequests, CategoryRateLimited},
		{http.StatusInternalServerError, CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			svc := NewService(Config{Model: "gpt-4o-mini", APIKey: "test-key", BaseURL: server.URL})
			_, err := svc.Search(context.Background(), "anything", snapshot)

			var aiErr *Error
			require.ErrorAs(t, err, &aiErr)
			assert.Equal(t, tt.want, aiErr.Category)
		})
	}
}

func TestSearch_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	svc := NewService(Config{Model: "gpt-4o-mini", APIKey: "test-key", BaseURL: server.URL})
	_, err := svc.Search(context.Background(), "anything", snapshot)

	var aiErr *Error
	require.ErrorAs(t, err, &aiErr)
	assert.Equal(t, CategoryNetwork, aiErr.Category)
}

func TestSearch_MalformedAnswer(t *testing.T) {
	server := openAIServer(t, "sorry, here is some prose instead of JSON", nil)
	defer server.Close()

	svc := NewService(Config{Model: "gpt-4o-mini", APIKey: "test-key", BaseURL: server.URL})
	_, err := svc.Search(context.Background(), "anything", snapshot)

	var aiErr *Error
	require.ErrorAs(t, err, &aiErr)
	assert.Equal(t, CategoryMalformedResponse, aiErr.Category)
}

func TestSearch_CachesSuccessfulAnswers(t *testing.T) {
	var calls atomic.Int32
	answer := `{"summary": "cached", "matches": []}`
	server := openAIServer(t, answer, &calls)
	defer server.Close()

	svc := NewService(Config{Model: "gpt-4o-mini", APIKey: "test-key", BaseURL: server.URL})

	_, err := svc.Search(context.Background(), "Who sells milk?", snapshot)
	require.NoError(t, err)

	// Same query modulo case and whitespace is a cache hit.
	result, err := svc.Search(context.Background(), "  who sells MILK?  ", snapshot)
	require.NoError(t, err)

	assert.Equal(t, "cached", result.Summary)
	assert.Equal(t, int32(1), calls.Load())
}

func TestParseResult_UnknownBusinessDemotedToText(t *testing.T) {
	raw := `{"summary": "s", "matches": [{"business_id": "biz-1"}, {"business_id": "biz-404"}]}`
	result, err := parseResult(raw, snapshot)

	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "biz-1", result.Items[0].BusinessID)
	assert.Empty(t, result.Items[1].BusinessID)
	assert.Contains(t, result.Items[1].Text, "biz-404")
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
}

func TestCategoryOf_ForeignError(t *testing.T) {
	assert.Equal(t, CategoryUnknown, categoryOf(errors.New("plain")))
}
