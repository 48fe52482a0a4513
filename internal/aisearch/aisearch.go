// Package aisearch answers free-text directory queries by handing the
// business snapshot to a language model and mapping its answer back onto
// concrete listings. Failures never leak raw provider errors: every one is
// classified into a small set of user-facing categories.
package aisearch

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/villagehub/bizdir/internal/domain"
	"github.com/villagehub/bizdir/internal/logger"
	"github.com/villagehub/bizdir/internal/metrics"
)

// ResultItem is one entry of a search answer: either a reference to a
// cached business or a free-text line from the model.
type ResultItem struct {
	BusinessID string `json:"business_id,omitempty"`
	Text       string `json:"text,omitempty"`
}

// Result is the structured answer shown to the user.
type Result struct {
	Summary string       `json:"summary"`
	Items   []ResultItem `json:"items"`
}

// Service answers natural-language queries against the current snapshot of
// the directory.
type Service interface {
	Search(ctx context.Context, query string, businesses []domain.Business) (Result, error)
}

// Config configures the search service. Model selects the backend by name:
// gemini-* models talk to the Gemini API, everything else that looks like a
// chat model goes through the OpenAI-compatible endpoint.
type Config struct {
	Model   string
	APIKey  string
	BaseURL string // override for tests; empty uses the provider default

	CacheSize int
	CacheTTL  time.Duration
}

type service struct {
	cfg     Config
	backend backend
	cache   *expirable.LRU[string, Result]
}

// NewService creates a search service for the configured model. An empty
// model is valid: the service stays up and every query reports the
// not-configured category.
func NewService(cfg Config) Service {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}

	return &service{
		cfg:     cfg,
		backend: backendFor(cfg),
		cache:   expirable.NewLRU[string, Result](cfg.CacheSize, nil, cfg.CacheTTL),
	}
}

// Search classifies configuration problems up front, then consults the
// response cache before paying for a model call. Only successful answers
// are cached.
func (s *service) Search(ctx context.Context, query string, businesses []domain.Business) (Result, error) {
	log := logger.FromContext(ctx)

	if err := s.checkConfig(); err != nil {
		metrics.AISearchesTotal.WithLabelValues(string(categoryOf(err))).Inc()
		return Result{}, err
	}

	key := cacheKey(query)
	if cached, ok := s.cache.Get(key); ok {
		metrics.AISearchCacheHits.Inc()
		metrics.AISearchesTotal.WithLabelValues("ok").Inc()
		return cached, nil
	}

	raw, err := s.backend.complete(ctx, buildPrompt(query, businesses))
	if err != nil {
		category := categoryOf(err)
		log.Warn("AI search failed",
			"category", string(category),
			"model", s.cfg.Model,
			"error", err)
		metrics.AISearchesTotal.WithLabelValues(string(category)).Inc()
		return Result{}, err
	}

	result, err := parseResult(raw, businesses)
	if err != nil {
		log.Warn("AI search returned unparseable answer",
			"model", s.cfg.Model,
			"error", err)
		metrics.AISearchesTotal.WithLabelValues(string(CategoryMalformedResponse)).Inc()
		return Result{}, err
	}

	s.cache.Add(key, result)
	metrics.AISearchesTotal.WithLabelValues("ok").Inc()
	return result, nil
}

func (s *service) checkConfig() error {
	if s.cfg.Model == "" {
		return newError(CategoryNotConfigured, nil)
	}
	if s.cfg.APIKey == "" {
		return newError(CategoryKeyMissing, nil)
	}
	if s.backend == nil {
		return newError(CategoryUnsupportedModel, nil)
	}
	return nil
}

func cacheKey(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}
