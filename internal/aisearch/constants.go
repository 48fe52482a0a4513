package aisearch

import "time"

const (
	// DefaultCacheSize bounds the response cache.
	DefaultCacheSize = 128

	// DefaultCacheTTL is how long a cached answer stays valid. The
	// directory itself changes rarely; five minutes keeps repeat queries
	// free without serving long-stale answers.
	DefaultCacheTTL = 5 * time.Minute

	// requestTimeout bounds a single model call.
	requestTimeout = 30 * time.Second

	geminiDefaultBaseURL = "https://generativelanguage.googleapis.com"
	openaiDefaultBaseURL = "https://api.openai.com/v1"
)
