package aisearch

import "fmt"

// Category is the user-facing classification of a failed search. The
// underlying cause is logged; only the category reaches the UI.
type Category string

const (
	CategoryNotConfigured     Category = "not_configured"
	CategoryKeyMissing        Category = "key_missing"
	CategoryUnsupportedModel  Category = "unsupported_model"
	CategoryNetwork           Category = "network_failure"
	CategoryRateLimited       Category = "rate_limited"
	CategoryMalformedResponse Category = "malformed_response"
	CategoryAuth              Category = "auth_failure"
	CategoryUnknown           Category = "unknown"
)

// messages maps each category to the text shown to the user.
var messages = map[Category]string{
	CategoryNotConfigured:     "AI search is not configured",
	CategoryKeyMissing:        "AI search API key is missing",
	CategoryUnsupportedModel:  "the configured AI model is not supported",
	CategoryNetwork:           "could not reach the AI service",
	CategoryRateLimited:       "AI service rate limit reached, try again shortly",
	CategoryMalformedResponse: "the AI service returned an unreadable answer",
	CategoryAuth:              "AI service rejected the credentials",
	CategoryUnknown:           "AI search failed unexpectedly",
}

// Error carries a category plus the wrapped cause.
type Error struct {
	Category Category
	cause    error
}

func newError(category Category, cause error) *Error {
	return &Error{Category: category, cause: cause}
}

func (e *Error) Error() string {
	msg := messages[e.Category]
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

// Message returns the user-facing text for the error's category.
func (e *Error) Message() string { return messages[e.Category] }

// categoryOf extracts the category from an error, defaulting to unknown.
func categoryOf(err error) Category {
	if e, ok := err.(*Error); ok {
		return e.Category
	}
	return CategoryUnknown
}
