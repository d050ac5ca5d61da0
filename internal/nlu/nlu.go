// Package nlu defines the natural-language-understanding collaborator used
// for free-form chat once a user is registered.
package nlu

import (
	"context"
	"strings"
)

// Client detects an intent for text and returns the fulfillment reply.
// An empty reply with a nil error means nothing matched.
type Client interface {
	DetectIntent(ctx context.Context, sessionID, text, languageCode string) (string, error)
}

// Nop never matches. It backs the "none" NLU backend.
type Nop struct{}

// DetectIntent always returns an empty reply.
func (Nop) DetectIntent(ctx context.Context, sessionID, text, languageCode string) (string, error) {
	return "", nil
}

// Static answers from a fixed table keyed by language and lower-cased text.
// It is useful for tests and offline runs.
type Static map[string]map[string]string

// DetectIntent looks text up in the table for languageCode.
func (s Static) DetectIntent(ctx context.Context, sessionID, text, languageCode string) (string, error) {
	return s[languageCode][strings.ToLower(strings.TrimSpace(text))], nil
}
