// Package gemini is an nlu.Client that answers free-form chat with a
// Gemini model.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/zulandar/traveler/internal/nlu"
	"google.golang.org/genai"
)

// DefaultModel is used when Opts.Model is empty.
const DefaultModel = "gemini-2.5-flash"

var languageNames = map[string]string{
	"en": "English",
	"ua": "Ukrainian",
	"ru": "Russian",
}

// Client generates short companion-style replies.
type Client struct {
	client *genai.Client
	model  string
}

// Opts holds parameters for creating a Client.
type Opts struct {
	APIKey  string
	Model   string // defaults to DefaultModel
	BaseURL string // overrides the API host; used in tests
}

var _ nlu.Client = (*Client)(nil)

// New creates a Client for the Gemini API.
func New(ctx context.Context, opts Opts) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions.BaseURL = opts.BaseURL
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

// DetectIntent asks the model for a reply in the user's language. The
// model has no memory between calls; sessionID is unused.
func (c *Client) DetectIntent(ctx context.Context, sessionID, text, languageCode string) (string, error) {
	lang, ok := languageNames[languageCode]
	if !ok {
		lang = languageNames["en"]
	}
	system := fmt.Sprintf("You are a friendly travel companion in a chat bot. "+
		"Answer in %s in one or two short sentences.", lang)

	temp := float32(0.7)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       &temp,
		MaxOutputTokens:   256,
	}
	res, err := c.client.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	return strings.TrimSpace(res.Text()), nil
}
