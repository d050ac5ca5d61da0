// Package dialogflow is an nlu.Client backed by a Dialogflow ES v2 agent.
package dialogflow

import (
	"context"
	"fmt"
	"net/http"
	"os"

	df "cloud.google.com/go/dialogflow/apiv2"
	"cloud.google.com/go/dialogflow/apiv2/dialogflowpb"
	"github.com/zulandar/traveler/internal/nlu"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

const scope = "https://www.googleapis.com/auth/dialogflow"

// languageTags maps bot language codes to Dialogflow language tags.
var languageTags = map[string]string{
	"ua": "uk",
}

// Client calls DetectIntent for one agent.
type Client struct {
	projectID string
	sessions  *df.SessionsClient
}

// Opts holds parameters for creating a Client.
type Opts struct {
	// ProjectID of the agent. Read from the credentials when empty.
	ProjectID string
	// CredentialsFile is a service-account JSON key. When empty, Application
	// Default Credentials are used.
	CredentialsFile string
	Endpoint        string       // overrides the Dialogflow API host
	HTTPClient      *http.Client // skips credential lookup when set
}

var _ nlu.Client = (*Client)(nil)

// New creates a Client, resolving credentials unless HTTPClient is given.
func New(ctx context.Context, opts Opts) (*Client, error) {
	projectID := opts.ProjectID
	var clientOpts []option.ClientOption
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient), option.WithoutAuthentication())
	} else {
		creds, err := credentials(ctx, opts.CredentialsFile)
		if err != nil {
			return nil, err
		}
		if projectID == "" {
			projectID = creds.ProjectID
		}
		clientOpts = append(clientOpts, option.WithCredentials(creds))
	}

	if projectID == "" {
		return nil, fmt.Errorf("dialogflow: project id is required")
	}
	sessions, err := df.NewSessionsRESTClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("dialogflow: sessions client: %w", err)
	}
	return &Client{projectID: projectID, sessions: sessions}, nil
}

func credentials(ctx context.Context, file string) (*google.Credentials, error) {
	if file == "" {
		creds, err := google.FindDefaultCredentials(ctx, scope)
		if err != nil {
			return nil, fmt.Errorf("dialogflow: default credentials: %w", err)
		}
		return creds, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("dialogflow: read credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, scope)
	if err != nil {
		return nil, fmt.Errorf("dialogflow: parse credentials %s: %w", file, err)
	}
	return creds, nil
}

// DetectIntent sends text to the agent and returns its fulfillment text.
// sessionID keeps the agent's conversational context per chat.
func (c *Client) DetectIntent(ctx context.Context, sessionID, text, languageCode string) (string, error) {
	if tag, ok := languageTags[languageCode]; ok {
		languageCode = tag
	}
	resp, err := c.sessions.DetectIntent(ctx, &dialogflowpb.DetectIntentRequest{
		Session: c.session(sessionID),
		QueryInput: &dialogflowpb.QueryInput{
			Input: &dialogflowpb.QueryInput_Text{
				Text: &dialogflowpb.TextInput{Text: text, LanguageCode: languageCode},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("dialogflow: detect intent: %w", err)
	}
	return resp.GetQueryResult().GetFulfillmentText(), nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.sessions.Close()
}

func (c *Client) session(id string) string {
	return fmt.Sprintf("projects/%s/agent/sessions/%s", c.projectID, id)
}
