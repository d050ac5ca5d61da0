// Package api implements the store interfaces against the remote users and
// articles HTTP service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zulandar/traveler/internal/store"
)

// DefaultTimeout bounds every request when ClientOpts.Timeout is unset.
const DefaultTimeout = 15 * time.Second

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	Op   string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api: %s: unexpected status %d", e.Op, e.Code)
}

// Client talks to the users/articles service.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOpts holds parameters for creating a Client.
type ClientOpts struct {
	BaseURL    string        // e.g. "https://api.example.com"
	Timeout    time.Duration // defaults to DefaultTimeout
	HTTPClient *http.Client  // optional; overrides Timeout
}

var _ store.Store = (*Client)(nil)

// New creates a Client.
func New(opts ClientOpts) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("api: base url is required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
	}, nil
}

// user is the wire form of a profile.
type user struct {
	ID           int64  `json:"id,omitempty"`
	TelegramID   int64  `json:"telegram_id"`
	Username     string `json:"username"`
	PetName      string `json:"pet_name"`
	LanguageCode string `json:"language_code"`
}

type sentTo struct {
	TelegramID int64 `json:"telegram_id"`
}

// article is the wire form of an article.
type article struct {
	ID           int64    `json:"id"`
	LanguageCode string   `json:"language_code"`
	ImageURL     string   `json:"image_url"`
	Text         string   `json:"text"`
	SentToUser   []sentTo `json:"sent_to_user"`
}

type setSent struct {
	UserID    int64 `json:"user_id"`
	ArticleID int64 `json:"article_id"`
}

func (u user) profile() store.Profile {
	return store.Profile{
		ID:            u.ID,
		ChatID:        strconv.FormatInt(u.TelegramID, 10),
		DisplayName:   u.Username,
		CompanionName: u.PetName,
		LanguageCode:  u.LanguageCode,
	}
}

func (a article) article() store.Article {
	out := store.Article{
		ID:           a.ID,
		LanguageCode: a.LanguageCode,
		ImageURL:     a.ImageURL,
		Text:         a.Text,
	}
	for _, s := range a.SentToUser {
		out.DeliveredTo = append(out.DeliveredTo, strconv.FormatInt(s.TelegramID, 10))
	}
	return out
}

// chatKey converts a chat identity to the service's integer key.
func chatKey(chatID string) (int64, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("api: chat id %q is not numeric", chatID)
	}
	return id, nil
}

// CreateProfile posts a new user.
func (c *Client) CreateProfile(ctx context.Context, p store.Profile) error {
	tid, err := chatKey(p.ChatID)
	if err != nil {
		return err
	}
	body := user{
		TelegramID:   tid,
		Username:     p.DisplayName,
		PetName:      p.CompanionName,
		LanguageCode: p.LanguageCode,
	}
	return c.do(ctx, "create user", http.MethodPost, "/users/", body, nil)
}

// GetProfile fetches a user by chat identity. A 404 maps to store.ErrNotFound.
func (c *Client) GetProfile(ctx context.Context, chatID string) (*store.Profile, error) {
	tid, err := chatKey(chatID)
	if err != nil {
		return nil, err
	}
	var u user
	err = c.do(ctx, "get user", http.MethodGet, "/users/"+strconv.FormatInt(tid, 10), nil, &u)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p := u.profile()
	return &p, nil
}

// ListProfiles fetches every user.
func (c *Client) ListProfiles(ctx context.Context) ([]store.Profile, error) {
	var users []user
	if err := c.do(ctx, "list users", http.MethodGet, "/users/", nil, &users); err != nil {
		return nil, err
	}
	profiles := make([]store.Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.profile())
	}
	return profiles, nil
}

// ListArticles fetches every article in service order.
func (c *Client) ListArticles(ctx context.Context) ([]store.Article, error) {
	var raw []article
	if err := c.do(ctx, "list articles", http.MethodGet, "/articles/", nil, &raw); err != nil {
		return nil, err
	}
	articles := make([]store.Article, 0, len(raw))
	for _, a := range raw {
		articles = append(articles, a.article())
	}
	return articles, nil
}

// MarkDelivered records that the article was sent to the profile.
func (c *Client) MarkDelivered(ctx context.Context, articleID int64, p store.Profile) error {
	body := setSent{UserID: p.ID, ArticleID: articleID}
	return c.do(ctx, "set sent", http.MethodPost, "/users/set_sent", body, nil)
}

// do performs a JSON request. in is encoded as the body when non-nil; out is
// decoded from a 2xx response when non-nil.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: %s: encode: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("api: %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return &StatusError{Op: op, Code: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: %s: decode: %w", op, err)
	}
	return nil
}
