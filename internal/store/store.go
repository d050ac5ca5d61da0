// Package store defines the profile and article collaborators the bot reads
// from and writes to. Implementations live in the api (remote HTTP service)
// and sqlstore (local database) subpackages.
package store

import (
	"context"
	"errors"
	"slices"
)

// ErrNotFound is returned by ProfileStore.GetProfile when no profile exists
// for the chat identity.
var ErrNotFound = errors.New("store: not found")

// Profile is a registered user.
type Profile struct {
	ID            int64  // store key, used when marking deliveries
	ChatID        string // external chat identity
	DisplayName   string
	CompanionName string
	LanguageCode  string
}

// Article is a deliverable content item.
type Article struct {
	ID           int64
	LanguageCode string
	ImageURL     string
	Text         string
	DeliveredTo  []string // chat identities the article was already sent to
}

// DeliveredToChat reports whether the article was already sent to chatID.
func (a Article) DeliveredToChat(chatID string) bool {
	return slices.Contains(a.DeliveredTo, chatID)
}

// ProfileStore creates and looks up registered users.
type ProfileStore interface {
	CreateProfile(ctx context.Context, p Profile) error
	// GetProfile returns ErrNotFound when the chat has no profile.
	GetProfile(ctx context.Context, chatID string) (*Profile, error)
	ListProfiles(ctx context.Context) ([]Profile, error)
}

// ContentStore lists articles and records deliveries. ListArticles returns
// articles in the store's own order; callers must not re-sort.
type ContentStore interface {
	ListArticles(ctx context.Context) ([]Article, error)
	MarkDelivered(ctx context.Context, articleID int64, p Profile) error
}

// Store is a backend serving both profiles and articles.
type Store interface {
	ProfileStore
	ContentStore
}
