// Package memstore is an in-process Store. It backs the "memory" store
// backend for local runs and doubles as a fake in tests.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/zulandar/traveler/internal/store"
)

// Operation names accepted by FailOn.
const (
	OpCreateProfile = "create_profile"
	OpGetProfile    = "get_profile"
	OpListProfiles  = "list_profiles"
	OpListArticles  = "list_articles"
	OpMarkDelivered = "mark_delivered"
)

// Store holds profiles and articles in memory. Articles keep insertion order.
type Store struct {
	mu       sync.Mutex
	profiles []store.Profile
	articles []store.Article
	nextID   int64
	failures map[string]error
	calls    map[string]int
}

var _ store.Store = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		nextID:   1,
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

// CreateProfile adds a profile; a duplicate chat identity is an error.
func (s *Store) CreateProfile(ctx context.Context, p store.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpCreateProfile); err != nil {
		return err
	}
	for _, existing := range s.profiles {
		if existing.ChatID == p.ChatID {
			return fmt.Errorf("memstore: profile for chat %s already exists", p.ChatID)
		}
	}
	p.ID = s.nextID
	s.nextID++
	s.profiles = append(s.profiles, p)
	return nil
}

// GetProfile returns store.ErrNotFound for unknown chats.
func (s *Store) GetProfile(ctx context.Context, chatID string) (*store.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpGetProfile); err != nil {
		return nil, err
	}
	for _, p := range s.profiles {
		if p.ChatID == chatID {
			found := p
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

// ListProfiles returns profiles in creation order.
func (s *Store) ListProfiles(ctx context.Context) ([]store.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpListProfiles); err != nil {
		return nil, err
	}
	return slices.Clone(s.profiles), nil
}

// ListArticles returns copies of the articles in insertion order.
func (s *Store) ListArticles(ctx context.Context) ([]store.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpListArticles); err != nil {
		return nil, err
	}
	out := make([]store.Article, len(s.articles))
	for i, a := range s.articles {
		a.DeliveredTo = slices.Clone(a.DeliveredTo)
		out[i] = a
	}
	return out, nil
}

// MarkDelivered adds the profile's chat to the article's delivered set.
// Marking twice is a no-op.
func (s *Store) MarkDelivered(ctx context.Context, articleID int64, p store.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.hit(OpMarkDelivered); err != nil {
		return err
	}
	for i := range s.articles {
		if s.articles[i].ID != articleID {
			continue
		}
		if !slices.Contains(s.articles[i].DeliveredTo, p.ChatID) {
			s.articles[i].DeliveredTo = append(s.articles[i].DeliveredTo, p.ChatID)
		}
		return nil
	}
	return fmt.Errorf("memstore: article %d: %w", articleID, store.ErrNotFound)
}

// AddProfile inserts a profile directly and returns it with its ID set.
func (s *Store) AddProfile(p store.Profile) store.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextID
	s.nextID++
	s.profiles = append(s.profiles, p)
	return p
}

// AddArticle appends an article. A zero ID is assigned automatically.
func (s *Store) AddArticle(a store.Article) store.Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		a.ID = s.nextID
		s.nextID++
	}
	s.articles = append(s.articles, a)
	return a
}

// Article returns the current copy of an article.
func (s *Store) Article(id int64) (store.Article, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.articles {
		if a.ID == id {
			a.DeliveredTo = slices.Clone(a.DeliveredTo)
			return a, true
		}
	}
	return store.Article{}, false
}

// FailOn makes op return err until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// Calls returns how many times op was invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// hit counts a call and returns the injected failure, if any. Caller holds mu.
func (s *Store) hit(op string) error {
	s.calls[op]++
	return s.failures[op]
}
