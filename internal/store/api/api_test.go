package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zulandar/traveler/internal/store"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(ClientOpts{BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_RequiresBaseURL(t *testing.T) {
	if _, err := New(ClientOpts{}); err == nil {
		t.Fatal("expected error for empty base url")
	}
}

func TestCreateProfile(t *testing.T) {
	var got user
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/users/" {
			t.Errorf("request = %s %s, want POST /users/", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	})

	err := c.CreateProfile(context.Background(), store.Profile{
		ChatID:        "42",
		DisplayName:   "Anna",
		CompanionName: "Rex",
		LanguageCode:  "en",
	})
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	want := user{TelegramID: 42, Username: "Anna", PetName: "Rex", LanguageCode: "en"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("posted body mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateProfile_NonNumericChat(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	if err := c.CreateProfile(context.Background(), store.Profile{ChatID: "abc"}); err == nil {
		t.Fatal("expected error for non-numeric chat id")
	}
}

func TestGetProfile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/42" {
			t.Errorf("path = %q, want /users/42", r.URL.Path)
		}
		w.Write([]byte(`{"id":7,"telegram_id":42,"username":"Anna","pet_name":"Rex","language_code":"ru"}`))
	})

	p, err := c.GetProfile(context.Background(), "42")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	want := &store.Profile{ID: 7, ChatID: "42", DisplayName: "Anna", CompanionName: "Rex", LanguageCode: "ru"}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}
}

func TestGetProfile_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	_, err := c.GetProfile(context.Background(), "42")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetProfile_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.GetProfile(context.Background(), "42")
	if err == nil || errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want non-NotFound error", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadGateway {
		t.Errorf("err = %v, want StatusError 502", err)
	}
}

func TestListProfiles(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id":1,"telegram_id":10,"username":"A","pet_name":"B","language_code":"en"},
			{"id":2,"telegram_id":20,"username":"C","pet_name":"D","language_code":"ua"}
		]`))
	})
	got, err := c.ListProfiles(context.Background())
	if err != nil {
		t.Fatalf("ListProfiles: %v", err)
	}
	want := []store.Profile{
		{ID: 1, ChatID: "10", DisplayName: "A", CompanionName: "B", LanguageCode: "en"},
		{ID: 2, ChatID: "20", DisplayName: "C", CompanionName: "D", LanguageCode: "ua"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("profiles mismatch (-want +got):\n%s", diff)
	}
}

func TestListArticles_PreservesOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/articles/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`[
			{"id":9,"language_code":"en","image_url":"http://img/9","text":"nine","sent_to_user":[{"telegram_id":10}]},
			{"id":3,"language_code":"en","image_url":"http://img/3","text":"three","sent_to_user":[]}
		]`))
	})
	got, err := c.ListArticles(context.Background())
	if err != nil {
		t.Fatalf("ListArticles: %v", err)
	}
	if len(got) != 2 || got[0].ID != 9 || got[1].ID != 3 {
		t.Fatalf("articles = %+v, want ids [9 3]", got)
	}
	if !got[0].DeliveredToChat("10") {
		t.Error("article 9 should be delivered to chat 10")
	}
	if got[1].DeliveredToChat("10") {
		t.Error("article 3 should not be delivered to chat 10")
	}
}

func TestListArticles_Error(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	if _, err := c.ListArticles(context.Background()); err == nil {
		t.Fatal("expected error on 500")
	}
}

func TestMarkDelivered(t *testing.T) {
	var got setSent
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/users/set_sent" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
	})
	if err := c.MarkDelivered(context.Background(), 5, store.Profile{ID: 7, ChatID: "42"}); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if got.UserID != 7 || got.ArticleID != 5 {
		t.Errorf("body = %+v, want user 7 article 5", got)
	}
}
