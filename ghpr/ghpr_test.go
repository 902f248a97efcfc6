package ghpr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/site/pulls" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok" {
			t.Errorf("Authorization = %q", auth)
		}

		var pr PullRequest
		if err := json.NewDecoder(r.Body).Decode(&pr); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if pr.Head != "locsync/update" || pr.Base != "main" {
			t.Errorf("unexpected PR: %+v", pr)
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Created{Number: 7, HTMLURL: "https://example.com/pr/7"})
	}))
	defer srv.Close()

	c := NewClient("tok", srv.URL)
	created, err := c.Create(context.Background(), "acme/site", PullRequest{
		Title: "Update translations",
		Head:  "locsync/update",
		Base:  "main",
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if created.Number != 7 {
		t.Fatalf("Number = %d, want 7", created.Number)
	}
}

func TestCreate_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message": "Validation Failed"}`))
	}))
	defer srv.Close()

	c := NewClient("tok", srv.URL)
	if _, err := c.Create(context.Background(), "acme/site", PullRequest{}); err == nil {
		t.Fatal("expected error for non-201 response")
	}
}
