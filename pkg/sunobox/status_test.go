package sunobox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(srv *httptest.Server) *Client {
	return New(&Config{
		Client:  srv.Client(),
		BaseURL: srv.URL,
		APIKey:  "test-key",
	})
}

func TestCheckStatus(t *testing.T) {
	t.Run("stops at first valid endpoint", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/status/abc" {
				fmt.Fprint(w, `{"code": 200, "data": {"status": "processing"}}`)
				return
			}
			http.NotFound(w, r)
		}))
		defer srv.Close()

		c := newTestClient(srv)
		result, err := c.CheckStatus(context.Background(), "abc")
		if err != nil {
			t.Fatalf("CheckStatus() err = %v; want nil", err)
		}
		if result.Endpoint != "status/abc" {
			t.Fatalf("CheckStatus() endpoint = %q; want %q", result.Endpoint, "status/abc")
		}
		// details, task, generate fail before status answers
		if len(result.Attempts) != 4 {
			t.Fatalf("CheckStatus() attempts = %d; want 4", len(result.Attempts))
		}
		last := result.Attempts[len(result.Attempts)-1]
		if !last.Success || last.StatusCode != http.StatusOK {
			t.Fatalf("CheckStatus() last attempt = %+v; want success 200", last)
		}
		for _, a := range result.Attempts[:3] {
			if a.Success || a.StatusCode != http.StatusNotFound {
				t.Fatalf("CheckStatus() attempt = %+v; want 404 failure", a)
			}
		}
	})

	t.Run("skips 200 with invalid json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/details/abc":
				fmt.Fprint(w, "<html>not json</html>")
			case "/task/abc":
				fmt.Fprint(w, `{"code": 200, "data": []}`)
			default:
				http.NotFound(w, r)
			}
		}))
		defer srv.Close()

		c := newTestClient(srv)
		result, err := c.CheckStatus(context.Background(), "abc")
		if err != nil {
			t.Fatalf("CheckStatus() err = %v; want nil", err)
		}
		if result.Endpoint != "task/abc" {
			t.Fatalf("CheckStatus() endpoint = %q; want %q", result.Endpoint, "task/abc")
		}
		first := result.Attempts[0]
		if first.Success || first.Error != "invalid JSON response" {
			t.Fatalf("CheckStatus() first attempt = %+v; want invalid JSON failure", first)
		}
	})

	t.Run("fails only after exhausting the list", func(t *testing.T) {
		var hits int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits++
			http.NotFound(w, r)
		}))
		defer srv.Close()

		c := newTestClient(srv)
		result, err := c.CheckStatus(context.Background(), "abc")
		if !errors.Is(err, ErrNoEndpoint) {
			t.Fatalf("CheckStatus() err = %v; want ErrNoEndpoint", err)
		}
		if hits != len(statusPaths) {
			t.Fatalf("CheckStatus() hits = %d; want %d", hits, len(statusPaths))
		}
		if len(result.Attempts) != len(statusPaths) {
			t.Fatalf("CheckStatus() attempts = %d; want %d", len(result.Attempts), len(statusPaths))
		}
	})

	t.Run("truncates attempt bodies", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, strings.Repeat("x", 2000))
		}))
		defer srv.Close()

		c := newTestClient(srv)
		result, err := c.CheckStatus(context.Background(), "abc")
		if !errors.Is(err, ErrNoEndpoint) {
			t.Fatalf("CheckStatus() err = %v; want ErrNoEndpoint", err)
		}
		for _, a := range result.Attempts {
			if len(a.Body) != maxAttemptBody {
				t.Fatalf("CheckStatus() attempt body = %d bytes; want %d", len(a.Body), maxAttemptBody)
			}
		}
	})

	t.Run("sends bearer token", func(t *testing.T) {
		var auth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			fmt.Fprint(w, `{"code": 200}`)
		}))
		defer srv.Close()

		c := newTestClient(srv)
		if _, err := c.CheckStatus(context.Background(), "abc"); err != nil {
			t.Fatalf("CheckStatus() err = %v; want nil", err)
		}
		if auth != "Bearer test-key" {
			t.Fatalf("Authorization = %q; want %q", auth, "Bearer test-key")
		}
	})
}

func TestFetchDetails(t *testing.T) {
	t.Run("falls through to a working post path", func(t *testing.T) {
		var gotBody detailsRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			if r.URL.Path != "/api/v1/details" {
				http.NotFound(w, r)
				return
			}
			if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			fmt.Fprint(w, `{"code": 200, "data": [{"audio_url": "https://cdn/a.mp3"}]}`)
		}))
		defer srv.Close()

		c := newTestClient(srv)
		result, err := c.FetchDetails(context.Background(), "abc")
		if err != nil {
			t.Fatalf("FetchDetails() err = %v; want nil", err)
		}
		if result.Endpoint != "api/v1/details" {
			t.Fatalf("FetchDetails() endpoint = %q; want %q", result.Endpoint, "api/v1/details")
		}
		if gotBody.TaskID != "abc" {
			t.Fatalf("FetchDetails() body task_id = %q; want %q", gotBody.TaskID, "abc")
		}
		if _, ok := Songs(result.Raw); !ok {
			t.Fatalf("Songs(result.Raw) = no songs; want 1")
		}
	})

	t.Run("exhausts all post paths", func(t *testing.T) {
		var hits int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits++
			http.NotFound(w, r)
		}))
		defer srv.Close()

		c := newTestClient(srv)
		if _, err := c.FetchDetails(context.Background(), "abc"); !errors.Is(err, ErrNoEndpoint) {
			t.Fatalf("FetchDetails() err = %v; want ErrNoEndpoint", err)
		}
		if hits != len(detailsPaths) {
			t.Fatalf("FetchDetails() hits = %d; want %d", hits, len(detailsPaths))
		}
	})
}
