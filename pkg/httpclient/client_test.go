package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClientHeaders(t *testing.T) {
	tests := []struct {
		name   string
		client *HTTPClient
		check  func(t *testing.T, r *http.Request)
	}{
		{
			name:   "browser",
			client: NewClient(BrowserClient),
			check: func(t *testing.T, r *http.Request) {
				if !strings.HasPrefix(r.Header.Get("User-Agent"), "Mozilla/") {
					t.Errorf("expected browser agent, got %q", r.Header.Get("User-Agent"))
				}
			},
		},
		{
			name:   "plain",
			client: NewClient(PlainClient),
			check: func(t *testing.T, r *http.Request) {
				if r.Header.Get("User-Agent") != "curl/8.7.1" {
					t.Errorf("expected curl agent, got %q", r.Header.Get("User-Agent"))
				}
			},
		},
		{
			name:   "api",
			client: NewAPIClient("secret", time.Second),
			check: func(t *testing.T, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer secret" {
					t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
				}
				if r.Header.Get("Accept") != "application/json" {
					t.Errorf("expected json accept, got %q", r.Header.Get("Accept"))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tt.check(t, r)
			}))
			defer server.Close()

			resp, err := tt.client.Get(context.Background(), server.URL)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			resp.Body.Close()
		})
	}
}

func TestClientStopsAfterTenRedirects(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Redirect(w, r, "/loop", http.StatusFound)
	}))
	defer server.Close()

	resp, err := NewClient(PlainClient).Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Errorf("expected last redirect response, got %d", resp.StatusCode)
	}
	if hits != 10 {
		t.Errorf("expected 10 requests, got %d", hits)
	}
}
