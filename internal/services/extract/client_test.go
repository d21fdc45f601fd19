package extract_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"curator/internal/services/extract"
	"curator/internal/testsupport"
)

func newClient(t *testing.T, handler http.HandlerFunc) *extract.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := testsupport.NewConfig(t, testsupport.WithExtractionBaseURL(server.URL))
	client, err := extract.NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func completionHandler(t *testing.T, content string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("Authorization = %q", got)
		}
		var request struct {
			Model          string `json:"model"`
			ResponseFormat struct {
				Type string `json:"type"`
			} `json:"response_format"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if request.ResponseFormat.Type != "json_object" {
			t.Errorf("response_format = %q", request.ResponseFormat.Type)
		}
		response := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(response)
	}
}

func TestExtractDecodesCandidates(t *testing.T) {
	content := `{"events": [{"teacher": {"first_name": "Jane", "last_name": "Doe"}, "event": {"title": "morning flow", "practice": "Yoga", "start_date": "2026-10-01"}}]}`
	client := newClient(t, completionHandler(t, content))

	candidates, err := client.Extract(context.Background(), "schedule text", "https://studio.example/classes")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	if got := candidates[0].Event.Title; got != "Morning Flow" {
		t.Errorf("title = %q, want normalized title", got)
	}
	if got := candidates[0].Event.SourceURL; got != "https://studio.example/classes" {
		t.Errorf("source_url = %q, want fallback to page url", got)
	}
}

func TestExtractAcceptsBareArray(t *testing.T) {
	content := `[{"event": {"title": "retreat", "start_date": "2026-10-01"}}]`
	client := newClient(t, completionHandler(t, content))

	candidates, err := client.Extract(context.Background(), "text", "https://x/1")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
}

func TestExtractEmptyEventsIsNoCandidates(t *testing.T) {
	client := newClient(t, completionHandler(t, `{"events": []}`))

	_, err := client.Extract(context.Background(), "text", "https://x/1")
	if !errors.Is(err, extract.ErrNoCandidates) {
		t.Fatalf("err = %v, want ErrNoCandidates", err)
	}
}

func TestExtractMalformedContent(t *testing.T) {
	client := newClient(t, completionHandler(t, "sorry, I cannot help with that"))

	_, err := client.Extract(context.Background(), "text", "https://x/1")
	var malformed *extract.MalformedError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %v, want MalformedError", err)
	}
	if malformed.Excerpt == "" {
		t.Error("expected excerpt of raw content")
	}
}

func TestExtractSurfacesAPIError(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"message": "rate limited"}}`)
	})

	if _, err := client.Extract(context.Background(), "text", "https://x/1"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithExtractionKey(""))
	if _, err := extract.NewClient(cfg); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
