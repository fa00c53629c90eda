package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGenerateAppealLetter(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemini-1.5-flash:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key, query %q", r.URL.RawQuery)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		gotPrompt = req.Contents[0].Parts[0].Text
		json.NewEncoder(w).Encode(generateResponse{Candidates: []struct {
			Content content `json:"content"`
		}{{Content: content{Parts: []part{{Text: "Dear Sir or Madam,"}}}}}})
	}))
	defer srv.Close()

	client := NewLetterClient("test-key", "").WithBaseURL(srv.URL)
	letter, err := client.GenerateAppealLetter(context.Background(), TicketDetails{
		ExtractedText: "PCN 12345",
		Issuer:        "City Council",
		FullName:      "Avery Quinn",
		Location:      "High Street",
		AppealType:    "Parking Ticket (Council)",
	})
	if err != nil {
		t.Fatalf("GenerateAppealLetter failed: %v", err)
	}
	if letter != "Dear Sir or Madam," {
		t.Errorf("unexpected letter: %q", letter)
	}
	for _, want := range []string{"PCN 12345", "City Council", "Avery Quinn", "High Street"} {
		if !strings.Contains(gotPrompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestGenerateAppealLetterEndpointError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewLetterClient("test-key", "").WithBaseURL(srv.URL)
	_, err := client.GenerateAppealLetter(context.Background(), TicketDetails{})
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestGenerateAppealLetterEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	client := NewLetterClient("test-key", "").WithBaseURL(srv.URL)
	_, err := client.GenerateAppealLetter(context.Background(), TicketDetails{})
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}
