package moonshot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

func TestGenerateContentSendsSystemInstruction(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Hallo Bakkerij"}}]}`))
	}))
	defer srv.Close()

	m := NewModel(Config{APIKey: "secret", BaseURL: srv.URL})
	req := &model.LLMRequest{
		Contents: []*genai.Content{genai.NewContentFromText("write it", genai.RoleUser)},
		Config:   &genai.GenerateContentConfig{SystemInstruction: genai.NewContentFromText("be brief", genai.RoleUser)},
	}

	var text string
	for resp, err := range m.GenerateContent(context.Background(), req, false) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		text = resp.Content.Parts[0].Text
	}

	if text != "Hallo Bakkerij" {
		t.Fatalf("unexpected text %q", text)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "write it" {
		t.Fatalf("unexpected messages %+v", got.Messages)
	}
}

func TestGenerateContentStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	m := NewModel(Config{APIKey: "k", BaseURL: srv.URL})
	for _, err := range m.GenerateContent(context.Background(), &model.LLMRequest{}, false) {
		statusErr, ok := err.(*StatusError)
		if !ok {
			t.Fatalf("expected *StatusError, got %T (%v)", err, err)
		}
		if !statusErr.Temporary() {
			t.Fatal("429 should be temporary")
		}
	}
}
