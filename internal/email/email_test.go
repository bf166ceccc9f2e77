package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRenderOutreachEscapesAndSplitsParagraphs(t *testing.T) {
	html, err := RenderOutreach("Hallo", "Hoi <b>Jan</b>,\n\nTweede\nalinea.", "Sanne", "Studio Noord")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(html, "<b>Jan</b>") {
		t.Fatal("generated text must be escaped")
	}
	if !strings.Contains(html, "Tweede alinea.") {
		t.Fatalf("paragraph not folded: %s", html)
	}
	if !strings.Contains(html, "Studio Noord") {
		t.Fatal("signature missing")
	}
}

func TestRenderBriefing(t *testing.T) {
	html, err := RenderBriefing(BriefingData{
		Date:     "2026-03-02",
		Statuses: []Count{{Label: "pitched", Count: 4}},
		Activity: []Count{{Label: "replies", Count: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "pitched") || !strings.Contains(html, "2026-03-02") {
		t.Fatalf("unexpected briefing: %s", html)
	}
}

func TestBrevoSend(t *testing.T) {
	var got brevoEmailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/smtp/email" || r.Header.Get("api-key") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sender := NewBrevoSender("key", "sanne@studio.nl", "Sanne").WithBaseURL(srv.URL)
	err := sender.Send(context.Background(), Message{To: "m@biz.com", Subject: "Hoi", Text: "body", ReplyTo: "reply@studio.nl"})
	if err != nil {
		t.Fatal(err)
	}
	if got.To[0].Email != "m@biz.com" || got.TextContent != "body" || got.ReplyTo == nil {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestBrevoStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"code":"invalid_parameter"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewBrevoSender("key", "a@b.nl", "A").WithBaseURL(srv.URL).Ping(context.Background())
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected StatusError 400, got %v", err)
	}
}
