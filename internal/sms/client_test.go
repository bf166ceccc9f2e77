package sms

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"prospector_backend/platform/logger"
)

type testConfig struct{}

func (testConfig) GetTwilioAccountSID() string { return "AC123" }
func (testConfig) GetTwilioAuthToken() string  { return "token" }
func (testConfig) GetTwilioFromNumber() string { return "+3197010000000" }
func (testConfig) IsSMSEnabled() bool          { return true }

func TestSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ := r.BasicAuth()
		if r.URL.Path != "/Accounts/AC123/Messages.json" || user != "AC123" || pass != "token" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = r.ParseForm()
		if r.PostForm.Get("To") != "+31612345678" || r.PostForm.Get("Body") != "Hoi" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1","status":"queued"}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig{}, "NL", logger.Discard()).WithBaseURL(srv.URL)
	sid, err := client.Send(context.Background(), "06-1234 5678", "Hoi")
	if err != nil {
		t.Fatal(err)
	}
	if sid != "SM1" {
		t.Fatalf("sid = %q", sid)
	}
}

func TestSendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number","status":400}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig{}, "NL", logger.Discard()).WithBaseURL(srv.URL)
	_, err := client.Send(context.Background(), "+31612345678", "Hoi")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != 21211 || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected APIError, got %v", err)
	}
}

func TestSendRejectsUnparseableNumber(t *testing.T) {
	client := NewClient(testConfig{}, "NL", logger.Discard())
	if _, err := client.Send(context.Background(), "call me", "Hoi"); !errors.Is(err, ErrInvalidNumber) {
		t.Fatalf("expected ErrInvalidNumber, got %v", err)
	}
}
