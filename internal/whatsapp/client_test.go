package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"prospector_backend/platform/logger"
)

type testConfig struct{ url string }

func (c testConfig) GetWhatsAppURL() string      { return c.url }
func (c testConfig) GetWhatsAppUsername() string { return "gowa" }
func (c testConfig) GetWhatsAppPassword() string { return "secret" }
func (c testConfig) GetWhatsAppDeviceID() string { return "device-1" }
func (c testConfig) IsWhatsAppEnabled() bool     { return c.url != "" }

func TestNewClientWithoutURL(t *testing.T) {
	if NewClient(testConfig{}, "NL", logger.Discard()) != nil {
		t.Fatal("expected nil client")
	}
}

func TestSendMessage(t *testing.T) {
	var got gowaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "gowa" || pass != "secret" || r.Header.Get("X-Device-Id") != "device-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(testConfig{url: srv.URL}, "NL", logger.Discard())
	if err := client.SendMessage(context.Background(), "06 12345678", "Hoi"); err != nil {
		t.Fatal(err)
	}
	if got.Phone != "31612345678@s.whatsapp.net" || got.Message != "Hoi" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestSendMessageStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not on whatsapp", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(testConfig{url: srv.URL}, "NL", logger.Discard())
	client.http.Timeout = time.Second
	err := client.SendMessage(context.Background(), "+31612345678", "Hoi")
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected StatusError, got %v", err)
	}
}
