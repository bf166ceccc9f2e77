package webhook

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"prospector_backend/internal/leads/domain"
	"prospector_backend/internal/replies"
	"prospector_backend/platform/httpkit"
	"prospector_backend/platform/logger"
)

type recordingRouter struct {
	got []replies.Inbound
	err error
}

func (r *recordingRouter) RouteInboundReply(_ context.Context, in replies.Inbound) (replies.Result, error) {
	r.got = append(r.got, in)
	return replies.Result{Matched: true}, r.err
}

type memoryStorage struct {
	objects map[string][]byte
	fail    bool
}

func (m *memoryStorage) PutObject(_ context.Context, bucket, key, _ string, data []byte) error {
	if m.fail {
		return errors.New("storage offline")
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[bucket+"/"+key] = data
	return nil
}

func (m *memoryStorage) EnsureBucketExists(context.Context, string) error { return nil }

func newTestEngine(router ReplyRouter, archive *PayloadArchive, secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(router, archive, logger.Discard())
	h.run = func(fn func()) { fn() }

	engine := gin.New()
	group := engine.Group("/api/v1/webhooks", httpkit.SharedSecret(secret))
	group.POST("/inbound-email", h.HandleInboundEmail)
	group.POST("/inbound-sms", h.HandleInboundSMS)
	return engine
}

func post(engine *gin.Engine, path, contentType, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestInboundEmailJSONIsRouted(t *testing.T) {
	router := &recordingRouter{}
	engine := newTestEngine(router, nil, "")

	rec := post(engine, "/api/v1/webhooks/inbound-email", "application/json",
		`{"from":"Owner <Owner@Bakery.nl>","subject":"Re: website","text":"Sounds good"}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(router.got) != 1 {
		t.Fatalf("routed %d messages, want 1", len(router.got))
	}
	in := router.got[0]
	if in.Channel != domain.ChannelEmail || in.From != "Owner <Owner@Bakery.nl>" {
		t.Fatalf("unexpected inbound %+v", in)
	}
	if !strings.Contains(in.Body, "Sounds good") || !strings.HasPrefix(in.Body, "Subject: Re: website") {
		t.Fatalf("body = %q", in.Body)
	}
	if in.ArchiveKey != nil {
		t.Fatal("archive key set without archive")
	}
}

func TestInboundEmailFormFallsBackToSender(t *testing.T) {
	router := &recordingRouter{}
	engine := newTestEngine(router, nil, "")

	rec := post(engine, "/api/v1/webhooks/inbound-email", "application/x-www-form-urlencoded",
		"sender=owner%40bakery.nl&body=hello", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if router.got[0].From != "owner@bakery.nl" || router.got[0].Body != "hello" {
		t.Fatalf("unexpected inbound %+v", router.got[0])
	}
}

func TestInboundEmailRejectsMissingSender(t *testing.T) {
	router := &recordingRouter{}
	engine := newTestEngine(router, nil, "")

	rec := post(engine, "/api/v1/webhooks/inbound-email", "application/json", `{"text":"hi"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(router.got) != 0 {
		t.Fatal("message routed despite missing sender")
	}
}

func TestRoutingErrorStillAcknowledges(t *testing.T) {
	router := &recordingRouter{err: errors.New("db down")}
	engine := newTestEngine(router, nil, "")

	rec := post(engine, "/api/v1/webhooks/inbound-email", "application/json", `{"from":"a@b.nl","text":"x"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestInboundSMSWhatsAppPrefix(t *testing.T) {
	router := &recordingRouter{}
	engine := newTestEngine(router, nil, "")

	rec := post(engine, "/api/v1/webhooks/inbound-sms", "application/x-www-form-urlencoded",
		"From=whatsapp%3A%2B31612345678&Body=Ja+graag", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Type"), "text/xml") {
		t.Fatalf("content type = %q", rec.Header().Get("Content-Type"))
	}
	in := router.got[0]
	if in.Channel != domain.ChannelWhatsApp || in.From != "+31612345678" || in.Body != "Ja graag" {
		t.Fatalf("unexpected inbound %+v", in)
	}
}

func TestInboundSMSPlain(t *testing.T) {
	router := &recordingRouter{}
	engine := newTestEngine(router, nil, "")

	post(engine, "/api/v1/webhooks/inbound-sms", "application/x-www-form-urlencoded", "From=%2B31612345678&Body=stop", nil)
	if router.got[0].Channel != domain.ChannelSMS {
		t.Fatalf("channel = %s, want sms", router.got[0].Channel)
	}
}

func TestSharedSecretGuardsWebhooks(t *testing.T) {
	router := &recordingRouter{}
	engine := newTestEngine(router, nil, "s3cret")

	rec := post(engine, "/api/v1/webhooks/inbound-email", "application/json", `{"from":"a@b.nl"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	rec = post(engine, "/api/v1/webhooks/inbound-email", "application/json", `{"from":"a@b.nl"}`,
		map[string]string{httpkit.WebhookSecretHeader: "s3cret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRawPayloadIsArchived(t *testing.T) {
	router := &recordingRouter{}
	store := &memoryStorage{}
	archive := NewPayloadArchive(store, "inbound")
	archive.newID = func() string { return "abcd1234" }
	engine := newTestEngine(router, archive, "")

	body := `{"from":"a@b.nl","text":"x"}`
	post(engine, "/api/v1/webhooks/inbound-email", "application/json", body, nil)

	key := router.got[0].ArchiveKey
	if key == nil || !strings.HasSuffix(*key, "/payload_abcd1234.json") || !strings.HasPrefix(*key, "email/") {
		t.Fatalf("archive key = %v", key)
	}
	if !bytes.Equal(store.objects["inbound/"+*key], []byte(body)) {
		t.Fatal("archived payload does not match request body")
	}
}

func TestArchiveFailureStillRoutes(t *testing.T) {
	router := &recordingRouter{}
	engine := newTestEngine(router, NewPayloadArchive(&memoryStorage{fail: true}, "inbound"), "")

	post(engine, "/api/v1/webhooks/inbound-email", "application/json", `{"from":"a@b.nl"}`, nil)
	if len(router.got) != 1 || router.got[0].ArchiveKey != nil {
		t.Fatalf("unexpected routing %+v", router.got)
	}
}
