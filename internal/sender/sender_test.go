package sender

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aipulse/internal/config"
	"aipulse/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Init("error")
	os.Exit(m.Run())
}

func webhookConfig(url string) config.WebhookConfig {
	return config.WebhookConfig{
		URL:               url,
		Secret:            "test-secret",
		MaxPerMinute:      60,
		MaxRetries:        2,
		RetryDelaySeconds: 0,
	}
}

func TestSignDeterministic(t *testing.T) {
	t.Parallel()

	a := Sign("secret", "1724800000")
	b := Sign("secret", "1724800000")
	if a != b {
		t.Error("same inputs must produce the same signature")
	}
	if len(a) != 64 {
		t.Errorf("signature should be 64 hex chars, got %d", len(a))
	}
	if Sign("secret", "1724800001") == a {
		t.Error("different timestamps must produce different signatures")
	}
	if Sign("other", "1724800000") == a {
		t.Error("different secrets must produce different signatures")
	}
}

func TestSendPostsSignedPayload(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Write([]byte(`{"code":0}`))
	}))
	defer srv.Close()

	s := NewWebhookSender(webhookConfig(srv.URL))
	if err := s.Send(context.Background(), "# Digest"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if payload["msg_type"] != "text" {
		t.Errorf("msg_type = %v", payload["msg_type"])
	}
	content, _ := payload["content"].(map[string]any)
	if content["text"] != "# Digest" {
		t.Errorf("content = %v", content)
	}
	timestamp, _ := payload["timestamp"].(string)
	sign, _ := payload["sign"].(string)
	if timestamp == "" || sign == "" {
		t.Fatal("payload must carry timestamp and sign")
	}
	if sign != Sign("test-secret", timestamp) {
		t.Error("signature does not verify against the timestamp")
	}
}

func TestSendRetriesOnFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"code":0}`))
	}))
	defer srv.Close()

	s := NewWebhookSender(webhookConfig(srv.URL))
	if err := s.Send(context.Background(), "digest"); err != nil {
		t.Fatalf("Send should succeed on retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("got %d attempts, want 2", calls)
	}
}

func TestSendFailsAfterRetriesExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewWebhookSender(webhookConfig(srv.URL))
	if err := s.Send(context.Background(), "digest"); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestSendRejectedByWebhookCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":19001,"msg":"sign mismatch"}`))
	}))
	defer srv.Close()

	s := NewWebhookSender(webhookConfig(srv.URL))
	err := s.Send(context.Background(), "digest")
	if err == nil || !strings.Contains(err.Error(), "19001") {
		t.Fatalf("expected rejection error, got %v", err)
	}
}

func TestSendTestModeWritesFile(t *testing.T) {
	dir := t.TempDir()
	s := NewWebhookSender(config.WebhookConfig{TestMode: true, TestOutputDir: dir})

	if err := s.Send(context.Background(), "# Test digest"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one digest file, got %v (%v)", entries, err)
	}
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "# Test digest" {
		t.Errorf("file content = %q", data)
	}
}

func TestRateLimitWaits(t *testing.T) {
	var slept time.Duration
	s := NewWebhookSender(config.WebhookConfig{MaxPerMinute: 60})
	s.sleep = func(d time.Duration) { slept = d }

	base := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	s.lastSend = base
	s.now = func() time.Time { return base.Add(200 * time.Millisecond) }

	s.waitRateLimit()
	if slept != 800*time.Millisecond {
		t.Errorf("slept %v, want 800ms to honor the 1s interval", slept)
	}
}
