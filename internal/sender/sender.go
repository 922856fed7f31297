// Package sender delivers the rendered digest to a signed webhook, with a
// file-based test mode for local runs.
package sender

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"aipulse/internal/config"
	"aipulse/internal/logger"
	"aipulse/internal/retry"
)

// WebhookSender posts digests to the configured webhook. When TestMode is
// on it writes the digest to a file instead.
type WebhookSender struct {
	cfg    config.WebhookConfig
	client *http.Client

	lastSend time.Time
	now      func() time.Time
	sleep    func(time.Duration)
}

func NewWebhookSender(cfg config.WebhookConfig) *WebhookSender {
	return &WebhookSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// Sign produces the webhook signature: hex HMAC-SHA256 over
// "timestamp\nsecret", keyed with the secret.
func Sign(secret, timestamp string) string {
	stringToSign := timestamp + "\n" + secret
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(stringToSign))
	return hex.EncodeToString(mac.Sum(nil))
}

// Send delivers one digest. Delivery failures are retried with the
// configured backoff before giving up.
func (s *WebhookSender) Send(ctx context.Context, content string) error {
	if s.cfg.TestMode {
		return s.sendToFile(content)
	}
	return s.sendToWebhook(ctx, content)
}

func (s *WebhookSender) sendToFile(content string) error {
	if err := os.MkdirAll(s.cfg.TestOutputDir, 0o755); err != nil {
		return fmt.Errorf("create test output dir: %w", err)
	}
	name := fmt.Sprintf("digest_%s.md", s.now().Format("2006-01-02_150405"))
	path := filepath.Join(s.cfg.TestOutputDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write test digest: %w", err)
	}
	logger.Info("sender: digest written to file", "path", path)
	return nil
}

func (s *WebhookSender) sendToWebhook(ctx context.Context, content string) error {
	s.waitRateLimit()

	payload := s.buildPayload(content)
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	err = retry.Do(ctx, retry.Config{
		MaxAttempts: s.cfg.MaxRetries,
		Delay:       time.Duration(s.cfg.RetryDelaySeconds) * time.Second,
		Backoff:     true,
	}, func() error {
		return s.post(ctx, body)
	})
	if err != nil {
		return fmt.Errorf("deliver digest: %w", err)
	}

	s.lastSend = s.now()
	return nil
}

// buildPayload wraps the content in the webhook's text message shape and
// signs it when a secret is configured.
func (s *WebhookSender) buildPayload(content string) map[string]any {
	payload := map[string]any{
		"msg_type": "text",
		"content":  map[string]string{"text": content},
	}
	if s.cfg.Secret != "" {
		timestamp := strconv.FormatInt(s.now().Unix(), 10)
		payload["timestamp"] = timestamp
		payload["sign"] = Sign(s.cfg.Secret, timestamp)
	}
	return payload
}

func (s *WebhookSender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}

	var result struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && result.Code != 0 {
		return fmt.Errorf("webhook rejected message: code=%d msg=%s", result.Code, result.Msg)
	}
	return nil
}

// waitRateLimit enforces the minimum interval between sends.
func (s *WebhookSender) waitRateLimit() {
	if s.cfg.MaxPerMinute <= 0 || s.lastSend.IsZero() {
		return
	}
	minInterval := time.Minute / time.Duration(s.cfg.MaxPerMinute)
	if since := s.now().Sub(s.lastSend); since < minInterval {
		s.sleep(minInterval - since)
	}
}
