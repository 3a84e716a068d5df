package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"iap-verification-api/internal/models"
	"iap-verification-api/pkg/logging"
)

// WebhookNotifier pushes tamper alerts to a project's backend.
type WebhookNotifier struct {
	httpClient *http.Client
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier() *WebhookNotifier {
	return &WebhookNotifier{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// TamperAlertPayload is the body sent to the project's webhook when a
// receipt verifies successfully but contains no purchases.
type TamperAlertPayload struct {
	Event       string `json:"event"` // "receipt.tamper_detected"
	ProjectID   string `json:"project_id"`
	BundleID    string `json:"bundle_id,omitempty"`
	Status      int    `json:"status"`
	Message     string `json:"message"`
	Environment string `json:"environment,omitempty"`
	IPAddress   string `json:"ip_address,omitempty"`
	Timestamp   string `json:"timestamp"` // ISO 8601 format
}

// NotifyTamper sends a tamper alert to the project's webhook. Callers run it
// in a goroutine; it retries internally and never blocks the verify path.
func (wn *WebhookNotifier) NotifyTamper(project *models.Project, payload TamperAlertPayload) {
	if project.WebhookCallbackURL == "" {
		// No webhook configured, skip
		return
	}

	payload.Event = "receipt.tamper_detected"
	payload.ProjectID = project.ProjectID
	payload.BundleID = project.BundleID
	payload.Timestamp = time.Now().Format(time.RFC3339)

	wn.sendWithRetry(project.WebhookCallbackURL, project.WebhookSecret, payload)
}

// sendWithRetry sends webhook with retry mechanism
// Retry schedule: 1s, 5s, 30s (3 attempts total)
func (wn *WebhookNotifier) sendWithRetry(callbackURL string, secret string, payload TamperAlertPayload) {
	retryDelays := []time.Duration{1 * time.Second, 5 * time.Second, 30 * time.Second}
	maxRetries := len(retryDelays)

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := wn.sendWebhook(callbackURL, secret, payload)
		if err == nil {
			logging.Infof("Tamper alert webhook sent - url: %s, project: %s, attempt: %d",
				callbackURL, payload.ProjectID, attempt+1)
			return
		}

		logging.Errorf("Tamper alert webhook failed - url: %s, project: %s, attempt: %d, error: %v",
			callbackURL, payload.ProjectID, attempt+1, err)

		if attempt < maxRetries-1 {
			time.Sleep(retryDelays[attempt])
		}
	}

	logging.Errorf("Tamper alert webhook gave up after %d attempts - url: %s, project: %s",
		maxRetries, callbackURL, payload.ProjectID)
}

// sendWebhook sends a single webhook request
func (wn *WebhookNotifier) sendWebhook(callbackURL string, secret string, payload TamperAlertPayload) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequest("POST", callbackURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "IAP-Verification-Webhook/1.0")

	// Add signature if secret is provided
	if secret != "" {
		signature := wn.generateSignature(jsonData, secret)
		req.Header.Set("X-Verify-Signature", signature)
	}

	resp, err := wn.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

// generateSignature generates HMAC-SHA256 signature for webhook payload
func (wn *WebhookNotifier) generateSignature(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
