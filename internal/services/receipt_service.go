package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"iap-verification-api/internal/appstore"
	"iap-verification-api/internal/config"
	"iap-verification-api/internal/database"
	"iap-verification-api/internal/models"
	"iap-verification-api/pkg/logging"
)

// ErrRateLimited is returned when a project/IP pair exceeds its verify quota.
var ErrRateLimited = errors.New("rate limit exceeded")

// ReceiptVerificationService drives receipt verification for a project:
// rate limiting, the Apple round trip, purchase extraction, the audit log
// and tamper alerting.
type ReceiptVerificationService struct {
	client           *appstore.Client
	limiter          *RateLimiter
	notifier         *WebhookNotifier
	alerts           *AlertService
	defaultRateLimit int
}

// NewReceiptVerificationService creates the verification service from the
// resolved configuration. Extra client options (endpoint overrides in
// tests) are applied after the configured defaults.
func NewReceiptVerificationService(cfg *config.Config, clientOpts ...appstore.Option) *ReceiptVerificationService {
	opts := append([]appstore.Option{
		appstore.WithSharedSecret(cfg.AppStoreSharedSecret),
		appstore.WithTimeout(cfg.AppleRequestTimeout),
	}, clientOpts...)
	return &ReceiptVerificationService{
		client: appstore.NewClient(opts...),
		limiter:          NewRateLimiter(database.GetRedis(), time.Minute),
		notifier:         NewWebhookNotifier(),
		alerts:           NewAlertService(cfg),
		defaultRateLimit: cfg.RateLimitPerMinute,
	}
}

// VerifyReceipt validates one receipt for a project and returns the
// validation result plus the normalized purchase records. The result is
// non-nil whenever Apple was reached, including failures, so the handler
// can report status and message either way.
//
// Secret precedence: the request password, then the project's shared
// secret, then APP_STORE_SHARED_SECRET from the environment.
func (s *ReceiptVerificationService) VerifyReceipt(ctx context.Context, project *models.Project, receiptData, password string, ignoreExpired bool, clientIP string) (*appstore.ValidationResult, []appstore.PurchaseRecord, error) {
	limit := project.RateLimit
	if limit <= 0 {
		limit = s.defaultRateLimit
	}
	allowed, err := s.limiter.Allow(ctx, fmt.Sprintf("%s:%s", project.ProjectID, clientIP), limit)
	if err != nil {
		// A broken limiter backend should not take verification down.
		logging.Errorf("Rate limiter failure, allowing request - project: %s, error: %v", project.ProjectID, err)
	} else if !allowed {
		return nil, nil, ErrRateLimited
	}

	if password == "" {
		password = project.AppleSharedSecret
	}

	result, verifyErr := s.client.Verify(ctx, receiptData, password)

	var records []appstore.PurchaseRecord
	if verifyErr == nil {
		records = appstore.ExtractPurchases(result.Receipt, appstore.ExtractOptions{IgnoreExpired: ignoreExpired})
	}

	s.logAttempt(project, result, records, clientIP)

	var tamperErr *appstore.TamperError
	if errors.As(verifyErr, &tamperErr) {
		logging.Warnf("Possible receipt tampering - project: %s, ip: %s", project.ProjectID, clientIP)
		payload := TamperAlertPayload{
			Status:      result.Status,
			Message:     result.Message,
			Environment: environmentOf(result),
			IPAddress:   clientIP,
		}
		go s.notifier.NotifyTamper(project, payload)
		go s.alerts.SendTamperAlert(context.Background(), project, result.Message, clientIP)
	}

	return result, records, verifyErr
}

// Stop releases limiter resources.
func (s *ReceiptVerificationService) Stop() {
	s.limiter.Stop()
}

func (s *ReceiptVerificationService) logAttempt(project *models.Project, result *appstore.ValidationResult, records []appstore.PurchaseRecord, clientIP string) {
	entry := &models.VerificationLog{
		ProjectID:     project.ProjectID,
		Status:        result.Status,
		Message:       result.Message,
		Success:       result.Status == appstore.StatusSuccess,
		Environment:   environmentOf(result),
		PurchaseCount: len(records),
		IPAddress:     clientIP,
		RequestTime:   time.Now(),
	}
	if err := database.CreateVerificationLog(entry); err != nil {
		logging.Errorf("Failed to record verification attempt - project: %s, error: %v", project.ProjectID, err)
	}
}

func environmentOf(result *appstore.ValidationResult) string {
	if result.Receipt != nil {
		return result.Receipt.Environment
	}
	return ""
}
