package services

import (
	"context"
	"fmt"
	"time"

	"iap-verification-api/internal/config"
	"iap-verification-api/internal/models"
	"iap-verification-api/pkg/logging"

	brevo "github.com/getbrevo/brevo-go/lib"
)

// AlertService emails a project contact when a tamper signal shows up.
type AlertService struct {
	client    *brevo.APIClient
	fromEmail string
	fromName  string
}

// NewAlertService creates a new alert service. Returns a disabled service
// when no Brevo API key is configured.
func NewAlertService(cfg *config.Config) *AlertService {
	s := &AlertService{
		fromEmail: cfg.BrevoFromEmail,
		fromName:  cfg.BrevoFromName,
	}
	if cfg.BrevoAPIKey != "" {
		brevoCfg := brevo.NewConfiguration()
		brevoCfg.AddDefaultHeader("api-key", cfg.BrevoAPIKey)
		s.client = brevo.NewAPIClient(brevoCfg)
	}
	return s
}

// SendTamperAlert emails the project contact about a receipt that verified
// with an empty purchase list. Best effort: failures are logged, not
// returned to the verify path.
func (s *AlertService) SendTamperAlert(ctx context.Context, project *models.Project, message, ipAddress string) {
	if s.client == nil || project.ContactEmail == "" {
		return
	}

	subject := fmt.Sprintf("Possible receipt tampering - %s", project.ProjectName)
	textContent := fmt.Sprintf(
		"A receipt for project %s (%s) verified successfully but purchased nothing.\n\n"+
			"Reason: %s\nClient IP: %s\nTime: %s\n\n"+
			"This is a known signal of a tampered or replayed receipt.",
		project.ProjectName, project.BundleID, message, ipAddress,
		time.Now().Format(time.RFC3339))

	email := brevo.SendSmtpEmail{
		Sender: &brevo.SendSmtpEmailSender{
			Name:  s.fromName,
			Email: s.fromEmail,
		},
		To: []brevo.SendSmtpEmailTo{
			{Email: project.ContactEmail},
		},
		Subject:     subject,
		TextContent: textContent,
	}

	if _, _, err := s.client.TransactionalEmailsApi.SendTransacEmail(ctx, email); err != nil {
		logging.Errorf("Failed to send tamper alert email - project: %s, error: %v", project.ProjectID, err)
		return
	}
	logging.Infof("Tamper alert email sent - project: %s, to: %s", project.ProjectID, project.ContactEmail)
}
