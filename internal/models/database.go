package models

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel provides common fields for all database models
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// Project represents one app registered with the verification service. The
// per-project shared secret takes precedence over the global one from the
// environment; a per-request password beats both.
type Project struct {
	BaseModel
	ProjectID   string `json:"project_id" gorm:"uniqueIndex;not null"`
	ProjectName string `json:"project_name" gorm:"not null"`
	APIKey      string `json:"api_key" gorm:"uniqueIndex;not null"`
	IsActive    bool   `json:"is_active" gorm:"default:true"`
	Description string `json:"description"`

	// iOS bundle id of the app this project verifies receipts for.
	BundleID string `json:"bundle_id" gorm:"index"`

	// App Store shared secret for auto-renewable subscription receipts.
	AppleSharedSecret string `json:"apple_shared_secret" gorm:"type:varchar(255)"`

	// RateLimit is the allowed verify calls per minute per client IP.
	RateLimit int `json:"rate_limit" gorm:"default:60"`

	// Tamper alerting
	ContactEmail       string `json:"contact_email"`                                 // alert email recipient
	WebhookCallbackURL string `json:"webhook_callback_url" gorm:"type:varchar(500)"` // alert webhook endpoint
	WebhookSecret      string `json:"webhook_secret" gorm:"type:varchar(255)"`       // HMAC secret for webhook signatures
}
