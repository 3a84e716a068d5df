package models

import "time"

// VerificationLog is one row per verification attempt, kept for diagnostics
// and abuse investigation. It records what Apple said, never the receipt
// blob or the extracted purchases.
type VerificationLog struct {
	BaseModel

	ProjectID string `json:"project_id" gorm:"not null;index"`

	// Status and Message mirror the validation result, including the local
	// sentinel statuses for transport failures and empty purchase lists.
	Status  int    `json:"status"`
	Message string `json:"message"`
	Success bool   `json:"success" gorm:"index"`

	// Environment that answered: production or sandbox, empty on transport
	// failure.
	Environment string `json:"environment" gorm:"size:20"`

	// PurchaseCount is how many normalized records the receipt yielded.
	PurchaseCount int `json:"purchase_count"`

	IPAddress   string    `json:"ip_address" gorm:"size:45"`
	RequestTime time.Time `json:"request_time"`
}

// TableName 指定表名
func (VerificationLog) TableName() string {
	return "verification_log"
}
