package api

import (
	"errors"
	"net/http"

	"iap-verification-api/internal/appstore"
	"iap-verification-api/internal/middleware"
	"iap-verification-api/internal/services"
	"iap-verification-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// VerifyReceiptRequest represents verify receipt request
type VerifyReceiptRequest struct {
	ReceiptData string `json:"receipt_data" binding:"required"` // Base64 receipt blob, forwarded opaque
	// Password overrides the project and environment shared secrets for
	// this call only.
	Password      string `json:"password,omitempty"`
	IgnoreExpired bool   `json:"ignore_expired,omitempty"` // drop already-expired subscription entries
}

// VerifyReceiptResponse represents verify receipt response. Status, Message
// and Service are populated on failures too, so app backends can log what
// Apple reported.
type VerifyReceiptResponse struct {
	Success     bool                      `json:"success"`
	Status      int                       `json:"status"`
	Message     string                    `json:"message,omitempty"`
	Service     string                    `json:"service"`
	Environment string                    `json:"environment,omitempty"`
	Purchases   []appstore.PurchaseRecord `json:"purchases,omitempty"`
}

// VerifyReceipt verifies an App Store receipt and returns its normalized
// purchases.
// POST /api/verify/receipt
func VerifyReceipt(svc *services.ReceiptVerificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		project, ok := middleware.ProjectFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, VerifyReceiptResponse{
				Success: false,
				Message: "Missing project authentication",
				Service: appstore.ServiceApple,
			})
			return
		}

		var req VerifyReceiptRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, VerifyReceiptResponse{
				Success: false,
				Message: "Invalid request format: " + err.Error(),
				Service: appstore.ServiceApple,
			})
			return
		}

		result, purchases, err := svc.VerifyReceipt(
			c.Request.Context(),
			project,
			req.ReceiptData,
			req.Password,
			req.IgnoreExpired,
			c.ClientIP(),
		)

		if errors.Is(err, services.ErrRateLimited) {
			c.JSON(http.StatusTooManyRequests, VerifyReceiptResponse{
				Success: false,
				Message: "Rate limit exceeded",
				Service: appstore.ServiceApple,
			})
			return
		}

		if err != nil {
			logging.Infof("Receipt verification failed - project: %s, status: %d, error: %v",
				project.ProjectID, result.Status, err)
			c.JSON(http.StatusBadRequest, VerifyReceiptResponse{
				Success:     false,
				Status:      result.Status,
				Message:     result.Message,
				Service:     result.Service,
				Environment: environment(result),
			})
			return
		}

		logging.Infof("Receipt verified - project: %s, purchases: %d", project.ProjectID, len(purchases))
		c.JSON(http.StatusOK, VerifyReceiptResponse{
			Success:     true,
			Status:      result.Status,
			Service:     result.Service,
			Environment: environment(result),
			Purchases:   purchases,
		})
	}
}

func environment(result *appstore.ValidationResult) string {
	if result.Receipt != nil {
		return result.Receipt.Environment
	}
	return ""
}
