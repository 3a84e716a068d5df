package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"iap-verification-api/internal/appstore"
	"iap-verification-api/internal/config"
	"iap-verification-api/internal/database"
	"iap-verification-api/internal/middleware"
	"iap-verification-api/internal/models"
	"iap-verification-api/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestAPI(t *testing.T, appleResponse string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Project{}, &models.VerificationLog{}))
	database.DB = db

	project := models.Project{
		ProjectID:   "test",
		ProjectName: "Test Project",
		APIKey:      "test-key",
		IsActive:    true,
		RateLimit:   100,
	}
	require.NoError(t, db.Create(&project).Error)

	apple := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(appleResponse))
	}))
	t.Cleanup(apple.Close)

	cfg := &config.Config{
		RateLimitPerMinute:  100,
		AppleRequestTimeout: 5 * time.Second,
	}
	svc := services.NewReceiptVerificationService(cfg,
		appstore.WithProductionURL(apple.URL),
		appstore.WithSandboxURL(apple.URL),
	)
	t.Cleanup(svc.Stop)

	middleware.InitProjectManager()

	r := gin.New()
	verify := r.Group("/api/verify")
	verify.Use(middleware.ProjectAuthMiddleware())
	verify.POST("/receipt", VerifyReceipt(svc))
	return r
}

func postReceipt(r *gin.Engine, body string, authenticated bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/verify/receipt", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if authenticated {
		req.Header.Set("X-Project-ID", "test")
		req.Header.Set("X-API-Key", "test-key")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestVerifyReceiptEndpointSuccess(t *testing.T) {
	r := setupTestAPI(t, `{"status":0,"environment":"Production","receipt":{"bundle_id":"com.example.app","in_app":[{"transaction_id":"1000","original_transaction_id":"T1","product_id":"p1","purchase_date_ms":"1700000000000","quantity":"1"}]}}`)

	w := postReceipt(r, `{"receipt_data":"blob"}`, true)

	require.Equal(t, http.StatusOK, w.Code)
	var resp VerifyReceiptResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 0, resp.Status)
	assert.Equal(t, "apple", resp.Service)
	assert.Equal(t, "Production", resp.Environment)
	require.Len(t, resp.Purchases, 1)
	assert.Equal(t, "p1", resp.Purchases[0].ProductID)

	// The attempt lands in the audit log.
	var count int64
	require.NoError(t, database.DB.Model(&models.VerificationLog{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestVerifyReceiptEndpointRequiresAuth(t *testing.T) {
	r := setupTestAPI(t, `{"status":0}`)

	w := postReceipt(r, `{"receipt_data":"blob"}`, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerifyReceiptEndpointRejectsMissingReceipt(t *testing.T) {
	r := setupTestAPI(t, `{"status":0}`)

	w := postReceipt(r, `{}`, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyReceiptEndpointAppleFailure(t *testing.T) {
	r := setupTestAPI(t, `{"status":21003}`)

	w := postReceipt(r, `{"receipt_data":"blob"}`, true)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp VerifyReceiptResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, 21003, resp.Status)
	assert.Equal(t, "The receipt could not be authenticated.", resp.Message)
	assert.Equal(t, "apple", resp.Service)
}

func TestVerifyReceiptEndpointTamperSignal(t *testing.T) {
	r := setupTestAPI(t, `{"status":0,"receipt":{"bundle_id":"com.example.app","in_app":[]}}`)

	w := postReceipt(r, `{"receipt_data":"blob"}`, true)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp VerifyReceiptResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, 2, resp.Status)
	assert.Equal(t, "The receipt is valid, but purchased nothing.", resp.Message)
}

func TestVerifyReceiptEndpointRateLimited(t *testing.T) {
	r := setupTestAPI(t, `{"status":0,"receipt":{"bundle_id":"com.example.app","in_app":[{"transaction_id":"1","original_transaction_id":"T1","product_id":"p1","purchase_date_ms":"100","quantity":"1"}]}}`)

	// The seeded project allows 100 requests per window.
	require.NoError(t, database.DB.Model(&models.Project{}).
		Where("project_id = ?", "test").
		Update("rate_limit", 1).Error)
	middleware.InitProjectManager()

	w := postReceipt(r, `{"receipt_data":"blob"}`, true)
	require.Equal(t, http.StatusOK, w.Code)

	w = postReceipt(r, `{"receipt_data":"blob"}`, true)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
