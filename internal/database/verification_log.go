package database

import (
	"time"

	"iap-verification-api/internal/appstore"
	"iap-verification-api/internal/models"
)

// CreateVerificationLog 记录一次验证请求
func CreateVerificationLog(entry *models.VerificationLog) error {
	return DB.Create(entry).Error
}

// GetVerificationLogs returns the most recent verification attempts for a
// project, newest first.
func GetVerificationLogs(projectID string, limit int) ([]models.VerificationLog, error) {
	var logs []models.VerificationLog
	err := DB.Where("project_id = ?", projectID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// CountTamperSignals counts empty-purchase-list failures for a project since
// the given time. Used by the admin stats endpoint.
func CountTamperSignals(projectID string, since time.Time) (int64, error) {
	var count int64
	err := DB.Model(&models.VerificationLog{}).
		Where("project_id = ? AND status = ? AND created_at >= ?", projectID, appstore.StatusEmptyPurchaseList, since).
		Count(&count).Error
	return count, err
}

// GetVerificationStats aggregates attempt counts for a project since the
// given time.
func GetVerificationStats(projectID string, since time.Time) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var total int64
	if err := DB.Model(&models.VerificationLog{}).
		Where("project_id = ? AND created_at >= ?", projectID, since).
		Count(&total).Error; err != nil {
		return nil, err
	}
	stats["total_attempts"] = total

	var successful int64
	if err := DB.Model(&models.VerificationLog{}).
		Where("project_id = ? AND success = ? AND created_at >= ?", projectID, true, since).
		Count(&successful).Error; err != nil {
		return nil, err
	}
	stats["successful"] = successful
	stats["failed"] = total - successful

	tamper, err := CountTamperSignals(projectID, since)
	if err != nil {
		return nil, err
	}
	stats["tamper_signals"] = tamper

	return stats, nil
}
