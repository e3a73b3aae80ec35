package controllers

import (
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/Mala4505/tanbeeh-dashboard-backend/database"
	"github.com/Mala4505/tanbeeh-dashboard-backend/models"
	"github.com/Mala4505/tanbeeh-dashboard-backend/services/audit"

	"github.com/gofiber/fiber/v2"
)

type AuditController struct{}

// GetAuditLogs returns audit log entries with optional filters (admin only)
func (ac *AuditController) GetAuditLogs(c *fiber.Ctx) error {
	query := database.DB.Model(&models.AuditLog{}).Preload("User")

	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if userID := c.Query("user_id"); userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if frm := c.Query("frm"); frm != "" {
		query = query.Where("created_at >= ?", frm)
	}
	if to := c.Query("to"); to != "" {
		query = query.Where("created_at < DATE_ADD(?, INTERVAL 1 DAY)", to)
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	perPage := c.QueryInt("per_page", 50)
	if perPage < 1 || perPage > 500 {
		perPage = 50
	}

	var total int64
	query.Count(&total)

	var logs []models.AuditLog
	if err := query.Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&logs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch audit logs",
		})
	}

	return c.JSON(fiber.Map{
		"logs":     logs,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// ExportAuditLogs streams audit log entries as CSV (admin only)
func (ac *AuditController) ExportAuditLogs(c *fiber.Ctx) error {
	query := database.DB.Model(&models.AuditLog{}).Preload("User")

	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if frm := c.Query("frm"); frm != "" {
		query = query.Where("created_at >= ?", frm)
	}
	if to := c.Query("to"); to != "" {
		query = query.Where("created_at < DATE_ADD(?, INTERVAL 1 DAY)", to)
	}

	var logs []models.AuditLog
	if err := query.Order("created_at DESC").Limit(10000).Find(&logs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch audit logs",
		})
	}

	var sb strings.Builder
	writer := csv.NewWriter(&sb)
	_ = writer.Write([]string{"id", "timestamp", "user", "action", "target", "metadata"})
	for _, entry := range logs {
		username := ""
		if entry.User != nil {
			username = entry.User.Username
		}
		_ = writer.Write([]string{
			fmt.Sprintf("%d", entry.ID),
			entry.CreatedAt.Format(time.RFC3339),
			username,
			entry.Action,
			entry.Target,
			string(entry.Metadata),
		})
	}
	writer.Flush()

	fileName := fmt.Sprintf("audit_logs_%s.csv", time.Now().Format("2006-01-02"))
	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", "attachment; filename="+fileName)
	return c.SendString(sb.String())
}

// TriggerArchive archives audit entries older than the given days (admin only)
func (ac *AuditController) TriggerArchive(c *fiber.Ctx) error {
	daysOld := c.QueryInt("days_old", 365)

	archiver := audit.NewArchiveService()
	if err := archiver.ArchiveOldEntries(daysOld); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Archive failed: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{"message": "Audit archive completed"})
}
