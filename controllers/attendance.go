package controllers

import (
	"errors"
	"strconv"
	"time"

	"github.com/Mala4505/tanbeeh-dashboard-backend/database"
	"github.com/Mala4505/tanbeeh-dashboard-backend/middleware"
	"github.com/Mala4505/tanbeeh-dashboard-backend/models"
	"github.com/Mala4505/tanbeeh-dashboard-backend/services/attendance"
	"github.com/Mala4505/tanbeeh-dashboard-backend/services/audit"
	"github.com/Mala4505/tanbeeh-dashboard-backend/services/upstream"
	"github.com/Mala4505/tanbeeh-dashboard-backend/utils"

	"github.com/gofiber/fiber/v2"
)

type AttendanceController struct {
	client *upstream.Client
	flags  *attendance.FlagService
}

func NewAttendanceController() *AttendanceController {
	return &AttendanceController{
		client: upstream.NewClient(),
		flags:  attendance.NewFlagService(),
	}
}

// dateRange reads frm/to query params, defaulting to today
func dateRange(c *fiber.Ctx) (string, string) {
	today := time.Now().Format("2006-01-02")
	frm := c.Query("frm", today)
	to := c.Query("to", today)
	if _, err := time.Parse("2006-01-02", frm); err != nil {
		frm = today
	}
	if _, err := time.Parse("2006-01-02", to); err != nil {
		to = today
	}
	return frm, to
}

// liveListing fetches one upstream endpoint, normalizes the rows and
// filters them to the caller's scope
func (tc *AttendanceController) liveListing(c *fiber.Ctx, endpoint string) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	frm, to := dateRange(c)
	rows := tc.client.FetchAttendance(endpoint, frm, to)
	records := attendance.NormalizeBatch(rows, endpoint)

	scope := attendance.ResolveScope(database.DB, user)
	records = scope.FilterNormalized(database.DB, records)

	audit.RecordForUser(user.ID, models.AuditActionDataView, endpoint, fiber.Map{
		"frm":   frm,
		"to":    to,
		"count": len(records),
	})

	return c.JSON(fiber.Map{
		"attendance_type": attendance.NormalizeType(endpoint),
		"frm":             frm,
		"to":              to,
		"count":           len(records),
		"records":         records,
	})
}

// GetFajrAttendance returns live Fajr prayer attendance
func (tc *AttendanceController) GetFajrAttendance(c *fiber.Ctx) error {
	return tc.liveListing(c, upstream.EndpointFajr)
}

// GetMaghribIshaAttendance returns live Maghrib/Isha prayer attendance
func (tc *AttendanceController) GetMaghribIshaAttendance(c *fiber.Ctx) error {
	return tc.liveListing(c, upstream.EndpointMaghribIsha)
}

// GetDuaAttendance returns live Dua attendance
func (tc *AttendanceController) GetDuaAttendance(c *fiber.Ctx) error {
	return tc.liveListing(c, upstream.EndpointDua)
}

// endpointForType maps a ?type= value to the upstream endpoint key.
// Fajr is the default prayer.
func endpointForType(t string) string {
	switch t {
	case models.AttendanceMaghribIsha:
		return upstream.EndpointMaghribIsha
	case models.AttendanceDua:
		return upstream.EndpointDua
	default:
		return upstream.EndpointFajr
	}
}

// GetSummary returns counts by status for one prayer type, computed over
// the live upstream rows after normalization and scope filtering
func (tc *AttendanceController) GetSummary(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	endpoint := endpointForType(c.Query("type"))
	frm, to := dateRange(c)

	rows := tc.client.FetchAttendance(endpoint, frm, to)
	records := attendance.NormalizeBatch(rows, endpoint)

	scope := attendance.ResolveScope(database.DB, user)
	records = scope.FilterNormalized(database.DB, records)

	counts := attendance.CountStatuses(records)

	audit.RecordForUser(user.ID, models.AuditActionDataView, endpoint, fiber.Map{
		"frm": frm, "to": to, "summary": true,
	})

	return c.JSON(fiber.Map{
		"attendance_type": attendance.NormalizeType(endpoint),
		"frm":             frm,
		"to":              to,
		"total_records":   counts.TotalRecords,
		"present_count":   counts.PresentCount,
		"absent_count":    counts.AbsentCount,
		"late_count":      counts.LateCount,
		"excused_count":   counts.ExcusedCount,
	})
}

// GetRecords lists persisted attendance records within the caller's scope
func (tc *AttendanceController) GetRecords(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	frm, to := dateRange(c)
	scope := attendance.ResolveScope(database.DB, user)

	query := database.DB.Model(&models.AttendanceRecord{}).
		Scopes(scope.Records()).
		Where("attendance_records.date BETWEEN ? AND ?", frm, to).
		Preload("Student").
		Preload("Student.Darajah").
		Preload("Student.Hizb")

	if attendanceType := c.Query("type"); attendanceType != "" {
		query = query.Where("attendance_records.attendance_type = ?", attendanceType)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("attendance_records.status = ?", status)
	}

	var records []models.AttendanceRecord
	if err := query.Order("attendance_records.date DESC, attendance_records.id ASC").Find(&records).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch attendance records",
		})
	}

	return c.JSON(fiber.Map{
		"frm":     frm,
		"to":      to,
		"count":   len(records),
		"records": records,
	})
}

// FlagRequest represents the flag creation body
type FlagRequest struct {
	AttendanceRecordID uint   `json:"attendance_record_id" validate:"required"`
	Reason             string `json:"reason" validate:"required"`
}

// FlagRecord marks an attendance record for review
func (tc *AttendanceController) FlagRecord(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	var req FlagRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := utils.Validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "attendance_record_id and reason are required",
		})
	}

	flag, err := tc.flags.Flag(req.AttendanceRecordID, req.Reason, user)
	if err != nil {
		if errors.Is(err, attendance.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Attendance record not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to flag attendance record",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Attendance record flagged",
		"flag":    flag,
	})
}

// UnflagRecord removes a flag; only the author or an admin may do this
func (tc *AttendanceController) UnflagRecord(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	flagID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid flag ID",
		})
	}

	if err := tc.flags.Unflag(uint(flagID), user); err != nil {
		if errors.Is(err, attendance.ErrFlagNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Flag not found",
			})
		}
		if errors.Is(err, attendance.ErrNotAuthorized) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Only the flag author or an admin can remove a flag",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to remove flag",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Flag removed",
	})
}

// ListFlags returns all attendance flags with their context
func (tc *AttendanceController) ListFlags(c *fiber.Ctx) error {
	flags, err := tc.flags.ListFlags()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch flags",
		})
	}

	return c.JSON(fiber.Map{
		"count": len(flags),
		"flags": flags,
	})
}

// TriggerSync runs an upstream sync for all endpoints (admin only)
func (tc *AttendanceController) TriggerSync(c *fiber.Ctx) error {
	sync := attendance.NewSyncService()
	results := make([]attendance.SyncStats, 0, len(upstream.Endpoints))
	for _, endpoint := range upstream.Endpoints {
		results = append(results, sync.SyncEndpoint(endpoint))
	}

	return c.JSON(fiber.Map{
		"message": "Sync completed",
		"results": results,
	})
}
