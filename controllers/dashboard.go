package controllers

import (
	"strconv"
	"time"

	"github.com/Mala4505/tanbeeh-dashboard-backend/database"
	"github.com/Mala4505/tanbeeh-dashboard-backend/middleware"
	"github.com/Mala4505/tanbeeh-dashboard-backend/models"
	"github.com/Mala4505/tanbeeh-dashboard-backend/services/attendance"

	"github.com/gofiber/fiber/v2"
)

type DashboardController struct {
	agg   *attendance.Aggregator
	flags *attendance.FlagService
}

func NewDashboardController() *DashboardController {
	return &DashboardController{
		agg:   attendance.NewAggregator(),
		flags: attendance.NewFlagService(),
	}
}

// queryFloat parses a float query param, falling back on bad input
func queryFloat(c *fiber.Ctx, key string, def float64) float64 {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

// queryInt parses an int query param, falling back on bad input
func queryInt(c *fiber.Ctx, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// Bootstrap returns the full dashboard payload for the caller's scope
func (dc *DashboardController) Bootstrap(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	frm, to := dateRange(c)
	threshold := queryFloat(c, "threshold", attendance.DefaultFlagThreshold)
	order := c.Query("order", "desc")
	limit := queryInt(c, "limit", attendance.DefaultRoomLimit)

	scope := attendance.ResolveScope(database.DB, user)

	daily := dc.agg.DailyWithFallback(frm, to, scope)
	weekly := dc.agg.Weekly(frm, to, scope)
	rooms := dc.agg.RoomRanking(frm, to, scope, order, limit)
	flagged := dc.agg.FlaggedRooms(frm, to, scope, threshold)
	summary := attendance.BuildSummary(daily, flagged)

	return c.JSON(fiber.Map{
		"summary": summary,
		"daily":   daily,
		"weekly":  weekly,
		"rooms":   rooms,
		"flagged": flagged,
		"meta": fiber.Map{
			"role":         user.Role,
			"frm":          frm,
			"to":           to,
			"threshold":    threshold,
			"order":        order,
			"limit":        limit,
			"generated_at": time.Now().Format(time.RFC3339),
		},
	})
}

// Role returns the role-shaped dashboard: how the caller's view is scoped
// plus the stats their role works from. Admins get unrestricted totals and
// the flagged-record count, lajnat members get their review worklist, the
// scoped roles get counts over their own slice.
func (dc *DashboardController) Role(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	scope := attendance.ResolveScope(database.DB, user)
	frm, to := dateRange(c)

	payload := fiber.Map{
		"role":  user.Role,
		"scope": scope.Describe(),
		"frm":   frm,
		"to":    to,
		"options": fiber.Map{
			"default_threshold": attendance.DefaultFlagThreshold,
			"default_limit":     attendance.DefaultRoomLimit,
			"orders":            []string{"asc", "desc"},
		},
	}

	switch user.Role {
	case models.RoleAdmin:
		counts := dc.agg.StatusCounts(frm, to, scope)
		var flagCount int64
		database.DB.Model(&models.AttendanceFlag{}).Count(&flagCount)
		payload["stats"] = fiber.Map{
			"total_records": counts.TotalRecords,
			"present_count": counts.PresentCount,
			"absent_count":  counts.AbsentCount,
			"late_count":    counts.LateCount,
			"excused_count": counts.ExcusedCount,
			"flagged_count": flagCount,
		}

	case models.RoleLajnatMember:
		students, err := dc.flags.FlaggedStudents(user.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to load flagged students",
			})
		}
		payload["stats"] = fiber.Map{
			"flagged_students":      students,
			"flagged_student_count": len(students),
		}

	default:
		counts := dc.agg.StatusCounts(frm, to, scope)
		payload["stats"] = fiber.Map{
			"total_records": counts.TotalRecords,
			"present_count": counts.PresentCount,
			"absent_count":  counts.AbsentCount,
			"late_count":    counts.LateCount,
			"excused_count": counts.ExcusedCount,
		}
	}

	return c.JSON(payload)
}

// Daily returns per-day attendance counts for the caller's scope
func (dc *DashboardController) Daily(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	frm, to := dateRange(c)
	scope := attendance.ResolveScope(database.DB, user)
	return c.JSON(dc.agg.DailyWithFallback(frm, to, scope))
}

// Weekly returns ISO-week attendance buckets for the caller's scope
func (dc *DashboardController) Weekly(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	frm, to := dateRange(c)
	scope := attendance.ResolveScope(database.DB, user)
	return c.JSON(dc.agg.Weekly(frm, to, scope))
}

// RoomRanking returns rooms ordered by attendance rate
func (dc *DashboardController) RoomRanking(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	frm, to := dateRange(c)
	order := c.Query("order", "desc")
	limit := queryInt(c, "limit", attendance.DefaultRoomLimit)

	scope := attendance.ResolveScope(database.DB, user)
	return c.JSON(dc.agg.RoomRanking(frm, to, scope, order, limit))
}

// FlaggedRooms returns rooms whose attendance rate falls below the threshold
func (dc *DashboardController) FlaggedRooms(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	frm, to := dateRange(c)
	threshold := queryFloat(c, "threshold", attendance.DefaultFlagThreshold)

	scope := attendance.ResolveScope(database.DB, user)
	return c.JSON(fiber.Map{
		"threshold": threshold,
		"rooms":     dc.agg.FlaggedRooms(frm, to, scope, threshold),
	})
}
