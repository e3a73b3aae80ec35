package routes

import (
	"github.com/Mala4505/tanbeeh-dashboard-backend/controllers"
	"github.com/Mala4505/tanbeeh-dashboard-backend/middleware"

	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App) {
	// Initialize controllers
	authController := &controllers.AuthController{}
	attendanceController := controllers.NewAttendanceController()
	dashboardController := controllers.NewDashboardController()
	notificationController := &controllers.NotificationController{}
	auditController := &controllers.AuditController{}
	assignmentController := &controllers.AssignmentController{}

	// API group
	api := app.Group("/api")

	// Public routes (no authentication required)
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	auth := api.Group("/auth")
	auth.Post("/login", authController.Login)

	// Protected routes (require authentication)
	protected := api.Group("/", middleware.JWTMiddleware())

	protected.Post("/auth/logout", authController.Logout)
	protected.Get("/profile", authController.GetProfile)
	protected.Put("/profile/password", authController.ChangePassword)

	// Live prayer attendance listings, filtered per role scope
	attendance := protected.Group("/attendance")
	attendance.Get("/fajr", attendanceController.GetFajrAttendance)
	attendance.Get("/maghrib-isha", attendanceController.GetMaghribIshaAttendance)
	attendance.Get("/dua", attendanceController.GetDuaAttendance)
	attendance.Get("/summary", attendanceController.GetSummary)
	attendance.Get("/records", attendanceController.GetRecords)

	// Flagging; lajnat members review flags but do not create them
	attendance.Get("/flags", attendanceController.ListFlags)
	attendance.Post("/flags", middleware.RequireFlaggingRole(), attendanceController.FlagRecord)
	attendance.Delete("/flags/:id", middleware.RequireFlaggingRole(), attendanceController.UnflagRecord)

	// Dashboard
	dashboard := protected.Group("/dashboard", middleware.RequireDashboardRole())
	dashboard.Get("/bootstrap", dashboardController.Bootstrap)
	dashboard.Get("/role", dashboardController.Role)
	dashboard.Get("/daily", dashboardController.Daily)
	dashboard.Get("/weekly", dashboardController.Weekly)
	dashboard.Get("/rooms", dashboardController.RoomRanking)
	dashboard.Get("/flagged-rooms", dashboardController.FlaggedRooms)

	// Notifications
	notifications := protected.Group("/notifications")
	notifications.Get("/", notificationController.GetNotifications)
	notifications.Patch("/:id/read", notificationController.MarkAsRead)
	notifications.Patch("/read-all", notificationController.MarkAllAsRead)

	// Audit logs (admin only)
	auditLogs := protected.Group("/audit-logs", middleware.RequireAdmin())
	auditLogs.Get("/", auditController.GetAuditLogs)
	auditLogs.Get("/export", auditController.ExportAuditLogs)
	auditLogs.Post("/archive", auditController.TriggerArchive)

	// Scope assignments (admin only)
	assignments := protected.Group("/assignments", middleware.RequireAdmin())
	assignments.Get("/", assignmentController.ListAssignments)
	assignments.Post("/hizb", assignmentController.UpsertHizbAssignment)
	assignments.Post("/masool", assignmentController.UpsertMasoolAssignment)
	assignments.Post("/muaddib", assignmentController.UpsertMuaddibAssignment)
	assignments.Post("/lajnat", assignmentController.UpsertLajnatAssignment)

	// Admin operations
	admin := protected.Group("/admin", middleware.RequireAdmin())
	admin.Post("/users", authController.CreateUser)
	admin.Post("/users/:id/reset-password", authController.ResetPasswordByAdmin)
	admin.Post("/sync", attendanceController.TriggerSync)
}
