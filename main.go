package main

import (
	"log"
	"os"

	"github.com/Mala4505/tanbeeh-dashboard-backend/config"
	"github.com/Mala4505/tanbeeh-dashboard-backend/database"
	"github.com/Mala4505/tanbeeh-dashboard-backend/database/seeders"
	"github.com/Mala4505/tanbeeh-dashboard-backend/middleware"
	"github.com/Mala4505/tanbeeh-dashboard-backend/routes"
	"github.com/Mala4505/tanbeeh-dashboard-backend/services"
	"github.com/Mala4505/tanbeeh-dashboard-backend/services/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

func init() {
	setupLogging()

	// Load configuration
	config.LoadConfig()

	// Connect to database
	database.Connect()

	// Seed reference data and the initial admin account
	seeders.Seed()
}

func main() {
	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(middleware.RequestLogger())

	// Notification delivery worker (Redis queue flushes to the database)
	notifService := notifications.NewService()
	if config.AppConfig.UseRedisNotifications {
		stopNotif := make(chan struct{})
		notifService.StartWorker(stopNotif)
	}

	// Nightly upstream sync, retention maintenance and audit archiving
	if config.AppConfig.EnableSyncScheduler {
		scheduler := services.NewSyncScheduler()
		scheduler.Start()
	}

	// API routes
	routes.SetupRoutes(app)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":  "Route not found",
			"path":   c.Path(),
			"method": c.Method(),
		})
	})

	logrus.WithFields(logrus.Fields{
		"port":        config.AppConfig.Port,
		"environment": config.AppConfig.AppEnv,
	}).Info("Server starting")

	if err := app.Listen(":" + config.AppConfig.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// setupLogging configures the logging system
func setupLogging() {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)
}

// customErrorHandler handles application errors
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	logrus.WithFields(logrus.Fields{
		"error":  err.Error(),
		"path":   c.Path(),
		"method": c.Method(),
		"status": code,
	}).Error("Request error")

	return c.Status(code).JSON(fiber.Map{
		"error": message,
		"code":  code,
	})
}
