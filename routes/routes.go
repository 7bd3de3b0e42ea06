package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	controller "github.com/mmushaes/sheet-mail-scrubber/controllers"
	"github.com/mmushaes/sheet-mail-scrubber/middleware"
	"github.com/mmushaes/sheet-mail-scrubber/verifier"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, v *verifier.Verifier, appLogger *logrus.Logger) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	scrubController := controller.NewScrubController(db, v, appLogger)

	// API group with versioning and rate limiting
	api := app.Group("/api/v1", middleware.ScrubRateLimiter(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Scrub routes
	scrub := api.Group("/scrub")
	scrub.Get("/email", scrubController.VerifyEmail)
	scrub.Post("/bulk", scrubController.BulkScrub)
	scrub.Get("/jobs/:id", scrubController.GetScrubJob)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})

	appLogger.Info("API routes initialized successfully")
}
