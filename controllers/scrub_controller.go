// controller/scrub_controller.go
package controller

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/likexian/whois"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mmushaes/sheet-mail-scrubber/config"
	"github.com/mmushaes/sheet-mail-scrubber/models"
	"github.com/mmushaes/sheet-mail-scrubber/utils"
	"github.com/mmushaes/sheet-mail-scrubber/verifier"
)

type ScrubController struct {
	DB       *gorm.DB
	Verifier *verifier.Verifier
	Logger   *logrus.Logger
}

func NewScrubController(db *gorm.DB, v *verifier.Verifier, logger *logrus.Logger) *ScrubController {
	return &ScrubController{
		DB:       db,
		Verifier: v,
		Logger:   logger,
	}
}

// VerifyEmail runs the full verification pipeline for a single address
// and returns the result synchronously.
func (sc *ScrubController) VerifyEmail(c *fiber.Ctx) error {
	email := c.Query("email")
	if email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email address is required",
		})
	}

	result := sc.Verifier.Verify(c.UserContext(), email)

	// Add WHOIS data to the result
	if result.Domain != "" {
		whoisInfo, err := whois.Whois(result.Domain)
		if err == nil {
			result.WHOIS = whoisInfo
		}
	}

	utils.LogEvent("email_verified", map[string]interface{}{
		"email":  result.Email,
		"status": result.Status,
		"score":  result.Score,
		"ip":     c.IP(),
	})

	return c.JSON(result)
}

type bulkScrubRequest struct {
	Name   string   `json:"name" validate:"max=200"`
	Emails []string `json:"emails" validate:"required,min=1"`
}

// BulkScrub accepts a list of addresses, persists a pending job with one
// row per address, and returns the job id. The scrub worker picks the
// job up asynchronously.
func (sc *ScrubController) BulkScrub(c *fiber.Ctx) error {
	var request bulkScrubRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := utils.ValidateStruct(request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	maxListSize := config.AppConfig.Scrub.MaxListSize
	if maxListSize > 0 && len(request.Emails) > maxListSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error":         "Email list exceeds the maximum allowed size",
			"max_list_size": maxListSize,
		})
	}

	// Normalize up front so worker results map back onto rows by email.
	emails := make([]string, 0, len(request.Emails))
	for _, e := range request.Emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			emails = append(emails, e)
		}
	}
	if len(emails) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email list contains no usable addresses",
		})
	}

	job := models.ScrubJob{
		Name:       request.Name,
		Status:     "pending",
		TotalCount: len(emails),
	}

	err := sc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&job).Error; err != nil {
			return err
		}

		rows := make([]models.ScrubResult, 0, len(emails))
		for _, e := range emails {
			rows = append(rows, models.ScrubResult{
				JobID:  job.ID,
				Email:  e,
				Status: "pending",
			})
		}
		return tx.CreateInBatches(rows, 500).Error
	})
	if err != nil {
		utils.LogError("bulk_scrub_create_failed", err, map[string]interface{}{
			"total_count": len(emails),
			"ip":          c.IP(),
		})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create scrub job",
		})
	}

	utils.LogEvent("scrub_job_created", map[string]interface{}{
		"job_id":      job.ID,
		"total_count": len(emails),
		"ip":          c.IP(),
	})

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message":     "Scrub job accepted",
		"job_id":      job.ID,
		"total_count": job.TotalCount,
	})
}

// GetScrubJob returns a job with its per-address results.
func (sc *ScrubController) GetScrubJob(c *fiber.Ctx) error {
	jobID := utils.ParseUint(c.Params("id"))
	if jobID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid job id",
		})
	}

	var job models.ScrubJob
	err := sc.DB.Preload("Results").First(&job, jobID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Scrub job not found",
			})
		}
		sc.Logger.WithError(err).Error("Failed to load scrub job")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load scrub job",
		})
	}

	return c.JSON(job)
}
