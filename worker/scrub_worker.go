package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mmushaes/sheet-mail-scrubber/models"
	"github.com/mmushaes/sheet-mail-scrubber/utils"
	"github.com/mmushaes/sheet-mail-scrubber/verifier"
)

// ScrubWorker drains pending scrub jobs in the background. Jobs are
// claimed optimistically, so several instances can run against the same
// database without double-processing.
type ScrubWorker struct {
	DB       *gorm.DB
	Verifier *verifier.Verifier
	Logger   *logrus.Logger
}

func NewScrubWorker(db *gorm.DB, v *verifier.Verifier, logger *logrus.Logger) *ScrubWorker {
	return &ScrubWorker{
		DB:       db,
		Verifier: v,
		Logger:   logger,
	}
}

func (sw *ScrubWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(5 * time.Second)

	sw.Logger.Info("Scrub worker started")

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sw.Logger.Info("Scrub worker shutting down...")
			return
		case <-ticker.C:
			sw.processPendingJobs(ctx)
		}
	}
}

func (sw *ScrubWorker) processPendingJobs(ctx context.Context) {
	var pending []models.ScrubJob
	if err := sw.DB.Where("status = ?", "pending").Order("created_at asc").Limit(5).Find(&pending).Error; err != nil {
		sw.Logger.WithError(err).Error("Failed to fetch pending scrub jobs")
		return
	}

	for _, job := range pending {
		if ctx.Err() != nil {
			return
		}
		if !sw.claimJob(job.ID) {
			continue
		}
		if err := sw.processJob(ctx, job.ID); err != nil {
			utils.LogError("scrub_job_failed", err, map[string]interface{}{
				"job_id": job.ID,
			})
			sw.markFailed(job.ID, err)
		}
	}
}

// claimJob flips a job from pending to processing. The conditional
// update is the claim: zero rows affected means another worker won.
func (sw *ScrubWorker) claimJob(jobID uint) bool {
	now := time.Now()
	res := sw.DB.Model(&models.ScrubJob{}).
		Where("id = ? AND status = ?", jobID, "pending").
		Updates(map[string]interface{}{
			"status":     "processing",
			"started_at": now,
		})
	if res.Error != nil {
		sw.Logger.WithError(res.Error).Error("Failed to claim scrub job")
		return false
	}
	return res.RowsAffected > 0
}

func (sw *ScrubWorker) processJob(ctx context.Context, jobID uint) error {
	var rows []models.ScrubResult
	if err := sw.DB.Where("job_id = ? AND status = ?", jobID, "pending").Find(&rows).Error; err != nil {
		return fmt.Errorf("failed to load job addresses: %w", err)
	}

	emails := make([]string, 0, len(rows))
	for _, row := range rows {
		emails = append(emails, row.Email)
	}

	sw.Logger.WithFields(logrus.Fields{
		"job_id": jobID,
		"count":  len(emails),
	}).Info("Processing scrub job")

	results := sw.Verifier.VerifyBatch(ctx, emails, func(done, total int) {
		// Progress is advisory; a failed update just means a stale
		// counter until the next tick.
		if done%25 == 0 || done == total {
			sw.DB.Model(&models.ScrubJob{}).
				Where("id = ?", jobID).
				Update("processed_count", done)
		}
	})

	if ctx.Err() != nil {
		return ctx.Err()
	}

	// Index results by address. Duplicate submissions get popped one at
	// a time so every row receives a result.
	byEmail := make(map[string][]*verifier.Result, len(results))
	for _, r := range results {
		byEmail[r.Email] = append(byEmail[r.Email], r)
	}

	counts := struct {
		valid, invalid, risky, unknown, disposable, catchAll int
	}{}

	return sw.DB.Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			queue := byEmail[row.Email]
			if len(queue) == 0 {
				continue
			}
			r := queue[0]
			byEmail[row.Email] = queue[1:]

			switch r.Status {
			case verifier.StatusValid:
				counts.valid++
			case verifier.StatusInvalid:
				counts.invalid++
			case verifier.StatusRisky:
				counts.risky++
			default:
				counts.unknown++
			}
			if r.IsDisposable {
				counts.disposable++
			}
			if r.IsCatchAll {
				counts.catchAll++
			}

			updates := map[string]interface{}{
				"status":        r.Status,
				"can_send":      r.CanSend,
				"score":         r.Score,
				"syntax_valid":  r.SyntaxValid,
				"dns_valid":     r.DNSValid,
				"has_spf":       r.HasSPF,
				"has_dmarc":     r.HasDMARC,
				"is_disposable": r.IsDisposable,
				"is_role":       r.IsRole,
				"is_free":       r.IsFree,
				"is_spam_trap":  r.IsSpamTrap,
				"is_abuse":      r.IsAbuse,
				"is_toxic":      r.IsToxic,
				"is_catch_all":  r.IsCatchAll,
				"smtp_valid":    r.SMTPValid,
				"primary_mx":    r.PrimaryMX,
				"error_message": r.ErrorMessage,
			}
			if r.Probe != nil {
				updates["reply_code"] = r.Probe.ReplyCode
				updates["reply_message"] = r.Probe.ReplyMessage
				updates["tls_advertised"] = r.Probe.TLSAdvertised
				updates["latency_ms"] = r.Probe.Latency.Milliseconds()
			}

			if err := tx.Model(&models.ScrubResult{}).
				Where("id = ?", row.ID).
				Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to store result for %s: %w", row.Email, err)
			}
		}

		now := time.Now()
		return tx.Model(&models.ScrubJob{}).
			Where("id = ?", jobID).
			Updates(map[string]interface{}{
				"status":           "completed",
				"completed_at":     now,
				"processed_count":  len(results),
				"valid_count":      counts.valid,
				"invalid_count":    counts.invalid,
				"risky_count":      counts.risky,
				"unknown_count":    counts.unknown,
				"disposable_count": counts.disposable,
				"catch_all_count":  counts.catchAll,
			}).Error
	})
}

func (sw *ScrubWorker) markFailed(jobID uint, cause error) {
	now := time.Now()
	err := sw.DB.Model(&models.ScrubJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":        "failed",
			"completed_at":  now,
			"error_message": cause.Error(),
		}).Error
	if err != nil {
		sw.Logger.WithError(err).Error("Failed to mark scrub job as failed")
	}
}
