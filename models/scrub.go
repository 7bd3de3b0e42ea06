package models

import (
	"time"

	"gorm.io/gorm"
)

// ScrubJob represents one submitted list-scrubbing run.
type ScrubJob struct {
	gorm.Model

	Name        string     `json:"name"`
	Status      string     `gorm:"default:'pending'" json:"status"` // pending, processing, completed, failed
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	TotalCount     int `gorm:"default:0" json:"total_count"`
	ProcessedCount int `gorm:"default:0" json:"processed_count"`

	// Per-status tallies
	ValidCount      int `gorm:"default:0" json:"valid_count"`
	InvalidCount    int `gorm:"default:0" json:"invalid_count"`
	RiskyCount      int `gorm:"default:0" json:"risky_count"`
	UnknownCount    int `gorm:"default:0" json:"unknown_count"`
	DisposableCount int `gorm:"default:0" json:"disposable_count"`
	CatchAllCount   int `gorm:"default:0" json:"catch_all_count"`

	// Batch-level failure, distinct from per-address error messages.
	ErrorMessage string `json:"error_message,omitempty"`

	// Relations
	Results []ScrubResult `gorm:"foreignKey:JobID" json:"results,omitempty"`
}

// ScrubResult stores one address's verification outcome within a job.
// Rows are created in pending state when the job is submitted and
// filled in by the scrub worker.
type ScrubResult struct {
	gorm.Model
	JobID uint   `gorm:"not null;index" json:"job_id"`
	Email string `gorm:"not null" json:"email"`

	Status  string `gorm:"default:'pending'" json:"status"` // pending, valid, invalid, risky, unknown
	CanSend bool   `gorm:"default:false" json:"can_send"`
	Score   int    `gorm:"default:0" json:"score"`

	SyntaxValid  bool `gorm:"default:false" json:"syntax_valid"`
	DNSValid     bool `gorm:"default:false" json:"dns_valid"`
	HasSPF       bool `gorm:"default:false" json:"has_spf"`
	HasDMARC     bool `gorm:"default:false" json:"has_dmarc"`
	IsDisposable bool `gorm:"default:false" json:"is_disposable"`
	IsRole       bool `gorm:"default:false" json:"is_role"`
	IsFree       bool `gorm:"default:false" json:"is_free"`
	IsSpamTrap   bool `gorm:"default:false" json:"is_spam_trap"`
	IsAbuse      bool `gorm:"default:false" json:"is_abuse"`
	IsToxic      bool `gorm:"default:false" json:"is_toxic"`
	IsCatchAll   bool `gorm:"default:false" json:"is_catch_all"`
	SMTPValid    bool `gorm:"default:false" json:"smtp_valid"`

	// Terminal probe attempt, when one was made.
	PrimaryMX     string `json:"primary_mx,omitempty"`
	ReplyCode     int    `gorm:"default:0" json:"reply_code"`
	ReplyMessage  string `json:"reply_message,omitempty"`
	TLSAdvertised bool   `gorm:"default:false" json:"tls_advertised"`
	LatencyMS     int64  `gorm:"default:0" json:"latency_ms"`

	ErrorMessage string `json:"error_message,omitempty"`
}
