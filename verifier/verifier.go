// Package verifier estimates whether an email address is deliverable
// without sending mail. It layers syntax validation, static heuristics,
// DNS-over-HTTPS lookups and a live SMTP RCPT probe into a single
// per-address verdict.
package verifier

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Verification statuses.
const (
	StatusValid   = "valid"
	StatusInvalid = "invalid"
	StatusRisky   = "risky"
	StatusUnknown = "unknown"
)

// Config holds the recognized engine options. Zero values fall back to
// the defaults from DefaultConfig.
type Config struct {
	ProbeTimeout   time.Duration // per SMTP attempt (connect and each read)
	MaxRetries     int           // extra attempts after the first
	RetryBaseDelay time.Duration // backoff base, doubled per attempt
	DNSTimeout     time.Duration
	DoHEndpoint    string
	HeloDomain     string // identity announced in EHLO
	ProbeSender    string // MAIL FROM identity
	PerDomainCap   int    // max in-flight probes per destination domain
	GlobalCap      int    // max in-flight probes overall
	Concurrency    int    // workers per batch group
	BatchSize      int    // addresses per batch group
	Policy         Policy
}

func DefaultConfig() Config {
	return Config{
		ProbeTimeout:   10 * time.Second,
		MaxRetries:     1,
		RetryBaseDelay: time.Second,
		DNSTimeout:     3 * time.Second,
		DoHEndpoint:    "https://dns.google/resolve",
		HeloDomain:     "scrub.sheetmail.app",
		ProbeSender:    "probe@sheetmail.app",
		PerDomainCap:   5,
		GlobalCap:      200,
		Concurrency:    10,
		BatchSize:      50,
		Policy:         PolicyCascade,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = d.ProbeTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = d.RetryBaseDelay
	}
	if c.DNSTimeout <= 0 {
		c.DNSTimeout = d.DNSTimeout
	}
	if c.DoHEndpoint == "" {
		c.DoHEndpoint = d.DoHEndpoint
	}
	if c.HeloDomain == "" {
		c.HeloDomain = d.HeloDomain
	}
	if c.ProbeSender == "" {
		c.ProbeSender = d.ProbeSender
	}
	if c.PerDomainCap <= 0 {
		c.PerDomainCap = d.PerDomainCap
	}
	if c.GlobalCap <= 0 {
		c.GlobalCap = d.GlobalCap
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	return c
}

// Result is the per-address aggregate. It is built incrementally during
// Verify and immutable once returned.
type Result struct {
	Email        string        `json:"email"`
	Domain       string        `json:"domain"`
	Status       string        `json:"status"` // valid, invalid, risky, unknown
	CanSend      bool          `json:"can_send"`
	Score        int           `json:"score"`
	SyntaxValid  bool          `json:"syntax_valid"`
	DNSValid     bool          `json:"dns_valid"` // MX present
	HasSPF       bool          `json:"has_spf"`
	HasDMARC     bool          `json:"has_dmarc"`
	MXCount      int           `json:"mx_count"`
	PrimaryMX    string        `json:"primary_mx,omitempty"`
	IsDisposable bool          `json:"is_disposable"`
	IsRole       bool          `json:"is_role"`
	IsFree       bool          `json:"is_free"`
	IsSpamTrap   bool          `json:"is_spam_trap"`
	IsAbuse      bool          `json:"is_abuse"`
	IsToxic      bool          `json:"is_toxic"`
	IsCatchAll   bool          `json:"is_catch_all"`
	SMTPValid    bool          `json:"smtp_valid"`
	Probe        *ProbeAttempt `json:"probe,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	WHOIS        string        `json:"whois,omitempty"`
}

// Resolver answers MX and TXT queries. Both calls fail closed: transport
// errors and non-success resolver statuses yield an empty answer.
type Resolver interface {
	LookupMX(domain string) []MXRecord
	LookupTXT(name string) []string
}

// Prober runs one SMTP verification session against a mail exchanger.
type Prober interface {
	Probe(email, exchange string) ProbeAttempt
}

// Verifier composes the classifier, the resolver, the SMTP prober and
// the domain concurrency limiter into the verify operation. A Verifier
// owns its limiter state, so independent instances never throttle each
// other. Safe for concurrent use.
type Verifier struct {
	cfg      Config
	resolver Resolver
	prober   Prober
	limiter  *DomainLimiter
	logger   *logrus.Logger
}

func New(cfg Config, logger *logrus.Logger) *Verifier {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Verifier{
		cfg:      cfg,
		resolver: NewDoHResolver(cfg.DoHEndpoint, cfg.DNSTimeout),
		prober: &SMTPProber{
			Timeout:        cfg.ProbeTimeout,
			MaxRetries:     cfg.MaxRetries,
			RetryBaseDelay: cfg.RetryBaseDelay,
			HeloDomain:     cfg.HeloDomain,
			MailFrom:       cfg.ProbeSender,
		},
		limiter: NewDomainLimiter(cfg.PerDomainCap, cfg.GlobalCap),
		logger:  logger,
	}
}

// NewWithDeps is a test-oriented constructor that overrides the resolver
// and prober.
func NewWithDeps(cfg Config, logger *logrus.Logger, resolver Resolver, prober Prober) *Verifier {
	v := New(cfg, logger)
	if resolver != nil {
		v.resolver = resolver
	}
	if prober != nil {
		v.prober = prober
	}
	return v
}

// Verify classifies a single address. Failures never escape as errors;
// they are folded into the result's status and error message.
func (v *Verifier) Verify(ctx context.Context, email string) *Result {
	email = strings.ToLower(strings.TrimSpace(email))
	r := &Result{Email: email, Status: StatusUnknown}

	local, domain, ok := SplitAddress(email)
	if !ok || CheckSyntax(email) != nil {
		r.Status = StatusInvalid
		r.ErrorMessage = "malformed email address"
		return r
	}
	r.SyntaxValid = true
	r.Domain = domain

	if suggested, ok := SuggestTypo(domain); ok {
		r.Status = StatusInvalid
		r.ErrorMessage = "possible typo, did you mean " + local + "@" + suggested + "?"
		return r
	}

	r.IsDisposable = IsDisposable(domain)
	r.IsRole = IsRoleAccount(local)
	r.IsFree = IsFreeProvider(domain)
	r.IsSpamTrap = IsSpamTrap(local, domain)
	r.IsAbuse = IsAbuse(local, domain)
	r.IsToxic = IsToxic(domain)

	// High-confidence negatives: probing these is wasteful and, for
	// trap addresses, actively harmful to sender reputation. No network
	// I/O happens on this path.
	if r.IsSpamTrap || r.IsAbuse || r.IsToxic || r.IsDisposable {
		r.Status = StatusInvalid
		r.ErrorMessage = autoFailReason(r)
		r.Score = computeScore(r)
		return r
	}

	mx, spf, dmarc := v.resolveDomain(domain)
	r.HasSPF = spf
	r.HasDMARC = dmarc
	r.MXCount = len(mx)
	if len(mx) > 0 {
		r.DNSValid = true
		r.PrimaryMX = mx[0].Exchange
	}

	if !r.DNSValid {
		r.ErrorMessage = "domain has no MX records"
		v.finalize(r)
		return r
	}

	if err := ctx.Err(); err != nil {
		r.ErrorMessage = err.Error()
		v.finalize(r)
		return r
	}

	attempt := v.probeLimited(email, domain, r.PrimaryMX)
	r.Probe = &attempt
	r.IsCatchAll = attempt.Classification == ClassCatchAll
	r.SMTPValid = attempt.Classification == ClassValid || attempt.Classification == ClassCatchAll
	if !r.SMTPValid && attempt.ReplyMessage != "" {
		r.ErrorMessage = attempt.ReplyMessage
	}

	v.finalize(r)
	return r
}

// probeLimited runs the SMTP probe under the domain limiter. Release is
// deferred so the slot is returned on every exit path, panics included.
func (v *Verifier) probeLimited(email, domain, exchange string) ProbeAttempt {
	v.limiter.Acquire(domain)
	defer v.limiter.Release(domain)
	return v.prober.Probe(email, exchange)
}

// resolveDomain runs the MX and TXT lookups concurrently. The two
// queries are independent; neither blocks the other.
func (v *Verifier) resolveDomain(domain string) (mx []MXRecord, spf, dmarc bool) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		mx = v.resolver.LookupMX(domain)
	}()
	go func() {
		defer wg.Done()
		spf = containsRecord(v.resolver.LookupTXT(domain), "v=spf1")
		dmarc = containsRecord(v.resolver.LookupTXT("_dmarc."+domain), "v=dmarc1")
	}()
	wg.Wait()
	return mx, spf, dmarc
}

func (v *Verifier) finalize(r *Result) {
	r.Score = computeScore(r)
	deriveStatus(v.cfg.Policy, r)
	v.logger.WithFields(logrus.Fields{
		"email":  r.Email,
		"status": r.Status,
		"score":  r.Score,
	}).Debug("verification completed")
}

func autoFailReason(r *Result) string {
	switch {
	case r.IsSpamTrap:
		return "address matches spam-trap pattern"
	case r.IsAbuse:
		return "address matches abuse pattern"
	case r.IsToxic:
		return "domain is on the toxic list"
	case r.IsDisposable:
		return "disposable email domain"
	}
	return ""
}

func containsRecord(records []string, marker string) bool {
	for _, rec := range records {
		if strings.Contains(strings.ToLower(rec), marker) {
			return true
		}
	}
	return false
}
