package verifier

// Policy selects how the gathered signals are rendered into a verdict.
// Both policies read the same underlying result fields.
type Policy int

const (
	// PolicyCascade applies discrete rules: hard-negative flags lose,
	// then syntax + DNS + SMTP must all pass.
	PolicyCascade Policy = iota
	// PolicyScore renders a weighted 0-100 confidence score and buckets
	// it into valid / risky / unknown / invalid.
	PolicyScore
)

// Score thresholds for PolicyScore.
const (
	scoreValid   = 90
	scoreRisky   = 60
	scoreUnknown = 30
)

// computeScore derives the 0-100 confidence score from the gathered
// signals. It is cheap and side-effect free, so it is filled in on
// every result regardless of the active policy.
func computeScore(r *Result) int {
	score := 0
	if r.DNSValid || r.HasSPF || r.HasDMARC {
		score += 20 // domain answers DNS at all
	}
	if r.DNSValid {
		score += 30
		if matchesAny(r.PrimaryMX, legitimateMXPatterns) {
			score += 15
		}
		if matchesAny(r.PrimaryMX, suspiciousMXPatterns) {
			score -= 30
		}
		if r.MXCount > 1 {
			score += 5
		}
	}
	if r.HasSPF {
		score += 10
	}
	if r.HasDMARC {
		score += 10
	}
	if r.IsDisposable {
		score -= 40
	}
	if r.IsRole {
		score -= 10
	}
	if r.IsCatchAll {
		score -= 15
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// deriveStatus fills in Status and CanSend from the gathered signals
// under the given policy.
func deriveStatus(policy Policy, r *Result) {
	if policy == PolicyScore {
		switch {
		case r.Score >= scoreValid:
			r.Status = StatusValid
		case r.Score >= scoreRisky:
			r.Status = StatusRisky
		case r.Score >= scoreUnknown:
			r.Status = StatusUnknown
		default:
			r.Status = StatusInvalid
		}
		r.CanSend = r.Status == StatusValid
		return
	}

	if r.IsDisposable || r.IsSpamTrap || r.IsAbuse || r.IsToxic || !r.SyntaxValid || !r.DNSValid {
		r.Status = StatusInvalid
		r.CanSend = false
		return
	}
	r.CanSend = r.SMTPValid
	if r.Probe == nil {
		r.Status = StatusUnknown
		r.CanSend = false
		return
	}
	switch r.Probe.Classification {
	case ClassValid:
		r.Status = StatusValid
	case ClassCatchAll:
		// Deliverable in the RCPT sense, but existence is unproven.
		r.Status = StatusRisky
	case ClassInvalid:
		r.Status = StatusInvalid
	default:
		r.Status = StatusUnknown
	}
}
