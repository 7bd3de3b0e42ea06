package verifier

import (
	"net"
	"net/textproto"
	"strings"
	"time"
)

// Probe classifications.
const (
	ClassValid     = "valid"
	ClassInvalid   = "invalid"
	ClassTempError = "temp_error"
	ClassCatchAll  = "catch_all"
	ClassUnknown   = "unknown"
)

// ProbeAttempt is the outcome of one SMTP session. A ReplyCode of zero
// means the session failed before any server reply (dial error or read
// timeout).
type ProbeAttempt struct {
	Exchange       string        `json:"exchange"`
	ReplyCode      int           `json:"reply_code"`
	ReplyMessage   string        `json:"reply_message"`
	TLSAdvertised  bool          `json:"tls_advertised"`
	Latency        time.Duration `json:"latency"`
	Classification string        `json:"classification"`
}

// SMTPProber opens a plaintext session to a mail exchanger on port 25
// and walks greeting, EHLO, MAIL FROM and RCPT TO to infer mailbox
// existence. STARTTLS is recorded when advertised but never negotiated;
// the RCPT reply on the plaintext channel is the verdict signal.
type SMTPProber struct {
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	HeloDomain     string
	MailFrom       string
	Port           string // defaults to 25
}

// Probe runs up to 1+MaxRetries sessions against exchange. Transient
// RCPT rejections (4xx) and connection failures are retried with
// exponential backoff; a connection failure whose error text mentions a
// timeout is not retried, since the attempt already consumed the full
// time budget.
func (p *SMTPProber) Probe(email, exchange string) ProbeAttempt {
	for attempt := 0; ; attempt++ {
		a := p.probeOnce(email, exchange)
		if attempt >= p.MaxRetries {
			return a
		}
		switch {
		case a.Classification == ClassTempError:
			time.Sleep(p.backoff(attempt))
		case a.ReplyCode == 0 && !strings.Contains(strings.ToLower(a.ReplyMessage), "timeout"):
			time.Sleep(p.backoff(attempt))
		default:
			return a
		}
	}
}

func (p *SMTPProber) backoff(attempt int) time.Duration {
	base := p.RetryBaseDelay
	if base <= 0 {
		base = time.Second
	}
	return base << uint(attempt)
}

// probeOnce is a single pass through the protocol state machine:
// connect, greeting, EHLO, MAIL FROM, RCPT TO, QUIT. The connection is
// closed on every exit path. Any read after connect waits for a full
// CRLF-terminated reply or the step deadline; a timeout there is a hard
// failure for the attempt.
func (p *SMTPProber) probeOnce(email, exchange string) (a ProbeAttempt) {
	a = ProbeAttempt{Exchange: exchange, Classification: ClassUnknown}
	start := time.Now()
	defer func() { a.Latency = time.Since(start) }()

	port := p.Port
	if port == "" {
		port = "25"
	}
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(exchange, port), p.Timeout)
	if err != nil {
		a.ReplyMessage = err.Error()
		return a
	}
	tp := textproto.NewConn(conn)
	defer tp.Close()
	_ = conn.SetDeadline(time.Now().Add(p.Timeout))

	// Greeting. Anything but 220 is not proof of an invalid mailbox; a
	// busy or misbehaving server looks the same from here.
	code, msg, err := tp.ReadResponse(0)
	if err != nil {
		a.ReplyMessage = err.Error()
		return a
	}
	a.ReplyCode, a.ReplyMessage = code, msg
	if code != 220 {
		return a
	}

	code, msg, err = p.command(tp, "EHLO "+p.HeloDomain)
	if err != nil {
		a.ReplyCode, a.ReplyMessage = 0, err.Error()
		return a
	}
	a.ReplyCode, a.ReplyMessage = code, msg
	if code != 250 {
		return a
	}
	a.TLSAdvertised = strings.Contains(strings.ToUpper(msg), "STARTTLS")

	code, msg, err = p.command(tp, "MAIL FROM:<"+p.MailFrom+">")
	if err != nil {
		a.ReplyCode, a.ReplyMessage = 0, err.Error()
		return a
	}
	a.ReplyCode, a.ReplyMessage = code, msg
	if code != 250 {
		return a
	}

	code, msg, err = p.command(tp, "RCPT TO:<"+email+">")
	if err != nil {
		a.ReplyCode, a.ReplyMessage = 0, err.Error()
		return a
	}
	a.ReplyCode, a.ReplyMessage = code, msg
	a.Classification = classifyRcpt(code, msg)

	// Best-effort QUIT; the verdict is already in hand.
	_ = conn.SetDeadline(time.Now().Add(500 * time.Millisecond))
	if tp.PrintfLine("QUIT") == nil {
		_, _, _ = tp.ReadResponse(0)
	}
	return a
}

func (p *SMTPProber) command(tp *textproto.Conn, line string) (int, string, error) {
	if err := tp.PrintfLine("%s", line); err != nil {
		return 0, "", err
	}
	return tp.ReadResponse(0)
}

// classifyRcpt maps the RCPT TO reply onto a deliverability verdict.
// Catch-all wording in the reply text overrides the numeric code: a 250
// from a catch-all server proves nothing about the mailbox.
func classifyRcpt(code int, msg string) string {
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "catch") || strings.Contains(lower, "accept all") {
		return ClassCatchAll
	}
	switch {
	case code == 250 || code == 251:
		return ClassValid
	case code >= 500 && code < 600:
		return ClassInvalid
	case code >= 400 && code < 500:
		return ClassTempError
	default:
		return ClassUnknown
	}
}
