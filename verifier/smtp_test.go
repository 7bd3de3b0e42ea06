package verifier

import (
	"bufio"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMX is a scripted SMTP server bound to a loopback port. rcptReply
// may change between connections via the reply function.
type fakeMX struct {
	listener net.Listener
	conns    int32
	greeting string
	ehlo     []string
	rcpt     func(conn int) string
}

func startFakeMX(t *testing.T) *fakeMX {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	f := &fakeMX{
		listener: ln,
		greeting: "220 mx.test ESMTP ready",
		ehlo:     []string{"250-mx.test", "250-PIPELINING", "250 SIZE 35882577"},
		rcpt:     func(int) string { return "250 2.1.5 OK" },
	}
	go f.serve()
	t.Cleanup(func() { ln.Close() })
	return f
}

func (f *fakeMX) hostPort(t *testing.T) (string, string) {
	t.Helper()
	host, port, err := net.SplitHostPort(f.listener.Addr().String())
	require.NoError(t, err)
	return host, port
}

func (f *fakeMX) serve() {
	for {
		conn, err := f.listener.Accept()
		if err != nil {
			return
		}
		n := int(atomic.AddInt32(&f.conns, 1))
		go f.handle(conn, n)
	}
}

func (f *fakeMX) handle(conn net.Conn, n int) {
	defer conn.Close()
	w := bufio.NewWriter(conn)
	r := bufio.NewReader(conn)
	writeLine := func(s string) {
		w.WriteString(s + "\r\n")
		w.Flush()
	}
	writeLine(f.greeting)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"):
			for _, l := range f.ehlo {
				writeLine(l)
			}
		case strings.HasPrefix(cmd, "MAIL FROM"):
			writeLine("250 2.1.0 OK")
		case strings.HasPrefix(cmd, "RCPT TO"):
			writeLine(f.rcpt(n))
		case strings.HasPrefix(cmd, "QUIT"):
			writeLine("221 2.0.0 bye")
			return
		default:
			writeLine("502 5.5.2 command not recognized")
		}
	}
}

func testProber(port string) *SMTPProber {
	return &SMTPProber{
		Timeout:        2 * time.Second,
		MaxRetries:     1,
		RetryBaseDelay: 5 * time.Millisecond,
		HeloDomain:     "scrub.test",
		MailFrom:       "probe@scrub.test",
		Port:           port,
	}
}

func TestProbeAcceptedRecipient(t *testing.T) {
	f := startFakeMX(t)
	host, port := f.hostPort(t)

	a := testProber(port).Probe("user@dest.test", host)

	assert.Equal(t, ClassValid, a.Classification)
	assert.Equal(t, 250, a.ReplyCode)
	assert.Equal(t, host, a.Exchange)
	assert.Greater(t, a.Latency, time.Duration(0))
}

func TestProbeRejectedRecipient(t *testing.T) {
	f := startFakeMX(t)
	f.rcpt = func(int) string { return "550 5.1.1 no such user" }
	host, port := f.hostPort(t)

	a := testProber(port).Probe("ghost@dest.test", host)

	assert.Equal(t, ClassInvalid, a.Classification)
	assert.Equal(t, 550, a.ReplyCode)
	assert.Contains(t, a.ReplyMessage, "no such user")
}

func TestProbeTempErrorRetriesThenTerminal(t *testing.T) {
	f := startFakeMX(t)
	f.rcpt = func(int) string { return "421 4.7.0 try again later" }
	host, port := f.hostPort(t)

	a := testProber(port).Probe("user@dest.test", host)

	assert.Equal(t, ClassTempError, a.Classification)
	assert.Equal(t, 421, a.ReplyCode)
	// MaxRetries=1 means exactly two sessions total.
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.conns))
}

func TestProbeTempErrorThenSuccess(t *testing.T) {
	f := startFakeMX(t)
	f.rcpt = func(conn int) string {
		if conn == 1 {
			return "450 4.2.1 greylisted"
		}
		return "250 2.1.5 OK"
	}
	host, port := f.hostPort(t)

	a := testProber(port).Probe("user@dest.test", host)

	assert.Equal(t, ClassValid, a.Classification)
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.conns))
}

func TestProbeCatchAllTextOverridesCode(t *testing.T) {
	f := startFakeMX(t)
	f.rcpt = func(int) string { return "250 2.1.5 accept all recipients" }
	host, port := f.hostPort(t)

	a := testProber(port).Probe("anything@dest.test", host)

	assert.Equal(t, ClassCatchAll, a.Classification)
}

func TestProbeRecordsSTARTTLSWithoutUpgrading(t *testing.T) {
	f := startFakeMX(t)
	f.ehlo = []string{"250-mx.test", "250-STARTTLS", "250 SIZE 35882577"}
	host, port := f.hostPort(t)

	a := testProber(port).Probe("user@dest.test", host)

	assert.True(t, a.TLSAdvertised)
	assert.Equal(t, ClassValid, a.Classification)
}

func TestProbeNon220GreetingIsUnknown(t *testing.T) {
	f := startFakeMX(t)
	f.greeting = "554 5.7.1 not accepting connections"
	host, port := f.hostPort(t)

	a := testProber(port).Probe("user@dest.test", host)

	assert.Equal(t, ClassUnknown, a.Classification)
	assert.Equal(t, 554, a.ReplyCode)
}

func TestProbeConnectionRefused(t *testing.T) {
	// Bind then close to get a port nothing listens on.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	ln.Close()

	p := testProber(port)
	a := p.Probe("user@dest.test", host)

	assert.Equal(t, ClassUnknown, a.Classification)
	assert.Equal(t, 0, a.ReplyCode)
	assert.NotEmpty(t, a.ReplyMessage)
}

func TestClassifyRcpt(t *testing.T) {
	cases := []struct {
		code int
		msg  string
		want string
	}{
		{250, "OK", ClassValid},
		{251, "user not local; will forward", ClassValid},
		{550, "no such user", ClassInvalid},
		{553, "mailbox name invalid", ClassInvalid},
		{421, "service not available", ClassTempError},
		{450, "mailbox busy", ClassTempError},
		{452, "Accept ALL mail here", ClassCatchAll},
		{550, "this domain is catch-all", ClassCatchAll},
		{330, "weird", ClassUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classifyRcpt(tc.code, tc.msg), "code=%d msg=%q", tc.code, tc.msg)
	}
}
