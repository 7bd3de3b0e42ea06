package verifier

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func dohServer(t *testing.T, handler http.HandlerFunc) *DoHResolver {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewDoHResolver(srv.URL, 2*time.Second)
}

func TestLookupMXSortedAndStripped(t *testing.T) {
	r := dohServer(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "MX", req.URL.Query().Get("type"))
		assert.Equal(t, "dest.test", req.URL.Query().Get("name"))
		fmt.Fprint(w, `{"Status":0,"Answer":[
			{"data":"20 backup.dest.test."},
			{"data":"5 primary.dest.test."},
			{"data":"10 secondary.dest.test."}
		]}`)
	})

	records := r.LookupMX("dest.test")

	assert.Equal(t, []MXRecord{
		{Priority: 5, Exchange: "primary.dest.test"},
		{Priority: 10, Exchange: "secondary.dest.test"},
		{Priority: 20, Exchange: "backup.dest.test"},
	}, records)
}

func TestLookupMXSkipsMalformedAnswers(t *testing.T) {
	r := dohServer(t, func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `{"Status":0,"Answer":[
			{"data":"not-a-priority mx.dest.test."},
			{"data":"garbage"},
			{"data":"10 mx.dest.test."}
		]}`)
	})

	records := r.LookupMX("dest.test")

	assert.Equal(t, []MXRecord{{Priority: 10, Exchange: "mx.dest.test"}}, records)
}

func TestLookupMXFailsClosed(t *testing.T) {
	t.Run("nxdomain status", func(t *testing.T) {
		r := dohServer(t, func(w http.ResponseWriter, req *http.Request) {
			fmt.Fprint(w, `{"Status":3}`)
		})
		assert.Empty(t, r.LookupMX("nxdomain.test"))
	})

	t.Run("http error", func(t *testing.T) {
		r := dohServer(t, func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		assert.Empty(t, r.LookupMX("dest.test"))
	})

	t.Run("invalid json", func(t *testing.T) {
		r := dohServer(t, func(w http.ResponseWriter, req *http.Request) {
			fmt.Fprint(w, `{{{`)
		})
		assert.Empty(t, r.LookupMX("dest.test"))
	})

	t.Run("unreachable endpoint", func(t *testing.T) {
		r := NewDoHResolver("http://127.0.0.1:1/resolve", 200*time.Millisecond)
		assert.Empty(t, r.LookupMX("dest.test"))
	})
}

func TestLookupTXTUnquotes(t *testing.T) {
	r := dohServer(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "TXT", req.URL.Query().Get("type"))
		fmt.Fprint(w, `{"Status":0,"Answer":[
			{"data":"\"v=spf1 include:_spf.dest.test ~all\""},
			{"data":"\"some-site-verification=abc123\""}
		]}`)
	})

	records := r.LookupTXT("dest.test")

	assert.Equal(t, []string{
		"v=spf1 include:_spf.dest.test ~all",
		"some-site-verification=abc123",
	}, records)
}

func TestDMARCDetectionIsCaseInsensitive(t *testing.T) {
	assert.True(t, containsRecord([]string{"V=DMARC1; p=reject"}, "v=dmarc1"))
	assert.True(t, containsRecord([]string{"v=DMARC1; p=none;"}, "v=dmarc1"))
	assert.False(t, containsRecord([]string{"v=spf1 -all"}, "v=dmarc1"))
	assert.False(t, containsRecord(nil, "v=dmarc1"))
}
