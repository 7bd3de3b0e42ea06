package verifier

import (
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// MXRecord is one mail-exchanger entry. Lower priority wins.
type MXRecord struct {
	Priority int    `json:"priority"`
	Exchange string `json:"exchange"`
}

// DoHResolver issues MX and TXT queries against a DNS-over-HTTPS JSON
// endpoint (dns.google style). It fails closed: any transport error,
// timeout or non-success resolver status comes back as an empty answer,
// so callers never block on resolver flakiness and never see an error.
type DoHResolver struct {
	endpoint string
	timeout  time.Duration
	client   *fasthttp.Client
}

func NewDoHResolver(endpoint string, timeout time.Duration) *DoHResolver {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &DoHResolver{
		endpoint: endpoint,
		timeout:  timeout,
		client: &fasthttp.Client{
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
	}
}

type dohAnswer struct {
	Data string `json:"data"`
}

type dohResponse struct {
	Status int         `json:"Status"`
	Answer []dohAnswer `json:"Answer"`
}

// LookupMX returns the domain's exchangers sorted ascending by priority
// with any trailing root dot stripped, or nil.
func (r *DoHResolver) LookupMX(domain string) []MXRecord {
	parsed := r.query(domain, "MX")
	if parsed == nil {
		return nil
	}
	var records []MXRecord
	for _, ans := range parsed.Answer {
		fields := strings.Fields(ans.Data)
		if len(fields) != 2 {
			continue
		}
		priority, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		records = append(records, MXRecord{
			Priority: priority,
			Exchange: strings.TrimSuffix(fields[1], "."),
		})
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Priority < records[j].Priority
	})
	return records
}

// LookupTXT returns the raw TXT strings for name, unquoted, or nil.
func (r *DoHResolver) LookupTXT(name string) []string {
	parsed := r.query(name, "TXT")
	if parsed == nil {
		return nil
	}
	var records []string
	for _, ans := range parsed.Answer {
		records = append(records, strings.Trim(ans.Data, `"`))
	}
	return records
}

func (r *DoHResolver) query(name, qtype string) *dohResponse {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(r.endpoint + "?name=" + url.QueryEscape(name) + "&type=" + qtype)
	req.Header.Set("Accept", "application/dns-json")

	if err := r.client.DoTimeout(req, resp, r.timeout); err != nil {
		return nil
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil
	}
	var parsed dohResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil
	}
	if parsed.Status != 0 {
		return nil
	}
	return &parsed
}
