// Package lookup provides the read-only external lookup clients the
// evidence producers depend on: WHOIS registration data and web page
// fetching. Both are wrapped in circuit breakers and cache their results so
// repeated submissions of the same domain stay cheap; retries and backoff
// live here, never in the evaluation pipeline.
package lookup

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/verilayer/lavs/internal/domain"
)

const (
	ianaWhois    = "whois.iana.org:43"
	whoisPort    = "43"
	whoisCacheNS = "whois:"
)

// WhoisRecord is the subset of registration data the metadata producer uses.
type WhoisRecord struct {
	Domain    string    `json:"domain"`
	CreatedAt time.Time `json:"createdAt"`
	HasDate   bool      `json:"hasDate"`
}

// AgeDays returns the domain age in days, or -1 when no creation date was
// found.
func (r *WhoisRecord) AgeDays(now time.Time) int {
	if !r.HasDate {
		return -1
	}
	return int(now.Sub(r.CreatedAt).Hours() / 24)
}

// WhoisClient queries WHOIS servers over port 43 with an IANA referral hop.
type WhoisClient struct {
	cache    domain.Cache
	breaker  *gobreaker.CircuitBreaker
	timeout  time.Duration
	cacheTTL time.Duration

	// dial is swappable for tests.
	dial func(ctx context.Context, addr string) (net.Conn, error)
}

// NewWhoisClient creates a WHOIS client. The cache may be nil.
func NewWhoisClient(cache domain.Cache, timeout time.Duration) *WhoisClient {
	if timeout == 0 {
		timeout = 8 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "whois",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("whois breaker state change", "from", from.String(), "to", to.String())
		},
	})

	return &WhoisClient{
		cache:    cache,
		breaker:  breaker,
		timeout:  timeout,
		cacheTTL: 12 * time.Hour,
		dial: func(ctx context.Context, addr string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "tcp", addr)
		},
	}
}

// Lookup resolves registration data for the host of the given URL.
func (c *WhoisClient) Lookup(ctx context.Context, rawURL string) (*WhoisRecord, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("whois: cannot extract domain from %q", rawURL)
	}
	domainName := registrableDomain(u.Hostname())

	if c.cache != nil {
		if data, err := c.cache.Get(ctx, whoisCacheNS+domainName); err == nil && data != nil {
			var rec WhoisRecord
			if err := json.Unmarshal(data, &rec); err == nil {
				return &rec, nil
			}
		}
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.query(ctx, domainName)
	})
	if err != nil {
		return nil, err
	}
	rec := result.(*WhoisRecord)

	if c.cache != nil {
		if data, err := json.Marshal(rec); err == nil {
			_ = c.cache.Set(ctx, whoisCacheNS+domainName, data, c.cacheTTL)
		}
	}
	return rec, nil
}

// query asks IANA for the authoritative server, then that server for the
// record.
func (c *WhoisClient) query(ctx context.Context, domainName string) (*WhoisRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	referral, err := c.ask(ctx, ianaWhois, domainName)
	if err != nil {
		return nil, fmt.Errorf("whois: iana query failed: %w", err)
	}

	server := parseField(referral, "refer")
	body := referral
	if server != "" {
		if resp, err := c.ask(ctx, net.JoinHostPort(server, whoisPort), domainName); err == nil {
			body = resp
		}
	}

	rec := &WhoisRecord{Domain: domainName}
	if created := parseCreationDate(body); !created.IsZero() {
		rec.CreatedAt = created
		rec.HasDate = true
	}
	return rec, nil
}

func (c *WhoisClient) ask(ctx context.Context, addr, query string) (string, error) {
	conn, err := c.dial(ctx, addr)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := fmt.Fprintf(conn, "%s\r\n", query); err != nil {
		return "", err
	}

	var sb strings.Builder
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		sb.WriteString(scanner.Text())
		sb.WriteByte('\n')
	}
	return sb.String(), scanner.Err()
}

// parseField extracts "key: value" from a WHOIS response, case-insensitive.
func parseField(body, key string) string {
	for _, line := range strings.Split(body, "\n") {
		k, v, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(k), key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// creationKeys covers the registration-date spellings used by common
// registries.
var creationKeys = []string{"Creation Date", "created", "Registered on", "registration date"}

var whoisDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
}

func parseCreationDate(body string) time.Time {
	for _, key := range creationKeys {
		raw := parseField(body, key)
		if raw == "" {
			continue
		}
		raw = strings.Fields(raw)[0]
		for _, layout := range whoisDateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// registrableDomain trims subdomains down to the last two labels. Good
// enough for WHOIS routing without carrying a public-suffix table.
func registrableDomain(host string) string {
	parts := strings.Split(host, ".")
	if len(parts) <= 2 {
		return host
	}
	return strings.Join(parts[len(parts)-2:], ".")
}
