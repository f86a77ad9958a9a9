package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/verilayer/lavs/internal/domain"
)

const (
	fetchCacheNS = "page:"
	maxBodyBytes = 2 << 20 // 2 MiB of HTML is plenty for structure analysis
)

// PageResult captures everything the web pattern producer needs from one
// fetch: the body for DOM/linguistic analysis plus the transport-level
// signals (redirect chain, TLS expiry).
type PageResult struct {
	URL         string `json:"url"`
	StatusCode  int    `json:"statusCode"`
	Body        []byte `json:"body"`
	Redirects   int    `json:"redirects"`
	TLSDaysLeft int    `json:"tlsDaysLeft"` // -1 when no TLS state was observed
}

// Fetcher retrieves web pages with redirect tracking and a circuit breaker.
type Fetcher struct {
	client   *http.Client
	cache    domain.Cache
	breaker  *gobreaker.CircuitBreaker
	cacheTTL time.Duration
}

// NewFetcher creates a page fetcher. The cache may be nil.
func NewFetcher(cache domain.Cache, timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = 8 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "page-fetch",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("page fetch breaker state change", "from", from.String(), "to", to.String())
		},
	})

	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		cache:    cache,
		breaker:  breaker,
		cacheTTL: 5 * time.Minute,
	}
}

// Fetch retrieves a page, following redirects and recording how many hops it
// took.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*PageResult, error) {
	if f.cache != nil {
		if data, err := f.cache.Get(ctx, fetchCacheNS+rawURL); err == nil && data != nil {
			var res PageResult
			if err := json.Unmarshal(data, &res); err == nil {
				return &res, nil
			}
		}
	}

	result, err := f.breaker.Execute(func() (any, error) {
		return f.fetch(ctx, rawURL)
	})
	if err != nil {
		return nil, err
	}
	res := result.(*PageResult)

	if f.cache != nil {
		if data, err := json.Marshal(res); err == nil {
			_ = f.cache.Set(ctx, fetchCacheNS+rawURL, data, f.cacheTTL)
		}
	}
	return res, nil
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) (*PageResult, error) {
	redirects := 0
	client := *f.client
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		redirects = len(via)
		if len(via) >= 10 {
			return http.ErrUseLastResponse
		}
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: invalid url %q: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", "lavs-verifier/1.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("fetch: reading body: %w", err)
	}

	tlsDays := -1
	if resp.TLS != nil && len(resp.TLS.PeerCertificates) > 0 {
		tlsDays = int(time.Until(resp.TLS.PeerCertificates[0].NotAfter).Hours() / 24)
	}

	return &PageResult{
		URL:         rawURL,
		StatusCode:  resp.StatusCode,
		Body:        body,
		Redirects:   redirects,
		TLSDaysLeft: tlsDays,
	}, nil
}
