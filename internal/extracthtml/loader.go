package extracthtml

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"

	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/metrics"
)

// DefaultUserAgent is a browser-like agent; the source site rejects obvious bots.
const DefaultUserAgent = "Mozilla/5.0"

const maxErrorSnippet = 4096

// Input describes where HTML should come from.
type Input struct {
	// URL, if provided, is fetched via HTTP GET.
	URL string

	// Reader is used when URL is empty. If nil, it reads as empty.
	Reader io.Reader
}

// FetchError reports that the page could not be obtained: a transport
// failure (Err set) or a non-2xx response (StatusCode set).
type FetchError struct {
	URL        string
	StatusCode int
	Snippet    string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: http status %d: %s", e.URL, e.StatusCode, e.Snippet)
}

func (e *FetchError) Unwrap() error { return e.Err }

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	Timeout   time.Duration
	UserAgent string

	// HTTPClient replaces the transport used by resty. Nil uses a fresh client.
	HTTPClient *http.Client
}

// Loader fetches or reads HTML with a consistent timeout policy.
type Loader struct {
	client *resty.Client
}

// NewLoader creates a Loader. Zero Timeout means 30s.
func NewLoader(opts LoaderOptions) *Loader {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	var c *resty.Client
	if opts.HTTPClient != nil {
		c = resty.NewWithClient(opts.HTTPClient)
	} else {
		c = resty.New()
	}
	c.SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))

	return &Loader{client: c}
}

// Load returns the HTML source for either input.Reader (when input.URL is
// empty) or the fetched URL, decoded to UTF-8 using the response charset.
//
// Any failure to obtain a URL is returned as *FetchError. On non-2xx
// responses the error carries the status code and up to 4KB of the body.
func (l *Loader) Load(ctx context.Context, input Input) (string, error) {
	if strings.TrimSpace(input.URL) == "" {
		if input.Reader == nil {
			return "", nil
		}
		b, err := io.ReadAll(input.Reader)
		if err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return string(b), nil
	}
	return l.Fetch(ctx, input.URL)
}

// Fetch GETs url and returns its body as text.
func (l *Loader) Fetch(ctx context.Context, url string) (string, error) {
	start := time.Now()

	resp, err := l.client.R().SetContext(ctx).Get(url)
	if err != nil {
		observeHTTP("error", start)
		return "", &FetchError{URL: url, Err: err}
	}

	status := strconv.Itoa(resp.StatusCode())
	observeHTTP(status, start)

	body := resp.Body()
	if !resp.IsSuccess() {
		metrics.IncCounter("onsalebot_http_errors_total", 1, metrics.Labels{"status": status})
		snippet := body
		if len(snippet) > maxErrorSnippet {
			snippet = snippet[:maxErrorSnippet]
		}
		return "", &FetchError{
			URL:        url,
			StatusCode: resp.StatusCode(),
			Snippet:    strings.TrimSpace(string(snippet)),
		}
	}

	r, err := charset.NewReader(bytes.NewReader(body), resp.Header().Get("Content-Type"))
	if err != nil {
		// Unknown charset label: fall back to the raw bytes.
		return string(body), nil
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return "", &FetchError{URL: url, Err: fmt.Errorf("decode body: %w", err)}
	}
	return string(decoded), nil
}

func observeHTTP(status string, start time.Time) {
	labels := metrics.Labels{"status": status}
	metrics.IncCounter("onsalebot_http_requests_total", 1, labels)
	metrics.ObserveHistogram("onsalebot_http_request_duration_seconds", time.Since(start).Seconds(), labels)
}
