// Package webhook posts messages as JSON to any Discord-compatible webhook
// endpoint: {"content": "...", "username": "..."}.
package webhook

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/notify"
)

const maxBodySnippet = 1024

func init() {
	notify.Register("webhook", func(cfg notify.Config) (notify.Notifier, error) {
		return New(cfg, nil)
	})
}

type payload struct {
	Content  string `json:"content"`
	Username string `json:"username,omitempty"`
}

// Notifier posts to one URL.
type Notifier struct {
	client   *resty.Client
	url      string
	username string
}

// New returns a Notifier for cfg.WebhookURL. hc replaces the HTTP client when
// non-nil. A blank URL yields notify.ErrNotConfigured.
func New(cfg notify.Config, hc *http.Client) (*Notifier, error) {
	url := strings.TrimSpace(cfg.WebhookURL)
	if url == "" {
		return nil, notify.ErrNotConfigured
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	var c *resty.Client
	if hc != nil {
		c = resty.NewWithClient(hc)
	} else {
		c = resty.New()
	}
	c.SetTimeout(cfg.Timeout).SetHeader("Content-Type", "application/json")

	return &Notifier{client: c, url: url, username: cfg.Username}, nil
}

func (n *Notifier) Notify(ctx context.Context, msg string) error {
	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(payload{Content: msg, Username: n.username}).
		Post(n.url)
	if err != nil {
		return &notify.DeliveryError{Target: notify.RedactURL(n.url), Err: err}
	}
	if !resp.IsSuccess() {
		body := resp.Body()
		if len(body) > maxBodySnippet {
			body = body[:maxBodySnippet]
		}
		return &notify.DeliveryError{
			Target:     notify.RedactURL(n.url),
			StatusCode: resp.StatusCode(),
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return nil
}
