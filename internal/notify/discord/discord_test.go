package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/notify"
)

// rewrite sends every request to a test server, keeping the path.
type rewrite struct{ target *url.URL }

func (r rewrite) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = r.target.Scheme
	req.URL.Host = r.target.Host
	req.Host = r.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func newTestNotifier(t *testing.T, h http.Handler) *Notifier {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	target, err := url.Parse(srv.URL)
	require.NoError(t, err)

	n, err := New(notify.Config{WebhookURL: "https://discord.com/api/webhooks/123/tok", Username: "On-Sale Bot"})
	require.NoError(t, err)
	n.session.Client = &http.Client{Transport: rewrite{target: target}}
	n.session.MaxRestRetries = 0
	return n
}

func TestParseWebhookURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		in        string
		id, token string
		wantErr   bool
	}{
		{name: "discord", in: "https://discord.com/api/webhooks/123/abc-DEF", id: "123", token: "abc-DEF"},
		{name: "versioned", in: "https://discordapp.com/api/v10/webhooks/9/t/", id: "9", token: "t"},
		{name: "query ignored", in: "https://ptb.discord.com/api/webhooks/1/2?wait=true", id: "1", token: "2"},
		{name: "missing token", in: "https://discord.com/api/webhooks/123", wantErr: true},
		{name: "not a webhook", in: "https://discord.com/channels/1/2", wantErr: true},
		{name: "bad scheme", in: "ftp://discord.com/api/webhooks/1/2", wantErr: true},
		{name: "canary upper", in: "https://Canary.Discord.com/api/webhooks/5/x", id: "5", token: "x"},
		{name: "other host", in: "https://hooks.example.test/api/webhooks/1/2", wantErr: true},
		{name: "lookalike host", in: "https://notdiscord.com/api/webhooks/1/2", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			id, token, err := parseWebhookURL(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.id, id)
			require.Equal(t, tt.token, token)
		})
	}
}

func TestNew_RejectsOtherHosts(t *testing.T) {
	t.Parallel()

	_, err := New(notify.Config{WebhookURL: "https://hooks.example.test/api/webhooks/1/2"})
	require.ErrorContains(t, err, `use notify kind "webhook"`)
}

func TestNew_RequiresURL(t *testing.T) {
	t.Parallel()

	_, err := notify.New(notify.Config{Kind: "discord"})
	require.ErrorIs(t, err, notify.ErrNotConfigured)
}

func TestNotify_ExecutesWebhook(t *testing.T) {
	t.Parallel()

	type request struct {
		path string
		body map[string]any
	}
	got := make(chan request, 1)
	n := newTestNotifier(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := request{path: r.URL.Path}
		_ = json.NewDecoder(r.Body).Decode(&req.body)
		got <- req
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, n.Notify(context.Background(), "🎟️ **Home** · New on-sale entry <@42>"))

	req := <-got
	require.True(t, strings.HasSuffix(req.path, "/webhooks/123/tok"), req.path)
	require.Equal(t, "🎟️ **Home** · New on-sale entry <@42>", req.body["content"])
	require.Equal(t, "On-Sale Bot", req.body["username"])
	mentions, ok := req.body["allowed_mentions"].(map[string]any)
	require.True(t, ok, "allowed_mentions missing: %v", req.body)
	require.Equal(t, []any{"users"}, mentions["parse"])
}

func TestNotify_RejectedIsDeliveryError(t *testing.T) {
	t.Parallel()

	n := newTestNotifier(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message": "Cannot send an empty message", "code": 50006}`))
	}))

	err := n.Notify(context.Background(), "")
	var de *notify.DeliveryError
	require.ErrorAs(t, err, &de)
	require.Equal(t, http.StatusBadRequest, de.StatusCode)
	require.Contains(t, de.Body, "Cannot send an empty message")
	require.NotContains(t, de.Error(), "tok")
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	require.Equal(t, "abc", truncate("abc", 3))
	require.Equal(t, "ab…", truncate("abcd", 3))
	require.Equal(t, "éé…", truncate("éééé", 3))
}
