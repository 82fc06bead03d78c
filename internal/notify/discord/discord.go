// Package discord delivers messages through a Discord channel webhook.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/notify"
)

// Discord rejects content longer than this.
const maxContentRunes = 2000

func init() {
	notify.Register("discord", func(cfg notify.Config) (notify.Notifier, error) {
		return New(cfg)
	})
}

// Notifier executes one webhook. It needs no bot token; the webhook token in
// the URL authorizes the call.
type Notifier struct {
	session  *discordgo.Session
	id       string
	token    string
	username string
}

// New parses cfg.WebhookURL and prepares a REST-only discordgo session.
func New(cfg notify.Config) (*Notifier, error) {
	raw := strings.TrimSpace(cfg.WebhookURL)
	if raw == "" {
		return nil, notify.ErrNotConfigured
	}
	id, token, err := parseWebhookURL(raw)
	if err != nil {
		return nil, err
	}

	s, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("discord: new session: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	s.Client = &http.Client{Timeout: cfg.Timeout}

	return &Notifier{session: s, id: id, token: token, username: cfg.Username}, nil
}

func (n *Notifier) Notify(ctx context.Context, msg string) error {
	params := &discordgo.WebhookParams{
		Content:  truncate(msg, maxContentRunes),
		Username: n.username,
		// Only explicit user mentions ping; page text can't trigger @everyone.
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
		},
	}

	_, err := n.session.WebhookExecute(n.id, n.token, false, params, discordgo.WithContext(ctx))
	if err == nil {
		return nil
	}

	de := &notify.DeliveryError{Target: "discord webhook " + n.id, Err: err}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		de.StatusCode = rest.Response.StatusCode
		de.Body = strings.TrimSpace(string(rest.ResponseBody))
	}
	return de
}

// parseWebhookURL extracts id and token from
// https://discord.com/api/webhooks/<id>/<token> (optional /v<n>).
//
// discordgo always posts to discord.com, so other hosts are rejected rather
// than silently ignored.
func parseWebhookURL(raw string) (id, token string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("discord: parse webhook url: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return "", "", fmt.Errorf("discord: webhook url must be http(s), got %q", u.Scheme)
	}
	if !isDiscordHost(u.Hostname()) {
		return "", "", fmt.Errorf("discord: webhook host %q is not Discord; use notify kind \"webhook\" for other endpoints", u.Hostname())
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, p := range parts {
		if p == "webhooks" && i+2 < len(parts) {
			id, token = parts[i+1], parts[i+2]
			break
		}
	}
	if id == "" || token == "" {
		return "", "", fmt.Errorf("discord: webhook url has no /webhooks/<id>/<token> path")
	}
	return id, token, nil
}

func isDiscordHost(host string) bool {
	host = strings.ToLower(host)
	for _, d := range []string{"discord.com", "discordapp.com"} {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
