package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/storage"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding. Path is the YAML path of the field.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

var (
	notifyKinds  = []string{"discord", "webhook", "log"}
	storageKinds = []string{"sqlite", "postgres", "mssql", "memory"}
	metricKinds  = []string{"none", "datadog"}
)

// Validate checks cfg and returns every issue found; it never stops at the
// first one. Any SeverityError makes the config unusable.
func Validate(cfg Config) []Issue {
	var out []Issue
	add := func(sev Severity, path, format string, args ...any) {
		out = append(out, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	// source
	if u, err := url.Parse(cfg.Source.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add(SeverityError, "source.url", "must be an absolute http(s) URL, got %q", cfg.Source.URL)
	}
	if cfg.Source.Timeout <= 0 {
		add(SeverityError, "source.timeout", "must be positive")
	}
	if strings.TrimSpace(cfg.Source.Extract.ContainerSelector) == "" {
		add(SeverityError, "source.extract.container_selector", "must not be empty")
	}

	// monitor
	for i, h := range cfg.Monitor.SkipHeaders {
		if strings.TrimSpace(h) == "" {
			add(SeverityError, fmt.Sprintf("monitor.skip_headers[%d]", i), "blank entry would skip every table")
		}
	}

	// notify
	switch {
	case !oneOf(cfg.Notify.Kind, notifyKinds):
		add(SeverityError, "notify.kind", "unsupported %q (want one of %s)", cfg.Notify.Kind, strings.Join(notifyKinds, ", "))
	case cfg.Notify.Kind != "log" && strings.TrimSpace(cfg.Notify.WebhookURL) == "":
		add(SeverityError, "notify.webhook_url", "webhook URL not set (set DISCORD_WEBHOOK_URL)")
	}
	if id := cfg.Notify.MentionUserID; id != "" && !allDigits(id) {
		add(SeverityWarning, "notify.mention_user_id", "%q is not a Discord user id; the mention will not ping", id)
	}
	if cfg.Notify.HoldStateOnFailure {
		add(SeverityWarning, "notify.hold_state_on_failure", "failed notifications are retried every run until they succeed")
	}

	// storage
	switch {
	case !oneOf(cfg.Storage.Kind, storageKinds):
		add(SeverityError, "storage.kind", "unsupported %q (want one of %s)", cfg.Storage.Kind, strings.Join(storageKinds, ", "))
	case cfg.Storage.Kind == "memory":
		add(SeverityWarning, "storage.kind", "memory state is lost on exit; every restart reports all rows as new")
	case strings.TrimSpace(cfg.Storage.DSN) == "":
		add(SeverityError, "storage.dsn", "must not be empty for kind %q", cfg.Storage.Kind)
	}
	if !storage.ValidTableName(cfg.Storage.TableName()) {
		add(SeverityError, "storage.table", "invalid table name %q", cfg.Storage.Table)
	}

	// metrics
	if !oneOf(cfg.Metrics.Backend, metricKinds) {
		add(SeverityError, "metrics.backend", "unsupported %q (want one of %s)", cfg.Metrics.Backend, strings.Join(metricKinds, ", "))
	} else if cfg.Metrics.Backend == "datadog" && os.Getenv("DD_API_KEY") == "" {
		add(SeverityWarning, "metrics.backend", "DD_API_KEY is not set; submissions will be rejected")
	}

	// schedule
	if _, err := cron.ParseStandard(cfg.Schedule.Cron); err != nil {
		add(SeverityError, "schedule.cron", "%v", err)
	}

	return out
}

// HasErrors reports whether issues contains a SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
