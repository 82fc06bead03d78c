// Package config loads the bot configuration.
//
// Sources, lowest precedence first:
//
//  1. built-in defaults (Default)
//  2. the YAML file given with --config (JSON is valid YAML)
//  3. <name>.local.<ext> next to it, if present
//  4. environment variables (see applyEnv), optionally seeded from .env
//
// ${VAR} references inside the files are expanded before parsing, so DSNs
// and webhook URLs can stay out of version control.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/extracthtml"
	"github.com/gaultpeter/chelsea-on-sale-date-bot/internal/storage"
)

const DefaultSourceURL = "https://www.chelseafc.com/en/all-on-sale-dates-men"

type Config struct {
	Source   Source         `yaml:"source"`
	Monitor  Monitor        `yaml:"monitor"`
	Notify   Notify         `yaml:"notify"`
	Storage  storage.Config `yaml:"storage"`
	Metrics  Metrics        `yaml:"metrics"`
	Schedule Schedule       `yaml:"schedule"`
	HTTP     HTTP           `yaml:"http"`
}

// Source is the page being watched.
type Source struct {
	URL       string                     `yaml:"url"`
	Timeout   time.Duration              `yaml:"timeout"`
	UserAgent string                     `yaml:"user_agent"`
	Extract   extracthtml.ExtractOptions `yaml:"extract"`
}

type Monitor struct {
	// SkipHeaders lists extra header fragments to drop, matched
	// case-insensitively. Tables headed "away" are always dropped.
	SkipHeaders []string `yaml:"skip_headers"`
}

type Notify struct {
	Kind          string        `yaml:"kind"` // discord | webhook | log
	WebhookURL    string        `yaml:"webhook_url"`
	Username      string        `yaml:"username"`
	MentionUserID string        `yaml:"mention_user_id"`
	Timeout       time.Duration `yaml:"timeout"`
	OmitPageURL   bool          `yaml:"omit_page_url"`

	// HoldStateOnFailure skips persisting a row whose notification failed,
	// so the next run reports it again.
	HoldStateOnFailure bool `yaml:"hold_state_on_failure"`
}

type Metrics struct {
	Backend    string        `yaml:"backend"` // none | datadog
	JobName    string        `yaml:"job_name"`
	Tags       []string      `yaml:"tags"`
	FlushEvery time.Duration `yaml:"flush_every"`
}

type Schedule struct {
	// Cron is a standard 5-field spec or a descriptor such as "@every 10m".
	Cron string `yaml:"cron"`
	// RunOnStart performs one run as soon as the scheduler starts.
	RunOnStart bool `yaml:"run_on_start"`
}

type HTTP struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Source: Source{
			URL:       DefaultSourceURL,
			Timeout:   30 * time.Second,
			UserAgent: extracthtml.DefaultUserAgent,
			Extract:   extracthtml.DefaultExtractOptions(),
		},
		Notify:   Notify{Kind: "discord", Timeout: 10 * time.Second},
		Storage:  storage.Config{Kind: "sqlite", DSN: "onsalebot.db", Table: storage.DefaultTable},
		Metrics:  Metrics{Backend: "none", JobName: "onsalebot", FlushEvery: time.Minute},
		Schedule: Schedule{Cron: "*/15 * * * *"},
		HTTP:     HTTP{Addr: ":8080"},
	}
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load builds the effective configuration. path may be empty, in which case
// only defaults and the environment apply.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	var cfg Config

	if path != "" {
		if err := decodeFile(path, &cfg, lookup); err != nil {
			return Config{}, err
		}

		var local Config
		lp := localPath(path)
		err := decodeFile(lp, &local, lookup)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, err
		default:
			if err := mergo.Merge(&cfg, local, mergo.WithOverride); err != nil {
				return Config{}, fmt.Errorf("merge %s: %w", lp, err)
			}
		}
	}

	applyEnv(&cfg, lookup)

	if err := mergo.Merge(&cfg, Default()); err != nil {
		return Config{}, fmt.Errorf("apply defaults: %w", err)
	}
	return cfg, nil
}

func decodeFile(path string, out *Config, lookup func(string) (string, bool)) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	expanded := os.Expand(string(raw), func(k string) string {
		v, _ := lookup(k)
		return v
	})

	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// localPath maps "configs/bot.yaml" to "configs/bot.local.yaml".
func localPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

// applyEnv overrides file values with the environment. Secrets normally
// arrive this way.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	set("ONSALEBOT_URL", &cfg.Source.URL)
	set("DISCORD_WEBHOOK_URL", &cfg.Notify.WebhookURL)
	set("DISCORD_USER_ID", &cfg.Notify.MentionUserID)
	set("ONSALEBOT_NOTIFY_KIND", &cfg.Notify.Kind)
	set("ONSALEBOT_STORAGE", &cfg.Storage.Kind)
	set("ONSALEBOT_DSN", &cfg.Storage.DSN)
	set("METRICS_BACKEND", &cfg.Metrics.Backend)
	set("ONSALEBOT_CRON", &cfg.Schedule.Cron)
	set("ONSALEBOT_ADDR", &cfg.HTTP.Addr)

	if v, ok := lookup("PORT"); ok && strings.TrimSpace(v) != "" && cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":" + strings.TrimSpace(v)
	}
	if v, ok := lookup("METRICS_TAGS"); ok && strings.TrimSpace(v) != "" {
		cfg.Metrics.Tags = nil
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				cfg.Metrics.Tags = append(cfg.Metrics.Tags, t)
			}
		}
	}
}
