package commands

import (
	"errors"
	"io/fs"
	"log/slog"
	"time"

	"karmagrab/internal/components/telemetry"
	"karmagrab/internal/scrapers/leprosorium"
	"karmagrab/pkg/configutil"
)

const configName = "karmagrab.json5"

type Config struct {
	Origin      string `json:"origin"`
	UserAgent   string `json:"user_agent"`
	ProfilePath string `json:"profile_path"`
	VotesPath   string `json:"votes_path"`

	TimeoutSeconds int `json:"timeout_seconds"`
	// RequestsPerSecond paces requests, negative disables pacing.
	RequestsPerSecond float64 `json:"requests_per_second"`
	CloudflareBypass  bool    `json:"cloudflare_bypass"`

	VotePolicy             string `json:"vote_policy"`
	StopOnUnexpectedStatus *bool  `json:"stop_on_unexpected_status"`

	// DumpHttpDir receives a file per http exchange when set.
	DumpHttpDir string               `json:"dump_http_dir"`
	Otlp        telemetry.OtlpConfig `json:"otlp"`
}

// withDefaults fills in every value the configuration left out.
func (c Config) withDefaults() Config {
	if c.Origin == "" {
		c.Origin = leprosorium.DefaultOrigin
	}
	if c.UserAgent == "" {
		c.UserAgent = leprosorium.DefaultUserAgent
	}
	if c.ProfilePath == "" {
		c.ProfilePath = leprosorium.DefaultProfilePath
	}
	if c.VotesPath == "" {
		c.VotesPath = leprosorium.DefaultVotesPath
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = int(leprosorium.DefaultTimeout / time.Second)
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = 2
	}
	if c.VotePolicy == "" {
		c.VotePolicy = string(leprosorium.VotePolicyOverwrite)
	}
	if c.StopOnUnexpectedStatus == nil {
		stop := true
		c.StopOnUnexpectedStatus = &stop
	}
	return c
}

func (c Config) timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// loadConfig reads `path` if given, otherwise the closest karmagrab.json5 in the
// working directory or its parents. Having no configuration at all is fine.
func loadConfig(path string) (Config, error) {
	var cfg Config
	var err error
	if path != "" {
		cfg, err = configutil.ReadConfig[Config](path)
	} else {
		cfg, err = configutil.ReadRecursively[Config](configName)
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("no configuration file found, using defaults", "name", configName)
			return cfg.withDefaults(), nil
		}
	}
	if err != nil {
		return Config{}, err
	}
	return cfg.withDefaults(), nil
}
