// Package config defines all configuration for the weather-arbitrage
// trader. Config is loaded from a YAML file (default: configs/config.yaml)
// with sensitive fields overridable via WX_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	DryRun     bool             `mapstructure:"dry_run"`
	Feed       FeedConfig       `mapstructure:"feed"`
	Submission SubmissionConfig `mapstructure:"submission"`
	Dispatcher DispatcherConfig `mapstructure:"dispatcher"`
	Store      StoreConfig      `mapstructure:"store"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Dashboard  DashboardConfig  `mapstructure:"dashboard"`
}

// FeedConfig points at the recovery snapshot endpoint and the live
// WebSocket feed the replay engine ingests from.
//
//   - RecoveryURL:  GET endpoint returning the ordered JSON array of
//     messages needed to rebuild every open book before live traffic
//     is trusted.
//   - LiveURL:      WebSocket endpoint streaming one JSON-tagged
//     message per frame, strictly sequenced.
//   - ObservationURL: optional read-only endpoint used only for the
//     diagnostic station-reading check logged at settlement; never feeds
//     the replay engine.
type FeedConfig struct {
	RecoveryURL    string `mapstructure:"recovery_url"`
	LiveURL        string `mapstructure:"live_url"`
	ObservationURL string `mapstructure:"observation_url"`
}

// SubmissionConfig holds the execution endpoint and credentials used to
// place IOC orders. Username/Password are overridable via env because
// they're sensitive; they are never written back to the config file.
type SubmissionConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// DispatcherConfig tunes the arbitrage search and the basket gate.
//
//   - EpsilonCents: minimum edge (in cents, i.e. hundredths of a price
//     unit, the same fixed-point scale as Price) a crossing basket must
//     clear before it's considered worth firing. Covers fees and slippage.
//   - PositionLimit: validated, logged at startup and shown on the
//     dashboard. The dispatcher's gate does not read it; it applies its
//     own fixed dispatcher.PositionLimit (1000).
//   - SubmissionTimeout: validated and shown on the dashboard. The
//     dispatcher does not read it; each submission runs under a fixed
//     5s deadline.
type DispatcherConfig struct {
	EpsilonCents      int64         `mapstructure:"epsilon_cents"`
	PositionLimit     int64         `mapstructure:"position_limit"`
	SubmissionTimeout time.Duration `mapstructure:"submission_timeout"`
}

// StoreConfig sets where diagnostic snapshots (sequence number, book
// positions) are persisted. Never read back into replay state at
// startup — recovery always comes from the recovery endpoint.
type StoreConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DashboardConfig controls the web dashboard server.
type DashboardConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: WX_SUBMISSION_USERNAME, WX_SUBMISSION_PASSWORD.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("WX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if user := os.Getenv("WX_SUBMISSION_USERNAME"); user != "" {
		cfg.Submission.Username = user
	}
	if pass := os.Getenv("WX_SUBMISSION_PASSWORD"); pass != "" {
		cfg.Submission.Password = pass
	}
	if os.Getenv("WX_DRY_RUN") == "true" || os.Getenv("WX_DRY_RUN") == "1" {
		cfg.DryRun = true
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Feed.RecoveryURL == "" {
		return fmt.Errorf("feed.recovery_url is required")
	}
	if c.Feed.LiveURL == "" {
		return fmt.Errorf("feed.live_url is required")
	}
	if c.Submission.URL == "" {
		return fmt.Errorf("submission.url is required")
	}
	if c.Submission.Username == "" {
		return fmt.Errorf("submission.username is required (set WX_SUBMISSION_USERNAME)")
	}
	if c.Submission.Password == "" {
		return fmt.Errorf("submission.password is required (set WX_SUBMISSION_PASSWORD)")
	}
	if c.Dispatcher.PositionLimit <= 0 {
		return fmt.Errorf("dispatcher.position_limit must be > 0")
	}
	if c.Dispatcher.EpsilonCents < 0 {
		return fmt.Errorf("dispatcher.epsilon_cents must be >= 0")
	}
	if c.Dispatcher.SubmissionTimeout <= 0 {
		return fmt.Errorf("dispatcher.submission_timeout must be > 0")
	}
	return nil
}
