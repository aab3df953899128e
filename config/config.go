package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment.
type Config struct {
	DatabaseURL    string `env:"DATABASE_URL"`
	ListenAddr     string `env:"LISTEN_ADDR" envDefault:":5300"`
	ServiceToken   string `env:"ARENA_SERVICE_TOKEN"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000"`

	NarrativeAPIKey        string        `env:"NARRATIVE_API_KEY"`
	NarrativeBaseURL       string        `env:"NARRATIVE_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	NarrativeModel         string        `env:"NARRATIVE_MODEL" envDefault:"gemini-2.5-flash"`
	NarrativeTimeout       time.Duration `env:"NARRATIVE_TIMEOUT" envDefault:"3s"`
	NarrativeTemplatesPath string        `env:"NARRATIVE_TEMPLATES_PATH"`

	RoundInitialDelay      time.Duration `env:"ROUND_INITIAL_DELAY" envDefault:"3s"`
	RoundMinDelay          time.Duration `env:"ROUND_MIN_DELAY" envDefault:"60s"`
	RoundMaxDelay          time.Duration `env:"ROUND_MAX_DELAY" envDefault:"180s"`
	RoundDelayStep         time.Duration `env:"ROUND_DELAY_STEP" envDefault:"5s"`
	ActivationPollInterval time.Duration `env:"ACTIVATION_POLL_INTERVAL" envDefault:"15s"`
	RNGSeed                uint64        `env:"RNG_SEED"`

	R2 R2Config

	ProfileSyncURL      string        `env:"PROFILE_SYNC_URL"`
	ProfileSyncPath     string        `env:"PROFILE_SYNC_PATH" envDefault:"/api/v1/public/profiles"`
	ProfileSyncToken    string        `env:"PROFILE_SYNC_TOKEN"`
	ProfileSyncInterval time.Duration `env:"PROFILE_SYNC_INTERVAL" envDefault:"1m"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`
	OTelEnabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`
}

// R2Config holds the Cloudflare R2 credentials used for battle archives.
type R2Config struct {
	AccountID       string `env:"CLOUDFLARE_ACCOUNT_ID"`
	AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	AccessKeySecret string `env:"R2_ACCESS_KEY_SECRET"`
	Bucket          string `env:"R2_BUCKET_NAME"`
	CDNBaseURL      string `env:"CDN_BASE_URL"`
}

// Enabled reports whether every credential needed for uploads is present.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.Bucket != ""
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}
	return Parse()
}

// Parse reads the environment into a Config without touching .env files.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.RoundMinDelay <= 0 || c.RoundMaxDelay <= 0 {
		return fmt.Errorf("round delays must be positive (min %s, max %s)", c.RoundMinDelay, c.RoundMaxDelay)
	}
	if c.RoundMinDelay > c.RoundMaxDelay {
		return fmt.Errorf("ROUND_MIN_DELAY %s exceeds ROUND_MAX_DELAY %s", c.RoundMinDelay, c.RoundMaxDelay)
	}
	if c.RoundInitialDelay < 0 || c.RoundDelayStep < 0 {
		return fmt.Errorf("ROUND_INITIAL_DELAY and ROUND_DELAY_STEP must not be negative")
	}
	if c.ActivationPollInterval <= 0 {
		return fmt.Errorf("ACTIVATION_POLL_INTERVAL must be positive")
	}
	return nil
}

// Origins splits ALLOWED_ORIGINS and trims each entry.
func (c *Config) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NarrativeEnabled reports whether a narrative provider should be wired.
func (c *Config) NarrativeEnabled() bool {
	return c.NarrativeAPIKey != ""
}

// ProfileSyncEnabled reports whether the profile sync worker should run.
func (c *Config) ProfileSyncEnabled() bool {
	return c.ProfileSyncURL != "" && c.ProfileSyncToken != ""
}
