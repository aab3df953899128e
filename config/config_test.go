package config

import (
	"strings"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.ListenAddr != ":5300" {
		t.Fatalf("listen addr = %q, want :5300", cfg.ListenAddr)
	}
	if cfg.RoundInitialDelay != 3*time.Second {
		t.Fatalf("initial delay = %s, want 3s", cfg.RoundInitialDelay)
	}
	if cfg.RoundMinDelay != 60*time.Second || cfg.RoundMaxDelay != 180*time.Second {
		t.Fatalf("delays = %s..%s, want 1m0s..3m0s", cfg.RoundMinDelay, cfg.RoundMaxDelay)
	}
	if cfg.RoundDelayStep != 5*time.Second {
		t.Fatalf("step = %s, want 5s", cfg.RoundDelayStep)
	}
	if cfg.NarrativeModel != "gemini-2.5-flash" {
		t.Fatalf("model = %q", cfg.NarrativeModel)
	}
	if cfg.NarrativeTimeout != 3*time.Second {
		t.Fatalf("narrative timeout = %s, want 3s", cfg.NarrativeTimeout)
	}
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("ROUND_MIN_DELAY", "10s")
	t.Setenv("ROUND_MAX_DELAY", "20s")
	t.Setenv("RNG_SEED", "42")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("R2_BUCKET_NAME", "arena")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.ListenAddr != ":9000" || cfg.RNGSeed != 42 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.RoundMinDelay != 10*time.Second || cfg.RoundMaxDelay != 20*time.Second {
		t.Fatalf("delays = %s..%s", cfg.RoundMinDelay, cfg.RoundMaxDelay)
	}
	origins := cfg.Origins()
	if len(origins) != 2 || origins[0] != "https://a.example" || origins[1] != "https://b.example" {
		t.Fatalf("origins = %v", origins)
	}
	if cfg.R2.Bucket != "arena" {
		t.Fatalf("bucket = %q", cfg.R2.Bucket)
	}
	if cfg.R2.Enabled() {
		t.Fatal("R2 enabled with only a bucket")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad duration", map[string]string{"ROUND_MIN_DELAY": "soon"}, "parse env:"},
		{"min above max", map[string]string{"ROUND_MIN_DELAY": "5m", "ROUND_MAX_DELAY": "1m"}, "exceeds"},
		{"zero poll", map[string]string{"ACTIVATION_POLL_INTERVAL": "0s"}, "ACTIVATION_POLL_INTERVAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Parse()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestFeatureToggles(t *testing.T) {
	cfg := &Config{}
	if cfg.NarrativeEnabled() || cfg.ProfileSyncEnabled() {
		t.Fatal("features enabled on an empty config")
	}
	cfg.NarrativeAPIKey = "key"
	cfg.ProfileSyncURL = "http://profiles"
	cfg.ProfileSyncToken = "token"
	if !cfg.NarrativeEnabled() || !cfg.ProfileSyncEnabled() {
		t.Fatal("features not enabled")
	}
}
