package main

import (
	"flag"
	"testing"
	"time"

	"github.com/DeBrosOfficial/chainfiles/pkg/logging"
)

func TestParseProxyConfig(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		args      []string
		wantAddr  string
		wantRate  int
		wantJWT   string
		wantLimit time.Duration
	}{
		{
			name:      "defaults",
			wantAddr:  ":8888",
			wantRate:  60,
			wantLimit: 2 * time.Minute,
		},
		{
			name:      "env",
			env:       map[string]string{"CF_PROXY_ADDR": ":9000", "CF_PROXY_RATE_PER_MINUTE": "5", "PINATA_JWT": "secret", "CF_PROXY_TIMEOUT": "30s"},
			wantAddr:  ":9000",
			wantRate:  5,
			wantJWT:   "secret",
			wantLimit: 30 * time.Second,
		},
		{
			name:      "flags beat env",
			env:       map[string]string{"CF_PROXY_ADDR": ":9000", "CF_PROXY_RATE_PER_MINUTE": "bogus"},
			args:      []string{"-addr", ":7000", "-timeout", "5s"},
			wantAddr:  ":7000",
			wantRate:  60,
			wantLimit: 5 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"CF_PROXY_ADDR", "CF_PROXY_RATE_PER_MINUTE", "PINATA_JWT", "CF_PROXY_TIMEOUT"} {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			fs := flag.NewFlagSet("cf-proxy", flag.ContinueOnError)
			cfg, err := parseProxyConfig(fs, tt.args, logging.NewNopLogger())
			if err != nil {
				t.Fatal(err)
			}
			if cfg.ListenAddr != tt.wantAddr {
				t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, tt.wantAddr)
			}
			if cfg.RateLimitPerMinute != tt.wantRate {
				t.Errorf("RateLimitPerMinute = %d, want %d", cfg.RateLimitPerMinute, tt.wantRate)
			}
			if cfg.PinataJWT != tt.wantJWT {
				t.Errorf("PinataJWT = %q, want %q", cfg.PinataJWT, tt.wantJWT)
			}
			if cfg.UpstreamTimeout != tt.wantLimit {
				t.Errorf("UpstreamTimeout = %v, want %v", cfg.UpstreamTimeout, tt.wantLimit)
			}
		})
	}
}
