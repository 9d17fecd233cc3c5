package proxy

import (
	"time"
)

// Config configures the pinning proxy
type Config struct {
	ListenAddr string

	// PinataJWT authenticates upstream pinning calls. Never sent to clients.
	PinataJWT string
	// PinataAPIURL is the pinning API base. Defaults to https://api.pinata.cloud
	PinataAPIURL string
	// Gateway is the gateway host downloads are fetched from. Defaults to gateway.pinata.cloud
	Gateway string

	// MaxUploadBytes caps the multipart body accepted by the upload endpoint.
	MaxUploadBytes int64
	// UpstreamTimeout bounds each upstream exchange.
	UpstreamTimeout time.Duration

	// RateLimitPerMinute and RateLimitBurst configure the per-client limiter. Zero disables it.
	RateLimitPerMinute int
	RateLimitBurst     int
}

// DefaultConfig returns the proxy defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:         ":8888",
		PinataAPIURL:       "https://api.pinata.cloud",
		Gateway:            "gateway.pinata.cloud",
		MaxUploadBytes:     100<<20 + 1<<20,
		UpstreamTimeout:    2 * time.Minute,
		RateLimitPerMinute: 60,
		RateLimitBurst:     10,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.PinataAPIURL == "" {
		c.PinataAPIURL = d.PinataAPIURL
	}
	if c.Gateway == "" {
		c.Gateway = d.Gateway
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.UpstreamTimeout == 0 {
		c.UpstreamTimeout = d.UpstreamTimeout
	}
}
