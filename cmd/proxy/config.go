package main

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/DeBrosOfficial/chainfiles/pkg/logging"
	"github.com/DeBrosOfficial/chainfiles/pkg/proxy"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvDurationDefault(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// parseProxyConfig parses flags and environment variables into proxy.Config.
// Priority: flags > env (.env included) > defaults.
func parseProxyConfig(fs *flag.FlagSet, args []string, logger *logging.ColoredLogger) (proxy.Config, error) {
	// a missing .env is fine; real env vars win over it
	_ = godotenv.Load()

	d := proxy.DefaultConfig()
	addr := fs.String("addr", getEnvDefault("CF_PROXY_ADDR", d.ListenAddr), "HTTP listen address (e.g., :8888)")
	apiURL := fs.String("pinata-api", getEnvDefault("PINATA_API_URL", d.PinataAPIURL), "Pinning API base URL")
	gateway := fs.String("gateway", getEnvDefault("PINATA_GATEWAY", d.Gateway), "IPFS gateway host")
	maxUpload := fs.Int64("max-upload", int64(getEnvIntDefault("CF_PROXY_MAX_UPLOAD", int(d.MaxUploadBytes))), "Maximum upload body in bytes")
	timeout := fs.Duration("timeout", getEnvDurationDefault("CF_PROXY_TIMEOUT", d.UpstreamTimeout), "Upstream request timeout")
	rpm := fs.Int("rate", getEnvIntDefault("CF_PROXY_RATE_PER_MINUTE", d.RateLimitPerMinute), "Requests per minute per client (0 disables)")
	burst := fs.Int("burst", getEnvIntDefault("CF_PROXY_RATE_BURST", d.RateLimitBurst), "Rate limiter burst")

	if err := fs.Parse(args); err != nil {
		return proxy.Config{}, err
	}

	// The credential is env only so it never shows up in process listings
	jwt := strings.TrimSpace(os.Getenv("PINATA_JWT"))

	logger.ComponentInfo(logging.ComponentProxy, "Loaded proxy configuration",
		zap.String("addr", *addr),
		zap.String("gateway", *gateway),
		zap.Bool("jwt_configured", jwt != ""),
		zap.Int("rate_per_minute", *rpm),
	)

	return proxy.Config{
		ListenAddr:         *addr,
		PinataJWT:          jwt,
		PinataAPIURL:       *apiURL,
		Gateway:            *gateway,
		MaxUploadBytes:     *maxUpload,
		UpstreamTimeout:    *timeout,
		RateLimitPerMinute: *rpm,
		RateLimitBurst:     *burst,
	}, nil
}
