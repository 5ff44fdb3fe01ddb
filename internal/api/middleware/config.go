package middleware

import (
	"time"

	"github.com/correlator-io/secdash/internal/config"
)

// Config holds rate limiter configuration.
//
// Rate limits specify requests per second (RPS) for two tiers:
//   - Global: Applied to all requests
//   - Per-client: Applied per client address
//
// Burst capacity allows temporary bursts above sustained rate.
// If burst fields are 0, they are computed automatically as 2 × rate.
type Config struct {
	// Rate limits (requests per second)
	GlobalRPS float64 // Default: 100
	ClientRPS float64 // Default: 20

	// Optional burst capacity overrides (0 = compute automatically as 2 × rate)
	GlobalBurst int
	ClientBurst int

	// TrustForwardedFor keys clients by the first X-Forwarded-For entry instead of RemoteAddr.
	// Enable only behind a proxy that sets the header.
	TrustForwardedFor bool

	// Memory cleanup configuration
	CleanupInterval time.Duration // Default: 5 minutes
	IdleTimeout     time.Duration // Default: 1 hour
	MaxClients      int           // Default: 10,000
}

// LoadConfig loads rate limiter config from environment variables with fallback to defaults.
// A non-positive SECDASH_RATE_LIMIT_RPS disables rate limiting (see Config.Enabled).
func LoadConfig() *Config {
	return &Config{
		GlobalRPS:         config.GetEnvFloat("SECDASH_RATE_LIMIT_RPS", defaultGlobalRPS),
		ClientRPS:         config.GetEnvFloat("SECDASH_RATE_LIMIT_CLIENT_RPS", defaultClientRPS),
		GlobalBurst:       config.GetEnvInt("SECDASH_RATE_LIMIT_BURST", 0),
		ClientBurst:       config.GetEnvInt("SECDASH_RATE_LIMIT_CLIENT_BURST", 0),
		TrustForwardedFor: config.GetEnvBool("SECDASH_RATE_LIMIT_TRUST_PROXY", false),
		CleanupInterval: config.GetEnvDuration(
			"SECDASH_RATE_LIMIT_CLEANUP_INTERVAL", rateLimiterCleanupInterval,
		),
		IdleTimeout: config.GetEnvDuration("SECDASH_RATE_LIMIT_IDLE_TIMEOUT", rateLimiterIdleTimeout),
		MaxClients:  config.GetEnvInt("SECDASH_RATE_LIMIT_MAX_CLIENTS", defaultMaxClients),
	}
}

// Enabled reports whether rate limiting should be installed at all.
func (c *Config) Enabled() bool {
	return c != nil && c.GlobalRPS > 0
}
