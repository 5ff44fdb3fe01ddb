// Package api provides the HTTP API server for the SECDASH data-view service.
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/correlator-io/secdash/internal/config"
	"github.com/correlator-io/secdash/internal/views"
)

const (
	defaultPort            int    = 8080
	maxPort                int    = 65535
	defaultHost            string = "0.0.0.0"
	defaultCORSMaxAge      int    = 86400
	defaultTimeout                = 30 * time.Second
	defaultLogLevel               = slog.LevelInfo
	defaultPageSize        int    = 20
	defaultMaxPageSize     int    = 100
	defaultMaxSearchLength int    = 200
)

var (
	// ErrInvalidPort indicates the port number is outside valid range (1-65535).
	ErrInvalidPort = errors.New("invalid port")

	// ErrEmptyHost indicates the server host address is empty.
	ErrEmptyHost = errors.New("host cannot be empty")

	// ErrInvalidReadTimeout indicates the read timeout is zero or negative.
	ErrInvalidReadTimeout = errors.New("read timeout must be positive")

	// ErrInvalidWriteTimeout indicates the write timeout is zero or negative.
	ErrInvalidWriteTimeout = errors.New("write timeout must be positive")

	// ErrInvalidShutdownTimeout indicates the shutdown timeout is zero or negative.
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")

	// ErrInvalidPageSizeConfig indicates the default or maximum page size is unusable.
	ErrInvalidPageSizeConfig = errors.New("page size configuration is invalid")

	// ErrInvalidPagerWindow indicates the pager window is zero or negative.
	ErrInvalidPagerWindow = errors.New("pager window must be positive")
)

type (
	// ServerConfig holds HTTP server configuration.
	// Pure configuration only - no runtime dependencies.
	ServerConfig struct {
		Port               int
		Host               string
		ReadTimeout        time.Duration
		WriteTimeout       time.Duration
		ShutdownTimeout    time.Duration
		LogLevel           slog.Level
		DefaultPageSize    int
		MaxPageSize        int
		PagerWindow        int
		MaxSearchLength    int
		MetricsEnabled     bool
		CORSAllowedOrigins []string
		CORSAllowedMethods []string
		CORSAllowedHeaders []string
		CORSExposedHeaders []string
		CORSMaxAge         int
	}

	// CORSConfig holds CORS configuration options and satisfies middleware.CORSConfig.
	CORSConfig struct {
		AllowedOrigins []string
		AllowedMethods []string
		AllowedHeaders []string
		ExposedHeaders []string
		MaxAge         int
	}
)

// LoadServerConfig loads server configuration from environment variables with sensible defaults.
func LoadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            config.GetEnvInt("SECDASH_SERVER_PORT", defaultPort),
		Host:            config.GetEnvStr("SECDASH_SERVER_HOST", defaultHost),
		ReadTimeout:     config.GetEnvDuration("SECDASH_SERVER_READ_TIMEOUT", defaultTimeout),
		WriteTimeout:    config.GetEnvDuration("SECDASH_SERVER_WRITE_TIMEOUT", defaultTimeout),
		ShutdownTimeout: config.GetEnvDuration("SECDASH_SERVER_TIMEOUT", defaultTimeout),
		LogLevel:        config.GetEnvLogLevel("SECDASH_LOG_LEVEL", defaultLogLevel),
		DefaultPageSize: config.GetEnvInt("SECDASH_DEFAULT_PAGE_SIZE", defaultPageSize),
		MaxPageSize:     config.GetEnvInt("SECDASH_MAX_PAGE_SIZE", defaultMaxPageSize),
		PagerWindow:     config.GetEnvInt("SECDASH_PAGER_WINDOW", views.DefaultPagerWindow),
		MaxSearchLength: config.GetEnvInt("SECDASH_MAX_SEARCH_LENGTH", defaultMaxSearchLength),
		MetricsEnabled:  config.GetEnvBool("SECDASH_METRICS_ENABLED", true),
		CORSAllowedOrigins: config.ParseCommaSeparatedList(
			config.GetEnvStr("SECDASH_CORS_ALLOWED_ORIGINS", "*"),
		), // "*" is Development default - should be restricted in production
		CORSAllowedMethods: config.ParseCommaSeparatedList(
			config.GetEnvStr("SECDASH_CORS_ALLOWED_METHODS", "GET,OPTIONS"),
		),
		CORSAllowedHeaders: config.ParseCommaSeparatedList(
			config.GetEnvStr("SECDASH_CORS_ALLOWED_HEADERS", "Content-Type,X-Correlation-ID"),
		),
		CORSExposedHeaders: config.ParseCommaSeparatedList(
			config.GetEnvStr("SECDASH_CORS_EXPOSED_HEADERS", "Content-Disposition,X-Correlation-ID"),
		),
		CORSMaxAge: config.GetEnvInt("SECDASH_CORS_MAX_AGE", defaultCORSMaxAge),
	}
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ToCORSConfig converts ServerConfig CORS fields to a middleware.CORSConfig.
func (c *ServerConfig) ToCORSConfig() *CORSConfig {
	return &CORSConfig{
		AllowedOrigins: c.CORSAllowedOrigins,
		AllowedMethods: c.CORSAllowedMethods,
		AllowedHeaders: c.CORSAllowedHeaders,
		ExposedHeaders: c.CORSExposedHeaders,
		MaxAge:         c.CORSMaxAge,
	}
}

// GetAllowedOrigins returns the allowed origins for CORS.
func (c *CORSConfig) GetAllowedOrigins() []string {
	return c.AllowedOrigins
}

// GetAllowedMethods returns the allowed methods for CORS.
func (c *CORSConfig) GetAllowedMethods() []string {
	return c.AllowedMethods
}

// GetAllowedHeaders returns the allowed headers for CORS.
func (c *CORSConfig) GetAllowedHeaders() []string {
	return c.AllowedHeaders
}

// GetExposedHeaders returns the response headers browsers may read.
func (c *CORSConfig) GetExposedHeaders() []string {
	return c.ExposedHeaders
}

// GetMaxAge returns the max age for CORS preflight cache.
func (c *CORSConfig) GetMaxAge() int {
	return c.MaxAge
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > maxPort {
		return fmt.Errorf("%w: %d, must be between 1 and %d", ErrInvalidPort, c.Port, maxPort)
	}

	if c.Host == "" {
		return ErrEmptyHost
	}

	if c.ReadTimeout <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidReadTimeout, c.ReadTimeout)
	}

	if c.WriteTimeout <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidWriteTimeout, c.WriteTimeout)
	}

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidShutdownTimeout, c.ShutdownTimeout)
	}

	if c.MaxPageSize <= 0 || c.DefaultPageSize <= 0 || c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("%w: default %d, max %d (need 1 <= default <= max)",
			ErrInvalidPageSizeConfig, c.DefaultPageSize, c.MaxPageSize)
	}

	if c.PagerWindow <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidPagerWindow, c.PagerWindow)
	}

	return nil
}
