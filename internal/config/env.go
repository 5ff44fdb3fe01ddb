// Package config reads SECDASH settings from the environment.
//
// Every getter falls back to its default when the variable is unset or cannot be parsed;
// unparsable values are logged at warn level so a typo in deployment config is visible
// without stopping the service.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnvStr returns a string environment variable value or a default if not set.
//
// Parameters:
//   - key[string]: Name of the environment variable
//   - defaultValue[string]: Value returned when the variable is unset or empty
//
// Example:
//
//	dir := GetEnvStr("SECDASH_DATASET_DIR", "")
func GetEnvStr(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}

	return defaultValue
}

// GetEnvInt returns an int environment variable value or a default if not set.
//
// Example:
//
//	size := GetEnvInt("SECDASH_DEFAULT_PAGE_SIZE", 20)
func GetEnvInt(key string, defaultValue int) int {
	return lookup(key, defaultValue, strconv.Atoi)
}

// GetEnvFloat returns a float64 environment variable value or a default if not set.
//
// Example:
//
//	rps := GetEnvFloat("SECDASH_RATE_LIMIT_RPS", 20)
func GetEnvFloat(key string, defaultValue float64) float64 {
	return lookup(key, defaultValue, func(value string) (float64, error) {
		return strconv.ParseFloat(value, 64)
	})
}

// GetEnvBool returns a bool environment variable value or a default if not set.
// Accepts: "true", "1", "yes" as true; "false", "0", "no" as false (case-insensitive).
//
// Example:
//
//	enabled := GetEnvBool("SECDASH_METRICS_ENABLED", true)
func GetEnvBool(key string, defaultValue bool) bool {
	return lookup(key, defaultValue, func(value string) (bool, error) {
		switch strings.ToLower(value) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}

		return false, strconv.ErrSyntax
	})
}

// GetEnvDuration returns a duration environment variable value or a default if not set.
// Values use time.ParseDuration syntax ("30s", "5m").
//
// Example:
//
//	timeout := GetEnvDuration("SECDASH_SERVER_TIMEOUT", 30*time.Second)
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	return lookup(key, defaultValue, time.ParseDuration)
}

// GetEnvLogLevel returns a slog level from the environment or a default if not set.
// Accepts "debug", "info", "warn"/"warning" and "error".
//
// Example:
//
//	level := GetEnvLogLevel("SECDASH_LOG_LEVEL", slog.LevelInfo)
func GetEnvLogLevel(key string, defaultValue slog.Level) slog.Level {
	return lookup(key, defaultValue, func(value string) (slog.Level, error) {
		switch strings.ToLower(value) {
		case "debug":
			return slog.LevelDebug, nil
		case "info":
			return slog.LevelInfo, nil
		case "warn", "warning":
			return slog.LevelWarn, nil
		case "error":
			return slog.LevelError, nil
		}

		return defaultValue, strconv.ErrSyntax
	})
}

// ParseCommaSeparatedList parses a comma-separated string into a slice of trimmed strings.
// Empty values are filtered out.
func ParseCommaSeparatedList(input string) []string {
	if input == "" {
		return []string{}
	}

	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

func lookup[T any](key string, defaultValue T, parse func(string) (T, error)) T {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}

	parsed, err := parse(value)
	if err != nil {
		slog.Warn("Ignoring unparsable environment variable",
			slog.String("key", key),
			slog.String("value", value),
		)

		return defaultValue
	}

	return parsed
}
