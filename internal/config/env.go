package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// GetEnv parses the environment variable key with parse. An unset, empty or
// unparsable value yields defaultValue.
func GetEnv[T any](key string, defaultValue T, parse func(string) (T, error)) T {
	valStr := strings.TrimSpace(os.Getenv(key))
	if valStr == "" {
		return defaultValue
	}

	val, err := parse(valStr)
	if err != nil {
		return defaultValue
	}
	return val
}

// GetEnvString retrieves a string from environment variables or returns the default value.
// Unlike the other helpers, a variable set to the empty string is returned as is.
func GetEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetEnvInt(key string, defaultValue int) int {
	return GetEnv(key, defaultValue, strconv.Atoi)
}

func GetEnvBool(key string, defaultValue bool) bool {
	return GetEnv(key, defaultValue, strconv.ParseBool)
}

// GetEnvDuration retrieves a duration from environment variables or returns the default value.
// A bare number is read in unit, anything else with time.ParseDuration.
func GetEnvDuration(key string, defaultValue, unit time.Duration) time.Duration {
	return GetEnv(key, defaultValue, func(s string) (time.Duration, error) {
		if n, err := strconv.Atoi(s); err == nil {
			return time.Duration(n) * unit, nil
		}
		return time.ParseDuration(s)
	})
}

func GetEnvLogLevel(key string, defaultValue zerolog.Level) zerolog.Level {
	return GetEnv(key, defaultValue, zerolog.ParseLevel)
}
