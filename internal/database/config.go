package database

const (
	defaultBusyTimeoutMS = 5000
	defaultCacheSizeKB   = -8000 // 8MB
)

// Config holds database configuration settings
type Config struct {
	// Required settings
	Path string

	// Optional settings (will use defaults if not set)
	BusyTimeoutMS int
	CacheSizeKB   int

	// SeedDemo inserts the demonstration categories and feeds when the
	// schema is created.
	SeedDemo bool
}

// NewConfig creates a new database configuration with default values
func NewConfig(path string) *Config {
	return &Config{
		Path:          path,
		BusyTimeoutMS: defaultBusyTimeoutMS,
		CacheSizeKB:   defaultCacheSizeKB,
		SeedDemo:      true,
	}
}
