package config

// Constants defining default values for application configuration
const (
	AppDirName    = "feeds-reader"
	DBFileName    = "feeds-reader.sqlite"
	DefaultOutput = "./listings"

	DefaultServerPort = 8421
	DefaultServerHost = "127.0.0.1"

	DefaultWorkerCount  = 0  // 0 means use runtime.NumCPU()
	DefaultInterval     = 30 // Minutes between refreshes, 0 for one-shot
	DefaultFetchTimeout = 0  // Seconds, 0 means no timeout

	DefaultSeedDemo = true
	DefaultLogLevel = "info"
)

// Environment variables read for flag defaults.
const (
	EnvDBPath       = "FEEDSREADER_DB_PATH"
	EnvPrefsPath    = "FEEDSREADER_PREFS_PATH"
	EnvOutputDir    = "FEEDSREADER_OUTPUT_DIR"
	EnvHost         = "FEEDSREADER_HOST"
	EnvPort         = "FEEDSREADER_PORT"
	EnvAPIKey       = "FEEDSREADER_API_KEY"
	EnvWorkerCount  = "FEEDSREADER_WORKER_COUNT"
	EnvInterval     = "FEEDSREADER_INTERVAL"
	EnvFetchTimeout = "FEEDSREADER_FETCH_TIMEOUT"
	EnvSeedDemo     = "FEEDSREADER_SEED_DEMO"
	EnvLogLevel     = "FEEDSREADER_LOG_LEVEL"
)
