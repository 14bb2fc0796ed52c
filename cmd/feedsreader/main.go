package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"reddot-watch/feedsreader/internal/config"
	"reddot-watch/feedsreader/internal/controller"
	"reddot-watch/feedsreader/internal/database"
	"reddot-watch/feedsreader/internal/fetch"
	importfeeds "reddot-watch/feedsreader/internal/import"
	"reddot-watch/feedsreader/internal/metrics"
	"reddot-watch/feedsreader/internal/parse"
	"reddot-watch/feedsreader/internal/prefs"
	"reddot-watch/feedsreader/internal/process"
	"reddot-watch/feedsreader/internal/render"
	"reddot-watch/feedsreader/internal/server"
	"reddot-watch/feedsreader/internal/server/storage"
)

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

const usage = `Usage: feedsreader [command] [options]
Commands: start, refresh, import

For command-specific options, use: feedsreader [command] -h`

// commonFlags registers the options shared by every command.
func commonFlags(fs *flag.FlagSet, cfg *config.Config, logLevel *string) {
	fs.StringVar(&cfg.DBPath, "db", config.GetEnvString(config.EnvDBPath, cfg.DBPath),
		"Path to the SQLite database file (env: "+config.EnvDBPath+")")
	fs.StringVar(logLevel, "log-level", config.GetEnvString(config.EnvLogLevel, config.DefaultLogLevel),
		"Log level: debug, info, warn, error (env: "+config.EnvLogLevel+")")
	fs.BoolVar(&cfg.SeedDemo, "seed-demo", config.GetEnvBool(config.EnvSeedDemo, config.DefaultSeedDemo),
		"Insert the demonstration feeds when the schema is created (env: "+config.EnvSeedDemo+")")
}

// fetchFlags registers the options of the commands that fetch feeds.
func fetchFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.PrefsPath, "prefs", config.GetEnvString(config.EnvPrefsPath, ""),
		"Path to the preferences file, next to the database when empty (env: "+config.EnvPrefsPath+")")
	fs.IntVar(&cfg.WorkerCount, "workers", config.GetEnvInt(config.EnvWorkerCount, config.DefaultWorkerCount),
		"Number of concurrent feed fetches, 0 for CPU count (env: "+config.EnvWorkerCount+")")
	fs.DurationVar(&cfg.FetchTimeout, "fetch-timeout",
		config.GetEnvDuration(config.EnvFetchTimeout, cfg.FetchTimeout, time.Second),
		"Timeout of a single feed download, 0 for none (env: "+config.EnvFetchTimeout+")")
}

func main() {
	cfg := config.DefaultConfig()
	var logLevelStr string

	startCmd := flag.NewFlagSet("start", flag.ExitOnError)
	commonFlags(startCmd, cfg, &logLevelStr)
	fetchFlags(startCmd, cfg)
	startCmd.StringVar(&cfg.ServerHost, "host", config.GetEnvString(config.EnvHost, config.DefaultServerHost),
		"Host to bind the server to (env: "+config.EnvHost+")")
	startCmd.IntVar(&cfg.ServerPort, "port", config.GetEnvInt(config.EnvPort, config.DefaultServerPort),
		"Port to listen on (env: "+config.EnvPort+")")
	startCmd.DurationVar(&cfg.Interval, "interval", config.GetEnvDuration(config.EnvInterval, cfg.Interval, time.Minute),
		"Interval between refreshes, 0 to fetch only at startup (env: "+config.EnvInterval+")")

	refreshCmd := flag.NewFlagSet("refresh", flag.ExitOnError)
	commonFlags(refreshCmd, cfg, &logLevelStr)
	fetchFlags(refreshCmd, cfg)
	refreshCmd.StringVar(&cfg.OutputDir, "out", config.GetEnvString(config.EnvOutputDir, config.DefaultOutput),
		"Directory receiving one HTML listing per feed (env: "+config.EnvOutputDir+")")

	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	commonFlags(importCmd, cfg, &logLevelStr)
	var format string
	var replace, assumeYes bool
	importCmd.StringVar(&format, "format", "", "Input format: opml or csv, guessed from the extension when empty")
	importCmd.BoolVar(&replace, "replace", false, "Drop the existing catalogue before importing")
	importCmd.BoolVar(&assumeYes, "yes", false, "Do not ask for confirmation with -replace")

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	var (
		fs  *flag.FlagSet
		run func(ctx context.Context) error
	)
	switch os.Args[1] {
	case "start":
		fs = startCmd
		run = func(ctx context.Context) error { return runStart(ctx, cfg) }
	case "refresh":
		fs = refreshCmd
		run = func(ctx context.Context) error { return runRefresh(ctx, cfg) }
	case "import":
		fs = importCmd
		run = func(ctx context.Context) error {
			if importCmd.NArg() != 1 {
				return errors.New("import needs exactly one source file or URL")
			}
			return runImport(ctx, cfg, importCmd.Arg(0), importfeeds.Format(format), replace, assumeYes)
		}
	case "-h", "--help", "help":
		fmt.Println(usage)
		os.Exit(0)
	default:
		log.Error().Str("command", os.Args[1]).Msg("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}

	fs.Parse(os.Args[2:])

	if level, err := zerolog.ParseLevel(logLevelStr); err == nil {
		cfg.LogLevel = level
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Error().Err(err).Str("command", os.Args[1]).Msg("Command failed")
		stop()
		os.Exit(1)
	}
}

// app wires the components shared by start and refresh.
type app struct {
	storage *database.Storage
	prefs   *prefs.Store
	metrics *metrics.Metrics
	ctrl    *controller.Controller
}

func newApp(cfg *config.Config, surfaceFor func(style func() string) render.Surface) (*app, error) {
	dbCfg := database.NewConfig(cfg.DBPath)
	dbCfg.SeedDemo = cfg.SeedDemo
	db, err := database.NewStorage(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	store, err := prefs.Open(cfg.PreferencesPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	m := metrics.New()
	processor := process.NewProcessor(
		fetch.NewFetcher(cfg.FetchTimeout),
		parse.NewAdapter(surfaceFor(store.ContentStyle)),
		cfg.WorkerCount,
		m,
	)

	ctrl := controller.New(db, processor, store.ContentStyle(), m)
	store.OnChange(ctrl.SetContentStyle)

	return &app{storage: db, prefs: store, metrics: m, ctrl: ctrl}, nil
}

// startAndFetch runs the startup workflow and makes sure one batch is
// dispatched even when the schema already existed.
func (a *app) startAndFetch(ctx context.Context) error {
	if err := a.ctrl.Start(ctx); err != nil {
		return err
	}
	if a.ctrl.Status().Batches == 0 {
		return a.ctrl.Refresh(ctx)
	}
	return nil
}

// runStart serves the button, panel and documents over HTTP and refreshes
// the feeds periodically.
func runStart(ctx context.Context, cfg *config.Config) error {
	var surface *render.MemorySurface
	a, err := newApp(cfg, func(style func() string) render.Surface {
		surface = render.NewMemorySurface(style)
		return surface
	})
	if err != nil {
		return err
	}

	if err := a.startAndFetch(ctx); err != nil {
		// The server still runs so the error badge can be seen.
		log.Error().Err(err).Msg("Startup workflow failed")
	}

	srv := server.New(server.Deps{
		Controller:  a.ctrl,
		Preferences: a.prefs,
		Catalogue:   storage.NewRepository(a.storage),
		Documents:   surface,
		Metrics:     a.metrics,
	}, log.Logger, cfg.APIKey)

	if cfg.Interval > 0 {
		log.Info().Dur("interval", cfg.Interval).Msg("Running in periodic mode")
		go refreshLoop(ctx, a.ctrl, cfg.Interval)
	} else {
		log.Info().Msg("Periodic refresh disabled")
	}
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go reloadPreferences(ctx, a.prefs, hup)

	err = srv.Run(ctx, cfg.ListenAddr())
	a.ctrl.Wait()
	return err
}

func refreshLoop(ctx context.Context, ctrl *controller.Controller, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			log.Info().Msg("Starting scheduled refresh")
			if err := ctrl.Refresh(ctx); err != nil {
				log.Warn().Err(err).Msg("Scheduled refresh skipped")
				continue
			}
			log.Info().
				Time("next_run", time.Now().Add(interval)).
				Msg("Waiting for next refresh")

		case <-ctx.Done():
			log.Info().Msg("Shutting down periodic refresh")
			return
		}
	}
}

// reloadPreferences rereads the preferences file every time hup fires so
// edits made outside the program reach the controller.
func reloadPreferences(ctx context.Context, store *prefs.Store, hup <-chan os.Signal) {
	for {
		select {
		case <-hup:
			if err := store.Reload(); err != nil {
				log.Error().Err(err).Str("path", store.Path()).Msg("Failed to reload preferences")
				continue
			}
			log.Info().Str("content_style", store.ContentStyle()).Msg("Preferences reloaded")

		case <-ctx.Done():
			return
		}
	}
}

// runRefresh fetches every feed once and writes the listings to OutputDir.
func runRefresh(ctx context.Context, cfg *config.Config) error {
	var surface *render.DirSurface
	a, err := newApp(cfg, func(style func() string) render.Surface {
		surface = render.NewDirSurface(cfg.OutputDir, style)
		return surface
	})
	if err != nil {
		return err
	}

	if err := a.startAndFetch(ctx); err != nil {
		return err
	}

	report := a.ctrl.Wait()
	button := a.ctrl.Button()

	log.Info().
		Int("feeds", report.Feeds).
		Int("parsed", report.Parsed).
		Int("entries", report.Entries).
		Int("failures", len(report.Failures)).
		Dur("duration", report.Duration).
		Msg("Refresh finished")

	fmt.Printf("[%s] %s\n", button.Badge, button.Label)
	for _, f := range report.Failures {
		fmt.Printf("  - %v\n", f)
	}

	for _, file := range surface.Files() {
		fmt.Println(file)
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		log.Info().Msg("Refresh canceled by shutdown signal")
	}
	return nil
}

// runImport loads a subscription list into the catalogue. With replace, it
// asks for confirmation before dropping an existing catalogue.
func runImport(ctx context.Context, cfg *config.Config, source string, format importfeeds.Format, replace, assumeYes bool) error {
	dbCfg := database.NewConfig(cfg.DBPath)
	dbCfg.SeedDemo = cfg.SeedDemo
	db, err := database.NewStorage(dbCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if replace && !assumeYes {
		if _, err := os.Stat(cfg.DBPath); err == nil {
			fmt.Printf("Database %s already exists. All feeds will be deleted before the import.\n", cfg.DBPath)
			fmt.Print("Delete and recreate? (y/N): ")

			var answer string
			fmt.Scanln(&answer)

			if strings.ToLower(answer) != "y" {
				log.Info().Msg("Operation canceled by user")
				return errors.New("operation canceled by user")
			}
		}
	}

	importer := importfeeds.NewImporter(db, fetch.NewFetcher(time.Minute))
	if err := importer.Prepare(ctx, replace); err != nil {
		return err
	}

	summary, err := importer.Import(ctx, source, format)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d feeds successfully\n", summary.Imported)
	if len(summary.Errors) > 0 {
		fmt.Printf("Encountered %d errors:\n", len(summary.Errors))
		for _, e := range summary.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	return nil
}
