package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"reddot-watch/feedsreader/internal/database/migrations"
	"reddot-watch/feedsreader/internal/models"
)

var (
	// ErrUnavailable is returned when a connection to the database file cannot be opened.
	ErrUnavailable = errors.New("database is not available")
	// ErrSchema is returned when the schema could not be created or dropped.
	ErrSchema = errors.New("database schema not created")
	// ErrQuery is returned when a statement fails on an open connection.
	ErrQuery = errors.New("database query failed")
)

const feedColumns = `Id, CategoryId, Title,
	IFNULL(Type, '') AS Type, IFNULL(HtmlUrl, '') AS HtmlUrl, IFNULL(XmlUrl, '') AS XmlUrl`

// Storage gives access to the feeds database. It holds no connection:
// every operation opens its own and releases it before returning.
type Storage struct {
	cfg        *Config
	migrations []migrations.Migration
}

// NewStorage creates a storage for the database file described by cfg.
func NewStorage(cfg *Config) (*Storage, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.BusyTimeoutMS <= 0 {
		cfg.BusyTimeoutMS = defaultBusyTimeoutMS
	}
	if cfg.CacheSizeKB == 0 {
		cfg.CacheSizeKB = defaultCacheSizeKB
	}

	m, err := migrations.Embedded()
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	return &Storage{cfg: cfg, migrations: m}, nil
}

// Path returns the database file path.
func (s *Storage) Path() string {
	return s.cfg.Path
}

func (s *Storage) dsn() string {
	return fmt.Sprintf("%s?_journal=WAL&_synchronous=NORMAL&_busy_timeout=%d&_foreign_keys=on",
		s.cfg.Path, s.cfg.BusyTimeoutMS)
}

// open connects to the database file, creating its directory when needed.
func (s *Storage) open(ctx context.Context) (*sqlx.DB, error) {
	dir := filepath.Dir(s.cfg.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: failed to create directory for database: %v", ErrUnavailable, err)
		}
	}

	db, err := sqlx.Open("sqlite3", s.dsn())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// One operation, one connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	pragmas := []string{
		fmt.Sprintf("PRAGMA cache_size = %d;", s.cfg.CacheSizeKB),
		"PRAGMA temp_store = MEMORY;",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			log.Warn().Err(err).Str("pragma", pragma).Msg("Failed to set PRAGMA")
		}
	}

	return db, nil
}

func (s *Storage) release(db *sqlx.DB, op string) {
	if err := db.Close(); err != nil {
		log.Warn().Err(err).Str("op", op).Msg("Failed to close database connection")
	}
}

// withConn runs fn on a fresh connection and always closes it afterwards.
func (s *Storage) withConn(ctx context.Context, op string, fn func(db *sqlx.DB) error) error {
	db, err := s.open(ctx)
	if err != nil {
		log.Error().Err(err).Str("path", s.cfg.Path).Str("op", op).Msg("Failed to open database")
		return err
	}
	defer s.release(db, op)

	return fn(db)
}

// StorageVersion returns the schema version stored in PRAGMA user_version.
// It returns ErrUnavailable when the database cannot be opened; a failing
// pragma query is reported as version 0.
func (s *Storage) StorageVersion(ctx context.Context) (int, error) {
	var version int
	err := s.withConn(ctx, "storage version", func(db *sqlx.DB) error {
		if err := db.GetContext(ctx, &version, "PRAGMA user_version;"); err != nil {
			log.Error().Err(err).Msg("Failed to read storage version")
			version = 0
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Debug().Int("version", version).Msg("Storage version")
	return version, nil
}

// CreateSchema creates the Category and Feed tables, seeds the default
// category and sets the storage version. Everything runs in one
// transaction, so calling it on an initialized database fails with
// ErrSchema and leaves the data untouched.
func (s *Storage) CreateSchema(ctx context.Context) error {
	err := s.withConn(ctx, "create schema", func(db *sqlx.DB) error {
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		for _, m := range s.migrations {
			if err := migrations.Apply(ctx, tx, m); err != nil {
				return err
			}
		}

		if s.cfg.SeedDemo {
			if err := migrations.Seed(ctx, tx); err != nil {
				return err
			}
		}

		return tx.Commit()
	})
	if err != nil {
		log.Error().Err(err).Str("path", s.cfg.Path).Msg("Database schema not created")
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}

	log.Info().Str("path", s.cfg.Path).Msg("Database schema created")
	return nil
}

// DropSchema reverts every migration and resets the storage version to 0.
func (s *Storage) DropSchema(ctx context.Context) error {
	err := s.withConn(ctx, "drop schema", func(db *sqlx.DB) error {
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		for i := len(s.migrations) - 1; i >= 0; i-- {
			if err := migrations.Revert(ctx, tx, s.migrations[i]); err != nil {
				return err
			}
		}

		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}

	log.Info().Str("path", s.cfg.Path).Msg("Database schema dropped")
	return nil
}

// Categories returns all categories in storage order.
func (s *Storage) Categories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := s.withConn(ctx, "categories", func(db *sqlx.DB) error {
		return db.SelectContext(ctx, &categories, "SELECT Id, Title FROM Category;")
	})
	if err != nil {
		return nil, queryError("categories", err)
	}
	return categories, nil
}

// Feeds returns all feeds.
func (s *Storage) Feeds(ctx context.Context) ([]models.Feed, error) {
	feeds := []models.Feed{}
	err := s.withConn(ctx, "feeds", func(db *sqlx.DB) error {
		return db.SelectContext(ctx, &feeds, "SELECT "+feedColumns+" FROM Feed;")
	})
	if err != nil {
		return nil, queryError("feeds", err)
	}
	return feeds, nil
}

// FeedsByCategory returns the feeds belonging to categoryID. An unknown
// category yields an empty slice.
func (s *Storage) FeedsByCategory(ctx context.Context, categoryID int64) ([]models.Feed, error) {
	feeds := []models.Feed{}
	err := s.withConn(ctx, "feeds by category", func(db *sqlx.DB) error {
		return db.SelectContext(ctx, &feeds,
			"SELECT "+feedColumns+" FROM Feed WHERE CategoryId = ?;", categoryID)
	})
	if err != nil {
		return nil, queryError("feeds by category", err)
	}
	return feeds, nil
}

// InsertCategory stores c and returns its ID. A zero ID lets SQLite pick one.
func (s *Storage) InsertCategory(ctx context.Context, c models.Category) (int64, error) {
	var id int64
	err := s.withConn(ctx, "insert category", func(db *sqlx.DB) error {
		var err error
		id, err = insertCategory(ctx, db, c)
		return err
	})
	if err != nil {
		return 0, queryError("insert category", err)
	}
	return id, nil
}

// InsertFeed stores f and returns its ID. A zero ID lets SQLite pick one.
func (s *Storage) InsertFeed(ctx context.Context, f models.Feed) (int64, error) {
	var id int64
	err := s.withConn(ctx, "insert feed", func(db *sqlx.DB) error {
		var err error
		id, err = insertFeed(ctx, db, f)
		return err
	})
	if err != nil {
		return 0, queryError("insert feed", err)
	}
	return id, nil
}

// InTx runs fn inside a single transaction on a fresh connection. The
// transaction is committed when fn returns nil and rolled back otherwise.
func (s *Storage) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	err := s.withConn(ctx, "transaction", func(db *sqlx.DB) error {
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		if err := fn(&Tx{tx: tx, ctx: ctx}); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return queryError("transaction", err)
	}
	return nil
}

func queryError(op string, err error) error {
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	log.Error().Err(err).Str("op", op).Msg("Query failed")
	return fmt.Errorf("%w: %s: %v", ErrQuery, op, err)
}
