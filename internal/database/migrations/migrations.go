package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

//go:embed sql/*.sql seed/*.sql
var files embed.FS

// Migration represents a schema version. Applying it sets PRAGMA user_version
// to Version.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// Embedded returns the migrations shipped with the binary.
func Embedded() ([]Migration, error) {
	return Load(files, "sql")
}

// Load loads all migration files from dir in fsys
func Load(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	byVersion := make(map[int]*Migration)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		fileName := entry.Name()
		var version int
		var rest string
		if _, err := fmt.Sscanf(fileName, "%d_%s", &version, &rest); err != nil || version <= 0 {
			log.Warn().Err(err).Str("file", fileName).Msg("Skipping invalid migration file")
			continue
		}

		content, err := fs.ReadFile(fsys, path.Join(dir, fileName))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", fileName, err)
		}

		m, ok := byVersion[version]
		if !ok {
			m = &Migration{Version: version}
			byVersion[version] = m
		}

		switch {
		case strings.HasSuffix(rest, ".up.sql"):
			m.Name = strings.TrimSuffix(rest, ".up.sql")
			m.Up = string(content)
		case strings.HasSuffix(rest, ".down.sql"):
			m.Down = string(content)
		default:
			log.Warn().Str("file", fileName).Msg("Migration file has no direction, skipping")
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" {
			return nil, fmt.Errorf("migration %d has no up script", m.Version)
		}
		migrations = append(migrations, *m)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	log.Debug().
		Int("count", len(migrations)).
		Msg("Loaded migrations")

	return migrations, nil
}

// Apply runs the up script of m inside tx and records its version.
func Apply(ctx context.Context, tx *sqlx.Tx, m Migration) error {
	log.Info().
		Int("version", m.Version).
		Str("name", m.Name).
		Msg("Running migration")

	if _, err := tx.ExecContext(ctx, m.Up); err != nil {
		return fmt.Errorf("failed to execute migration %d: %w", m.Version, err)
	}

	if err := setVersion(ctx, tx, m.Version); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
	}

	return nil
}

// Revert runs the down script of m inside tx and steps the version back.
func Revert(ctx context.Context, tx *sqlx.Tx, m Migration) error {
	if m.Down == "" {
		log.Warn().
			Int("version", m.Version).
			Msg("No down migration found, skipping")
		return nil
	}

	log.Info().
		Int("version", m.Version).
		Msg("Rolling back migration")

	if _, err := tx.ExecContext(ctx, m.Down); err != nil {
		return fmt.Errorf("failed to execute rollback for migration %d: %w", m.Version, err)
	}

	if err := setVersion(ctx, tx, m.Version-1); err != nil {
		return fmt.Errorf("failed to record rollback of migration %d: %w", m.Version, err)
	}

	return nil
}

// Seed inserts the demonstration categories and feeds.
func Seed(ctx context.Context, tx *sqlx.Tx) error {
	content, err := fs.ReadFile(files, "seed/demo.sql")
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("failed to insert demonstration rows: %w", err)
	}

	log.Debug().Msg("Demonstration rows inserted")
	return nil
}

// PRAGMA arguments cannot be bound.
func setVersion(ctx context.Context, tx *sqlx.Tx, version int) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d;", version))
	return err
}
