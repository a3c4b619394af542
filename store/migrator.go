package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Migration files live under migration/{driver}/. LATEST.sql initializes a fresh database
// with the full schema; NN__description.sql files are patches applied in order to databases
// whose recorded schema version is lower than NN. The version is kept in system_setting.

//go:embed migration
var migrationFS embed.FS

const (
	// MigrateFileNameSplit is the split character between the patch version and the description in the migration file name.
	// For example, "1__create_table.sql".
	MigrateFileNameSplit = "__"
	// LatestSchemaFileName is the name of the latest schema file.
	LatestSchemaFileName = "LATEST.sql"

	schemaVersionKey = "schema_version"
)

type migrationFile struct {
	path    string
	version int
}

// validateMigrationFileName checks if a migration file follows the expected naming convention.
// Expected format: "NN__description.sql" where NN is a zero-padded number.
func validateMigrationFileName(filename string) (int, error) {
	if !strings.Contains(filename, MigrateFileNameSplit) {
		return 0, errors.Errorf("invalid migration filename format (missing %s): %s", MigrateFileNameSplit, filename)
	}
	parts := strings.SplitN(filename, MigrateFileNameSplit, 2)
	version, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, errors.Errorf("migration filename must start with a number: %s", filename)
	}
	return version, nil
}

// Migrate brings the database schema to the latest version.
func (s *Store) Migrate(ctx context.Context) error {
	files, err := s.migrationFiles()
	if err != nil {
		return err
	}
	target := 0
	if len(files) > 0 {
		target = files[len(files)-1].version
	}

	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check if database is initialized")
	}
	if !initialized {
		filePath := s.getMigrationBasePath() + LatestSchemaFileName
		stmt, err := migrationFS.ReadFile(filePath)
		if err != nil {
			return errors.Wrapf(err, "failed to read latest schema file %s", filePath)
		}
		slog.Info("initializing new database with latest schema", slog.String("file", filePath))
		if err := s.inTx(ctx, func(tx *sql.Tx) error {
			if err := s.execute(ctx, tx, string(stmt)); err != nil {
				return errors.Wrapf(err, "failed to execute %s", filePath)
			}
			return s.setSchemaVersion(ctx, tx, target)
		}); err != nil {
			return err
		}
		slog.Info("database initialized successfully", slog.Int("schemaVersion", target))
		return nil
	}

	current, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}
	if current > target {
		return errors.Errorf("cannot downgrade schema version from %d to %d", current, target)
	}
	if current == target {
		return nil
	}

	slog.Info("start migration", slog.Int("currentSchemaVersion", current), slog.Int("targetSchemaVersion", target))
	applied := 0
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		for _, f := range files {
			if f.version <= current {
				continue
			}
			stmt, err := migrationFS.ReadFile(f.path)
			if err != nil {
				return errors.Wrapf(err, "failed to read migration file: %s", f.path)
			}
			slog.Info("applying migration", slog.String("file", f.path), slog.Int("version", f.version))
			if err := s.execute(ctx, tx, string(stmt)); err != nil {
				return errors.Wrapf(err, "failed to execute migration %s", f.path)
			}
			applied++
		}
		return s.setSchemaVersion(ctx, tx, target)
	})
	if err != nil {
		return errors.Wrap(err, "failed to apply migrations")
	}
	slog.Info("migration completed", slog.Int("migrationsApplied", applied))
	return nil
}

func (s *Store) migrationFiles() ([]migrationFile, error) {
	paths, err := fs.Glob(migrationFS, s.getMigrationBasePath()+"*.sql")
	if err != nil {
		return nil, errors.Wrap(err, "failed to read migration files")
	}
	files := make([]migrationFile, 0, len(paths))
	for _, p := range paths {
		name := path.Base(p)
		if name == LatestSchemaFileName {
			continue
		}
		version, err := validateMigrationFileName(name)
		if err != nil {
			return nil, err
		}
		files = append(files, migrationFile{path: p, version: version})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].version < files[j].version })
	return files, nil
}

func (s *Store) getMigrationBasePath() string {
	return fmt.Sprintf("migration/%s/", s.profile.Driver)
}

func (s *Store) schemaVersion(ctx context.Context) (int, error) {
	var value string
	query := "SELECT value FROM system_setting WHERE name = " + s.bind(1)
	err := s.driver.GetDB().QueryRowContext(ctx, query, schemaVersionKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "failed to read schema version")
	}
	version, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid schema version %q", value)
	}
	return version, nil
}

func (s *Store) setSchemaVersion(ctx context.Context, tx *sql.Tx, version int) error {
	stmt := "INSERT INTO system_setting (name, value) VALUES (" + s.bind(1) + ", " + s.bind(2) + ") " +
		"ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value"
	if _, err := tx.ExecContext(ctx, stmt, schemaVersionKey, strconv.Itoa(version)); err != nil {
		return errors.Wrap(err, "failed to update schema version")
	}
	return nil
}

func (s *Store) bind(n int) string {
	if s.profile.Driver == "postgres" {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

// execute runs a SQL script. PostgreSQL does not accept several statements in one call,
// so scripts are split there.
func (s *Store) execute(ctx context.Context, tx *sql.Tx, script string) error {
	if s.profile.Driver != "postgres" {
		_, err := tx.ExecContext(ctx, script)
		return errors.Wrap(err, "failed to execute statement")
	}
	for i, stmt := range splitSQL(script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to execute statement %d: %s", i+1, stmt)
		}
	}
	return nil
}

// splitSQL splits a script on semicolons outside single-quoted strings and drops -- comments.
func splitSQL(script string) []string {
	var (
		statements []string
		current    strings.Builder
		inQuote    bool
	)
	for _, line := range strings.Split(script, "\n") {
		if trimmed := strings.TrimSpace(line); !inQuote && (trimmed == "" || strings.HasPrefix(trimmed, "--")) {
			continue
		}
		for i := 0; i < len(line); i++ {
			ch := line[i]
			switch {
			case ch == '\'':
				inQuote = !inQuote
			case ch == ';' && !inQuote:
				if stmt := strings.TrimSpace(current.String()); stmt != "" {
					statements = append(statements, stmt)
				}
				current.Reset()
				continue
			}
			current.WriteByte(ch)
		}
		current.WriteByte('\n')
	}
	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}
	return statements
}
