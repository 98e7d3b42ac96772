// Package postgres stores annotations as rows in PostgreSQL, one row per
// annotation, ordered by z-position within an image.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"boxmark/internal/annotation"
	"boxmark/internal/store"
)

// Migrations holds the schema, shared with cmd/migrate.
//
//go:embed migrations/*.sql
var Migrations embed.FS

type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates the connection pool and, with AutoMigrate set, applies
// pending migrations. The connection is verified with a ping bounded by
// ConnTimeout.
func Open(ctx context.Context, cfg *Config, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("pgx", cfg.Dsn())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	s := &Store{db: db, logger: logger.With("system", "postgres")}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnTimeoutDuration())
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", classify(err))
	}

	if cfg.AutoMigrate {
		if err := Migrate(cfg.Dsn()); err != nil {
			db.Close()
			return nil, err
		}
		s.logger.Info("schema migrated")
	}

	s.logger.Info("database connection established", "host", cfg.Host, "name", cfg.Name)
	return s, nil
}

// NewWithDB wraps an existing pool.
func NewWithDB(db *sql.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger.With("system", "postgres")}
}

// Migrate applies every pending up migration on a dedicated connection.
func Migrate(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		db.Close()
		return fmt.Errorf("create migration driver: %w", classify(err))
	}
	source, err := iofs.New(Migrations, "migrations")
	if err != nil {
		db.Close()
		return fmt.Errorf("create migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		db.Close()
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

const loadQuery = `
SELECT id, class_id, x, y, width, height, confidence
FROM annotations
WHERE image_id = $1
ORDER BY position`

func (s *Store) Load(ctx context.Context, imageID string) ([]annotation.Annotation, error) {
	if err := store.ValidateKey(imageID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, loadQuery, imageID)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", imageID, classify(err))
	}
	defer rows.Close()

	anns := make([]annotation.Annotation, 0)
	for rows.Next() {
		var a annotation.Annotation
		if err := rows.Scan(&a.ID, &a.ClassID, &a.X, &a.Y, &a.Width, &a.Height, &a.Confidence); err != nil {
			return nil, fmt.Errorf("scan annotation: %w", err)
		}
		anns = append(anns, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load %s: %w", imageID, classify(err))
	}
	return anns, nil
}

const insertQuery = `
INSERT INTO annotations (image_id, id, position, class_id, x, y, width, height, confidence, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())`

// Save replaces the image's rows in one transaction.
func (s *Store) Save(ctx context.Context, imageID string, anns []annotation.Annotation) error {
	if err := store.ValidateKey(imageID); err != nil {
		return err
	}
	if err := store.Validate(anns); err != nil {
		return err
	}

	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM annotations WHERE image_id = $1`, imageID); err != nil {
			return err
		}
		if len(anns) == 0 {
			return nil
		}
		stmt, err := tx.PrepareContext(ctx, insertQuery)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, a := range anns {
			_, err := stmt.ExecContext(ctx, imageID, a.ID, i, a.ClassID, a.X, a.Y, a.Width, a.Height, a.Confidence)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", imageID, classify(err))
	}
	s.logger.Debug("annotations saved", "image", imageID, "count", len(anns))
	return nil
}

func (s *Store) Annotated(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT image_id FROM annotations ORDER BY image_id`)
	if err != nil {
		return nil, fmt.Errorf("list annotated images: %w", classify(err))
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan image id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list annotated images: %w", classify(err))
	}
	return ids, nil
}

func (s *Store) Close() error {
	s.logger.Info("closing database connection")
	return s.db.Close()
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// classify tags err with store.ErrValidation for constraint and data
// exceptions, and with store.ErrUnavailable for connection failures.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "22"), strings.HasPrefix(pgErr.Code, "23"):
			return fmt.Errorf("%w: %w", store.ErrValidation, err)
		case strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "57P"):
			return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
		}
		return err
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}
	return err
}
