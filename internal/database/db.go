package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/comment-ranking-api/internal/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

// connectAttempts bounds how often New pings a database that is still starting
const connectAttempts = 5

// DB is the comment store connection pool
type DB struct {
	*sql.DB
	log zerolog.Logger
}

// New opens the pool and waits for PostgreSQL to accept connections
func New(cfg *config.DatabaseConfig, log zerolog.Logger) (*DB, error) {
	pool, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.MaxLifetime)

	db := &DB{
		DB:  pool,
		log: log.With().Str("component", "database").Logger(),
	}

	if err := db.waitReady(); err != nil {
		pool.Close()
		return nil, err
	}

	db.log.Info().
		Str("host", cfg.Host).
		Str("database", cfg.Name).
		Int("max_open_conns", cfg.MaxOpenConns).
		Msg("Database connection established")

	return db, nil
}

// waitReady pings with a doubling backoff
func (db *DB) waitReady() error {
	backoff := 500 * time.Millisecond
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt < connectAttempts {
			db.log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", backoff).Msg("Database not ready")
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return fmt.Errorf("failed to ping database after %d attempts: %w", connectAttempts, err)
}

// RunMigrations applies every pending migration under migrationsPath
func (db *DB) RunMigrations(migrationsPath string) error {
	m, err := db.migrator(migrationsPath)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return db.logVersion(m, "Migrations completed")
}

// MigrateDown rolls back every migration, dropping the comments schema
func (db *DB) MigrateDown(migrationsPath string) error {
	m, err := db.migrator(migrationsPath)
	if err != nil {
		return err
	}

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}
	return db.logVersion(m, "Migrations rolled back")
}

func (db *DB) logVersion(m *migrate.Migrate, msg string) error {
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	db.log.Info().Uint("version", version).Bool("dirty", dirty).Msg(msg)
	return nil
}

func (db *DB) migrator(migrationsPath string) (*migrate.Migrate, error) {
	db.log.Info().Str("path", migrationsPath).Msg("Loading database migrations")

	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// HealthCheck pings the database and rejects a schema left dirty by a failed migration
func (db *DB) HealthCheck(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var dirty bool
	err := db.QueryRowContext(ctx, "SELECT dirty FROM schema_migrations LIMIT 1").Scan(&dirty)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return errors.New("schema not migrated")
	case err != nil:
		return fmt.Errorf("failed to read schema version: %w", err)
	case dirty:
		return errors.New("schema migration is dirty")
	}
	return nil
}
