package storage

import (
	"embed"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrations embed.FS

func newMigrate(d *sqlx.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, errors.Wrap(err, "new migrations source error")
	}

	driver, err := postgres.WithInstance(d.DB, &postgres.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "new migrations driver error")
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, errors.Wrap(err, "new migrate instance error")
	}

	return m, nil
}

// MigrateUp applies all pending PostgreSQL migrations.
func MigrateUp(d *sqlx.DB) error {
	log.Info("storage: applying PostgreSQL data migrations")

	m, err := newMigrate(d)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "storage: applying PostgreSQL data migrations error")
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return errors.Wrap(err, "storage: get migration version error")
	}

	log.WithFields(log.Fields{
		"version": version,
		"dirty":   dirty,
	}).Info("storage: PostgreSQL data migrations applied")

	return nil
}

// MigrateDown reverts all PostgreSQL migrations.
func MigrateDown(d *sqlx.DB) error {
	m, err := newMigrate(d)
	if err != nil {
		return err
	}

	if err := m.Down(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "storage: reverting PostgreSQL data migrations error")
	}

	return nil
}
