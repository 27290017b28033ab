// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package storage

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const schemaVersion uint = 1

//go:embed migrations/*
var migrationFiles embed.FS

// runMigrations brings db up to schemaVersion. sqlite3-only; the
// reference store never targets another engine.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("storage: sqlite3 migration driver: %w", err)
	}
	src, err := iofs.New(migrationFiles, "migrations/sqlite3")
	if err != nil {
		return fmt.Errorf("storage: open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("storage: build migrator: %w", err)
	}
	if err := m.Migrate(schemaVersion); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("storage: migrate to v%d: %w", schemaVersion, err)
	}
	return nil
}
