/*
 * Copyright 2026 Lumenwall Systems, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package offline

import (
	"database/sql"
	"fmt"
)

// migration is one schema step. Every step must be safe to re-run against a
// database that already has it applied; existing rows are never dropped.
type migration struct {
	name  string
	apply func(db *sql.DB) error
}

// migrations runs in order on every startup. Append new steps at the end;
// never edit or reorder shipped ones, devices in the field carry every
// historical schema.
var migrations = []migration{
	{
		name: "create content_cache",
		apply: func(db *sql.DB) error {
			_, err := db.Exec(`
				CREATE TABLE IF NOT EXISTS content_cache (
					content_id TEXT PRIMARY KEY,
					package    TEXT NOT NULL,
					stored_at  INTEGER NOT NULL
				)`)
			return err
		},
	},
	{
		name: "add expires_at",
		apply: func(db *sql.DB) error {
			return addColumnIfMissing(db, "content_cache", "expires_at", "INTEGER")
		},
	},
	{
		name: "create meta",
		apply: func(db *sql.DB) error {
			_, err := db.Exec(`
				CREATE TABLE IF NOT EXISTS meta (
					key   TEXT PRIMARY KEY,
					value TEXT NOT NULL
				)`)
			return err
		},
	},
}

func runMigrations(db *sql.DB) error {
	for _, m := range migrations {
		if err := m.apply(db); err != nil {
			return fmt.Errorf("migration %q: %w", m.name, err)
		}
	}

	return nil
}

// addColumnIfMissing applies ALTER TABLE ADD COLUMN only when the column is
// absent, making the step idempotent. The added column is nullable so
// pre-existing rows stay valid.
func addColumnIfMissing(db *sql.DB, table, column, kind string) error {
	exists, err := columnExists(db, table, column)
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, kind))

	return err
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			kind      string
			notNull   int
			deflt     sql.NullString
			isPrimary int
		)

		if err := rows.Scan(&cid, &name, &kind, &notNull, &deflt, &isPrimary); err != nil {
			return false, err
		}

		if name == column {
			return true, nil
		}
	}

	return false, rows.Err()
}
