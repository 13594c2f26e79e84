package store

import (
	"fmt"
	"strings"
)

var migrations = map[string][]string{
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS leads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			phone TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// v2: triage status. Databases created before this column existed
		// pick it up here with every existing lead marked new.
		`ALTER TABLE leads ADD COLUMN status TEXT NOT NULL DEFAULT 'new'`,

		`CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at)`,
	},

	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS leads (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			phone VARCHAR(20) NOT NULL,
			message TEXT NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'new',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at)`,
	},

	DriverMySQL: {
		`CREATE TABLE IF NOT EXISTS leads (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			phone VARCHAR(20) NOT NULL,
			message TEXT NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'new',
			created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			INDEX idx_leads_created_at (created_at)
		) CHARACTER SET utf8mb4`,
	},
}

func (s *Store) migrate() error {
	for _, m := range migrations[s.driver] {
		if _, err := s.db.Exec(m); err != nil {
			// SQLite ALTER TABLE ADD COLUMN fails if column already exists;
			// treat "duplicate column" as a no-op for idempotent migrations.
			if strings.Contains(err.Error(), "duplicate column") {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
