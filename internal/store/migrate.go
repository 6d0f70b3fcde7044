package store

import (
	"fmt"
	"log"
)

type migration struct {
	version int
	name    string
	up      func() error
}

func (s *SQLite) runMigrations() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var version int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		return err
	}

	migrations := []migration{
		{version: 1, name: "initial_schema", up: s.migration001InitialSchema},
	}

	for _, m := range migrations {
		if version >= m.version {
			continue
		}
		log.Printf("Running migration %d: %s", m.version, m.name)
		if err := m.up(); err != nil {
			return fmt.Errorf("migration %d failed: %w", m.version, err)
		}
		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.version, m.name,
		); err != nil {
			return err
		}
	}

	return nil
}

func (s *SQLite) migration001InitialSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS interactions (
			id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			contact_id TEXT,
			type TEXT NOT NULL,
			title TEXT,
			transcript TEXT,
			summary TEXT,
			occurred_at TEXT NOT NULL,
			created_at TEXT NOT NULL,
			deleted_at TEXT,
			extracted_data TEXT,
			PRIMARY KEY (user_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS persons (
			id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			segment TEXT NOT NULL DEFAULT 'D',
			family TEXT,
			occupation TEXT,
			recreation TEXT,
			dreams TEXT,
			needs TEXT,
			offers TEXT,
			profession TEXT,
			notes TEXT,
			active_deal INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (user_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS experiences (
			id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			contact_id TEXT NOT NULL,
			interaction_id TEXT NOT NULL,
			type TEXT NOT NULL,
			summary TEXT NOT NULL,
			valence TEXT,
			magnitude INTEGER NOT NULL,
			confidence INTEGER NOT NULL,
			acknowledged INTEGER NOT NULL DEFAULT 0,
			occurred_at TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (user_id, id)
		)`,
		// One experience per type per conversation, even under re-runs.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_experiences_dedup
			ON experiences(user_id, contact_id, type, interaction_id)`,
		`CREATE TABLE IF NOT EXISTS signals (
			id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			contact_id TEXT NOT NULL,
			interaction_id TEXT NOT NULL,
			experience_id TEXT,
			priority INTEGER NOT NULL,
			reasoning TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			expires_at TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (user_id, id)
		)`,
		// At most one non-terminal signal per contact. The application also
		// checks before insert; this index closes the concurrent window.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_signals_one_active
			ON signals(user_id, contact_id) WHERE status IN ('pending', 'approved')`,
		`CREATE TABLE IF NOT EXISTS drafts (
			id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			contact_id TEXT NOT NULL,
			interaction_id TEXT NOT NULL,
			type TEXT NOT NULL,
			title TEXT,
			content TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			metadata TEXT,
			created_at TEXT NOT NULL,
			PRIMARY KEY (user_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS voice_patterns (
			id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			category TEXT NOT NULL,
			value TEXT NOT NULL,
			frequency INTEGER NOT NULL DEFAULT 1,
			source TEXT,
			created_at TEXT NOT NULL,
			PRIMARY KEY (user_id, id),
			UNIQUE (user_id, category, value)
		)`,
		`CREATE TABLE IF NOT EXISTS draft_feedback (
			id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			draft_id TEXT NOT NULL,
			original_content TEXT NOT NULL,
			edited_content TEXT NOT NULL,
			processed INTEGER NOT NULL DEFAULT 0,
			learned_insights TEXT,
			created_at TEXT NOT NULL,
			PRIMARY KEY (user_id, id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_contact ON interactions(user_id, contact_id)`,
		`CREATE INDEX IF NOT EXISTS idx_experiences_contact ON experiences(user_id, contact_id)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_contact ON signals(user_id, contact_id)`,
		`CREATE INDEX IF NOT EXISTS idx_drafts_interaction ON drafts(user_id, interaction_id)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
