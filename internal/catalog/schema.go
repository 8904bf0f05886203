package catalog

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS packages (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        state TEXT NOT NULL,
        last_state TEXT,
        last_transition TEXT,
        error_code INTEGER NOT NULL DEFAULT 0,
        original_file_name TEXT NOT NULL,
        original_package_path TEXT,
        package_type TEXT,
        platform_type TEXT,
        title TEXT,
        date TEXT,
        media_ids TEXT,
        metadata_json TEXT,
        link TEXT,
        thumbnail TEXT,
        timecodes_json TEXT,
        tags_json TEXT,
        locked_by INTEGER NOT NULL DEFAULT 0,
        merge_required INTEGER NOT NULL DEFAULT 0,
        removed INTEGER NOT NULL DEFAULT 0,
        created_at TEXT NOT NULL,
        updated_at TEXT NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_packages_state ON packages(state)`,
	`CREATE INDEX IF NOT EXISTS idx_packages_name ON packages(original_file_name)`,
	`CREATE TABLE IF NOT EXISTS points_of_interest (
        id TEXT PRIMARY KEY,
        package_id INTEGER NOT NULL,
        name TEXT,
        description TEXT,
        description_text TEXT,
        value INTEGER NOT NULL DEFAULT 0,
        file_json TEXT,
        created_at TEXT NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_poi_package ON points_of_interest(package_id)`,
}

func (s *Store) applySchema(ctx context.Context) error {
	for _, statement := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
