package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS credential_entries (
		scope      VARCHAR(255) NOT NULL,
		key        VARCHAR(64)  NOT NULL,
		value      TEXT         NOT NULL,
		updated_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (scope, key)
	)`,
	`CREATE INDEX IF NOT EXISTS credential_entries_updated_at_idx
		ON credential_entries (updated_at)`,
}

// Migrate creates the credential schema in a single transaction.
// Any failing statement rolls the whole schema back.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return fmt.Errorf("failed to apply schema: %v, rb err: %v", err, rbErr)
			}
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}
	return nil
}
