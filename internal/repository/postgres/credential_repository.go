package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"smartcapi-client/internal/domain"
)

// CredentialRepository implements domain.CredentialStore on a
// credential_entries table, one row per (scope, key).
type CredentialRepository struct {
	db         *sql.DB
	scope      string
	getStmt    *sql.Stmt
	upsertStmt *sql.Stmt
	deleteStmt *sql.Stmt
}

// NewCredentialRepository creates a CredentialRepository with prepared statements.
// Returns an error if statement preparation fails.
func NewCredentialRepository(db *sql.DB, scope string) (*CredentialRepository, error) {
	repo := &CredentialRepository{db: db, scope: scope}

	var err error
	repo.getStmt, err = db.Prepare(`
		SELECT value FROM credential_entries
		WHERE scope = $1 AND key = $2
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare get statement: %w", err)
	}

	repo.upsertStmt, err = db.Prepare(`
		INSERT INTO credential_entries (scope, key, value, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (scope, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to prepare upsert statement: %w", err)
	}

	repo.deleteStmt, err = db.Prepare(`
		DELETE FROM credential_entries WHERE scope = $1 AND key = $2
	`)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	return repo, nil
}

func (r *CredentialRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.getStmt.QueryRowContext(ctx, r.scope, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, r.wrap("get", err)
	}
	return value, true, nil
}

func (r *CredentialRepository) Set(ctx context.Context, key, value string) error {
	if _, err := r.upsertStmt.ExecContext(ctx, r.scope, key, value); err != nil {
		return r.wrap("set", err)
	}
	return nil
}

func (r *CredentialRepository) Remove(ctx context.Context, key string) error {
	if _, err := r.deleteStmt.ExecContext(ctx, r.scope, key); err != nil {
		return r.wrap("remove", err)
	}
	return nil
}

func (r *CredentialRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close releases the prepared statements
func (r *CredentialRepository) Close() error {
	for _, stmt := range []*sql.Stmt{r.getStmt, r.upsertStmt, r.deleteStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}

func (r *CredentialRepository) wrap(op string, err error) error {
	if IsUndefinedTable(err) {
		return fmt.Errorf("failed to %s credential: %w: schema not migrated", op, domain.ErrStoreUnavailable)
	}
	return fmt.Errorf("failed to %s credential: %w", op, err)
}
