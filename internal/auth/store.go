package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteStore implements [Store] on top of the credentials table.
//
// The table holds at most one row; Save upserts it inside a transaction so a
// partially written credential is never observable.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new [SQLiteStore] with the given database connection.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Load retrieves the stored credential, or (nil, nil) if none exists.
func (s *SQLiteStore) Load(ctx context.Context) (*Credential, error) {
	query := `
		SELECT access_token, refresh_token, expires_at, user_id
		FROM credentials
		WHERE id = 1
	`

	var cred Credential
	err := s.db.QueryRowContext(ctx, query).Scan(&cred.AccessToken, &cred.RefreshToken, &cred.ExpiresAt, &cred.UserID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}

	return &cred, nil
}

// Save upserts the credential row.
func (s *SQLiteStore) Save(ctx context.Context, cred *Credential) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO credentials (id, access_token, refresh_token, expires_at, user_id, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			user_id = excluded.user_id,
			updated_at = excluded.updated_at
	`

	if _, err := tx.ExecContext(ctx, query, cred.AccessToken, cred.RefreshToken, cred.ExpiresAt, cred.UserID, time.Now()); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit credential: %w", err)
	}

	return nil
}
