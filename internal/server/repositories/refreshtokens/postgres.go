package refreshtokens

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/recipehub/internal/common"
	"github.com/dmitrijs2005/recipehub/internal/dbx"
)

// PostgresRepository keeps the token in users.refresh_token over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (string, error) {
	query := `SELECT refresh_token FROM users WHERE id = $1`

	var token sql.NullString
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&token); err != nil {
		return "", dbx.MapError(err)
	}
	return token.String, nil
}

func (r *PostgresRepository) Set(ctx context.Context, userID string, token string) error {
	query := `
		UPDATE users SET refresh_token = NULLIF($2, ''), updated_at = now()
		WHERE id = $1
	`
	n, err := r.exec(ctx, query, userID, token)
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// Rotate is a single conditional UPDATE, so two concurrent rotations of
// the same token cannot both succeed.
func (r *PostgresRepository) Rotate(ctx context.Context, userID string, presented, next string) (bool, error) {
	query := `
		UPDATE users SET refresh_token = $3, updated_at = now()
		WHERE id = $1 AND refresh_token = $2
	`
	n, err := r.exec(ctx, query, userID, presented, next)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, dbx.MapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dbx.MapError(err)
	}
	return n, nil
}
