package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"librarian/internal/domain"
)

// UserRepo implements repository.UserRepository on the bot_users table
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new user repository
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// SetRole stores the role, creating the row on first use
func (r *UserRepo) SetRole(ctx context.Context, userID int64, role domain.Role) error {
	query := `
		INSERT INTO bot_users (user_id, role, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET role = EXCLUDED.role, updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, userID, string(role)); err != nil {
		return fmt.Errorf("set role of user %d: %w", userID, err)
	}
	return nil
}

// ApprovedUserIDs lists users holding the approved role
func (r *UserRepo) ApprovedUserIDs(ctx context.Context) ([]int64, error) {
	query := `SELECT user_id FROM bot_users WHERE role = $1 ORDER BY user_id`
	rows, err := r.db.QueryContext(ctx, query, string(domain.RoleApproved))
	if err != nil {
		return nil, fmt.Errorf("query approved users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
