package repository

import (
	"context"
	"errors"

	"librarian/internal/domain"
)

// UserRepository persists the roles granted to bot users
type UserRepository interface {
	SetRole(ctx context.Context, userID int64, role domain.Role) error
	ApprovedUserIDs(ctx context.Context) ([]int64, error)
}

// Mirror writes roles to every repository and reads them from the first one
type Mirror []UserRepository

// SetRole stores the role everywhere, reporting every failure
func (m Mirror) SetRole(ctx context.Context, userID int64, role domain.Role) error {
	var errs []error
	for _, repo := range m {
		if err := repo.SetRole(ctx, userID, role); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ApprovedUserIDs reads the approved users from the primary repository
func (m Mirror) ApprovedUserIDs(ctx context.Context) ([]int64, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return m[0].ApprovedUserIDs(ctx)
}
