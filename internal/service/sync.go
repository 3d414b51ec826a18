package service

import (
	"context"

	"go.uber.org/zap"
)

// RoleSyncService periodically reloads the approved set so role changes
// made outside the bot reach it.
type RoleSyncService struct {
	auth   *AuthService
	logger *zap.Logger
}

// NewRoleSyncService creates a new role sync service
func NewRoleSyncService(auth *AuthService, logger *zap.Logger) *RoleSyncService {
	return &RoleSyncService{
		auth:   auth,
		logger: logger,
	}
}

// Sync reloads the approved set once
func (s *RoleSyncService) Sync(ctx context.Context) error {
	s.logger.Debug("Starting role sync")

	count, err := s.auth.Rehydrate(ctx)
	if err != nil {
		s.logger.Error("Failed to sync roles", zap.Error(err))
		return err
	}

	s.logger.Debug("Role sync completed", zap.Int("approved", count))
	return nil
}
