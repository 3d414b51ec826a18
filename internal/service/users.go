package service

import (
	"context"
	"fmt"

	"librarian/internal/domain"

	"go.uber.org/zap"
)

// UserAPI is the bot-user directory and audit log of the CRUD backend
type UserAPI interface {
	UpsertBotUser(ctx context.Context, user domain.BotUser) error
	ListBotUsers(ctx context.Context, page, pageSize int) (*domain.BotUserPage, error)
	BotUser(ctx context.Context, userID int64) (*domain.BotUser, error)
	AppendAudit(ctx context.Context, entry domain.AuditEntry) error
	ListAudit(ctx context.Context, userID int64, limit int) ([]domain.AuditEntry, error)
}

// AuditLimit is how many audit entries the admin sees per user
const AuditLimit = 10

// UserService keeps the backend's bot-user directory in sync
type UserService struct {
	api      UserAPI
	pageSize int
	logger   *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(api UserAPI, pageSize int, logger *zap.Logger) *UserService {
	if pageSize < 1 {
		pageSize = 5
	}
	return &UserService{api: api, pageSize: pageSize, logger: logger}
}

// Register records a user the bot has just seen
func (s *UserService) Register(ctx context.Context, user domain.BotUser) error {
	if err := s.api.UpsertBotUser(ctx, user); err != nil {
		return fmt.Errorf("register user %d: %w", user.UserID, err)
	}
	return nil
}

// List returns one page of bot users
func (s *UserService) List(ctx context.Context, page int) (*domain.BotUserPage, error) {
	if page < 1 {
		page = 1
	}

	users, err := s.api.ListBotUsers(ctx, page, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("list users page %d: %w", page, err)
	}

	users.Page = page
	if users.TotalPages < 1 {
		users.TotalPages = 1
	}
	return users, nil
}

// Get returns a single bot user
func (s *UserService) Get(ctx context.Context, userID int64) (*domain.BotUser, error) {
	user, err := s.api.BotUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", userID, err)
	}
	return user, nil
}

// Audit appends an entry to the audit log. Failures are logged only.
func (s *UserService) Audit(ctx context.Context, entry domain.AuditEntry) {
	if err := s.api.AppendAudit(ctx, entry); err != nil {
		s.logger.Warn("Failed to append audit entry",
			zap.Int64("actor_id", entry.ActorID),
			zap.String("action", entry.Action),
			zap.Int64("target_id", entry.TargetID),
			zap.Error(err),
		)
	}
}

// History returns the latest audit entries about a user
func (s *UserService) History(ctx context.Context, userID int64) ([]domain.AuditEntry, error) {
	entries, err := s.api.ListAudit(ctx, userID, AuditLimit)
	if err != nil {
		return nil, fmt.Errorf("audit of user %d: %w", userID, err)
	}
	return entries, nil
}
