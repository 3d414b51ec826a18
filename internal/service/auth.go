package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"librarian/internal/domain"
	"librarian/internal/repository"

	"go.uber.org/zap"
)

// AuthService is the authorization gate. The approved set lives in memory
// and every change is mirrored to the repository.
type AuthService struct {
	adminID int64
	mirror  repository.UserRepository
	logger  *zap.Logger

	mu       sync.RWMutex
	approved map[int64]struct{}

	// seq numbers role edits; edits are kept while a rehydrate is in flight
	seq     uint64
	syncing int
	edits   []roleEdit
}

type roleEdit struct {
	seq      uint64
	userID   int64
	approved bool
}

// NewAuthService creates a new auth service
func NewAuthService(mirror repository.UserRepository, adminID int64, logger *zap.Logger) *AuthService {
	return &AuthService{
		adminID:  adminID,
		mirror:   mirror,
		logger:   logger,
		approved: map[int64]struct{}{adminID: {}},
	}
}

// AdminID returns the administrator's user id
func (s *AuthService) AdminID() int64 {
	return s.adminID
}

// IsAdmin checks if user is the administrator
func (s *AuthService) IsAdmin(userID int64) bool {
	return userID == s.adminID
}

// IsAuthorized checks if user is the administrator or approved
func (s *AuthService) IsAuthorized(userID int64) bool {
	if s.IsAdmin(userID) {
		return true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.approved[userID]
	return ok
}

// Tier returns the user's authorization tier
func (s *AuthService) Tier(userID int64) domain.Tier {
	switch {
	case s.IsAdmin(userID):
		return domain.TierAdmin
	case s.IsAuthorized(userID):
		return domain.TierApproved
	default:
		return domain.TierBasic
	}
}

// Allows reports whether the user holds at least the required tier
func (s *AuthService) Allows(userID int64, required domain.Tier) bool {
	return s.Tier(userID) >= required
}

// Role returns the role the user holds right now
func (s *AuthService) Role(userID int64) domain.Role {
	switch s.Tier(userID) {
	case domain.TierAdmin:
		return domain.RoleAdmin
	case domain.TierApproved:
		return domain.RoleApproved
	default:
		return domain.RoleBasic
	}
}

// Approve grants the approved role. It reports false when the user already had it.
func (s *AuthService) Approve(ctx context.Context, userID int64) (bool, error) {
	if s.IsAuthorized(userID) {
		return false, nil
	}
	return true, s.SetRole(ctx, userID, domain.RoleApproved)
}

// Decline revokes the approved role, blocking the user from gated actions
func (s *AuthService) Decline(ctx context.Context, userID int64) error {
	return s.SetRole(ctx, userID, domain.RoleBasic)
}

// SetRole applies the role in memory, then mirrors it. The in-memory change
// stands even when mirroring fails.
func (s *AuthService) SetRole(ctx context.Context, userID int64, role domain.Role) error {
	if s.IsAdmin(userID) {
		return ErrAdminRole
	}
	if !role.Valid() {
		return fmt.Errorf("unsupported role %q", role)
	}

	s.mu.Lock()
	s.seq++
	edit := roleEdit{seq: s.seq, userID: userID, approved: role == domain.RoleApproved}
	apply(s.approved, edit)
	if s.syncing > 0 {
		s.edits = append(s.edits, edit)
	}
	s.mu.Unlock()

	s.logger.Info("Role changed",
		zap.Int64("user_id", userID),
		zap.String("role", string(role)),
	)

	if err := s.mirror.SetRole(ctx, userID, role); err != nil {
		return fmt.Errorf("mirror role: %w", err)
	}
	return nil
}

// Rehydrate replaces the approved set with the repository's view. Role
// changes made while the repository is read are applied on top of it.
func (s *AuthService) Rehydrate(ctx context.Context) (int, error) {
	s.mu.Lock()
	start := s.seq
	s.syncing++
	s.mu.Unlock()

	ids, err := s.mirror.ApprovedUserIDs(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.endSync()

	if err != nil {
		return 0, fmt.Errorf("load approved users: %w", err)
	}

	approved := make(map[int64]struct{}, len(ids)+1)
	approved[s.adminID] = struct{}{}
	for _, id := range ids {
		approved[id] = struct{}{}
	}
	for _, edit := range s.edits {
		if edit.seq > start {
			apply(approved, edit)
		}
	}
	s.approved = approved

	return len(approved), nil
}

// endSync must be called with s.mu held
func (s *AuthService) endSync() {
	s.syncing--
	if s.syncing == 0 {
		s.edits = nil
	}
}

func apply(approved map[int64]struct{}, edit roleEdit) {
	if edit.approved {
		approved[edit.userID] = struct{}{}
	} else {
		delete(approved, edit.userID)
	}
}

// Approved returns the approved user ids in ascending order, admin included
func (s *AuthService) Approved() []int64 {
	s.mu.RLock()
	ids := make([]int64, 0, len(s.approved))
	for id := range s.approved {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
