package testutil

import (
	"context"

	"librarian/internal/domain"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock for repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) SetRole(ctx context.Context, userID int64, role domain.Role) error {
	args := m.Called(ctx, userID, role)
	return args.Error(0)
}

func (m *MockUserRepository) ApprovedUserIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

// MockLibraryAPI is a mock for service.LibraryAPI
type MockLibraryAPI struct {
	mock.Mock
}

func (m *MockLibraryAPI) SearchBooks(ctx context.Context, term string, page, pageSize int) (*domain.BookPage, error) {
	args := m.Called(ctx, term, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookPage), args.Error(1)
}

func (m *MockLibraryAPI) BookStatus(ctx context.Context, code string) (*domain.BookStatus, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookStatus), args.Error(1)
}

func (m *MockLibraryAPI) StudentProfile(ctx context.Context, studentID string) (*domain.Student, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Student), args.Error(1)
}

func (m *MockLibraryAPI) IssueHistory(ctx context.Context, code string) ([]domain.Transaction, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

func (m *MockLibraryAPI) Stats(ctx context.Context) (*domain.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Stats), args.Error(1)
}

func (m *MockLibraryAPI) Analytics(ctx context.Context, kind domain.ReportKind, page, pageSize int) (*domain.Report, error) {
	args := m.Called(ctx, kind, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Report), args.Error(1)
}

func (m *MockLibraryAPI) ExportDB(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockLibraryAPI) ImportDB(ctx context.Context, data []byte) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

// MockUserAPI is a mock for service.UserAPI
type MockUserAPI struct {
	mock.Mock
}

func (m *MockUserAPI) UpsertBotUser(ctx context.Context, user domain.BotUser) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserAPI) ListBotUsers(ctx context.Context, page, pageSize int) (*domain.BotUserPage, error) {
	args := m.Called(ctx, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BotUserPage), args.Error(1)
}

func (m *MockUserAPI) BotUser(ctx context.Context, userID int64) (*domain.BotUser, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BotUser), args.Error(1)
}

func (m *MockUserAPI) AppendAudit(ctx context.Context, entry domain.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockUserAPI) ListAudit(ctx context.Context, userID int64, limit int) ([]domain.AuditEntry, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AuditEntry), args.Error(1)
}
