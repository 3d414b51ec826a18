package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"librarian/internal/domain"
)

// LibraryAPI is the library part of the CRUD backend
type LibraryAPI interface {
	SearchBooks(ctx context.Context, term string, page, pageSize int) (*domain.BookPage, error)
	BookStatus(ctx context.Context, code string) (*domain.BookStatus, error)
	StudentProfile(ctx context.Context, studentID string) (*domain.Student, error)
	IssueHistory(ctx context.Context, code string) ([]domain.Transaction, error)
	Stats(ctx context.Context) (*domain.Stats, error)
	Analytics(ctx context.Context, kind domain.ReportKind, page, pageSize int) (*domain.Report, error)
	ExportDB(ctx context.Context) ([]byte, error)
	ImportDB(ctx context.Context, data []byte) error
}

// MaxBackupSize is the largest file Telegram lets a bot download
const MaxBackupSize = 20 << 20

var sqliteHeader = []byte("SQLite format 3\x00")

// LibraryService handles catalogue lookups and database maintenance
type LibraryService struct {
	api      LibraryAPI
	pageSize int
}

// NewLibraryService creates a new library service
func NewLibraryService(api LibraryAPI, pageSize int) *LibraryService {
	if pageSize < 1 {
		pageSize = 5
	}
	return &LibraryService{api: api, pageSize: pageSize}
}

// Search returns one page of books matching term
func (s *LibraryService) Search(ctx context.Context, term string, page int) (*domain.BookPage, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, ErrEmptyQuery
	}
	if page < 1 {
		page = 1
	}

	result, err := s.api.SearchBooks(ctx, term, page, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("search %q page %d: %w", term, page, err)
	}

	result.Page = page
	if result.TotalPages < 1 {
		result.TotalPages = 1
	}
	return result, nil
}

// BookStatus returns the book and its current borrower
func (s *LibraryService) BookStatus(ctx context.Context, code string) (*domain.BookStatus, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, ErrEmptyQuery
	}

	status, err := s.api.BookStatus(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("status of %s: %w", code, err)
	}
	return status, nil
}

// StudentProfile returns a member's profile and loans
func (s *LibraryService) StudentProfile(ctx context.Context, studentID string) (*domain.Student, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, ErrEmptyQuery
	}

	student, err := s.api.StudentProfile(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("student %s: %w", studentID, err)
	}
	return student, nil
}

// IssueHistory returns who borrowed the book, newest first as the backend orders it
func (s *LibraryService) IssueHistory(ctx context.Context, code string) ([]domain.Transaction, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, ErrEmptyQuery
	}

	history, err := s.api.IssueHistory(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("history of %s: %w", code, err)
	}
	return history, nil
}

// Stats returns the library-wide counters
func (s *LibraryService) Stats(ctx context.Context) (*domain.Stats, error) {
	stats, err := s.api.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("library stats: %w", err)
	}
	return stats, nil
}

// Analytics returns one page of an administrator report
func (s *LibraryService) Analytics(ctx context.Context, kind domain.ReportKind, page int) (*domain.Report, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReport, kind)
	}
	if page < 1 {
		page = 1
	}

	report, err := s.api.Analytics(ctx, kind, page, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("report %s page %d: %w", kind, page, err)
	}

	report.Kind = kind
	report.Page = page
	if report.Title == "" {
		report.Title = kind.Title()
	}
	if report.TotalPages < 1 {
		report.TotalPages = 1
	}
	return report, nil
}

// Export downloads a copy of the library database
func (s *LibraryService) Export(ctx context.Context) ([]byte, error) {
	data, err := s.api.ExportDB(ctx)
	if err != nil {
		return nil, fmt.Errorf("export database: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("export database: %w", ErrInvalidBackup)
	}
	return data, nil
}

// Import replaces the library database with an uploaded SQLite file
func (s *LibraryService) Import(ctx context.Context, data []byte) error {
	if err := ValidateBackup(data); err != nil {
		return err
	}
	if err := s.api.ImportDB(ctx, data); err != nil {
		return fmt.Errorf("import database: %w", err)
	}
	return nil
}

// ValidateBackup checks that data looks like a SQLite database file
func ValidateBackup(data []byte) error {
	switch {
	case len(data) == 0:
		return fmt.Errorf("%w: file is empty", ErrInvalidBackup)
	case len(data) > MaxBackupSize:
		return fmt.Errorf("%w: file exceeds %d MB", ErrInvalidBackup, MaxBackupSize>>20)
	case !bytes.HasPrefix(data, sqliteHeader):
		return fmt.Errorf("%w: not a SQLite database", ErrInvalidBackup)
	}
	return nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
