package testutil

import (
	"time"

	"librarian/internal/domain"

	"go.uber.org/zap"
)

// NewTestLogger creates a no-op logger for tests
func NewTestLogger() *zap.Logger {
	return zap.NewNop()
}

// NewTestBook creates a test book
func NewTestBook(code, title string, available int) domain.Book {
	return domain.Book{
		Code:      code,
		Title:     title,
		Author:    "Unknown",
		Category:  "General",
		Available: available,
	}
}

// NewTestBookPage creates a page of n books
func NewTestBookPage(page, totalPages int, titles ...string) *domain.BookPage {
	books := make([]domain.Book, 0, len(titles))
	for i, title := range titles {
		books = append(books, NewTestBook("B"+string(rune('A'+i)), title, 1))
	}
	return &domain.BookPage{
		Books:      books,
		Page:       page,
		TotalPages: totalPages,
		TotalCount: totalPages * len(titles),
	}
}

// NewTestBotUser creates a test bot user
func NewTestBotUser(userID int64, role domain.Role) domain.BotUser {
	return domain.BotUser{
		UserID:    userID,
		Username:  "reader",
		FirstName: "Test",
		LastName:  "Reader",
		Role:      role,
		LastSeen:  time.Now(),
	}
}
