package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	"librarian/internal/domain"
)

type searchRequest struct {
	Term     string `json:"term"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

type bookDTO struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Category  string `json:"category"`
	Available int    `json:"available"`
}

func (b bookDTO) toDomain() domain.Book {
	return domain.Book{
		Code:      b.ID,
		Title:     b.Title,
		Author:    b.Author,
		Category:  b.Category,
		Available: b.Available,
	}
}

type searchResponse struct {
	Books      []bookDTO `json:"books"`
	Count      int       `json:"count"`
	Page       int       `json:"page"`
	TotalPages int       `json:"total_pages"`
	TotalCount int       `json:"total_count"`
}

// SearchBooks returns one page of books matching term
func (c *Client) SearchBooks(ctx context.Context, term string, page, pageSize int) (*domain.BookPage, error) {
	var resp searchResponse
	if err := c.call(ctx, http.MethodPost, "/search_book", searchRequest{Term: term, Page: page, PageSize: pageSize}, &resp); err != nil {
		return nil, err
	}

	result := &domain.BookPage{
		Books:      make([]domain.Book, 0, len(resp.Books)),
		Page:       resp.Page,
		TotalPages: resp.TotalPages,
		TotalCount: resp.TotalCount,
	}
	for _, b := range resp.Books {
		result.Books = append(result.Books, b.toDomain())
	}

	if result.TotalCount == 0 {
		result.TotalCount = resp.Count
	}
	if result.TotalPages == 0 && pageSize > 0 {
		result.TotalPages = (result.TotalCount + pageSize - 1) / pageSize
	}
	if result.Page == 0 {
		result.Page = page
	}
	return result, nil
}

type bookRequest struct {
	BookID string `json:"book_id"`
}

type borrowerDTO struct {
	Name      string `json:"name"`
	Batch     string `json:"batch"`
	IssueDate string `json:"issue_date"`
	DueDate   string `json:"due_date"`
}

type statusResponse struct {
	bookDTO
	IssuedTo *borrowerDTO `json:"issued_to"`
}

// BookStatus returns a book and its current borrower
func (c *Client) BookStatus(ctx context.Context, code string) (*domain.BookStatus, error) {
	var resp statusResponse
	if err := c.call(ctx, http.MethodPost, "/book_status", bookRequest{BookID: code}, &resp); err != nil {
		return nil, err
	}

	status := &domain.BookStatus{Book: resp.toDomain()}
	if resp.IssuedTo != nil {
		status.IssuedTo = &domain.Borrower{
			Name:      resp.IssuedTo.Name,
			Batch:     resp.IssuedTo.Batch,
			IssueDate: resp.IssuedTo.IssueDate,
			DueDate:   resp.IssuedTo.DueDate,
		}
	}
	return status, nil
}

type studentRequest struct {
	StudentID string `json:"student_id"`
}

type loanDTO struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	IssueDate  string `json:"issue_date"`
	ReturnDate string `json:"return_date"`
}

type studentResponse struct {
	StudentID string    `json:"student_id"`
	Name      string    `json:"name"`
	Batch     string    `json:"batch"`
	Photo     string    `json:"photo"`
	HasPhoto  bool      `json:"has_photo"`
	Issued    []loanDTO `json:"issued"`
	Returned  []loanDTO `json:"returned"`
}

func toLoans(in []loanDTO) []domain.Loan {
	loans := make([]domain.Loan, 0, len(in))
	for _, l := range in {
		loans = append(loans, domain.Loan{
			Code:       l.ID,
			Title:      l.Title,
			IssueDate:  l.IssueDate,
			ReturnDate: l.ReturnDate,
		})
	}
	return loans
}

// StudentProfile returns a member's profile, loans and photo
func (c *Client) StudentProfile(ctx context.Context, studentID string) (*domain.Student, error) {
	var resp studentResponse
	if err := c.call(ctx, http.MethodPost, "/student_details", studentRequest{StudentID: studentID}, &resp); err != nil {
		return nil, err
	}

	student := &domain.Student{
		ID:       resp.StudentID,
		Name:     resp.Name,
		Batch:    resp.Batch,
		Issued:   toLoans(resp.Issued),
		Returned: toLoans(resp.Returned),
	}
	if resp.Photo != "" {
		photo, err := base64.StdEncoding.DecodeString(resp.Photo)
		if err != nil {
			// A broken photo should not hide the profile.
			c.logger.Warn("Discarding undecodable student photo")
		} else {
			student.Photo = photo
		}
	}
	return student, nil
}

type transactionDTO struct {
	Name       string  `json:"name"`
	IssueDate  string  `json:"issue_date"`
	ReturnDate *string `json:"return_date"`
}

type historyResponse struct {
	BookID  string           `json:"book_id"`
	History []transactionDTO `json:"history"`
}

// IssueHistory returns the latest loans of a book
func (c *Client) IssueHistory(ctx context.Context, code string) ([]domain.Transaction, error) {
	var resp historyResponse
	if err := c.call(ctx, http.MethodPost, "/issue_history", bookRequest{BookID: code}, &resp); err != nil {
		return nil, err
	}

	history := make([]domain.Transaction, 0, len(resp.History))
	for _, t := range resp.History {
		tx := domain.Transaction{Name: t.Name, IssueDate: t.IssueDate}
		if t.ReturnDate != nil {
			tx.ReturnDate = *t.ReturnDate
		}
		history = append(history, tx)
	}
	return history, nil
}

type statsResponse struct {
	TotalBooks      int    `json:"total_books"`
	AvailableCopies int    `json:"available_copies"`
	IssuedBooks     int    `json:"issued_books"`
	Timestamp       string `json:"timestamp"`
}

// Stats returns library-wide counters
func (c *Client) Stats(ctx context.Context) (*domain.Stats, error) {
	var resp statsResponse
	if err := c.call(ctx, http.MethodGet, "/library_stats", nil, &resp); err != nil {
		return nil, err
	}
	return &domain.Stats{
		TotalBooks:      resp.TotalBooks,
		AvailableCopies: resp.AvailableCopies,
		IssuedBooks:     resp.IssuedBooks,
		Timestamp:       resp.Timestamp,
	}, nil
}

type analyticsRequest struct {
	Report   string `json:"report"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

type reportRowDTO struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type analyticsResponse struct {
	Title      string         `json:"title"`
	Rows       []reportRowDTO `json:"rows"`
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
}

// Analytics returns one page of an administrator report
func (c *Client) Analytics(ctx context.Context, kind domain.ReportKind, page, pageSize int) (*domain.Report, error) {
	var resp analyticsResponse
	req := analyticsRequest{Report: string(kind), Page: page, PageSize: pageSize}
	if err := c.call(ctx, http.MethodPost, "/analytics", req, &resp); err != nil {
		return nil, err
	}

	report := &domain.Report{
		Kind:       kind,
		Title:      resp.Title,
		Rows:       make([]domain.ReportRow, 0, len(resp.Rows)),
		Page:       resp.Page,
		TotalPages: resp.TotalPages,
	}
	for _, r := range resp.Rows {
		report.Rows = append(report.Rows, domain.ReportRow{Label: r.Label, Value: r.Value})
	}
	return report, nil
}

// ExportDB downloads the library database file
func (c *Client) ExportDB(ctx context.Context) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodGet, "/export", "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.decode(resp, "/export", nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	return data, nil
}

// ImportDB replaces the library database file
func (c *Client) ImportDB(ctx context.Context, data []byte) error {
	resp, err := c.send(ctx, http.MethodPost, "/import", "application/octet-stream", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.decode(resp, "/import", nil)
}
