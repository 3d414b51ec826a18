package handler

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"librarian/internal/backend"
	"librarian/internal/domain"
	"librarian/internal/service"

	"go.uber.org/zap"
)

const (
	// captions are capped by the platform; longer profiles go out as text
	captionLimit = 900
	maxLoans     = 10
)

// fail reports a failed lookup and returns the user to idle
func (h *Handler) fail(t *turn, op string, err error, notFound string) {
	var note string
	switch {
	case errors.Is(err, backend.ErrNotFound) && notFound != "":
		t.log.Info("Lookup found nothing", zap.String("op", op), zap.Error(err))
		note = notFound
	case errors.Is(err, service.ErrEmptyQuery):
		note = "✏️ Please type something to look up."
	case errors.Is(err, service.ErrInvalidBackup):
		t.log.Warn("Rejected backup", zap.Error(err))
		note = "⚠️ That file is not a valid library database backup."
	default:
		t.log.Error("Lookup failed", zap.String("op", op), zap.Error(err))
		note = "⚠️ Something went wrong. Please try again."
	}
	h.sessions.SetState(t.userID(), domain.StateIdle)
	h.showMenu(t, note)
}

func (h *Handler) answerSearch(t *turn, term string) {
	page, err := h.library.Search(t.ctx, term, 1)
	if err != nil {
		h.fail(t, "search books", err, "")
		return
	}

	if len(page.Books) == 0 {
		h.sessions.ClearSearch(t.userID())
		h.sendResult(t, domain.Outgoing{
			Text:   fmt.Sprintf("🔍 No books match <b>%s</b>.", html.EscapeString(term)),
			Inline: againRow(domain.ActionSearchAgain, "🔍 New Search"),
		})
		h.finish(t)
		return
	}

	search := h.sessions.BeginSearch(t.userID(), strings.TrimSpace(term))
	h.sessions.SetSearchPage(t.userID(), page.Page, page.TotalPages)
	h.sendSearchPage(t, search.Term, page)
	h.finish(t)
}

// searchPage moves the user's search by delta pages without touching the state
func (h *Handler) searchPage(t *turn, delta int) answer {
	search, ok := h.sessions.Search(t.userID())
	if !ok {
		return answer{text: "This search has expired. Start a new one.", alert: true}
	}
	target, ok := search.Target(delta)
	if !ok {
		return answer{text: "No more pages."}
	}

	page, err := h.library.Search(t.ctx, search.Term, target)
	if err != nil {
		t.log.Error("Failed to load search page", zap.Int("page", target), zap.Error(err))
		return answer{text: "⚠️ Could not load the page. Please try again.", alert: true}
	}

	h.sessions.SetSearchPage(t.userID(), page.Page, page.TotalPages)
	h.sendSearchPage(t, search.Term, page)
	return answer{}
}

func (h *Handler) sendSearchPage(t *turn, term string, page *domain.BookPage) {
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 <b>Results for \"%s\"</b>\nPage %d of %d, %d found\n",
		html.EscapeString(term), page.Page, page.TotalPages, page.TotalCount)
	for _, book := range page.Books {
		b.WriteString("\n" + renderBookLine(book))
	}

	cursor := domain.Cursor{Page: page.Page, TotalPages: page.TotalPages}
	rows := [][]domain.Button{}
	if nav := navRow(cursor, domain.ActionSearchPage); len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, againRow(domain.ActionSearchAgain, "🔍 New Search")...)

	h.sendResult(t, domain.Outgoing{Text: b.String(), Inline: rows})
}

func (h *Handler) answerStatus(t *turn, code string) {
	status, err := h.library.BookStatus(t.ctx, code)
	if err != nil {
		h.fail(t, "book status", err, fmt.Sprintf("📕 No book found with code <b>%s</b>.", html.EscapeString(code)))
		return
	}

	h.sendResult(t, domain.Outgoing{
		Text:   renderStatus(status),
		Inline: againRow(domain.ActionStatusAgain, "📖 Check Another"),
	})
	h.finish(t)
}

func (h *Handler) answerStudent(t *turn, studentID string) {
	student, err := h.library.StudentProfile(t.ctx, studentID)
	if err != nil {
		h.fail(t, "student profile", err, fmt.Sprintf("👤 No student found with ID <b>%s</b>.", html.EscapeString(studentID)))
		return
	}

	msg := domain.Outgoing{
		Text:   renderStudent(student),
		Inline: againRow(domain.ActionStudentAgain, "👤 Another Student"),
	}
	if len(student.Photo) > 0 && utf8.RuneCountInString(msg.Text) <= captionLimit {
		msg.Photo = student.Photo
	}
	h.sendResult(t, msg)
	h.finish(t)
}

func (h *Handler) answerHistory(t *turn, code string) {
	history, err := h.library.IssueHistory(t.ctx, code)
	if err != nil {
		h.fail(t, "issue history", err, fmt.Sprintf("📕 No book found with code <b>%s</b>.", html.EscapeString(code)))
		return
	}

	h.sendResult(t, domain.Outgoing{
		Text:   renderHistory(strings.ToUpper(strings.TrimSpace(code)), history),
		Inline: againRow(domain.ActionHistoryAgain, "🕘 Another Book"),
	})
	h.finish(t)
}

func (h *Handler) showStats(t *turn) {
	stats, err := h.library.Stats(t.ctx)
	if err != nil {
		h.fail(t, "library stats", err, "")
		return
	}

	text := fmt.Sprintf("📊 <b>Library Stats</b>\n\nTotal books: <b>%d</b>\nAvailable copies: <b>%d</b>\nIssued: <b>%d</b>",
		stats.TotalBooks, stats.AvailableCopies, stats.IssuedBooks)
	if stats.Timestamp != "" {
		text += "\n\n<i>Updated " + html.EscapeString(stats.Timestamp) + "</i>"
	}
	h.sendResult(t, domain.Outgoing{Text: text, Inline: [][]domain.Button{{menuButton}}})
	h.showMenu(t, "")
}

func renderBookLine(book domain.Book) string {
	availability := "❌ not available"
	if book.IsAvailable() {
		availability = fmt.Sprintf("✅ %d available", book.Available)
	}

	line := "• <b>" + html.EscapeString(book.Title) + "</b>"
	if book.Author != "" {
		line += " by " + html.EscapeString(book.Author)
	}
	line += "\n   <code>" + html.EscapeString(book.Code) + "</code>"
	if book.Category != "" {
		line += " · " + html.EscapeString(book.Category)
	}
	return line + " · " + availability
}

func renderStatus(status *domain.BookStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📖 <b>%s</b>\nCode: <code>%s</code>\n", html.EscapeString(status.Title), html.EscapeString(status.Code))
	if status.Author != "" {
		fmt.Fprintf(&b, "Author: %s\n", html.EscapeString(status.Author))
	}

	if status.IsAvailable() {
		fmt.Fprintf(&b, "Status: ✅ Available (%d on the shelf)", status.Available)
	} else {
		b.WriteString("Status: 📕 Issued")
	}

	if borrower := status.IssuedTo; borrower != nil {
		fmt.Fprintf(&b, "\n\nIssued to: <b>%s</b>", html.EscapeString(borrower.Name))
		if borrower.Batch != "" {
			fmt.Fprintf(&b, " (%s)", html.EscapeString(borrower.Batch))
		}
		if borrower.IssueDate != "" {
			fmt.Fprintf(&b, "\nIssued on: %s", html.EscapeString(borrower.IssueDate))
		}
		if borrower.DueDate != "" {
			fmt.Fprintf(&b, "\nDue: %s", html.EscapeString(borrower.DueDate))
		}
	}
	return b.String()
}

func renderStudent(student *domain.Student) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👤 <b>%s</b>\nID: <code>%s</code>", html.EscapeString(student.Name), html.EscapeString(student.ID))
	if student.Batch != "" {
		fmt.Fprintf(&b, " · Batch %s", html.EscapeString(student.Batch))
	}

	fmt.Fprintf(&b, "\n\n📚 <b>Currently issued</b> (%d)", len(student.Issued))
	writeLoans(&b, student.Issued, func(l domain.Loan) string { return "since " + l.IssueDate })

	fmt.Fprintf(&b, "\n\n✅ <b>Returned</b> (%d)", len(student.Returned))
	writeLoans(&b, student.Returned, func(l domain.Loan) string { return "returned " + l.ReturnDate })
	return b.String()
}

func writeLoans(b *strings.Builder, loans []domain.Loan, when func(domain.Loan) string) {
	if len(loans) == 0 {
		b.WriteString("\nNone")
		return
	}
	for i, loan := range loans {
		if i == maxLoans {
			fmt.Fprintf(b, "\n…and %d more", len(loans)-maxLoans)
			return
		}
		fmt.Fprintf(b, "\n• %s (<code>%s</code>) %s",
			html.EscapeString(loan.Title), html.EscapeString(loan.Code), html.EscapeString(when(loan)))
	}
}

func renderHistory(code string, history []domain.Transaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🕘 <b>Issue history of</b> <code>%s</code>\n", html.EscapeString(code))
	if len(history) == 0 {
		b.WriteString("\nNo one has borrowed this book yet.")
		return b.String()
	}

	for _, tx := range history {
		returned := "⏳ not returned"
		if tx.Returned() {
			returned = "returned " + html.EscapeString(tx.ReturnDate)
		}
		fmt.Fprintf(&b, "\n• <b>%s</b>: issued %s, %s",
			html.EscapeString(tx.Name), html.EscapeString(tx.IssueDate), returned)
	}
	return b.String()
}
