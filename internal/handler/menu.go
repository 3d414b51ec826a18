package handler

import (
	"fmt"
	"html"
	"strings"

	"librarian/internal/domain"

	"go.uber.org/zap"
)

// Main menu labels
const (
	btnFindBook      = "🔍 Find a Book"
	btnCheckStatus   = "📖 Check Status"
	btnStudent       = "👤 Student Profile"
	btnHistory       = "🕘 Reading History"
	btnStats         = "📊 Library Stats"
	btnRequestAccess = "🔐 Request Access"
	btnAdminPanel    = "🛠 Admin Panel"
	btnExit          = "❌ Exit"
)

var prompts = map[domain.State]string{
	domain.StateSearchingBook:      "🔍 Send a title, author or keyword to search for.\n\n<i>/cancel to go back</i>",
	domain.StateCheckingStatus:     "📖 Send the book code to check.\n\n<i>/cancel to go back</i>",
	domain.StateStudentLookup:      "👤 Send the student ID.\n\n<i>/cancel to go back</i>",
	domain.StateIssueHistoryLookup: "🕘 Send the book code to see who borrowed it.\n\n<i>/cancel to go back</i>",
	domain.StateAdminResetUser:     "♻️ Send the user ID whose session should be reset.\n\n<i>/cancel to go back</i>",
	domain.StateAdminUserHistory:   "🧾 Send the user ID to show the audit trail for.\n\n<i>/cancel to go back</i>",
	domain.StateAdminDbUpload:      "📥 Send the database backup as a document.\n\n<i>/cancel to go back</i>",
}

// menuKeyboard shows what the user may pick; gated options are re-checked on entry
func (h *Handler) menuKeyboard(userID int64) [][]string {
	rows := [][]string{{btnFindBook, btnCheckStatus}}
	if h.auth.IsAuthorized(userID) {
		rows = append(rows, []string{btnStudent, btnHistory}, []string{btnStats})
	} else {
		rows = append(rows, []string{btnStats, btnRequestAccess})
	}
	if h.auth.IsAdmin(userID) {
		rows = append(rows, []string{btnAdminPanel})
	}
	return append(rows, []string{btnExit})
}

// showMenu sends the main menu, optionally preceded by a note
func (h *Handler) showMenu(t *turn, note string) {
	text := "🏛 <b>Library Assistant</b>\n\nChoose an option below."
	if note != "" {
		text = note + "\n\n" + text
	}
	h.sendTransient(t, domain.Outgoing{
		Text:  text,
		Reply: h.menuKeyboard(t.userID()),
	}, h.tracker.ShortTTL())
}

// handleCommand handles slash commands
func (h *Handler) handleCommand(t *turn, command string) {
	name, _, _ := strings.Cut(command, " ")
	name, _, _ = strings.Cut(name, "@")

	switch name {
	case "/start":
		t.log.Info("User started bot", zap.String("username", t.User.Username))
		h.resetFlow(t)
		h.showMenu(t, fmt.Sprintf("👋 Hello, %s!", html.EscapeString(t.User.DisplayName())))
	case "/menu":
		h.resetFlow(t)
		h.showMenu(t, "")
	case "/cancel":
		note := "Nothing to cancel."
		if h.sessions.State(t.userID()) != domain.StateIdle {
			note = "❎ Cancelled."
		}
		h.resetFlow(t)
		h.showMenu(t, note)
	case "/admin":
		h.openDashboard(t)
	default:
		h.showMenu(t, "Unknown command.")
	}
}

// resetFlow abandons the current flow and its pagination contexts
func (h *Handler) resetFlow(t *turn) {
	h.sessions.SetState(t.userID(), domain.StateIdle)
	h.sessions.ClearContexts(t.userID())
	h.sessions.TakePrompt(t.userID())
}

// handleMenu handles a main menu label; it reports false for other text
func (h *Handler) handleMenu(t *turn, text string) bool {
	switch text {
	case btnFindBook:
		h.sessions.ClearContexts(t.userID())
		h.enter(t, domain.StateSearchingBook)
	case btnCheckStatus:
		h.enter(t, domain.StateCheckingStatus)
	case btnStudent:
		h.enter(t, domain.StateStudentLookup)
	case btnHistory:
		h.enter(t, domain.StateIssueHistoryLookup)
	case btnStats:
		h.sessions.SetState(t.userID(), domain.StateIdle)
		h.showStats(t)
	case btnRequestAccess:
		h.sessions.SetState(t.userID(), domain.StateIdle)
		h.requestAccess(t)
	case btnAdminPanel:
		h.openDashboard(t)
	case btnExit:
		h.resetFlow(t)
		h.sendTransient(t, domain.Outgoing{
			Text:           "👋 Session closed. Use /start to begin again.",
			RemoveKeyboard: true,
		}, h.tracker.ShortTTL())
	default:
		return false
	}
	return true
}
