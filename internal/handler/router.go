package handler

import (
	"strings"

	"librarian/internal/domain"

	"go.uber.org/zap"
)

// handleText routes a text message by the user's state
func (h *Handler) handleText(t *turn) {
	userID := t.userID()
	h.sessions.SetMenuTap(userID, t.Message)
	h.tracker.Expire(userID, t.Message, h.tracker.ShortTTL())

	text := strings.TrimSpace(t.Text)
	if strings.HasPrefix(text, "/") {
		h.handleCommand(t, text)
		return
	}

	state := h.sessions.State(userID)
	if !state.Known() {
		t.log.Warn("Unknown session state, resetting", zap.String("state", string(state)))
		h.resetFlow(t)
		h.showMenu(t, "")
		return
	}

	if h.handleMenu(t, text) {
		return
	}

	if state == domain.StateIdle || state == domain.StateAdminDashboard {
		h.showMenu(t, "Please pick an option from the menu.")
		return
	}

	// Access may have changed since the prompt was sent
	if !h.auth.Allows(userID, state.RequiredTier()) {
		h.restricted(t, state.RequiredTier())
		return
	}

	h.sessions.TakePrompt(userID)
	switch state {
	case domain.StateSearchingBook:
		h.answerSearch(t, text)
	case domain.StateCheckingStatus:
		h.answerStatus(t, text)
	case domain.StateStudentLookup:
		h.answerStudent(t, text)
	case domain.StateIssueHistoryLookup:
		h.answerHistory(t, text)
	case domain.StateAdminResetUser:
		h.answerResetUser(t, text)
	case domain.StateAdminUserHistory:
		h.answerUserHistory(t, text)
	case domain.StateAdminDbUpload:
		ref := h.sendTransient(t, domain.Outgoing{
			Text:           "📎 Please send the backup as a document, not as text.\n\n<i>/cancel to go back</i>",
			RemoveKeyboard: true,
		}, h.tracker.ShortTTL())
		h.sessions.SetPrompt(userID, ref)
	}
}
