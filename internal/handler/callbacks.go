package handler

import (
	"librarian/internal/domain"

	"go.uber.org/zap"
)

// answer is the toast shown for a button press
type answer struct {
	text  string
	alert bool
}

var menuButton = domain.Button{Text: "🏠 Menu", Action: domain.Action{Kind: domain.ActionMenu}}

// againRow offers to repeat a lookup or go back to the menu
func againRow(kind domain.ActionKind, text string) [][]domain.Button {
	return [][]domain.Button{{
		{Text: text, Action: domain.Action{Kind: kind}},
		menuButton,
	}}
}

// navRow renders Prev/Next for a cursor; Next needs more than one page
func navRow(c domain.Cursor, kind domain.ActionKind) []domain.Button {
	var row []domain.Button
	if c.HasPrev() {
		row = append(row, domain.Button{Text: "⬅️ Prev", Action: domain.Action{Kind: kind, Delta: -1}})
	}
	if c.TotalPages > 1 && c.HasNext() {
		row = append(row, domain.Button{Text: "Next ➡️", Action: domain.Action{Kind: kind, Delta: 1}})
	}
	return row
}

// handleCallback handles ALL callback queries and answers each exactly once
func (h *Handler) handleCallback(t *turn) {
	unique, payload := domain.ParseCallbackData(t.Callback.Data)

	var ans answer
	action, err := domain.DecodeAction(unique, payload)
	if err != nil {
		t.log.Warn("Unhandled callback",
			zap.String("unique", unique),
			zap.String("payload", payload),
			zap.Error(err),
		)
		ans = answer{text: "This button is no longer available."}
	} else {
		t.log.Debug("Processing callback", zap.Stringer("action", action.Kind))
		ans = h.dispatch(t, action)
	}

	if err := h.messenger.Answer(t.ctx, t.Callback.ID, ans.text, ans.alert); err != nil {
		t.log.Debug("Failed to answer callback", zap.Error(err))
	}
}

func (h *Handler) dispatch(t *turn, a domain.Action) answer {
	switch a.Kind {
	case domain.ActionMenu:
		h.resetFlow(t)
		h.showMenu(t, "")
		return answer{}
	case domain.ActionSearchAgain:
		h.sessions.ClearContexts(t.userID())
		h.enter(t, domain.StateSearchingBook)
		return answer{}
	case domain.ActionStatusAgain:
		h.enter(t, domain.StateCheckingStatus)
		return answer{}
	case domain.ActionStudentAgain:
		h.enter(t, domain.StateStudentLookup)
		return answer{}
	case domain.ActionHistoryAgain:
		h.enter(t, domain.StateIssueHistoryLookup)
		return answer{}
	case domain.ActionSearchPage:
		return h.searchPage(t, a.Delta)
	}

	if !h.auth.IsAdmin(t.userID()) {
		t.log.Warn("Admin action from non-admin", zap.Stringer("action", a.Kind))
		return answer{text: "🚫 Administrators only.", alert: true}
	}
	return h.dispatchAdmin(t, a)
}
