package handler

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"librarian/internal/backend"
	"librarian/internal/domain"
	"librarian/internal/service"
	"librarian/internal/tracker"

	"go.uber.org/zap"
)

var panelButton = domain.Button{Text: "🛠 Panel", Action: domain.Action{Kind: domain.ActionDashboard}}

func (h *Handler) dispatchAdmin(t *turn, a domain.Action) answer {
	switch a.Kind {
	case domain.ActionApprove:
		return h.decide(t, a.Target, true)
	case domain.ActionDecline:
		return h.decide(t, a.Target, false)
	case domain.ActionSetRole:
		return h.setRole(t, a.Target, a.Role)
	case domain.ActionDashboard:
		h.openDashboard(t)
	case domain.ActionUsersPage:
		return h.usersPage(t, a.Delta)
	case domain.ActionUserDetail:
		return h.showUser(t, a.Target)
	case domain.ActionUserAudit:
		if err := h.sendAudit(t, a.Target); err != nil {
			t.log.Error("Failed to load audit trail", zap.Int64("target_id", a.Target), zap.Error(err))
			return answer{text: "⚠️ Could not load the audit trail.", alert: true}
		}
	case domain.ActionResetUser:
		cancelled := h.resetSession(t, a.Target)
		return answer{text: fmt.Sprintf("Session reset, %d pending deletions cancelled.", cancelled)}
	case domain.ActionResetPrompt:
		h.enter(t, domain.StateAdminResetUser)
	case domain.ActionAuditPrompt:
		h.enter(t, domain.StateAdminUserHistory)
	case domain.ActionAnalytics:
		return h.beginAnalytics(t, a.Report)
	case domain.ActionAnalyticsPage:
		return h.analyticsPage(t, a.Delta)
	case domain.ActionExportDB:
		return h.exportDB(t)
	case domain.ActionImportPrompt:
		h.enter(t, domain.StateAdminDbUpload)
	}
	return answer{}
}

// requestAccess forwards a basic user's request to the administrator
func (h *Handler) requestAccess(t *turn) {
	if h.auth.IsAuthorized(t.userID()) {
		h.showMenu(t, "✅ You already have access.")
		return
	}

	u := t.User
	text := fmt.Sprintf("🔐 <b>Access request</b>\n\nName: %s\nID: <code>%d</code>", html.EscapeString(u.DisplayName()), u.UserID)
	if u.Username != "" {
		text += "\nUsername: @" + html.EscapeString(u.Username)
	}

	ref := h.tracker.Send(t.ctx, t.userID(), h.auth.AdminID(), domain.Outgoing{
		Text: text,
		Inline: [][]domain.Button{{
			{Text: "✅ Approve", Action: domain.Action{Kind: domain.ActionApprove, Target: u.UserID}},
			{Text: "❌ Decline", Action: domain.Action{Kind: domain.ActionDecline, Target: u.UserID}},
		}},
	}, tracker.Notice, 0)
	if ref.IsZero() {
		h.showMenu(t, "⚠️ Could not reach the librarian. Please try again later.")
		return
	}

	t.log.Info("Access requested")
	h.showMenu(t, "📨 Your request was sent to the librarian. You will be notified here.")
}

// decide resolves an access request from its notice
func (h *Handler) decide(t *turn, target int64, approve bool) answer {
	var (
		changed = true
		err     error
	)
	if approve {
		changed, err = h.auth.Approve(t.ctx, target)
	} else {
		err = h.auth.Decline(t.ctx, target)
	}
	if errors.Is(err, service.ErrAdminRole) {
		return answer{text: "The administrator's role cannot change.", alert: true}
	}

	verdict, action, notice := "❌ DECLINED by Admin", domain.AuditDecline, "Your access request was declined."
	if approve {
		verdict, action, notice = "✅ APPROVED by Admin", domain.AuditApprove,
			"🎉 Your access request was approved! Use /start to open the full menu."
	}
	if err != nil {
		t.log.Error("Failed to mirror access decision", zap.Int64("target_id", target), zap.Error(err))
		verdict += "\n⚠️ Saved in the bot only, the backend did not confirm."
	}

	if !t.Message.IsZero() {
		text := html.EscapeString(t.MessageText) + "\n\n" + verdict
		if editErr := h.messenger.Edit(t.ctx, t.Message, text); editErr != nil {
			t.log.Debug("Failed to edit access request", zap.Error(editErr))
		}
	}

	if approve && !changed {
		return answer{text: "Already approved."}
	}

	h.tracker.Send(t.ctx, target, target, domain.Outgoing{Text: notice}, tracker.Notice, h.tracker.LongTTL())
	h.users.Audit(t.ctx, domain.AuditEntry{ActorID: t.userID(), Action: action, TargetID: target})
	t.log.Info("Access decided", zap.Int64("target_id", target), zap.Bool("approved", approve))

	if approve {
		return answer{text: "Approved."}
	}
	return answer{text: "Declined."}
}

func (h *Handler) setRole(t *turn, target int64, role domain.Role) answer {
	err := h.auth.SetRole(t.ctx, target, role)
	if errors.Is(err, service.ErrAdminRole) {
		return answer{text: "The administrator's role cannot change.", alert: true}
	}

	ans := answer{text: "Role set to " + string(role) + "."}
	if err != nil {
		t.log.Error("Failed to mirror role", zap.Int64("target_id", target), zap.Error(err))
		ans = answer{text: "Role changed in the bot, but the backend did not confirm.", alert: true}
	}

	h.users.Audit(t.ctx, domain.AuditEntry{
		ActorID:  t.userID(),
		Action:   domain.AuditSetRole,
		TargetID: target,
		Detail:   string(role),
	})

	if refresh := h.showUser(t, target); refresh.alert && !ans.alert {
		return refresh
	}
	return ans
}

func (h *Handler) openDashboard(t *turn) {
	if !h.auth.Allows(t.userID(), domain.TierAdmin) {
		h.restricted(t, domain.TierAdmin)
		return
	}

	h.resetFlow(t)
	h.sessions.SetState(t.userID(), domain.StateAdminDashboard)

	rows := [][]domain.Button{{
		{Text: "👥 Users", Action: domain.Action{Kind: domain.ActionUsersPage}},
		{Text: "🧾 User History", Action: domain.Action{Kind: domain.ActionAuditPrompt}},
	}}
	for _, report := range domain.Reports {
		rows = append(rows, []domain.Button{{
			Text:   "📈 " + report.Title(),
			Action: domain.Action{Kind: domain.ActionAnalytics, Report: report},
		}})
	}
	rows = append(rows,
		[]domain.Button{{Text: "♻️ Reset User", Action: domain.Action{Kind: domain.ActionResetPrompt}}},
		[]domain.Button{
			{Text: "💾 Export DB", Action: domain.Action{Kind: domain.ActionExportDB}},
			{Text: "📥 Import DB", Action: domain.Action{Kind: domain.ActionImportPrompt}},
		},
		[]domain.Button{menuButton},
	)

	text := fmt.Sprintf("🛠 <b>Admin Panel</b>\n\nUsers with access: <b>%d</b>", len(h.auth.Approved()))
	h.sendTransient(t, domain.Outgoing{Text: text, Inline: rows}, h.tracker.LongTTL())
}

// usersPage pages through bot users; delta 0 reloads the current page or opens the first
func (h *Handler) usersPage(t *turn, delta int) answer {
	page := 1
	list, ok := h.sessions.UserList(t.userID())
	if ok {
		if page, ok = list.Target(delta); !ok {
			return answer{text: "No more pages."}
		}
	} else if delta != 0 {
		return answer{text: "This list has expired.", alert: true}
	}

	users, err := h.users.List(t.ctx, page)
	if err != nil {
		t.log.Error("Failed to list users", zap.Int("page", page), zap.Error(err))
		return answer{text: "⚠️ Could not load users.", alert: true}
	}

	if _, exists := h.sessions.UserList(t.userID()); !exists {
		h.sessions.BeginUserList(t.userID())
	}
	h.sessions.SetUserListPage(t.userID(), users.Page, users.TotalPages)

	text := fmt.Sprintf("👥 <b>Bot users</b>\nPage %d of %d, %d total", users.Page, users.TotalPages, users.TotalCount)
	if len(users.Users) == 0 {
		text += "\n\nNo users yet."
	}

	rows := make([][]domain.Button, 0, len(users.Users)+2)
	for _, u := range users.Users {
		rows = append(rows, []domain.Button{{
			Text:   fmt.Sprintf("%s · %s", u.DisplayName(), h.auth.Role(u.UserID)),
			Action: domain.Action{Kind: domain.ActionUserDetail, Target: u.UserID},
		}})
	}
	if nav := navRow(domain.Cursor{Page: users.Page, TotalPages: users.TotalPages}, domain.ActionUsersPage); len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, []domain.Button{panelButton})

	h.sendResult(t, domain.Outgoing{Text: text, Inline: rows})
	return answer{}
}

func (h *Handler) showUser(t *turn, target int64) answer {
	user, err := h.users.Get(t.ctx, target)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return answer{text: "User not found.", alert: true}
		}
		t.log.Error("Failed to load user", zap.Int64("target_id", target), zap.Error(err))
		return answer{text: "⚠️ Could not load the user.", alert: true}
	}

	role := h.auth.Role(target)
	var b strings.Builder
	fmt.Fprintf(&b, "👤 <b>%s</b>\nID: <code>%d</code>", html.EscapeString(user.DisplayName()), target)
	if user.Username != "" {
		fmt.Fprintf(&b, "\nUsername: @%s", html.EscapeString(user.Username))
	}
	fmt.Fprintf(&b, "\nRole: <b>%s</b>", role)
	if !user.LastSeen.IsZero() {
		fmt.Fprintf(&b, "\nLast seen: %s", user.LastSeen.Format("2006-01-02 15:04"))
	}

	var rows [][]domain.Button
	if target != h.auth.AdminID() {
		toggle := domain.Button{
			Text:   "✅ Approve",
			Action: domain.Action{Kind: domain.ActionSetRole, Target: target, Role: domain.RoleApproved},
		}
		if role == domain.RoleApproved {
			toggle = domain.Button{
				Text:   "⛔ Block",
				Action: domain.Action{Kind: domain.ActionSetRole, Target: target, Role: domain.RoleBasic},
			}
		}
		rows = append(rows, []domain.Button{
			toggle,
			{Text: "♻️ Reset Session", Action: domain.Action{Kind: domain.ActionResetUser, Target: target}},
		})
	}
	rows = append(rows,
		[]domain.Button{
			{Text: "🧾 Audit", Action: domain.Action{Kind: domain.ActionUserAudit, Target: target}},
			{Text: "👥 Users", Action: domain.Action{Kind: domain.ActionUsersPage}},
		},
		[]domain.Button{panelButton},
	)

	h.sendResult(t, domain.Outgoing{Text: b.String(), Inline: rows})
	return answer{}
}

func (h *Handler) sendAudit(t *turn, target int64) error {
	entries, err := h.users.History(t.ctx, target)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🧾 <b>Audit trail of user</b> <code>%d</code>\n", target)
	if len(entries) == 0 {
		b.WriteString("\nNo recorded actions.")
	}
	for _, e := range entries {
		fmt.Fprintf(&b, "\n• %s <b>%s</b> by <code>%d</code>", e.CreatedAt.Format("2006-01-02 15:04"), html.EscapeString(e.Action), e.ActorID)
		if e.Detail != "" {
			fmt.Fprintf(&b, " (%s)", html.EscapeString(e.Detail))
		}
	}

	h.sendResult(t, domain.Outgoing{Text: b.String(), Inline: [][]domain.Button{{panelButton}}})
	return nil
}

// resetSession cancels every pending deletion of the target and wipes their session
func (h *Handler) resetSession(t *turn, target int64) int {
	if target != t.userID() {
		unlock := h.lock(target)
		defer unlock()
	}

	cancelled := h.timers.CancelOwner(target)
	h.sessions.Clear(target)

	h.users.Audit(t.ctx, domain.AuditEntry{
		ActorID:  t.userID(),
		Action:   domain.AuditReset,
		TargetID: target,
		Detail:   fmt.Sprintf("%d pending deletions cancelled", cancelled),
	})
	t.log.Info("Session reset", zap.Int64("target_id", target), zap.Int("cancelled", cancelled))
	return cancelled
}

func (h *Handler) answerResetUser(t *turn, text string) {
	target, ok := parseUserID(text)
	if !ok {
		h.reprompt(t, domain.StateAdminResetUser, text)
		return
	}

	cancelled := h.resetSession(t, target)
	h.sendResult(t, domain.Outgoing{
		Text:   fmt.Sprintf("♻️ Session of user <code>%d</code> reset. %d pending deletions cancelled.", target, cancelled),
		Inline: [][]domain.Button{{panelButton}},
	})
	h.finish(t)
}

func (h *Handler) answerUserHistory(t *turn, text string) {
	target, ok := parseUserID(text)
	if !ok {
		h.reprompt(t, domain.StateAdminUserHistory, text)
		return
	}

	if err := h.sendAudit(t, target); err != nil {
		h.fail(t, "audit history", err, "")
		return
	}
	h.finish(t)
}

// reprompt asks again without leaving the input state
func (h *Handler) reprompt(t *turn, state domain.State, input string) {
	text := fmt.Sprintf("⚠️ <b>%s</b> is not a user ID.\n\n%s", html.EscapeString(input), prompts[state])
	ref := h.sendTransient(t, domain.Outgoing{Text: text, RemoveKeyboard: true}, h.tracker.ShortTTL())
	h.sessions.SetPrompt(t.userID(), ref)
}

func (h *Handler) beginAnalytics(t *turn, kind domain.ReportKind) answer {
	report, err := h.library.Analytics(t.ctx, kind, 1)
	if err != nil {
		t.log.Error("Failed to load report", zap.String("report", string(kind)), zap.Error(err))
		return answer{text: "⚠️ Could not load the report.", alert: true}
	}

	h.sessions.BeginAnalytics(t.userID(), kind)
	h.sessions.SetAnalyticsPage(t.userID(), report.Page, report.TotalPages)
	h.sendReport(t, report)
	return answer{}
}

func (h *Handler) analyticsPage(t *turn, delta int) answer {
	current, ok := h.sessions.Analytics(t.userID())
	if !ok {
		return answer{text: "This report has expired.", alert: true}
	}
	target, ok := current.Target(delta)
	if !ok {
		return answer{text: "No more pages."}
	}

	report, err := h.library.Analytics(t.ctx, current.Report, target)
	if err != nil {
		t.log.Error("Failed to load report page", zap.Int("page", target), zap.Error(err))
		return answer{text: "⚠️ Could not load the page.", alert: true}
	}

	h.sessions.SetAnalyticsPage(t.userID(), report.Page, report.TotalPages)
	h.sendReport(t, report)
	return answer{}
}

func (h *Handler) sendReport(t *turn, report *domain.Report) {
	var b strings.Builder
	fmt.Fprintf(&b, "📈 <b>%s</b>\nPage %d of %d\n", html.EscapeString(report.Title), report.Page, report.TotalPages)
	if len(report.Rows) == 0 {
		b.WriteString("\nNothing to report.")
	}
	for _, row := range report.Rows {
		fmt.Fprintf(&b, "\n• %s: <b>%s</b>", html.EscapeString(row.Label), html.EscapeString(row.Value))
	}

	var rows [][]domain.Button
	if nav := navRow(domain.Cursor{Page: report.Page, TotalPages: report.TotalPages}, domain.ActionAnalyticsPage); len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, []domain.Button{panelButton})

	h.sendResult(t, domain.Outgoing{Text: b.String(), Inline: rows})
}

func (h *Handler) exportDB(t *turn) answer {
	data, err := h.library.Export(t.ctx)
	if err != nil {
		t.log.Error("Failed to export database", zap.Error(err))
		return answer{text: "⚠️ Export failed.", alert: true}
	}

	name := fmt.Sprintf("library-%s.db", time.Now().Format("20060102-150405"))
	ref := h.tracker.Send(t.ctx, t.userID(), t.ChatID, domain.Outgoing{
		Text:     "💾 Library database backup",
		Document: &domain.Attachment{Name: name, Data: data},
	}, tracker.Notice, 0)
	if ref.IsZero() {
		return answer{text: "⚠️ Could not send the backup.", alert: true}
	}

	h.users.Audit(t.ctx, domain.AuditEntry{
		ActorID:  t.userID(),
		Action:   domain.AuditExportDB,
		TargetID: t.userID(),
		Detail:   fmt.Sprintf("%s, %d bytes", name, len(data)),
	})
	return answer{text: "Backup sent."}
}

// handleDocument accepts a database backup while the administrator is importing
func (h *Handler) handleDocument(t *turn) {
	userID := t.userID()
	h.sessions.SetMenuTap(userID, t.Message)
	h.tracker.Expire(userID, t.Message, h.tracker.ShortTTL())

	if h.sessions.State(userID) != domain.StateAdminDbUpload {
		h.showMenu(t, "📎 Files are only accepted while importing a database backup.")
		return
	}
	if !h.auth.Allows(userID, domain.TierAdmin) {
		h.restricted(t, domain.TierAdmin)
		return
	}
	h.sessions.TakePrompt(userID)

	doc := t.Document
	if doc.Size > service.MaxBackupSize {
		t.log.Warn("Backup too large", zap.Int64("size", doc.Size))
		h.sessions.SetState(userID, domain.StateIdle)
		h.showMenu(t, fmt.Sprintf("⚠️ The file is too large. The limit is %d MB.", service.MaxBackupSize>>20))
		return
	}

	data, err := h.messenger.Download(t.ctx, doc.FileID)
	if err != nil {
		h.fail(t, "download backup", err, "")
		return
	}
	if err := h.library.Import(t.ctx, data); err != nil {
		h.fail(t, "import database", err, "")
		return
	}

	h.users.Audit(t.ctx, domain.AuditEntry{
		ActorID:  userID,
		Action:   domain.AuditImportDB,
		TargetID: userID,
		Detail:   fmt.Sprintf("%s, %d bytes", doc.Name, len(data)),
	})
	t.log.Info("Database imported", zap.String("file", doc.Name), zap.Int("size", len(data)))

	h.sendResult(t, domain.Outgoing{
		Text:   fmt.Sprintf("✅ Database restored from <b>%s</b> (%.1f KB).", html.EscapeString(doc.Name), float64(len(data))/1024),
		Inline: [][]domain.Button{{panelButton}},
	})
	h.finish(t)
}

func parseUserID(text string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
