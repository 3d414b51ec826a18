package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"librarian/internal/backend"
	"librarian/internal/domain"
	"librarian/internal/scheduler"
	"librarian/internal/service"
	"librarian/internal/session"
	"librarian/internal/testutil"
	"librarian/internal/tracker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	adminID = int64(1)
	userID  = int64(42)
)

type fixture struct {
	handler   *Handler
	messenger *testutil.FakeMessenger
	scheduler *scheduler.Scheduler
	sessions  *session.Store
	auth      *service.AuthService
	repo      *testutil.MockUserRepository
	library   *testutil.MockLibraryAPI
	users     *testutil.MockUserAPI
	inbound   atomic.Int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := testutil.NewTestLogger()

	messenger := testutil.NewFakeMessenger()
	sched := scheduler.New(messenger, logger, scheduler.Options{FrameInterval: time.Millisecond})
	t.Cleanup(sched.Close)
	sessions := session.NewStore()
	tr := tracker.New(messenger, sched, sessions, logger, tracker.Options{
		ShortTTL: time.Minute,
		LongTTL:  5 * time.Minute,
		Animate:  true,
	})

	repo := new(testutil.MockUserRepository)
	repo.On("SetRole", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	users := new(testutil.MockUserAPI)
	users.On("UpsertBotUser", mock.Anything, mock.Anything).Return(nil).Maybe()
	users.On("AppendAudit", mock.Anything, mock.Anything).Return(nil).Maybe()
	library := new(testutil.MockLibraryAPI)

	auth := service.NewAuthService(repo, adminID, logger)
	h := NewHandler(
		auth,
		service.NewLibraryService(library, 5),
		service.NewUserService(users, 5, logger),
		sessions,
		tr,
		sched,
		messenger,
		logger,
	)

	f := &fixture{
		handler:   h,
		messenger: messenger,
		scheduler: sched,
		sessions:  sessions,
		auth:      auth,
		repo:      repo,
		library:   library,
		users:     users,
	}
	f.inbound.Store(10000)
	return f
}

func (f *fixture) event(from int64) Event {
	return Event{
		User:   domain.BotUser{UserID: from, FirstName: fmt.Sprintf("User%d", from)},
		ChatID: from,
	}
}

// text sends a text message and returns its ref
func (f *fixture) text(from int64, text string) domain.MessageRef {
	ev := f.event(from)
	ev.Message = domain.MessageRef{ChatID: from, MessageID: int(f.inbound.Add(1))}
	ev.Text = text
	f.handler.Handle(context.Background(), ev)
	return ev.Message
}

func (f *fixture) press(from int64, action domain.Action, on domain.MessageRef, onText string) {
	ev := f.event(from)
	ev.Message = on
	ev.MessageText = onText
	ev.Callback = &Callback{
		ID:   fmt.Sprintf("cb-%d", f.inbound.Add(1)),
		Data: "\f" + action.Unique() + "|" + action.Payload(),
	}
	f.handler.Handle(context.Background(), ev)
}

func (f *fixture) upload(from int64, doc *Document) {
	ev := f.event(from)
	ev.Message = domain.MessageRef{ChatID: from, MessageID: int(f.inbound.Add(1))}
	ev.Document = doc
	f.handler.Handle(context.Background(), ev)
}

// lastSent returns the latest message sent to chatID containing substr
func (f *fixture) lastSent(t *testing.T, chatID int64, substr string) testutil.SentMessage {
	t.Helper()
	sent := f.messenger.Sent()
	for i := len(sent) - 1; i >= 0; i-- {
		if sent[i].Ref.ChatID == chatID && strings.Contains(sent[i].Text, substr) {
			return sent[i]
		}
	}
	t.Fatalf("no message to %d containing %q", chatID, substr)
	return testutil.SentMessage{}
}

func (f *fixture) lastAnswer(t *testing.T) testutil.Answer {
	t.Helper()
	answers := f.messenger.Answers()
	require.NotEmpty(t, answers)
	return answers[len(answers)-1]
}

func findButton(msg testutil.SentMessage, kind domain.ActionKind, delta int) (domain.Button, bool) {
	for _, row := range msg.Inline {
		for _, b := range row {
			if b.Action.Kind == kind && b.Action.Delta == delta {
				return b, true
			}
		}
	}
	return domain.Button{}, false
}

func TestHandler_SearchScenario(t *testing.T) {
	f := newFixture(t)
	f.library.On("SearchBooks", mock.Anything, "Quran", 1, 5).
		Return(testutil.NewTestBookPage(1, 3, "Quran", "Quran Stories"), nil)
	f.library.On("SearchBooks", mock.Anything, "Quran", 2, 5).
		Return(testutil.NewTestBookPage(2, 3, "Quran Tafsir"), nil)

	f.text(userID, btnFindBook)

	assert.Equal(t, domain.StateSearchingBook, f.sessions.State(userID))
	prompt := f.lastSent(t, userID, "search for")
	assert.True(t, prompt.RemoveKeyboard)
	assert.Empty(t, prompt.Reply)
	pending, ok := f.scheduler.Pending(prompt.Ref)
	require.True(t, ok)
	assert.False(t, pending.Animate)
	assert.WithinDuration(t, time.Now().Add(time.Minute), pending.FireAt, 5*time.Second)

	f.text(userID, "Quran")

	assert.Equal(t, domain.StateIdle, f.sessions.State(userID))
	assert.Equal(t, 1, f.messenger.Deletes(prompt.Ref))
	result := f.lastSent(t, userID, "Results for")
	assert.Contains(t, result.Text, "auto-deletes in 5 minutes")
	next, ok := findButton(result, domain.ActionSearchPage, 1)
	require.True(t, ok)
	_, hasPrev := findButton(result, domain.ActionSearchPage, -1)
	assert.False(t, hasPrev)

	search, ok := f.sessions.Search(userID)
	require.True(t, ok)
	assert.Equal(t, domain.Cursor{Page: 1, TotalPages: 3}, search.Cursor)

	f.press(userID, next.Action, result.Ref, "")

	search, ok = f.sessions.Search(userID)
	require.True(t, ok)
	assert.Equal(t, 2, search.Page)
	assert.Equal(t, domain.StateIdle, f.sessions.State(userID))
	assert.Equal(t, 1, f.messenger.Deletes(result.Ref))

	second := f.lastSent(t, userID, "Results for")
	_, hasPrev = findButton(second, domain.ActionSearchPage, -1)
	_, hasNext := findButton(second, domain.ActionSearchPage, 1)
	assert.True(t, hasPrev)
	assert.True(t, hasNext)
	assert.Len(t, f.messenger.Answers(), 1)
}

func TestHandler_SinglePageSearchHasNoNext(t *testing.T) {
	f := newFixture(t)
	f.library.On("SearchBooks", mock.Anything, "Dune", 1, 5).
		Return(testutil.NewTestBookPage(1, 1, "Dune"), nil)

	f.text(userID, btnFindBook)
	f.text(userID, "Dune")

	result := f.lastSent(t, userID, "Results for")
	_, hasNext := findButton(result, domain.ActionSearchPage, 1)
	assert.False(t, hasNext)
}

func TestHandler_SearchPageFailureKeepsCursor(t *testing.T) {
	f := newFixture(t)
	f.library.On("SearchBooks", mock.Anything, "Quran", 1, 5).
		Return(testutil.NewTestBookPage(1, 3, "Quran"), nil)
	f.library.On("SearchBooks", mock.Anything, "Quran", 2, 5).
		Return(nil, errors.New("connection refused"))

	f.text(userID, btnFindBook)
	f.text(userID, "Quran")
	result := f.lastSent(t, userID, "Results for")

	f.press(userID, domain.Action{Kind: domain.ActionSearchPage, Delta: 1}, result.Ref, "")

	search, ok := f.sessions.Search(userID)
	require.True(t, ok)
	assert.Equal(t, 1, search.Page)
	assert.True(t, f.lastAnswer(t).Alert)
	assert.Equal(t, 0, f.messenger.Deletes(result.Ref))
}

func TestHandler_RestrictedButtonSendsNoPrompt(t *testing.T) {
	f := newFixture(t)

	f.press(userID, domain.Action{Kind: domain.ActionStudentAgain}, domain.MessageRef{ChatID: userID, MessageID: 5}, "")

	assert.Equal(t, domain.StateIdle, f.sessions.State(userID))
	sent := f.messenger.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text, "Restricted")
	assert.NotContains(t, sent[0].Text, prompts[domain.StateStudentLookup])
	assert.True(t, f.sessions.Snapshot(userID).Cleanup.LastPrompt.IsZero())
	assert.Len(t, f.messenger.Answers(), 1)
	f.library.AssertNotCalled(t, "StudentProfile", mock.Anything, mock.Anything)
}

func TestHandler_BlockedUserLosesAccessOnNextAction(t *testing.T) {
	f := newFixture(t)
	f.users.On("BotUser", mock.Anything, userID).Return(&domain.BotUser{UserID: userID, FirstName: "Reader"}, nil)

	_, err := f.auth.Approve(context.Background(), userID)
	require.NoError(t, err)

	f.text(userID, btnStudent)
	require.Equal(t, domain.StateStudentLookup, f.sessions.State(userID))

	f.press(adminID, domain.Action{Kind: domain.ActionSetRole, Target: userID, Role: domain.RoleBasic},
		domain.MessageRef{ChatID: adminID, MessageID: 7}, "")
	require.False(t, f.auth.IsAuthorized(userID))

	f.text(userID, "S-1001")

	assert.Equal(t, domain.StateIdle, f.sessions.State(userID))
	f.lastSent(t, userID, "Restricted")
	f.library.AssertNotCalled(t, "StudentProfile", mock.Anything, mock.Anything)
	f.users.AssertCalled(t, "AppendAudit", mock.Anything, mock.MatchedBy(func(e domain.AuditEntry) bool {
		return e.Action == domain.AuditSetRole && e.TargetID == userID && e.Detail == string(domain.RoleBasic)
	}))
}

func TestHandler_AdminResetCancelsTimers(t *testing.T) {
	f := newFixture(t)
	f.library.On("SearchBooks", mock.Anything, "Quran", 1, 5).
		Return(testutil.NewTestBookPage(1, 2, "Quran"), nil)

	f.text(userID, btnFindBook)
	input := f.text(userID, "Quran")
	result := f.lastSent(t, userID, "Results for")
	menu := f.sessions.Snapshot(userID).LastTransient

	pending, ok := f.scheduler.Pending(result.Ref)
	require.True(t, ok)
	require.True(t, pending.Animate)

	f.press(adminID, domain.Action{Kind: domain.ActionResetUser, Target: userID},
		domain.MessageRef{ChatID: adminID, MessageID: 9}, "")

	for _, ref := range []domain.MessageRef{result.Ref, menu, input} {
		_, ok := f.scheduler.Pending(ref)
		assert.False(t, ok)
		assert.Equal(t, 0, f.messenger.Deletes(ref))
	}
	assert.Contains(t, f.lastAnswer(t).Text, "Session reset")
	f.users.AssertCalled(t, "AppendAudit", mock.Anything, mock.MatchedBy(func(e domain.AuditEntry) bool {
		return e.Action == domain.AuditReset && e.ActorID == adminID && e.TargetID == userID
	}))

	f.text(userID, "hello")

	assert.Equal(t, domain.StateIdle, f.sessions.State(userID))
	_, ok = f.sessions.Search(userID)
	assert.False(t, ok)
	assert.Never(t, func() bool { return f.messenger.Deletes(result.Ref) > 0 }, 50*time.Millisecond, 10*time.Millisecond)
}

func TestHandler_UnknownStateResetsToMenu(t *testing.T) {
	f := newFixture(t)
	f.text(userID, "/start")
	f.sessions.SetState(userID, domain.State("checking_fines"))

	f.text(userID, "hello")

	assert.Equal(t, domain.StateIdle, f.sessions.State(userID))
	f.lastSent(t, userID, "Library Assistant")
}

func TestHandler_AccessRequestApproved(t *testing.T) {
	f := newFixture(t)

	f.text(userID, btnRequestAccess)

	notice := f.lastSent(t, adminID, "Access request")
	approve, ok := findButton(notice, domain.ActionApprove, 0)
	require.True(t, ok)
	assert.Equal(t, userID, approve.Action.Target)
	_, scheduled := f.scheduler.Pending(notice.Ref)
	assert.False(t, scheduled)
	f.lastSent(t, userID, "request was sent")

	f.press(adminID, approve.Action, notice.Ref, "Access request\n\nName: User42")

	assert.True(t, f.auth.IsAuthorized(userID))
	edits := f.messenger.Edits(notice.Ref)
	require.Len(t, edits, 1)
	assert.Contains(t, edits[0], "APPROVED by Admin")
	f.repo.AssertCalled(t, "SetRole", mock.Anything, userID, domain.RoleApproved)
	f.lastSent(t, userID, "was approved")
	assert.Equal(t, "Approved.", f.lastAnswer(t).Text)
	f.users.AssertCalled(t, "AppendAudit", mock.Anything, mock.MatchedBy(func(e domain.AuditEntry) bool {
		return e.Action == domain.AuditApprove && e.TargetID == userID
	}))
}

func TestHandler_AccessRequestDeclined(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Approve(context.Background(), userID)
	require.NoError(t, err)

	notice := domain.MessageRef{ChatID: adminID, MessageID: 3}
	f.press(adminID, domain.Action{Kind: domain.ActionDecline, Target: userID}, notice, "Access request")

	assert.False(t, f.auth.IsAuthorized(userID))
	edits := f.messenger.Edits(notice)
	require.Len(t, edits, 1)
	assert.Contains(t, edits[0], "DECLINED by Admin")
	f.lastSent(t, userID, "declined")
}

func TestHandler_MirrorFailureKeepsDecision(t *testing.T) {
	f := newFixture(t)
	f.repo.ExpectedCalls = nil
	f.repo.On("SetRole", mock.Anything, userID, domain.RoleApproved).Return(errors.New("backend down"))

	notice := domain.MessageRef{ChatID: adminID, MessageID: 3}
	f.press(adminID, domain.Action{Kind: domain.ActionApprove, Target: userID}, notice, "Access request")

	assert.True(t, f.auth.IsAuthorized(userID))
	edits := f.messenger.Edits(notice)
	require.Len(t, edits, 1)
	assert.Contains(t, edits[0], "backend did not confirm")
}

func TestHandler_NonAdminCannotUseAdminButtons(t *testing.T) {
	tests := []struct {
		name   string
		action domain.Action
	}{
		{name: "approve", action: domain.Action{Kind: domain.ActionApprove, Target: userID}},
		{name: "reset", action: domain.Action{Kind: domain.ActionResetUser, Target: 7}},
		{name: "export", action: domain.Action{Kind: domain.ActionExportDB}},
		{name: "dashboard", action: domain.Action{Kind: domain.ActionDashboard}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			f.press(userID, tt.action, domain.MessageRef{ChatID: userID, MessageID: 2}, "")

			ans := f.lastAnswer(t)
			assert.True(t, ans.Alert)
			assert.Contains(t, ans.Text, "Administrators only")
			assert.False(t, f.auth.IsAuthorized(userID))
			assert.Empty(t, f.messenger.Sent())
		})
	}
}

func TestHandler_LookupFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "not found", err: fmt.Errorf("status: %w", backend.ErrNotFound), want: "No book found with code <b>x1</b>"},
		{name: "backend down", err: errors.New("connection refused"), want: "Something went wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.library.On("BookStatus", mock.Anything, "X1").Return(nil, tt.err)

			f.text(userID, btnCheckStatus)
			f.text(userID, "x1")

			assert.Equal(t, domain.StateIdle, f.sessions.State(userID))
			f.lastSent(t, userID, tt.want)
		})
	}
}

func TestHandler_StatusLookup(t *testing.T) {
	f := newFixture(t)
	f.library.On("BookStatus", mock.Anything, "B42").Return(&domain.BookStatus{
		Book:     testutil.NewTestBook("B42", "Sapiens", 0),
		IssuedTo: &domain.Borrower{Name: "Amina", Batch: "2024", DueDate: "2026-11-01"},
	}, nil)

	f.text(userID, btnCheckStatus)
	f.text(userID, "b42")

	result := f.lastSent(t, userID, "Sapiens")
	assert.Contains(t, result.Text, "Issued to: <b>Amina</b> (2024)")
	again, ok := findButton(result, domain.ActionStatusAgain, 0)
	require.True(t, ok)

	f.press(userID, again.Action, result.Ref, "")

	assert.Equal(t, domain.StateCheckingStatus, f.sessions.State(userID))
	assert.Equal(t, 0, f.messenger.Deletes(result.Ref))
}

func TestHandler_StudentProfileWithPhoto(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Approve(context.Background(), userID)
	require.NoError(t, err)
	f.library.On("StudentProfile", mock.Anything, "S-7").Return(&domain.Student{
		ID:     "S-7",
		Name:   "Amina",
		Photo:  []byte{0xff, 0xd8},
		Issued: []domain.Loan{{Code: "B1", Title: "Dune", IssueDate: "2026-10-01"}},
	}, nil)

	f.text(userID, btnStudent)
	f.text(userID, " S-7 ")

	result := f.lastSent(t, userID, "Amina")
	assert.Equal(t, []byte{0xff, 0xd8}, result.Photo)
	assert.Contains(t, result.Text, "Dune")
	assert.Equal(t, domain.StateIdle, f.sessions.State(userID))
}

func TestHandler_CancelCommand(t *testing.T) {
	f := newFixture(t)

	f.text(userID, btnCheckStatus)
	f.text(userID, "/cancel")

	assert.Equal(t, domain.StateIdle, f.sessions.State(userID))
	f.lastSent(t, userID, "Cancelled")
	f.library.AssertNotCalled(t, "BookStatus", mock.Anything, mock.Anything)
}

func TestHandler_UserInputIsScheduledForDeletion(t *testing.T) {
	f := newFixture(t)

	input := f.text(userID, "/menu")

	pending, ok := f.scheduler.Pending(input)
	require.True(t, ok)
	assert.False(t, pending.Animate)
	assert.Equal(t, input, f.sessions.Snapshot(userID).Cleanup.LastMenuTap)
}

func TestHandler_ConcurrentMenuTapsLeaveOnePrompt(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.text(userID, btnFindBook)
		}()
	}
	wg.Wait()

	alive := 0
	for _, msg := range f.messenger.Sent() {
		switch f.messenger.Deletes(msg.Ref) {
		case 0:
			alive++
		case 1:
		default:
			t.Fatalf("prompt %d deleted more than once", msg.Ref.MessageID)
		}
	}
	assert.Equal(t, 1, alive)
	assert.Equal(t, domain.StateSearchingBook, f.sessions.State(userID))

	f.handler.locksMu.Lock()
	defer f.handler.locksMu.Unlock()
	assert.Empty(t, f.handler.locks)
}

func TestHandler_StatsForEveryone(t *testing.T) {
	f := newFixture(t)
	f.library.On("Stats", mock.Anything).Return(&domain.Stats{TotalBooks: 120, AvailableCopies: 80, IssuedBooks: 40}, nil)

	f.text(userID, btnStats)

	result := f.lastSent(t, userID, "Library Stats")
	assert.Contains(t, result.Text, "Total books: <b>120</b>")
	pending, ok := f.scheduler.Pending(result.Ref)
	require.True(t, ok)
	assert.True(t, pending.Animate)
}

func TestHandler_AnalyticsPaging(t *testing.T) {
	f := newFixture(t)
	f.library.On("Analytics", mock.Anything, domain.ReportTopBooks, 1, 5).
		Return(&domain.Report{Rows: []domain.ReportRow{{Label: "Dune", Value: "12"}}, TotalPages: 2}, nil)
	f.library.On("Analytics", mock.Anything, domain.ReportTopBooks, 2, 5).
		Return(&domain.Report{Rows: []domain.ReportRow{{Label: "Emma", Value: "3"}}, TotalPages: 2}, nil)
	panel := domain.MessageRef{ChatID: adminID, MessageID: 4}

	f.press(adminID, domain.Action{Kind: domain.ActionAnalytics, Report: domain.ReportTopBooks}, panel, "")

	report := f.lastSent(t, adminID, "Most issued books")
	assert.Contains(t, report.Text, "Dune: <b>12</b>")
	next, ok := findButton(report, domain.ActionAnalyticsPage, 1)
	require.True(t, ok)

	f.press(adminID, next.Action, report.Ref, "")

	current, ok := f.sessions.Analytics(adminID)
	require.True(t, ok)
	assert.Equal(t, domain.Cursor{Page: 2, TotalPages: 2}, current.Cursor)
	f.lastSent(t, adminID, "Emma")

	f.press(adminID, next.Action, report.Ref, "")

	assert.Equal(t, "No more pages.", f.lastAnswer(t).Text)
	f.library.AssertNotCalled(t, "Analytics", mock.Anything, domain.ReportTopBooks, 3, 5)
}

func TestHandler_UserListAndDetail(t *testing.T) {
	f := newFixture(t)
	f.users.On("ListBotUsers", mock.Anything, 1, 5).Return(&domain.BotUserPage{
		Users:      []domain.BotUser{{UserID: userID, FirstName: "Reader"}},
		TotalPages: 1,
		TotalCount: 1,
	}, nil)
	f.users.On("BotUser", mock.Anything, userID).Return(&domain.BotUser{UserID: userID, FirstName: "Reader"}, nil)

	f.press(adminID, domain.Action{Kind: domain.ActionUsersPage}, domain.MessageRef{ChatID: adminID, MessageID: 4}, "")

	list := f.lastSent(t, adminID, "Bot users")
	require.NotEmpty(t, list.Inline)
	detail := list.Inline[0][0]
	assert.Equal(t, "Reader · basic", detail.Text)

	f.press(adminID, detail.Action, list.Ref, "")

	card := f.lastSent(t, adminID, "Role: <b>basic</b>")
	toggle := card.Inline[0][0]
	assert.Equal(t, domain.Action{Kind: domain.ActionSetRole, Target: userID, Role: domain.RoleApproved}, toggle.Action)

	f.press(adminID, toggle.Action, card.Ref, "")

	assert.True(t, f.auth.IsAuthorized(userID))
	f.lastSent(t, adminID, "Role: <b>approved</b>")
}

func TestHandler_ImportBackup(t *testing.T) {
	valid := append([]byte("SQLite format 3\x00"), make([]byte, 64)...)

	tests := []struct {
		name     string
		data     []byte
		imported bool
		want     string
	}{
		{name: "valid backup", data: valid, imported: true, want: "Database restored from <b>library.db</b>"},
		{name: "not a database", data: []byte("hello"), want: "not a valid library database backup"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.library.On("ImportDB", mock.Anything, tt.data).Return(nil).Maybe()
			f.messenger.AddFile("file-1", tt.data)

			f.press(adminID, domain.Action{Kind: domain.ActionImportPrompt}, domain.MessageRef{ChatID: adminID, MessageID: 4}, "")
			require.Equal(t, domain.StateAdminDbUpload, f.sessions.State(adminID))

			f.upload(adminID, &Document{FileID: "file-1", Name: "library.db", Size: int64(len(tt.data))})

			assert.Equal(t, domain.StateIdle, f.sessions.State(adminID))
			f.lastSent(t, adminID, tt.want)
			if tt.imported {
				f.library.AssertCalled(t, "ImportDB", mock.Anything, tt.data)
			} else {
				f.library.AssertNotCalled(t, "ImportDB", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestHandler_DocumentOutsideUploadIsIgnored(t *testing.T) {
	f := newFixture(t)

	f.upload(userID, &Document{FileID: "file-1", Name: "notes.pdf", Size: 10})

	f.lastSent(t, userID, "only accepted while importing")
	f.library.AssertNotCalled(t, "ImportDB", mock.Anything, mock.Anything)
}

func TestHandler_ExportBackup(t *testing.T) {
	f := newFixture(t)
	f.library.On("ExportDB", mock.Anything).Return([]byte("SQLite format 3\x00data"), nil)

	f.press(adminID, domain.Action{Kind: domain.ActionExportDB}, domain.MessageRef{ChatID: adminID, MessageID: 4}, "")

	backup := f.lastSent(t, adminID, "database backup")
	require.NotNil(t, backup.Document)
	assert.True(t, strings.HasPrefix(backup.Document.Name, "library-"))
	_, scheduled := f.scheduler.Pending(backup.Ref)
	assert.False(t, scheduled)
	assert.Equal(t, "Backup sent.", f.lastAnswer(t).Text)
}

func TestHandler_ResetUserByID(t *testing.T) {
	f := newFixture(t)

	f.text(adminID, btnAdminPanel)
	require.Equal(t, domain.StateAdminDashboard, f.sessions.State(adminID))

	f.press(adminID, domain.Action{Kind: domain.ActionResetPrompt}, domain.MessageRef{ChatID: adminID, MessageID: 4}, "")
	require.Equal(t, domain.StateAdminResetUser, f.sessions.State(adminID))

	f.text(adminID, "not-a-number")
	assert.Equal(t, domain.StateAdminResetUser, f.sessions.State(adminID))
	f.lastSent(t, adminID, "is not a user ID")

	f.text(adminID, "42")
	assert.Equal(t, domain.StateIdle, f.sessions.State(adminID))
	f.lastSent(t, adminID, "Session of user <code>42</code> reset")
}

func TestHandler_UnknownCallbackIsAnswered(t *testing.T) {
	f := newFixture(t)

	ev := f.event(userID)
	ev.Callback = &Callback{ID: "cb-1", Data: "\fview_days|"}
	f.handler.Handle(context.Background(), ev)

	answers := f.messenger.Answers()
	require.Len(t, answers, 1)
	assert.Equal(t, "cb-1", answers[0].CallbackID)
	assert.Equal(t, domain.StateIdle, f.sessions.State(userID))
}
