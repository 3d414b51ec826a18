package domain

// State is a step of the per-user conversation state machine
type State string

const (
	StateIdle               State = "idle"
	StateSearchingBook      State = "searching_book"
	StateCheckingStatus     State = "checking_status"
	StateStudentLookup      State = "student_lookup"
	StateIssueHistoryLookup State = "issue_history_lookup"
	StateAdminDashboard     State = "admin_dashboard"
	StateAdminResetUser     State = "admin_reset_user"
	StateAdminUserHistory   State = "admin_user_history"
	StateAdminDbUpload      State = "admin_db_upload"
)

// Known reports whether the state belongs to the state machine
func (s State) Known() bool {
	switch s {
	case StateIdle, StateSearchingBook, StateCheckingStatus, StateStudentLookup,
		StateIssueHistoryLookup, StateAdminDashboard, StateAdminResetUser,
		StateAdminUserHistory, StateAdminDbUpload:
		return true
	}
	return false
}

// RequiredTier returns the tier needed to enter the state
func (s State) RequiredTier() Tier {
	switch s {
	case StateStudentLookup, StateIssueHistoryLookup:
		return TierApproved
	case StateAdminDashboard, StateAdminResetUser, StateAdminUserHistory, StateAdminDbUpload:
		return TierAdmin
	default:
		return TierBasic
	}
}

// Cursor is a pagination position. TotalPages is refreshed on every page fetch.
type Cursor struct {
	Page       int
	TotalPages int
}

// HasPrev reports whether a previous page exists
func (c Cursor) HasPrev() bool {
	return c.Page > 1
}

// HasNext reports whether a next page exists
func (c Cursor) HasNext() bool {
	return c.Page < c.TotalPages
}

// Target returns the page reached by moving delta pages, and whether it is in range
func (c Cursor) Target(delta int) (int, bool) {
	page := c.Page + delta
	if page < 1 || (c.TotalPages > 0 && page > c.TotalPages) {
		return c.Page, false
	}
	return page, true
}

// Advance moves the cursor by delta pages; it refuses to leave the known range
func (c *Cursor) Advance(delta int) bool {
	page, ok := c.Target(delta)
	if !ok {
		return false
	}
	c.Page = page
	return true
}

// SearchContext is the pagination context of a book search
type SearchContext struct {
	Term string
	Cursor
}

// AnalyticsContext is the pagination context of an analytics report
type AnalyticsContext struct {
	Report ReportKind
	Cursor
}

// UserListContext is the pagination context of the administrator's user list
type UserListContext struct {
	Cursor
}

// CleanupRefs holds the latest transient messages awaiting cleanup
type CleanupRefs struct {
	LastMenuTap MessageRef
	LastPrompt  MessageRef
}

// Session is the process-lifetime record of one user
type Session struct {
	State         State
	Search        *SearchContext
	Analytics     *AnalyticsContext
	UserList      *UserListContext
	Cleanup       CleanupRefs
	LastTransient MessageRef
	LastResult    MessageRef
}

// NewSession returns an idle session
func NewSession() *Session {
	return &Session{State: StateIdle}
}

// Clone returns a deep copy
func (s *Session) Clone() Session {
	out := *s
	if s.Search != nil {
		search := *s.Search
		out.Search = &search
	}
	if s.Analytics != nil {
		analytics := *s.Analytics
		out.Analytics = &analytics
	}
	if s.UserList != nil {
		users := *s.UserList
		out.UserList = &users
	}
	return out
}

// ClearContexts drops every pagination context
func (s *Session) ClearContexts() {
	s.Search = nil
	s.Analytics = nil
	s.UserList = nil
}
