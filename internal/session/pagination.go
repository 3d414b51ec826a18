package session

import "librarian/internal/domain"

// BeginSearch starts a search context on page 1, replacing any other context
func (s *Store) BeginSearch(userID int64, term string) domain.SearchContext {
	ctx := domain.SearchContext{Term: term, Cursor: domain.Cursor{Page: 1}}
	s.update(userID, func(sess *domain.Session) {
		sess.ClearContexts()
		search := ctx
		sess.Search = &search
	})
	return ctx
}

// Search returns the user's search context
func (s *Store) Search(userID int64) (domain.SearchContext, bool) {
	var (
		ctx domain.SearchContext
		ok  bool
	)
	s.read(userID, func(sess *domain.Session) {
		if sess.Search != nil {
			ctx, ok = *sess.Search, true
		}
	})
	return ctx, ok
}

// SetSearchPage commits a fetched page; it is a no-op when the context is gone
func (s *Store) SetSearchPage(userID int64, page, totalPages int) {
	s.update(userID, func(sess *domain.Session) {
		if sess.Search != nil {
			sess.Search.Cursor = domain.Cursor{Page: page, TotalPages: totalPages}
		}
	})
}

// ClearSearch drops the search context
func (s *Store) ClearSearch(userID int64) {
	s.update(userID, func(sess *domain.Session) {
		sess.Search = nil
	})
}

// BeginAnalytics starts a report context on page 1, replacing any other context
func (s *Store) BeginAnalytics(userID int64, report domain.ReportKind) domain.AnalyticsContext {
	ctx := domain.AnalyticsContext{Report: report, Cursor: domain.Cursor{Page: 1}}
	s.update(userID, func(sess *domain.Session) {
		sess.ClearContexts()
		analytics := ctx
		sess.Analytics = &analytics
	})
	return ctx
}

// Analytics returns the user's report context
func (s *Store) Analytics(userID int64) (domain.AnalyticsContext, bool) {
	var (
		ctx domain.AnalyticsContext
		ok  bool
	)
	s.read(userID, func(sess *domain.Session) {
		if sess.Analytics != nil {
			ctx, ok = *sess.Analytics, true
		}
	})
	return ctx, ok
}

// SetAnalyticsPage commits a fetched report page
func (s *Store) SetAnalyticsPage(userID int64, page, totalPages int) {
	s.update(userID, func(sess *domain.Session) {
		if sess.Analytics != nil {
			sess.Analytics.Cursor = domain.Cursor{Page: page, TotalPages: totalPages}
		}
	})
}

// BeginUserList starts the user list context on page 1
func (s *Store) BeginUserList(userID int64) domain.UserListContext {
	ctx := domain.UserListContext{Cursor: domain.Cursor{Page: 1}}
	s.update(userID, func(sess *domain.Session) {
		sess.ClearContexts()
		users := ctx
		sess.UserList = &users
	})
	return ctx
}

// UserList returns the user list context
func (s *Store) UserList(userID int64) (domain.UserListContext, bool) {
	var (
		ctx domain.UserListContext
		ok  bool
	)
	s.read(userID, func(sess *domain.Session) {
		if sess.UserList != nil {
			ctx, ok = *sess.UserList, true
		}
	})
	return ctx, ok
}

// SetUserListPage commits a fetched user list page
func (s *Store) SetUserListPage(userID int64, page, totalPages int) {
	s.update(userID, func(sess *domain.Session) {
		if sess.UserList != nil {
			sess.UserList.Cursor = domain.Cursor{Page: page, TotalPages: totalPages}
		}
	})
}
