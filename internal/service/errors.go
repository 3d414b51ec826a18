package service

import "errors"

var (
	// ErrEmptyQuery is returned when the user sent nothing to look up
	ErrEmptyQuery = errors.New("empty query")
	// ErrInvalidBackup is returned for uploads that are not a SQLite database
	ErrInvalidBackup = errors.New("invalid database backup")
	// ErrUnknownReport is returned for analytics reports the backend does not offer
	ErrUnknownReport = errors.New("unknown report")
	// ErrAdminRole is returned when trying to change the administrator's role
	ErrAdminRole = errors.New("administrator role cannot be changed")
)
