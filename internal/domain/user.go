package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is the role stored for a bot user in the backend
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleApproved Role = "approved"
	RoleBasic    Role = "basic"
)

// Valid reports whether the role can be assigned by an administrator
func (r Role) Valid() bool {
	return r == RoleApproved || r == RoleBasic
}

// Tier is the derived authorization level of a user
type Tier int

const (
	TierBasic Tier = iota
	TierApproved
	TierAdmin
)

func (t Tier) String() string {
	switch t {
	case TierAdmin:
		return "admin"
	case TierApproved:
		return "approved"
	default:
		return "basic"
	}
}

// BotUser represents a person who talked to the bot
type BotUser struct {
	UserID    int64
	Username  string
	FirstName string
	LastName  string
	Role      Role
	LastSeen  time.Time
}

// DisplayName returns the full name, falling back to the username and then the id
func (u BotUser) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return fmt.Sprintf("user %d", u.UserID)
}

// BotUserPage is one page of the bot user directory
type BotUserPage struct {
	Users      []BotUser
	Page       int
	TotalPages int
	TotalCount int
}

// AuditEntry is a single administrator action
type AuditEntry struct {
	ActorID   int64
	Action    string
	TargetID  int64
	Detail    string
	CreatedAt time.Time
}

// Audit actions
const (
	AuditApprove  = "approve"
	AuditDecline  = "decline"
	AuditSetRole  = "set_role"
	AuditReset    = "reset_session"
	AuditExportDB = "export_db"
	AuditImportDB = "import_db"
)
