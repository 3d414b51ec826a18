package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ActionKind enumerates every inline button the bot renders
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionMenu
	ActionSearchAgain
	ActionStatusAgain
	ActionStudentAgain
	ActionHistoryAgain
	ActionSearchPage
	ActionApprove
	ActionDecline
	ActionSetRole
	ActionDashboard
	ActionUsersPage
	ActionUserDetail
	ActionUserAudit
	ActionResetUser
	ActionResetPrompt
	ActionAuditPrompt
	ActionAnalytics
	ActionAnalyticsPage
	ActionExportDB
	ActionImportPrompt
)

var actionUniques = map[ActionKind]string{
	ActionMenu:          "menu",
	ActionSearchAgain:   "again_search",
	ActionStatusAgain:   "again_status",
	ActionStudentAgain:  "again_student",
	ActionHistoryAgain:  "again_history",
	ActionSearchPage:    "search_page",
	ActionApprove:       "approve",
	ActionDecline:       "decline",
	ActionSetRole:       "role",
	ActionDashboard:     "dash",
	ActionUsersPage:     "users",
	ActionUserDetail:    "user",
	ActionUserAudit:     "user_audit",
	ActionResetUser:     "reset",
	ActionResetPrompt:   "reset_prompt",
	ActionAuditPrompt:   "audit_prompt",
	ActionAnalytics:     "ana",
	ActionAnalyticsPage: "ana_page",
	ActionExportDB:      "export",
	ActionImportPrompt:  "import",
}

var uniqueActions = func() map[string]ActionKind {
	out := make(map[string]ActionKind, len(actionUniques))
	for kind, unique := range actionUniques {
		out[unique] = kind
	}
	return out
}()

// ErrBadAction is returned for callback data that does not decode to an action
var ErrBadAction = errors.New("malformed callback action")

// Action is a decoded button press. Only the fields relevant to Kind are set.
type Action struct {
	Kind   ActionKind
	Target int64      // Approve, Decline, SetRole, UserDetail, UserAudit, ResetUser
	Role   Role       // SetRole
	Report ReportKind // Analytics
	Delta  int        // SearchPage, UsersPage, AnalyticsPage; 0 opens the first page
}

func (k ActionKind) String() string {
	if unique, ok := actionUniques[k]; ok {
		return unique
	}
	return "unknown"
}

// Unique returns the button identifier
func (a Action) Unique() string {
	return a.Kind.String()
}

// Payload returns the encoded typed payload
func (a Action) Payload() string {
	switch a.Kind {
	case ActionApprove, ActionDecline, ActionUserDetail, ActionUserAudit, ActionResetUser:
		return strconv.FormatInt(a.Target, 10)
	case ActionSetRole:
		return strconv.FormatInt(a.Target, 10) + "|" + string(a.Role)
	case ActionAnalytics:
		return string(a.Report)
	case ActionSearchPage, ActionUsersPage, ActionAnalyticsPage:
		return strconv.Itoa(a.Delta)
	default:
		return ""
	}
}

// DecodeAction turns a button identifier and payload back into an action
func DecodeAction(unique, payload string) (Action, error) {
	kind, ok := uniqueActions[unique]
	if !ok {
		return Action{}, fmt.Errorf("%w: unknown button %q", ErrBadAction, unique)
	}

	a := Action{Kind: kind}
	var err error
	switch kind {
	case ActionApprove, ActionDecline, ActionUserDetail, ActionUserAudit, ActionResetUser:
		a.Target, err = parseTarget(payload)
	case ActionSetRole:
		target, role, found := strings.Cut(payload, "|")
		if !found {
			return Action{}, fmt.Errorf("%w: role payload %q", ErrBadAction, payload)
		}
		if a.Target, err = parseTarget(target); err != nil {
			break
		}
		a.Role = Role(role)
		if !a.Role.Valid() {
			err = fmt.Errorf("%w: role %q", ErrBadAction, role)
		}
	case ActionAnalytics:
		a.Report = ReportKind(payload)
		if !a.Report.Valid() {
			err = fmt.Errorf("%w: report %q", ErrBadAction, payload)
		}
	case ActionSearchPage, ActionUsersPage, ActionAnalyticsPage:
		if payload == "" {
			break
		}
		a.Delta, err = strconv.Atoi(payload)
		if err != nil {
			err = fmt.Errorf("%w: page delta %q", ErrBadAction, payload)
		}
	}
	if err != nil {
		return Action{}, err
	}
	return a, nil
}

// ParseCallbackData splits telebot's "\f<unique>|<payload>" encoding,
// dropping non-printable characters clients sometimes add.
func ParseCallbackData(raw string) (unique, payload string) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "\f")
	unique, payload, _ = strings.Cut(raw, "|")
	return cleanCallbackData(unique), cleanCallbackData(payload)
}

func cleanCallbackData(data string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, strings.TrimSpace(data))
}

func parseTarget(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: user id %q", ErrBadAction, s)
	}
	return id, nil
}
