package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallbackData(t *testing.T) {
	tests := []struct {
		name            string
		input           string
		expectedUnique  string
		expectedPayload string
	}{
		{
			name:            "telebot encoding",
			input:           "\fapprove|42",
			expectedUnique:  "approve",
			expectedPayload: "42",
		},
		{
			name:            "no payload",
			input:           "\fmenu",
			expectedUnique:  "menu",
			expectedPayload: "",
		},
		{
			name:            "payload with separator",
			input:           "\frole|42|approved",
			expectedUnique:  "role",
			expectedPayload: "42|approved",
		},
		{
			name:            "string with whitespace",
			input:           "  \fsearch_page|1  ",
			expectedUnique:  "search_page",
			expectedPayload: "1",
		},
		{
			name:            "string with unprintable characters",
			input:           "\fdash\x00|\x01",
			expectedUnique:  "dash",
			expectedPayload: "",
		},
		{
			name:            "empty string",
			input:           "",
			expectedUnique:  "",
			expectedPayload: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unique, payload := ParseCallbackData(tt.input)
			assert.Equal(t, tt.expectedUnique, unique)
			assert.Equal(t, tt.expectedPayload, payload)
		})
	}
}

func TestDecodeAction(t *testing.T) {
	tests := []struct {
		name     string
		unique   string
		payload  string
		expected Action
	}{
		{"menu", "menu", "", Action{Kind: ActionMenu}},
		{"next page", "search_page", "1", Action{Kind: ActionSearchPage, Delta: 1}},
		{"previous page", "search_page", "-1", Action{Kind: ActionSearchPage, Delta: -1}},
		{"first user page", "users", "", Action{Kind: ActionUsersPage}},
		{"approve", "approve", "8291437833", Action{Kind: ActionApprove, Target: 8291437833}},
		{"set role", "role", "77|basic", Action{Kind: ActionSetRole, Target: 77, Role: RoleBasic}},
		{"analytics", "ana", "overdue", Action{Kind: ActionAnalytics, Report: ReportOverdue}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, err := DecodeAction(tt.unique, tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, action)
		})
	}
}

func TestDecodeAction_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		unique  string
		payload string
	}{
		{"unknown button", "approve_", "1"},
		{"missing target", "approve", ""},
		{"zero target", "decline", "0"},
		{"non numeric target", "user", "abc"},
		{"role without separator", "role", "77"},
		{"admin role cannot be assigned", "role", "77|admin"},
		{"unknown report", "ana", "weather"},
		{"bad delta", "ana_page", "next"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAction(tt.unique, tt.payload)
			assert.ErrorIs(t, err, ErrBadAction)
		})
	}
}

func TestAction_EncodeDecode(t *testing.T) {
	action := Action{Kind: ActionSetRole, Target: 1234, Role: RoleApproved}

	decoded, err := DecodeAction(ParseCallbackData("\f" + action.Unique() + "|" + action.Payload()))

	require.NoError(t, err)
	assert.Equal(t, action, decoded)
}
