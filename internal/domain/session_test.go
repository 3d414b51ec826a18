package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCursor_Advance(t *testing.T) {
	tests := []struct {
		name         string
		cursor       Cursor
		delta        int
		expectedOK   bool
		expectedPage int
	}{
		{"next within range", Cursor{Page: 1, TotalPages: 3}, 1, true, 2},
		{"next past last page", Cursor{Page: 3, TotalPages: 3}, 1, false, 3},
		{"previous from first page", Cursor{Page: 1, TotalPages: 3}, -1, false, 1},
		{"previous within range", Cursor{Page: 2, TotalPages: 3}, -1, true, 1},
		{"unknown total allows next", Cursor{Page: 1}, 1, true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.cursor
			ok := c.Advance(tt.delta)
			assert.Equal(t, tt.expectedOK, ok)
			assert.Equal(t, tt.expectedPage, c.Page)
		})
	}
}

func TestCursor_Navigation(t *testing.T) {
	assert.False(t, Cursor{Page: 1, TotalPages: 1}.HasNext())
	assert.True(t, Cursor{Page: 1, TotalPages: 2}.HasNext())
	assert.False(t, Cursor{Page: 1, TotalPages: 2}.HasPrev())
	assert.True(t, Cursor{Page: 2, TotalPages: 2}.HasPrev())
}

func TestState_RequiredTier(t *testing.T) {
	tests := []struct {
		state    State
		expected Tier
	}{
		{StateIdle, TierBasic},
		{StateSearchingBook, TierBasic},
		{StateCheckingStatus, TierBasic},
		{StateStudentLookup, TierApproved},
		{StateIssueHistoryLookup, TierApproved},
		{StateAdminDashboard, TierAdmin},
		{StateAdminResetUser, TierAdmin},
		{StateAdminUserHistory, TierAdmin},
		{StateAdminDbUpload, TierAdmin},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.True(t, tt.state.Known())
			assert.Equal(t, tt.expected, tt.state.RequiredTier())
		})
	}

	assert.False(t, State("CHOOSING").Known())
}

func TestSession_Clone(t *testing.T) {
	s := NewSession()
	s.Search = &SearchContext{Term: "Quran", Cursor: Cursor{Page: 1, TotalPages: 2}}

	clone := s.Clone()
	clone.Search.Page = 2

	assert.Equal(t, 1, s.Search.Page)
	assert.Equal(t, StateIdle, clone.State)
}

func TestBotUser_DisplayName(t *testing.T) {
	assert.Equal(t, "Amina Yusuf", BotUser{FirstName: "Amina", LastName: "Yusuf"}.DisplayName())
	assert.Equal(t, "@amina", BotUser{Username: "amina"}.DisplayName())
	assert.Equal(t, "user 7", BotUser{UserID: 7}.DisplayName())
}
