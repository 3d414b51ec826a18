package service

import (
	"context"
	"errors"
	"testing"

	"librarian/internal/domain"
	"librarian/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUserService_List(t *testing.T) {
	api := new(testutil.MockUserAPI)
	api.On("ListBotUsers", mock.Anything, 1, 5).Return(&domain.BotUserPage{
		Users: []domain.BotUser{testutil.NewTestBotUser(7, domain.RoleBasic)},
	}, nil)

	service := NewUserService(api, 5, testutil.NewTestLogger())

	page, err := service.List(context.Background(), 0)

	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 1, page.TotalPages)
	assert.Len(t, page.Users, 1)
	api.AssertExpectations(t)
}

func TestUserService_Register(t *testing.T) {
	user := testutil.NewTestBotUser(7, domain.RoleBasic)

	api := new(testutil.MockUserAPI)
	api.On("UpsertBotUser", mock.Anything, user).Return(errors.New("backend down"))

	service := NewUserService(api, 5, testutil.NewTestLogger())

	err := service.Register(context.Background(), user)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "user 7")
	api.AssertExpectations(t)
}

func TestUserService_AuditSwallowsErrors(t *testing.T) {
	entry := domain.AuditEntry{ActorID: 1, Action: domain.AuditApprove, TargetID: 7}

	api := new(testutil.MockUserAPI)
	api.On("AppendAudit", mock.Anything, entry).Return(errors.New("backend down"))

	service := NewUserService(api, 5, testutil.NewTestLogger())

	assert.NotPanics(t, func() { service.Audit(context.Background(), entry) })
	api.AssertExpectations(t)
}

func TestUserService_History(t *testing.T) {
	entries := []domain.AuditEntry{{ActorID: 1, Action: domain.AuditReset, TargetID: 7}}

	api := new(testutil.MockUserAPI)
	api.On("ListAudit", mock.Anything, int64(7), AuditLimit).Return(entries, nil)

	service := NewUserService(api, 5, testutil.NewTestLogger())

	got, err := service.History(context.Background(), 7)

	assert.NoError(t, err)
	assert.Equal(t, entries, got)
	api.AssertExpectations(t)
}
