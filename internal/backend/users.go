package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"librarian/internal/domain"
)

type botUserDTO struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
	LastSeen  time.Time `json:"last_seen"`
}

type upsertRequest struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (u botUserDTO) toDomain() domain.BotUser {
	role := domain.Role(u.Role)
	if role == "" {
		role = domain.RoleBasic
	}
	return domain.BotUser{
		UserID:    u.UserID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      role,
		LastSeen:  u.LastSeen,
	}
}

type userListResponse struct {
	Users      []botUserDTO `json:"users"`
	Page       int          `json:"page"`
	TotalPages int          `json:"total_pages"`
	TotalCount int          `json:"total_count"`
}

type roleRequest struct {
	Role string `json:"role"`
}

type approvedResponse struct {
	UserIDs []int64 `json:"user_ids"`
}

type auditDTO struct {
	ActorID   int64     `json:"actor_id"`
	Action    string    `json:"action"`
	TargetID  int64     `json:"target_id"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

type auditRequest struct {
	ActorID  int64  `json:"actor_id"`
	Action   string `json:"action"`
	TargetID int64  `json:"target_id"`
	Detail   string `json:"detail"`
}

// UpsertBotUser records a user the bot has seen
func (c *Client) UpsertBotUser(ctx context.Context, user domain.BotUser) error {
	req := upsertRequest{
		UserID:    user.UserID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
	return c.call(ctx, http.MethodPost, "/bot_users", req, nil)
}

// ListBotUsers returns one page of the bot user directory
func (c *Client) ListBotUsers(ctx context.Context, page, pageSize int) (*domain.BotUserPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(pageSize))

	var resp userListResponse
	if err := c.call(ctx, http.MethodGet, "/bot_users?"+query.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	result := &domain.BotUserPage{
		Users:      make([]domain.BotUser, 0, len(resp.Users)),
		Page:       resp.Page,
		TotalPages: resp.TotalPages,
		TotalCount: resp.TotalCount,
	}
	for _, u := range resp.Users {
		result.Users = append(result.Users, u.toDomain())
	}
	if result.Page == 0 {
		result.Page = page
	}
	return result, nil
}

// BotUser returns a single bot user
func (c *Client) BotUser(ctx context.Context, userID int64) (*domain.BotUser, error) {
	var resp botUserDTO
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/bot_users/%d", userID), nil, &resp); err != nil {
		return nil, err
	}
	user := resp.toDomain()
	return &user, nil
}

// SetRole stores a user's role
func (c *Client) SetRole(ctx context.Context, userID int64, role domain.Role) error {
	return c.call(ctx, http.MethodPost, fmt.Sprintf("/bot_users/%d/role", userID), roleRequest{Role: string(role)}, nil)
}

// ApprovedUserIDs lists the users holding the approved role
func (c *Client) ApprovedUserIDs(ctx context.Context) ([]int64, error) {
	var resp approvedResponse
	if err := c.call(ctx, http.MethodGet, "/bot_users/approved", nil, &resp); err != nil {
		return nil, err
	}
	return resp.UserIDs, nil
}

// AppendAudit records an administrator action
func (c *Client) AppendAudit(ctx context.Context, entry domain.AuditEntry) error {
	req := auditRequest{
		ActorID:  entry.ActorID,
		Action:   entry.Action,
		TargetID: entry.TargetID,
		Detail:   entry.Detail,
	}
	return c.call(ctx, http.MethodPost, "/audit_log", req, nil)
}

// ListAudit returns the latest audit entries about a user
func (c *Client) ListAudit(ctx context.Context, userID int64, limit int) ([]domain.AuditEntry, error) {
	query := url.Values{}
	query.Set("user_id", strconv.FormatInt(userID, 10))
	query.Set("limit", strconv.Itoa(limit))

	var resp []auditDTO
	if err := c.call(ctx, http.MethodGet, "/audit_log?"+query.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	entries := make([]domain.AuditEntry, 0, len(resp))
	for _, e := range resp {
		entries = append(entries, domain.AuditEntry{
			ActorID:   e.ActorID,
			Action:    e.Action,
			TargetID:  e.TargetID,
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt,
		})
	}
	return entries, nil
}
