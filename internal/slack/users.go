package slack

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// User resolves a user profile, consulting the cache first.
func (c *Client) User(ctx context.Context, id string) (*User, error) {
	if u := c.users.Get(id); u != nil {
		return u, nil
	}
	var resp UserInfoResponse
	if err := c.get(ctx, "users.info", url.Values{"user": {id}}, &resp); err != nil {
		return nil, err
	}
	u := resp.User.toUser()
	c.users.Set(u)
	return u, nil
}

// PrefetchUsers resolves every uncached ID in ids with a single batched
// users.info call. Already-cached IDs cost nothing; when all are cached no
// call is made.
func (c *Client) PrefetchUsers(ctx context.Context, ids []string) error {
	missing := c.users.Missing(ids)
	if len(missing) == 0 {
		return nil
	}
	var resp UsersInfoResponse
	if err := c.get(ctx, "users.info", url.Values{"users": {strings.Join(missing, ",")}}, &resp); err != nil {
		return err
	}
	for _, u := range resp.Users {
		c.users.Set(u.toUser())
	}
	return nil
}

// ListUsers walks users.list, caching every member. maxPages <= 0 walks
// every page.
func (c *Client) ListUsers(ctx context.Context, maxPages int) ([]*User, error) {
	var out []*User
	_, err := walkPages(ctx, maxPages, func(ctx context.Context, cursor string) (string, error) {
		params := url.Values{"limit": {strconv.Itoa(200)}}
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		var resp UsersListResponse
		if err := c.get(ctx, "users.list", params, &resp); err != nil {
			return "", err
		}
		for _, m := range resp.Members {
			u := m.toUser()
			c.users.Set(u)
			out = append(out, u)
		}
		return resp.ResponseMetadata.NextCursor, nil
	})
	return out, err
}

// UserName returns the display name for id. API errors fall back to the ID
// itself; an empty ID yields "unknown".
func (c *Client) UserName(ctx context.Context, id string) string {
	if id == "" {
		return "unknown"
	}
	u, err := c.User(ctx, id)
	if err != nil {
		return id
	}
	return u.Display()
}

// CachedUserName returns the display name for id without any network call.
func (c *Client) CachedUserName(id string) (string, bool) {
	if u := c.users.Get(id); u != nil {
		return u.Display(), true
	}
	return "", false
}

// AuthTest reports the identity behind the client's credentials.
func (c *Client) AuthTest(ctx context.Context) (AuthInfo, error) {
	var resp AuthTestResponse
	if err := c.get(ctx, "auth.test", nil, &resp); err != nil {
		return AuthInfo{}, err
	}
	return AuthInfo{
		URL:    resp.URL,
		Team:   resp.Team,
		User:   resp.User,
		TeamID: resp.TeamID,
		UserID: resp.UserID,
	}, nil
}
