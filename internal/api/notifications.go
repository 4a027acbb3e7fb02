package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/officetracker/oit/internal/types"
)

// ListNotifications fetches the viewer's notifications, newest first.
func (c *Client) ListNotifications(ctx context.Context) ([]types.Notification, error) {
	var ds []types.NotificationDTO
	if err := c.getJSON(ctx, "/api/notifications", nil, &ds); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return types.ToNotifications(ds)
}

// UnreadCount fetches the number of unread notifications.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var d types.UnreadCountDTO
	if err := c.getJSON(ctx, "/api/notifications/unread-count", nil, &d); err != nil {
		return 0, fmt.Errorf("failed to fetch unread count: %w", err)
	}
	if d.Count < 0 {
		return 0, nil
	}
	return d.Count, nil
}

// MarkRead marks one notification as read.
func (c *Client) MarkRead(ctx context.Context, id int64) error {
	path := "/api/notifications/" + strconv.FormatInt(id, 10) + "/read"
	if err := c.sendJSON(ctx, http.MethodPatch, path, nil, nil); err != nil {
		return fmt.Errorf("failed to mark notification %d read: %w", id, err)
	}
	return nil
}

// MarkAllRead marks every notification of the viewer as read.
func (c *Client) MarkAllRead(ctx context.Context) error {
	if err := c.sendJSON(ctx, http.MethodPatch, "/api/notifications/read-all", nil, nil); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}
