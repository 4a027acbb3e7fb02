package tracker

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/officetracker/oit/internal/cache"
	"github.com/officetracker/oit/internal/debug"
	"github.com/officetracker/oit/internal/types"
)

var notificationKeys = []cache.Key{cache.NotificationsKey{}, cache.UnreadCountKey{}}

// MarkRead marks a notification read. The unread counter drops by one
// unless the cached notification was already read.
func (t *Tracker) MarkRead(ctx context.Context, id int64) (err error) {
	ctx, span := t.startSpan(ctx, "mark-read", attribute.Int64("notification.id", id))
	defer func() { endSpan(span, err) }()

	tx := t.store.Begin("mark-read")
	if t.cachedUnread(id) {
		tx.Patch(cache.NotificationsKey{}, markNotificationRead(id))
		tx.Patch(cache.UnreadCountKey{}, addUnread(-1))
	}

	if err := t.api.MarkRead(ctx, id); err != nil {
		tx.Rollback()
		return err
	}
	tx.Commit()
	t.reconcile(ctx, notificationKeys...)
	return nil
}

// cachedUnread reports whether notification id is unread in the cache, or
// not cached at all.
func (t *Tracker) cachedUnread(id int64) bool {
	list, ok := cache.Lookup[[]types.Notification](t.store, cache.NotificationsKey{})
	if !ok {
		return true
	}
	for _, n := range list {
		if n.ID == id {
			return !n.Read
		}
	}
	return true
}

// MarkAllRead marks every notification read and zeroes the counter. Only
// the notifications listed when the call starts are marked; the counter
// drops by the unread count seen then, so a notification pushed while the
// request is in flight still counts.
func (t *Tracker) MarkAllRead(ctx context.Context) (err error) {
	ctx, span := t.startSpan(ctx, "mark-all-read")
	defer func() { endSpan(span, err) }()

	tx := t.store.Begin("mark-all-read")
	if list, ok := cache.Lookup[[]types.Notification](t.store, cache.NotificationsKey{}); ok {
		tx.Patch(cache.NotificationsKey{}, markNotificationsRead(unreadIDs(list)))
	}
	if unread, ok := cache.Lookup[int](t.store, cache.UnreadCountKey{}); ok && unread > 0 {
		tx.Patch(cache.UnreadCountKey{}, addUnread(-unread))
	}

	if err := t.api.MarkAllRead(ctx); err != nil {
		tx.Rollback()
		return err
	}
	tx.Commit()
	t.reconcile(ctx, notificationKeys...)
	return nil
}

// DeliverNotification records a notification pushed by the backend. It is
// prepended to the cached list and counted as unread. Nothing is cached
// for entries that were never fetched.
func (t *Tracker) DeliverNotification(n types.Notification) {
	tx := t.store.Begin("push")
	tx.Patch(cache.NotificationsKey{}, prependNotification(n))
	if !n.Read {
		tx.Patch(cache.UnreadCountKey{}, addUnread(1))
	}
	tx.Commit()
	debug.Logf("tracker: notification %d for issue %d\n", n.ID, n.IssueID)
}
