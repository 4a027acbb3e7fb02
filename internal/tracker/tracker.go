// Package tracker is the facade the commands talk to. Reads go through the
// query cache; mutations patch the cache optimistically, send the request
// and then either reconcile with the backend or roll the patch back.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/officetracker/oit/internal/api"
	"github.com/officetracker/oit/internal/cache"
	"github.com/officetracker/oit/internal/debug"
	"github.com/officetracker/oit/internal/telemetry"
	"github.com/officetracker/oit/internal/types"
)

// API is the backend surface the tracker needs. *api.Client implements it.
type API interface {
	ListIssues(ctx context.Context, filter types.IssueFilter) (types.Page[types.Issue], error)
	GetIssue(ctx context.Context, id int64) (types.Issue, error)
	CreateIssue(ctx context.Context, in types.IssueInput, files []api.Upload) (types.Issue, error)
	UpdateIssue(ctx context.Context, id int64, in types.IssueInput, files []api.Upload) (types.Issue, error)
	DeleteIssue(ctx context.Context, id int64) error
	Vote(ctx context.Context, issueID int64) error
	Unvote(ctx context.Context, issueID int64) error

	ListComments(ctx context.Context, issueID int64) ([]types.Comment, error)
	CreateComment(ctx context.Context, issueID int64, text string) (types.Comment, error)

	ListNotifications(ctx context.Context) ([]types.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context) error

	ListOffices(ctx context.Context) ([]types.Office, error)
	CreateOffice(ctx context.Context, req types.OfficeRequest) (types.Office, error)
	UpdateOffice(ctx context.Context, id int64, req types.OfficeRequest) (types.Office, error)
	ListCountries(ctx context.Context) ([]types.Country, error)
	ListUsers(ctx context.Context) ([]types.User, error)
	Profile(ctx context.Context) (types.Profile, error)
	UpdateProfile(ctx context.Context, u types.ProfileUpdate) (types.Profile, error)
}

var _ API = (*api.Client)(nil)

const (
	tracerScope = "github.com/officetracker/oit/tracker"

	// PlaceholderAuthor is shown as the author of an unconfirmed comment.
	PlaceholderAuthor = "You"

	defaultBackgroundTimeout = 30 * time.Second
)

// Tracker composes the backend client and the query cache.
type Tracker struct {
	api   API
	store *cache.Store

	now       func() time.Time
	newID     func() string
	bgTimeout time.Duration
	onBgError func(error)

	bg sync.WaitGroup
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now for placeholder timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithIDGenerator replaces the random part of placeholder ids.
func WithIDGenerator(fn func() string) Option {
	return func(t *Tracker) { t.newID = fn }
}

// WithBackgroundErrorHandler receives errors from background refetches.
func WithBackgroundErrorHandler(fn func(error)) Option {
	return func(t *Tracker) { t.onBgError = fn }
}

// WithBackgroundTimeout bounds each background refetch.
func WithBackgroundTimeout(d time.Duration) Option {
	return func(t *Tracker) { t.bgTimeout = d }
}

// New creates a tracker over client and store.
func New(client API, store *cache.Store, opts ...Option) *Tracker {
	t := &Tracker{
		api:       client,
		store:     store,
		now:       time.Now,
		newID:     uuid.NewString,
		bgTimeout: defaultBackgroundTimeout,
		onBgError: func(err error) { debug.Logf("tracker: background refetch: %v\n", err) },
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Store returns the query cache.
func (t *Tracker) Store() *cache.Store { return t.store }

// Wait blocks until background refetches have finished.
func (t *Tracker) Wait() { t.bg.Wait() }

// refetchInBackground reloads keys without blocking the caller. The
// caller's context is not used since it may already be done.
func (t *Tracker) refetchInBackground(keys ...cache.Key) {
	if len(keys) == 0 {
		return
	}
	t.bg.Add(1)
	go func() {
		defer t.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), t.bgTimeout)
		defer cancel()
		if err := t.store.Refetch(ctx, keys...); err != nil {
			t.onBgError(err)
		}
	}()
}

// reconcile invalidates and refetches keys after a confirmed mutation.
// Refetch failures are logged; the mutation itself succeeded.
func (t *Tracker) reconcile(ctx context.Context, keys ...cache.Key) {
	if len(keys) == 0 {
		return
	}
	t.store.Invalidate(keys...)
	if err := t.store.Refetch(ctx, keys...); err != nil {
		debug.Logf("tracker: refetch after mutation: %v\n", err)
	}
}

func (t *Tracker) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return telemetry.Tracer(tracerScope).Start(ctx, "tracker."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Issues returns one page of issues matching filter.
func (t *Tracker) Issues(ctx context.Context, filter types.IssueFilter) (types.Page[types.Issue], error) {
	key := cache.IssueList(filter)
	return cache.FetchAs(ctx, t.store, key, func(ctx context.Context) (types.Page[types.Issue], error) {
		return t.api.ListIssues(ctx, key.Filter)
	})
}

// Issue returns one issue.
func (t *Tracker) Issue(ctx context.Context, id int64) (types.Issue, error) {
	return cache.FetchAs(ctx, t.store, cache.IssueKey{ID: id}, func(ctx context.Context) (types.Issue, error) {
		return t.api.GetIssue(ctx, id)
	})
}

// Comments returns the comments of an issue, oldest first.
func (t *Tracker) Comments(ctx context.Context, issueID int64) ([]types.Comment, error) {
	return cache.FetchAs(ctx, t.store, cache.CommentsKey{IssueID: issueID}, func(ctx context.Context) ([]types.Comment, error) {
		return t.api.ListComments(ctx, issueID)
	})
}

// Notifications returns the viewer's notifications.
func (t *Tracker) Notifications(ctx context.Context) ([]types.Notification, error) {
	return cache.FetchAs(ctx, t.store, cache.NotificationsKey{}, t.api.ListNotifications)
}

// UnreadCount returns the number of unread notifications.
func (t *Tracker) UnreadCount(ctx context.Context) (int, error) {
	return cache.FetchAs(ctx, t.store, cache.UnreadCountKey{}, t.api.UnreadCount)
}

// Offices returns all offices.
func (t *Tracker) Offices(ctx context.Context) ([]types.Office, error) {
	return cache.FetchAs(ctx, t.store, cache.OfficesKey{}, t.api.ListOffices)
}

// Countries returns the country catalogue.
func (t *Tracker) Countries(ctx context.Context) ([]types.Country, error) {
	return cache.FetchAs(ctx, t.store, cache.CountriesKey{}, t.api.ListCountries)
}

// Profile returns the viewer's profile.
func (t *Tracker) Profile(ctx context.Context) (types.Profile, error) {
	return cache.FetchAs(ctx, t.store, cache.ProfileKey{}, t.api.Profile)
}

// Users returns all users.
func (t *Tracker) Users(ctx context.Context) ([]types.User, error) {
	return cache.FetchAs(ctx, t.store, cache.UsersKey{}, t.api.ListUsers)
}
