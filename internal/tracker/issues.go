package tracker

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/officetracker/oit/internal/api"
	"github.com/officetracker/oit/internal/cache"
	"github.com/officetracker/oit/internal/types"
)

// The mutations below are not optimistic: the cache is only touched once
// the backend has answered.

// CreateIssue validates and creates an issue, optionally with attachments.
func (t *Tracker) CreateIssue(ctx context.Context, in types.IssueInput, files []api.Upload) (_ types.Issue, err error) {
	if err := in.Validate(); err != nil {
		return types.Issue{}, err
	}
	ctx, span := t.startSpan(ctx, "create-issue", attribute.Int("attachments", len(files)))
	defer func() { endSpan(span, err) }()

	issue, err := t.api.CreateIssue(ctx, in, files)
	if err != nil {
		return types.Issue{}, err
	}
	t.store.Set(cache.IssueKey{ID: issue.ID}, issue)
	t.store.Invalidate(t.store.Keys(cache.OfKind(cache.KindIssueList))...)
	return issue, nil
}

// UpdateIssue replaces the editable fields of an issue.
func (t *Tracker) UpdateIssue(ctx context.Context, id int64, in types.IssueInput, files []api.Upload) (_ types.Issue, err error) {
	if err := in.ValidateUpdate(); err != nil {
		return types.Issue{}, err
	}
	ctx, span := t.startSpan(ctx, "update-issue", attribute.Int64("issue.id", id))
	defer func() { endSpan(span, err) }()

	issue, err := t.api.UpdateIssue(ctx, id, in, files)
	if err != nil {
		return types.Issue{}, err
	}
	t.store.Set(cache.IssueKey{ID: id}, issue)
	t.store.Invalidate(t.store.Keys(cache.OfKind(cache.KindIssueList))...)
	return issue, nil
}

// DeleteIssue deletes an issue and forgets everything cached about it.
func (t *Tracker) DeleteIssue(ctx context.Context, id int64) (err error) {
	ctx, span := t.startSpan(ctx, "delete-issue", attribute.Int64("issue.id", id))
	defer func() { endSpan(span, err) }()

	if err := t.api.DeleteIssue(ctx, id); err != nil {
		return err
	}
	t.store.Remove(cache.IssueKey{ID: id}, cache.CommentsKey{IssueID: id})
	t.store.Invalidate(t.store.Keys(cache.OfKind(cache.KindIssueList))...)
	return nil
}

// CreateOffice validates and creates an office.
func (t *Tracker) CreateOffice(ctx context.Context, req types.OfficeRequest) (types.Office, error) {
	if err := types.ValidateOffice(req); err != nil {
		return types.Office{}, err
	}
	o, err := t.api.CreateOffice(ctx, req)
	if err != nil {
		return types.Office{}, err
	}
	t.store.Invalidate(cache.OfficesKey{})
	return o, nil
}

// UpdateOffice validates and replaces an office.
func (t *Tracker) UpdateOffice(ctx context.Context, id int64, req types.OfficeRequest) (types.Office, error) {
	if err := types.ValidateOffice(req); err != nil {
		return types.Office{}, err
	}
	o, err := t.api.UpdateOffice(ctx, id, req)
	if err != nil {
		return types.Office{}, err
	}
	t.store.Invalidate(cache.OfficesKey{})
	return o, nil
}
