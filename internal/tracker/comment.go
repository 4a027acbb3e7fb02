package tracker

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/officetracker/oit/internal/cache"
	"github.com/officetracker/oit/internal/types"
)

// AddComment posts a comment. A placeholder is listed right away and
// replaced by the backend's record once the request succeeds.
func (t *Tracker) AddComment(ctx context.Context, issueID int64, text string) (_ types.Comment, err error) {
	if err := types.ValidateCommentText(text); err != nil {
		return types.Comment{}, err
	}
	text = strings.TrimSpace(text)

	ctx, span := t.startSpan(ctx, "comment", attribute.Int64("issue.id", issueID))
	defer func() { endSpan(span, err) }()

	placeholder := types.Comment{
		ID:         types.PlaceholderPrefix + t.newID(),
		IssueID:    issueID,
		AuthorName: PlaceholderAuthor,
		Text:       text,
		CreatedAt:  t.now(),
		Pending:    true,
	}
	key := cache.CommentsKey{IssueID: issueID}

	tx := t.store.Begin("comment")
	tx.Patch(key, appendComment(placeholder))
	issueKeys := tx.PatchWhere(issueKinds, bumpCommentCount(issueID))

	created, err := t.api.CreateComment(ctx, issueID, text)
	if err != nil {
		tx.Rollback()
		return types.Comment{}, err
	}
	tx.Commit()

	confirm := t.store.Begin("comment-confirm")
	confirm.Patch(key, replaceComment(placeholder.ID, created))
	confirm.Commit()

	t.reconcile(ctx, append([]cache.Key{key}, issueKeys...)...)
	return created, nil
}
