package tracker

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/officetracker/oit/internal/cache"
	"github.com/officetracker/oit/internal/types"
)

// Vote adds the viewer's vote to an issue. Every cached listing and detail
// containing the issue shows the vote immediately; if the backend rejects
// it the cache is restored and refreshed in the background.
func (t *Tracker) Vote(ctx context.Context, issueID int64) error {
	return t.setVote(ctx, issueID, true)
}

// Unvote removes the viewer's vote from an issue.
func (t *Tracker) Unvote(ctx context.Context, issueID int64) error {
	return t.setVote(ctx, issueID, false)
}

func (t *Tracker) setVote(ctx context.Context, issueID int64, voted bool) (err error) {
	name := "unvote"
	send := t.api.Unvote
	if voted {
		name = "vote"
		send = t.api.Vote
	}
	ctx, span := t.startSpan(ctx, name, attribute.Int64("issue.id", issueID))
	defer func() { endSpan(span, err) }()

	tx := t.store.Begin(name)
	// An issue already in the wanted state is not patched; the request is
	// still sent since the backend decides.
	touched := tx.PatchWhere(issueKinds, patchIssue(issueID, setVoted(voted)))

	if err := send(ctx, issueID); err != nil {
		tx.Rollback()
		// Resync every entry showing the issue, patched or not: the
		// backend may have rejected a vote the cache already displayed.
		t.refetchInBackground(t.keysWithIssue(issueID)...)
		return err
	}
	tx.Commit()
	t.reconcile(ctx, touched...)
	return nil
}

// keysWithIssue lists the cached listings and details that show issue id.
func (t *Tracker) keysWithIssue(id int64) []cache.Key {
	found := patchIssue(id, func(issue types.Issue) (types.Issue, bool) { return issue, true })
	var out []cache.Key
	for _, k := range t.store.Keys(issueKinds) {
		v, ok := t.store.Get(k)
		if !ok {
			continue
		}
		if _, hit := found(k, v); hit {
			out = append(out, k)
		}
	}
	return out
}
