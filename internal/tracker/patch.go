package tracker

import (
	"github.com/officetracker/oit/internal/cache"
	"github.com/officetracker/oit/internal/types"
)

// Patch functions run every time an entry is read while the transaction is
// pending, so they copy before modifying and never touch their input. They
// may also run again over a base refetched in the meantime; whatever they
// change is decided when the transaction patches, not when they rerun.

// issueKinds are the entries an issue can appear in.
var issueKinds = cache.OfKind(cache.KindIssueList, cache.KindIssue)

// patchIssue applies fn to issue id wherever it appears in a listing or
// detail entry. fn reports false to leave the issue alone.
func patchIssue(id int64, fn func(types.Issue) (types.Issue, bool)) cache.PatchFunc {
	return func(_ cache.Key, cur any) (any, bool) {
		switch v := cur.(type) {
		case types.Page[types.Issue]:
			for i, issue := range v.Items {
				if issue.ID != id {
					continue
				}
				updated, ok := fn(issue)
				if !ok {
					return nil, false
				}
				items := make([]types.Issue, len(v.Items))
				copy(items, v.Items)
				items[i] = updated
				v.Items = items
				return v, true
			}
		case types.Issue:
			if v.ID == id {
				return fn(v)
			}
		}
		return nil, false
	}
}

// setVoted flips the viewer's vote on an issue. It is a no-op when the
// issue already has the wanted state.
func setVoted(voted bool) func(types.Issue) (types.Issue, bool) {
	return func(issue types.Issue) (types.Issue, bool) {
		if issue.HasVoted == voted {
			return issue, false
		}
		issue.HasVoted = voted
		if voted {
			issue.Votes++
		} else if issue.Votes > 0 {
			issue.Votes--
		}
		return issue, true
	}
}

// bumpCommentCount counts one more comment on issue id. The target count
// is fixed per entry when the transaction first patches it, so a refetched
// count that already includes the comment is left alone.
func bumpCommentCount(id int64) cache.PatchFunc {
	targets := make(map[cache.Key]int)
	return func(key cache.Key, cur any) (any, bool) {
		return patchIssue(id, func(issue types.Issue) (types.Issue, bool) {
			target, seen := targets[key]
			if !seen {
				target = issue.CommentCount + 1
				targets[key] = target
			}
			if issue.CommentCount >= target {
				return issue, false
			}
			issue.CommentCount = target
			return issue, true
		})(key, cur)
	}
}

// appendComment adds c to a comment list, creating the list when the
// entry does not exist yet.
func appendComment(c types.Comment) cache.PatchFunc {
	return func(_ cache.Key, cur any) (any, bool) {
		list, _ := cur.([]types.Comment)
		out := make([]types.Comment, 0, len(list)+1)
		out = append(out, list...)
		return append(out, c), true
	}
}

// replaceComment swaps the placeholder with the confirmed comment. If the
// confirmed comment is already listed the placeholder is just dropped.
func replaceComment(placeholderID string, confirmed types.Comment) cache.PatchFunc {
	return func(_ cache.Key, cur any) (any, bool) {
		list, ok := cur.([]types.Comment)
		if !ok {
			return nil, false
		}
		present := false
		for _, c := range list {
			if c.ID == confirmed.ID {
				present = true
				break
			}
		}
		out := make([]types.Comment, 0, len(list))
		found := false
		for _, c := range list {
			if c.ID != placeholderID {
				out = append(out, c)
				continue
			}
			found = true
			if !present {
				out = append(out, confirmed)
			}
		}
		if !found {
			return nil, false
		}
		return out, true
	}
}

// markNotificationRead sets the read flag of notification id.
func markNotificationRead(id int64) cache.PatchFunc {
	return func(_ cache.Key, cur any) (any, bool) {
		list, ok := cur.([]types.Notification)
		if !ok {
			return nil, false
		}
		for i, n := range list {
			if n.ID != id {
				continue
			}
			if n.Read {
				return nil, false
			}
			out := make([]types.Notification, len(list))
			copy(out, list)
			out[i].Read = true
			return out, true
		}
		return nil, false
	}
}

// markNotificationsRead sets the read flag of the listed notifications.
// Notifications that arrive later are not in ids and stay unread.
func markNotificationsRead(ids map[int64]bool) cache.PatchFunc {
	return func(_ cache.Key, cur any) (any, bool) {
		list, ok := cur.([]types.Notification)
		if !ok {
			return nil, false
		}
		var out []types.Notification
		for i, n := range list {
			if n.Read || !ids[n.ID] {
				continue
			}
			if out == nil {
				out = make([]types.Notification, len(list))
				copy(out, list)
			}
			out[i].Read = true
		}
		if out == nil {
			return nil, false
		}
		return out, true
	}
}

// unreadIDs lists the notifications of list that are not read yet.
func unreadIDs(list []types.Notification) map[int64]bool {
	ids := make(map[int64]bool)
	for _, n := range list {
		if !n.Read {
			ids[n.ID] = true
		}
	}
	return ids
}

func prependNotification(n types.Notification) cache.PatchFunc {
	return func(_ cache.Key, cur any) (any, bool) {
		list, ok := cur.([]types.Notification)
		if !ok {
			return nil, false
		}
		out := make([]types.Notification, 0, len(list)+1)
		out = append(out, n)
		return append(out, list...), true
	}
}

// addUnread adjusts the unread counter, never going below zero.
func addUnread(delta int) cache.PatchFunc {
	return func(_ cache.Key, cur any) (any, bool) {
		n, ok := cur.(int)
		if !ok {
			return nil, false
		}
		n += delta
		if n < 0 {
			n = 0
		}
		return n, true
	}
}

func applyProfile(u types.ProfileUpdate, office *types.OfficeRef) cache.PatchFunc {
	return func(_ cache.Key, cur any) (any, bool) {
		p, ok := cur.(types.Profile)
		if !ok {
			return nil, false
		}
		return u.Apply(p, office), true
	}
}
