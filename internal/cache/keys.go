package cache

import (
	"fmt"

	"github.com/officetracker/oit/internal/types"
)

// Kind groups keys that hold the same type of value.
type Kind int

// Key kinds.
const (
	KindIssueList Kind = iota + 1
	KindIssue
	KindComments
	KindNotifications
	KindUnreadCount
	KindOffices
	KindCountries
	KindProfile
	KindUsers
)

var kindNames = map[Kind]string{
	KindIssueList:     "issues",
	KindIssue:         "issue",
	KindComments:      "comments",
	KindNotifications: "notifications",
	KindUnreadCount:   "unread-count",
	KindOffices:       "offices",
	KindCountries:     "countries",
	KindProfile:       "profile",
	KindUsers:         "users",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Key identifies a cache entry. Implementations must be comparable; they
// are used directly as map keys.
type Key interface {
	Kind() Kind
	String() string
}

// IssueListKey holds a types.Page[types.Issue].
type IssueListKey struct{ Filter types.IssueFilter }

// IssueList returns the key for a filtered listing. The filter is
// normalized so equivalent queries share an entry.
func IssueList(f types.IssueFilter) IssueListKey {
	return IssueListKey{Filter: f.Normalize()}
}

func (IssueListKey) Kind() Kind       { return KindIssueList }
func (k IssueListKey) String() string { return "issues[" + k.Filter.String() + "]" }

// IssueKey holds a types.Issue.
type IssueKey struct{ ID int64 }

func (IssueKey) Kind() Kind       { return KindIssue }
func (k IssueKey) String() string { return fmt.Sprintf("issue[%d]", k.ID) }

// CommentsKey holds the []types.Comment of one issue.
type CommentsKey struct{ IssueID int64 }

func (CommentsKey) Kind() Kind       { return KindComments }
func (k CommentsKey) String() string { return fmt.Sprintf("comments[%d]", k.IssueID) }

// NotificationsKey holds the viewer's []types.Notification.
type NotificationsKey struct{}

func (NotificationsKey) Kind() Kind     { return KindNotifications }
func (NotificationsKey) String() string { return "notifications" }

// UnreadCountKey holds the unread notification count as an int.
type UnreadCountKey struct{}

func (UnreadCountKey) Kind() Kind     { return KindUnreadCount }
func (UnreadCountKey) String() string { return "unread-count" }

// OfficesKey holds []types.Office.
type OfficesKey struct{}

func (OfficesKey) Kind() Kind     { return KindOffices }
func (OfficesKey) String() string { return "offices" }

// CountriesKey holds []types.Country.
type CountriesKey struct{}

func (CountriesKey) Kind() Kind     { return KindCountries }
func (CountriesKey) String() string { return "countries" }

// ProfileKey holds the viewer's types.Profile.
type ProfileKey struct{}

func (ProfileKey) Kind() Kind     { return KindProfile }
func (ProfileKey) String() string { return "profile" }

// UsersKey holds []types.User.
type UsersKey struct{}

func (UsersKey) Kind() Kind     { return KindUsers }
func (UsersKey) String() string { return "users" }

// OfKind matches keys of any of the given kinds. Use it with Keys and
// Tx.PatchWhere.
func OfKind(kinds ...Kind) func(Key) bool {
	return func(k Key) bool {
		for _, kind := range kinds {
			if k.Kind() == kind {
				return true
			}
		}
		return false
	}
}
