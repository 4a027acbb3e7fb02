// Package types defines the data structures of the office issue tracker client.
package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Issue is the client-side view model of a reported office problem.
type Issue struct {
	ID           int64           `json:"id"`
	Summary      string          `json:"summary"`
	Description  string          `json:"description,omitempty"` // rich text (HTML)
	Status       Status          `json:"status"`
	Votes        int             `json:"votes"`
	CommentCount int             `json:"comment_count"`
	HasVoted     bool            `json:"has_voted"` // per requesting viewer, not a property of the issue
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Office       OfficeRef       `json:"office"`
	Reporter     UserRef         `json:"reporter"`
	Attachments  []AttachmentRef `json:"attachments,omitempty"`
}

// OfficeRef is the owning office of an issue or profile.
type OfficeRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// UserRef identifies the reporter or author of something.
type UserRef struct {
	ID        int64  `json:"id"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// AttachmentRef points at an uploaded file of an issue.
type AttachmentRef struct {
	ID       int64  `json:"id"`
	FileName string `json:"file_name"`
	URL      string `json:"url"`
}

// Status is the lifecycle state of an issue.
type Status string

// Issue status constants
const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS" // shown as "Planned"
	StatusResolved   Status = "RESOLVED"
	StatusClosed     Status = "CLOSED"
	StatusPending    Status = "PENDING"
	StatusBlocked    Status = "BLOCKED"
)

// Statuses lists every status in display order.
var Statuses = []Status{
	StatusOpen, StatusInProgress, StatusPending, StatusBlocked, StatusResolved, StatusClosed,
}

// ErrUnknownStatus is returned when the backend sends a status the client does not know.
var ErrUnknownStatus = errors.New("unknown issue status")

// IsValid checks if the status value is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed, StatusPending, StatusBlocked:
		return true
	}
	return false
}

// Label returns the human readable name of the status.
func (s Status) Label() string {
	switch s {
	case StatusOpen:
		return "Open"
	case StatusInProgress:
		return "Planned"
	case StatusResolved:
		return "Resolved"
	case StatusClosed:
		return "Closed"
	case StatusPending:
		return "Pending"
	case StatusBlocked:
		return "Blocked"
	}
	return string(s)
}

// ParseStatus maps a wire value to a Status. Unknown values are an error and
// are never coerced to a default. Matching is case-insensitive and accepts
// the display labels and dashed forms as used on the command line.
func ParseStatus(s string) (Status, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")
	norm = strings.ReplaceAll(norm, " ", "_")
	if norm == "PLANNED" {
		return StatusInProgress, nil
	}
	st := Status(norm)
	if !st.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

// Comment is a remark left on an issue.
type Comment struct {
	ID           string    `json:"id"`
	IssueID      int64     `json:"issue_id"`
	AuthorName   string    `json:"author_name"`
	AuthorAvatar string    `json:"author_avatar,omitempty"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"created_at"`
	Votes        int       `json:"votes"`
	Pending      bool      `json:"pending,omitempty"` // optimistic placeholder not yet confirmed
}

// PlaceholderPrefix marks locally generated comment ids.
const PlaceholderPrefix = "tmp-"

// IsPlaceholder reports whether the comment was generated locally.
func (c Comment) IsPlaceholder() bool {
	return strings.HasPrefix(c.ID, PlaceholderPrefix)
}

// NotificationType is the triggering event of a notification.
type NotificationType string

// Notification type constants
const (
	NotificationUpvote       NotificationType = "UPVOTE"
	NotificationComment      NotificationType = "COMMENT"
	NotificationStatusChange NotificationType = "STATUS_CHANGE"
)

// ErrUnknownNotificationType is returned for notification types the client does not know.
var ErrUnknownNotificationType = errors.New("unknown notification type")

// IsValid checks if the notification type is valid
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationUpvote, NotificationComment, NotificationStatusChange:
		return true
	}
	return false
}

// ParseNotificationType maps a wire value to a NotificationType.
func ParseNotificationType(s string) (NotificationType, error) {
	t := NotificationType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownNotificationType, s)
	}
	return t, nil
}

// Notification tells the viewer that something happened on an issue.
type Notification struct {
	ID        int64            `json:"id"`
	IssueID   int64            `json:"issue_id"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

// Office is a physical office issues are scoped to.
type Office struct {
	ID      int64      `json:"id"`
	Title   string     `json:"title"`
	Address string     `json:"address,omitempty"`
	Country CountryRef `json:"country"`
}

// Ref returns the short reference form of the office.
func (o Office) Ref() OfficeRef {
	return OfficeRef{ID: o.ID, Title: o.Title}
}

// CountryRef is the country an office belongs to.
type CountryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Country is an entry of the country catalogue.
type Country struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// User is a person known to the tracker.
type User struct {
	ID        int64  `json:"id"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Position  string `json:"position,omitempty"`
}

// Ref returns the short reference form of the user.
func (u User) Ref() UserRef {
	return UserRef{ID: u.ID, FullName: u.FullName, AvatarURL: u.AvatarURL}
}

// Profile is the viewer's own user record.
type Profile struct {
	User
	Office *OfficeRef `json:"office,omitempty"`
}

// ProfileUpdate carries the editable fields of a profile.
type ProfileUpdate struct {
	FullName string `json:"fullName"`
	Position string `json:"position,omitempty"`
	OfficeID int64  `json:"officeId,omitempty"`
}

// Apply returns p with the update applied. The office title is only known
// when it is passed in.
func (u ProfileUpdate) Apply(p Profile, office *OfficeRef) Profile {
	if u.FullName != "" {
		p.FullName = u.FullName
	}
	p.Position = u.Position
	if u.OfficeID != 0 {
		if office != nil && office.ID == u.OfficeID {
			ref := *office
			p.Office = &ref
		} else {
			p.Office = &OfficeRef{ID: u.OfficeID}
		}
	}
	return p
}

// SessionStatus reports whether the session cookie is authenticated.
type SessionStatus struct {
	Authenticated bool  `json:"authenticated"`
	User          *User `json:"user,omitempty"`
}

// ViewerID returns the identity the push channel subscribes for, or "".
func (s SessionStatus) ViewerID() string {
	if !s.Authenticated || s.User == nil {
		return ""
	}
	return fmt.Sprintf("%d", s.User.ID)
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Size       int `json:"size"`
	TotalPages int `json:"total_pages"`
}
