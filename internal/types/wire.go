package types

import (
	"fmt"
	"strconv"
	"time"
)

// The DTOs below mirror the backend JSON. They are decoded as-is and then
// mapped to the view models with the To* functions, which is where enum and
// date validation happens.

// IssueDTO is the wire shape of an issue.
type IssueDTO struct {
	ID            int64           `json:"id"`
	Summary       string          `json:"summary"`
	Description   string          `json:"description"`
	Status        string          `json:"status"`
	Votes         *int            `json:"votes"`
	CommentsCount *int            `json:"commentsCount"`
	HasVoted      *bool           `json:"hasVoted"`
	CreatedAt     string          `json:"createdAt"`
	UpdatedAt     string          `json:"updatedAt"`
	Office        *OfficeRefDTO   `json:"office"`
	Reporter      *UserRefDTO     `json:"reporter"`
	Attachments   []AttachmentDTO `json:"attachments"`
}

// OfficeRefDTO is the wire shape of an office reference.
type OfficeRefDTO struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// UserRefDTO is the wire shape of a user reference.
type UserRefDTO struct {
	ID        int64  `json:"id"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatarUrl"`
}

// AttachmentDTO is the wire shape of an uploaded file.
type AttachmentDTO struct {
	ID       int64  `json:"id"`
	FileName string `json:"fileName"`
	URL      string `json:"url"`
}

// CommentDTO is the wire shape of a comment.
type CommentDTO struct {
	ID        int64       `json:"id"`
	IssueID   int64       `json:"issueId"`
	Author    *UserRefDTO `json:"author"`
	Text      string      `json:"text"`
	CreatedAt string      `json:"createdAt"`
	Votes     *int        `json:"votes"`
}

// NotificationDTO is the wire shape of a notification, both in bulk
// listings and on the push channel.
type NotificationDTO struct {
	ID        int64  `json:"id"`
	IssueID   int64  `json:"issueId"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"createdAt"`
}

// PageDTO is the wire shape of a paginated listing.
type PageDTO[T any] struct {
	Content       []T `json:"content"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
	Number        int `json:"number"`
	Size          int `json:"size"`
}

// OfficeDTO is the wire shape of an office.
type OfficeDTO struct {
	ID      int64       `json:"id"`
	Title   string      `json:"title"`
	Address string      `json:"address"`
	Country *CountryDTO `json:"country"`
}

// CountryDTO is the wire shape of a country.
type CountryDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// UserDTO is the wire shape of a user.
type UserDTO struct {
	ID        int64         `json:"id"`
	FullName  string        `json:"fullName"`
	Email     string        `json:"email"`
	AvatarURL string        `json:"avatarUrl"`
	Position  string        `json:"position"`
	Office    *OfficeRefDTO `json:"office"`
}

// SessionDTO is the wire shape of the session status endpoint.
type SessionDTO struct {
	Authenticated bool     `json:"authenticated"`
	User          *UserDTO `json:"user"`
}

// UnreadCountDTO is the wire shape of the unread counter.
type UnreadCountDTO struct {
	Count int `json:"count"`
}

// IssueRequest is the body sent when creating or updating an issue.
type IssueRequest struct {
	Summary     string `json:"summary"`
	Description string `json:"description"`
	OfficeID    int64  `json:"officeId,omitempty"`
	Status      string `json:"status,omitempty"`
}

// OfficeRequest is the body sent when creating or updating an office.
type OfficeRequest struct {
	Title     string `json:"title"`
	Address   string `json:"address,omitempty"`
	CountryID int64  `json:"countryId"`
}

// CommentRequest is the body sent when creating a comment.
type CommentRequest struct {
	Text string `json:"text"`
}

// localDateTime is the zone-less layout some backend fields use.
const localDateTime = "2006-01-02T15:04:05.999999999"

// ParseTime parses a backend timestamp. RFC 3339 and zone-less local
// date-times (read as UTC) are accepted; empty means "not set".
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(localDateTime, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	return t, nil
}

func nonNegative(n *int) int {
	if n == nil || *n < 0 {
		return 0
	}
	return *n
}

// ToIssue maps an IssueDTO to the Issue view model.
func ToIssue(d IssueDTO) (Issue, error) {
	status, err := ParseStatus(d.Status)
	if err != nil {
		return Issue{}, fmt.Errorf("issue %d: %w", d.ID, err)
	}
	created, err := ParseTime(d.CreatedAt)
	if err != nil {
		return Issue{}, fmt.Errorf("issue %d createdAt: %w", d.ID, err)
	}
	updated, err := ParseTime(d.UpdatedAt)
	if err != nil {
		return Issue{}, fmt.Errorf("issue %d updatedAt: %w", d.ID, err)
	}
	issue := Issue{
		ID:           d.ID,
		Summary:      d.Summary,
		Description:  d.Description,
		Status:       status,
		Votes:        nonNegative(d.Votes),
		CommentCount: nonNegative(d.CommentsCount),
		HasVoted:     d.HasVoted != nil && *d.HasVoted,
		CreatedAt:    created,
		UpdatedAt:    updated,
	}
	if d.Office != nil {
		issue.Office = OfficeRef{ID: d.Office.ID, Title: d.Office.Title}
	}
	if d.Reporter != nil {
		issue.Reporter = UserRef{ID: d.Reporter.ID, FullName: d.Reporter.FullName, AvatarURL: d.Reporter.AvatarURL}
	}
	for _, a := range d.Attachments {
		issue.Attachments = append(issue.Attachments, AttachmentRef(a))
	}
	return issue, nil
}

// ToIssues maps a slice of IssueDTOs, failing on the first malformed one.
func ToIssues(ds []IssueDTO) ([]Issue, error) {
	out := make([]Issue, 0, len(ds))
	for _, d := range ds {
		issue, err := ToIssue(d)
		if err != nil {
			return nil, err
		}
		out = append(out, issue)
	}
	return out, nil
}

// ToIssuePage maps a paginated issue listing.
func ToIssuePage(d PageDTO[IssueDTO]) (Page[Issue], error) {
	items, err := ToIssues(d.Content)
	if err != nil {
		return Page[Issue]{}, err
	}
	return Page[Issue]{
		Items:      items,
		Total:      d.TotalElements,
		Page:       d.Number,
		Size:       d.Size,
		TotalPages: d.TotalPages,
	}, nil
}

// ToComment maps a CommentDTO to the Comment view model.
func ToComment(d CommentDTO) (Comment, error) {
	created, err := ParseTime(d.CreatedAt)
	if err != nil {
		return Comment{}, fmt.Errorf("comment %d createdAt: %w", d.ID, err)
	}
	c := Comment{
		ID:        strconv.FormatInt(d.ID, 10),
		IssueID:   d.IssueID,
		Text:      d.Text,
		CreatedAt: created,
		Votes:     nonNegative(d.Votes),
	}
	if d.Author != nil {
		c.AuthorName = d.Author.FullName
		c.AuthorAvatar = d.Author.AvatarURL
	}
	return c, nil
}

// ToComments maps a comment listing. issueID fills in comments whose wire
// form omits it.
func ToComments(issueID int64, ds []CommentDTO) ([]Comment, error) {
	out := make([]Comment, 0, len(ds))
	for _, d := range ds {
		c, err := ToComment(d)
		if err != nil {
			return nil, err
		}
		if c.IssueID == 0 {
			c.IssueID = issueID
		}
		out = append(out, c)
	}
	return out, nil
}

// ToNotification maps a NotificationDTO to the Notification view model.
func ToNotification(d NotificationDTO) (Notification, error) {
	typ, err := ParseNotificationType(d.Type)
	if err != nil {
		return Notification{}, fmt.Errorf("notification %d: %w", d.ID, err)
	}
	created, err := ParseTime(d.CreatedAt)
	if err != nil {
		return Notification{}, fmt.Errorf("notification %d createdAt: %w", d.ID, err)
	}
	return Notification{
		ID:        d.ID,
		IssueID:   d.IssueID,
		Type:      typ,
		Message:   d.Message,
		Read:      d.Read,
		CreatedAt: created,
	}, nil
}

// ToNotifications maps a notification listing.
func ToNotifications(ds []NotificationDTO) ([]Notification, error) {
	out := make([]Notification, 0, len(ds))
	for _, d := range ds {
		n, err := ToNotification(d)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// ToOffice maps an OfficeDTO.
func ToOffice(d OfficeDTO) Office {
	o := Office{ID: d.ID, Title: d.Title, Address: d.Address}
	if d.Country != nil {
		o.Country = CountryRef{ID: d.Country.ID, Name: d.Country.Name}
	}
	return o
}

// ToOffices maps an office listing.
func ToOffices(ds []OfficeDTO) []Office {
	out := make([]Office, 0, len(ds))
	for _, d := range ds {
		out = append(out, ToOffice(d))
	}
	return out
}

// ToCountries maps a country listing.
func ToCountries(ds []CountryDTO) []Country {
	out := make([]Country, 0, len(ds))
	for _, d := range ds {
		out = append(out, Country(d))
	}
	return out
}

// ToUser maps a UserDTO.
func ToUser(d UserDTO) User {
	return User{
		ID:        d.ID,
		FullName:  d.FullName,
		Email:     d.Email,
		AvatarURL: d.AvatarURL,
		Position:  d.Position,
	}
}

// ToUsers maps a user listing.
func ToUsers(ds []UserDTO) []User {
	out := make([]User, 0, len(ds))
	for _, d := range ds {
		out = append(out, ToUser(d))
	}
	return out
}

// ToProfile maps the viewer's UserDTO to a Profile.
func ToProfile(d UserDTO) Profile {
	p := Profile{User: ToUser(d)}
	if d.Office != nil {
		p.Office = &OfficeRef{ID: d.Office.ID, Title: d.Office.Title}
	}
	return p
}

// ToSessionStatus maps the session status response.
func ToSessionStatus(d SessionDTO) SessionStatus {
	s := SessionStatus{Authenticated: d.Authenticated}
	if d.User != nil {
		u := ToUser(*d.User)
		s.User = &u
	}
	return s
}

// Request returns the wire body for an issue input.
func (in IssueInput) Request() IssueRequest {
	return IssueRequest{
		Summary:     in.Summary,
		Description: in.Description,
		OfficeID:    in.OfficeID,
		Status:      string(in.Status),
	}
}
