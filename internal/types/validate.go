package types

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Input limits enforced before anything is sent to the backend.
const (
	MaxSummaryLength     = 120
	MaxDescriptionLength = 10000
	MaxCommentLength     = 1000
)

// ValidationError reports a form field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IssueInput holds the editable fields of an issue.
type IssueInput struct {
	Summary     string
	Description string
	OfficeID    int64
	Status      Status // only honoured on update
}

// Validate checks an issue before it is created. Updates use ValidateUpdate.
func (in IssueInput) Validate() error {
	if err := in.ValidateUpdate(); err != nil {
		return err
	}
	if in.OfficeID <= 0 {
		return &ValidationError{Field: "office", Message: "office is required"}
	}
	return nil
}

// ValidateUpdate checks the fields of an issue update.
func (in IssueInput) ValidateUpdate() error {
	summary := strings.TrimSpace(in.Summary)
	if summary == "" {
		return &ValidationError{Field: "summary", Message: "summary is required"}
	}
	if utf8.RuneCountInString(summary) > MaxSummaryLength {
		return &ValidationError{Field: "summary", Message: fmt.Sprintf("summary must be %d characters or less", MaxSummaryLength)}
	}
	if utf8.RuneCountInString(in.Description) > MaxDescriptionLength {
		return &ValidationError{Field: "description", Message: fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength)}
	}
	if in.Status != "" && !in.Status.IsValid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("invalid status %q", in.Status)}
	}
	return nil
}

// ValidateCommentText checks a comment body.
func ValidateCommentText(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return &ValidationError{Field: "text", Message: "comment cannot be empty"}
	}
	if utf8.RuneCountInString(trimmed) > MaxCommentLength {
		return &ValidationError{Field: "text", Message: fmt.Sprintf("comment must be %d characters or less", MaxCommentLength)}
	}
	return nil
}

// ValidateOffice checks an office request.
func ValidateOffice(req OfficeRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if req.CountryID <= 0 {
		return &ValidationError{Field: "country", Message: "country is required"}
	}
	return nil
}

// ValidateProfile checks a profile update.
func ValidateProfile(u ProfileUpdate) error {
	if strings.TrimSpace(u.FullName) == "" {
		return &ValidationError{Field: "fullName", Message: "name is required"}
	}
	return nil
}
