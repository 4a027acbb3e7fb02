// Package attach checks image attachments before they are uploaded with an
// issue.
package attach

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Attachment limits.
const (
	MaxFiles    = 10
	MaxFileSize = 5 << 20 // 5 MiB
)

// AllowedTypes are the accepted MIME types.
var AllowedTypes = []string{"image/png", "image/jpeg", "image/jpg", "image/webp"}

// Reason classifies a rejected file.
type Reason string

// Rejection reasons.
const (
	ReasonType      Reason = "type"
	ReasonSize      Reason = "size"
	ReasonDuplicate Reason = "duplicate"
	ReasonLimit     Reason = "limit"
)

// Violation describes the first file of a batch that was rejected.
type Violation struct {
	// Index is the position of the file in the candidate batch.
	Index  int
	File   File
	Reason Reason
	// Dropped counts the files cut off by the count limit.
	Dropped int
}

func (v *Violation) Error() string {
	switch v.Reason {
	case ReasonType:
		t := v.File.Type
		if t == "" {
			t = "unknown type"
		}
		return fmt.Sprintf("%s: unsupported file type %s (allowed: PNG, JPEG, WEBP)", v.File.Name, t)
	case ReasonSize:
		return fmt.Sprintf("%s is %s, larger than the %s limit",
			v.File.Name, humanize.IBytes(uint64(v.File.Size)), humanize.IBytes(MaxFileSize))
	case ReasonDuplicate:
		return fmt.Sprintf("%s has already been added", v.File.Name)
	case ReasonLimit:
		return fmt.Sprintf("at most %d files can be attached; %d skipped", MaxFiles, v.Dropped)
	}
	return fmt.Sprintf("%s: rejected", v.File.Name)
}

// Result is the outcome of Validate.
type Result struct {
	// Accepted are the candidates that can be added, in input order.
	Accepted []File
	// Err is nil or the *Violation of the first rejected file. Later
	// violations in the same batch are not reported.
	Err error
}

// Validate filters candidates against the files already attached. Files
// with a disallowed type, above MaxFileSize or with the name and size of a
// file already attached (or accepted earlier in the batch) are dropped.
// The accepted files are then cut so that no more than MaxFiles are
// attached in total.
func Validate(existing, candidates []File) Result {
	var (
		accepted []File
		indexes  []int
		first    *Violation
	)
	reject := func(i int, f File, r Reason) {
		if first == nil {
			first = &Violation{Index: i, File: f, Reason: r}
		}
	}

	for i, f := range candidates {
		switch {
		case !Allowed(f.Type):
			reject(i, f, ReasonType)
		case f.Size > MaxFileSize:
			reject(i, f, ReasonSize)
		case containsFile(existing, f) || containsFile(accepted, f):
			reject(i, f, ReasonDuplicate)
		default:
			accepted = append(accepted, f)
			indexes = append(indexes, i)
		}
	}

	room := MaxFiles - len(existing)
	if room < 0 {
		room = 0
	}
	if len(accepted) > room {
		if first == nil {
			first = &Violation{
				Index:   indexes[room],
				File:    accepted[room],
				Reason:  ReasonLimit,
				Dropped: len(accepted) - room,
			}
		}
		accepted = accepted[:room]
	}

	res := Result{Accepted: accepted}
	if first != nil {
		res.Err = first
	}
	return res
}

// Allowed reports whether mimeType is an accepted image type. Parameters
// and case are ignored.
func Allowed(mimeType string) bool {
	t, _, _ := strings.Cut(mimeType, ";")
	t = strings.ToLower(strings.TrimSpace(t))
	for _, a := range AllowedTypes {
		if t == a {
			return true
		}
	}
	return false
}

func containsFile(files []File, f File) bool {
	for _, x := range files {
		if x.Name == f.Name && x.Size == f.Size {
			return true
		}
	}
	return false
}
