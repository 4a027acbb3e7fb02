package types

import (
	"fmt"
	"net/url"
	"strconv"
)

// IssueSort is the ordering requested for an issue listing.
type IssueSort string

// Sort orders understood by the backend.
const (
	SortNewest        IssueSort = "newest"
	SortOldest        IssueSort = "oldest"
	SortMostVoted     IssueSort = "most-voted"
	SortMostCommented IssueSort = "most-commented"
)

// wireSort maps sort orders to the backend "sort" parameter.
var wireSort = map[IssueSort]string{
	SortNewest:        "createdAt,desc",
	SortOldest:        "createdAt,asc",
	SortMostVoted:     "votes,desc",
	SortMostCommented: "commentsCount,desc",
}

// ParseIssueSort validates a sort name given on the command line.
func ParseIssueSort(s string) (IssueSort, error) {
	if s == "" {
		return SortNewest, nil
	}
	if _, ok := wireSort[IssueSort(s)]; !ok {
		return "", fmt.Errorf("unknown sort %q (want newest, oldest, most-voted or most-commented)", s)
	}
	return IssueSort(s), nil
}

// DefaultPageSize is used when a filter does not set one.
const DefaultPageSize = 20

// IssueFilter selects a page of issues. It is comparable so it can be part
// of a cache key; zero fields mean "no constraint".
type IssueFilter struct {
	Status     Status
	OfficeID   int64
	ReporterID int64
	Page       int
	Size       int
	Sort       IssueSort
}

// Normalize fills the defaults so that equal queries produce equal keys.
func (f IssueFilter) Normalize() IssueFilter {
	if f.Size <= 0 {
		f.Size = DefaultPageSize
	}
	if f.Page < 0 {
		f.Page = 0
	}
	if f.Sort == "" {
		f.Sort = SortNewest
	}
	return f
}

// Query encodes the filter as backend query parameters.
func (f IssueFilter) Query() url.Values {
	f = f.Normalize()
	v := url.Values{}
	if f.Status != "" {
		v.Set("status", string(f.Status))
	}
	if f.OfficeID != 0 {
		v.Set("officeId", strconv.FormatInt(f.OfficeID, 10))
	}
	if f.ReporterID != 0 {
		v.Set("reporterId", strconv.FormatInt(f.ReporterID, 10))
	}
	v.Set("page", strconv.Itoa(f.Page))
	v.Set("size", strconv.Itoa(f.Size))
	v.Set("sort", wireSort[f.Sort])
	return v
}

// Matches reports whether issue would belong to this filtered result.
func (f IssueFilter) Matches(issue Issue) bool {
	if f.Status != "" && issue.Status != f.Status {
		return false
	}
	if f.OfficeID != 0 && issue.Office.ID != f.OfficeID {
		return false
	}
	if f.ReporterID != 0 && issue.Reporter.ID != f.ReporterID {
		return false
	}
	return true
}

// String renders the filter for logs and cache key names.
func (f IssueFilter) String() string {
	f = f.Normalize()
	return fmt.Sprintf("status=%s office=%d reporter=%d page=%d size=%d sort=%s",
		f.Status, f.OfficeID, f.ReporterID, f.Page, f.Size, f.Sort)
}
