package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/officetracker/oit/internal/types"
)

func issuePath(id int64) string {
	return "/api/issues/" + strconv.FormatInt(id, 10)
}

// ListIssues fetches one page of issues matching filter.
func (c *Client) ListIssues(ctx context.Context, filter types.IssueFilter) (types.Page[types.Issue], error) {
	var page types.PageDTO[types.IssueDTO]
	if err := c.getJSON(ctx, "/api/issues", filter.Query(), &page); err != nil {
		return types.Page[types.Issue]{}, fmt.Errorf("failed to list issues: %w", err)
	}
	return types.ToIssuePage(page)
}

// GetIssue fetches a single issue.
func (c *Client) GetIssue(ctx context.Context, id int64) (types.Issue, error) {
	var d types.IssueDTO
	if err := c.getJSON(ctx, issuePath(id), nil, &d); err != nil {
		return types.Issue{}, fmt.Errorf("failed to fetch issue %d: %w", id, err)
	}
	return types.ToIssue(d)
}

// CreateIssue creates an issue. When files are given the request is sent
// as multipart form data with the JSON in the "issue" part.
func (c *Client) CreateIssue(ctx context.Context, in types.IssueInput, files []Upload) (types.Issue, error) {
	d, err := c.sendIssue(ctx, http.MethodPost, "/api/issues", in.Request(), files)
	if err != nil {
		return types.Issue{}, fmt.Errorf("failed to create issue: %w", err)
	}
	return types.ToIssue(d)
}

// UpdateIssue replaces the editable fields of an issue, optionally adding attachments.
func (c *Client) UpdateIssue(ctx context.Context, id int64, in types.IssueInput, files []Upload) (types.Issue, error) {
	d, err := c.sendIssue(ctx, http.MethodPut, issuePath(id), in.Request(), files)
	if err != nil {
		return types.Issue{}, fmt.Errorf("failed to update issue %d: %w", id, err)
	}
	return types.ToIssue(d)
}

// DeleteIssue soft-deletes an issue.
func (c *Client) DeleteIssue(ctx context.Context, id int64) error {
	if err := c.sendJSON(ctx, http.MethodDelete, issuePath(id), nil, nil); err != nil {
		return fmt.Errorf("failed to delete issue %d: %w", id, err)
	}
	return nil
}

func (c *Client) sendIssue(ctx context.Context, method, path string, req types.IssueRequest, files []Upload) (types.IssueDTO, error) {
	var d types.IssueDTO
	if len(files) == 0 {
		err := c.sendJSON(ctx, method, path, req, &d)
		return d, err
	}
	body, contentType, err := multipartBody("issue", req, "files", files)
	if err != nil {
		return d, err
	}
	respBody, err := c.doRequest(ctx, method, path, nil, body, contentType)
	if err != nil {
		return d, err
	}
	err = decode(method, path, respBody, &d)
	return d, err
}

// Vote adds the viewer's vote to an issue.
func (c *Client) Vote(ctx context.Context, issueID int64) error {
	if err := c.sendJSON(ctx, http.MethodPost, issuePath(issueID)+"/votes", nil, nil); err != nil {
		return fmt.Errorf("failed to vote on issue %d: %w", issueID, err)
	}
	return nil
}

// Unvote removes the viewer's vote from an issue.
func (c *Client) Unvote(ctx context.Context, issueID int64) error {
	if err := c.sendJSON(ctx, http.MethodDelete, issuePath(issueID)+"/votes", nil, nil); err != nil {
		return fmt.Errorf("failed to remove vote on issue %d: %w", issueID, err)
	}
	return nil
}

// ListComments fetches the comments of an issue, oldest first.
func (c *Client) ListComments(ctx context.Context, issueID int64) ([]types.Comment, error) {
	var ds []types.CommentDTO
	if err := c.getJSON(ctx, issuePath(issueID)+"/comments", nil, &ds); err != nil {
		return nil, fmt.Errorf("failed to list comments of issue %d: %w", issueID, err)
	}
	return types.ToComments(issueID, ds)
}

// CreateComment posts a comment and returns the server's record of it.
func (c *Client) CreateComment(ctx context.Context, issueID int64, text string) (types.Comment, error) {
	var d types.CommentDTO
	if err := c.sendJSON(ctx, http.MethodPost, issuePath(issueID)+"/comments", types.CommentRequest{Text: text}, &d); err != nil {
		return types.Comment{}, fmt.Errorf("failed to comment on issue %d: %w", issueID, err)
	}
	cm, err := types.ToComment(d)
	if err != nil {
		return types.Comment{}, err
	}
	if cm.IssueID == 0 {
		cm.IssueID = issueID
	}
	return cm, nil
}
