package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/officetracker/oit/internal/types"
)

// fakeBackend is an in-memory stand-in for the issue tracker API.
type fakeBackend struct {
	mu            sync.Mutex
	issues        map[int64]types.IssueDTO
	comments      map[int64][]types.CommentDTO
	notifications []types.NotificationDTO
	viewer        *types.UserDTO

	// voteStatus, when set, is returned by the vote endpoints instead of 204.
	voteStatus int

	listQueries []url.Values
	uploads     []string
	posts       int
	nextID      int64

	srv *httptest.Server
}

func intp(n int) *int    { return &n }
func boolp(b bool) *bool { return &b }

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{
		issues:   map[int64]types.IssueDTO{},
		comments: map[int64][]types.CommentDTO{},
		viewer:   &types.UserDTO{ID: 7, FullName: "Ann Lee"},
		nextID:   100,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/issues", b.listIssues)
	mux.HandleFunc("POST /api/issues", b.createIssue)
	mux.HandleFunc("GET /api/issues/{id}", b.getIssue)
	mux.HandleFunc("POST /api/issues/{id}/votes", b.vote(true))
	mux.HandleFunc("DELETE /api/issues/{id}/votes", b.vote(false))
	mux.HandleFunc("GET /api/issues/{id}/comments", b.listComments)
	mux.HandleFunc("POST /api/issues/{id}/comments", b.addComment)
	mux.HandleFunc("GET /api/notifications", b.listNotifications)
	mux.HandleFunc("GET /api/notifications/unread-count", b.unreadCount)
	mux.HandleFunc("PATCH /api/notifications/read-all", b.readAll)
	mux.HandleFunc("PATCH /api/notifications/{id}/read", b.readOne)
	mux.HandleFunc("GET /api/auth/status", b.status)
	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBackend) addIssue(id int64, summary, updatedAt string, votes int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.issues[id] = types.IssueDTO{
		ID:            id,
		Summary:       summary,
		Description:   "details for " + summary,
		Status:        "OPEN",
		Votes:         intp(votes),
		CommentsCount: intp(0),
		HasVoted:      boolp(false),
		CreatedAt:     "2025-01-10T10:00:00",
		UpdatedAt:     updatedAt,
		Office:        &types.OfficeRefDTO{ID: 3, Title: "HQ"},
		Reporter:      &types.UserRefDTO{ID: 7, FullName: "Ann Lee"},
	}
}

func (b *fakeBackend) issue(id int64) types.IssueDTO {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issues[id]
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id
}

func (b *fakeBackend) listIssues(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listQueries = append(b.listQueries, r.URL.Query())

	status := r.URL.Query().Get("status")
	ids := make([]int64, 0, len(b.issues))
	for id, is := range b.issues {
		if status == "" || is.Status == status {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	page := types.PageDTO[types.IssueDTO]{Content: []types.IssueDTO{}, TotalElements: len(ids), TotalPages: 1, Size: 20}
	for _, id := range ids {
		page.Content = append(page.Content, b.issues[id])
	}
	writeJSON(w, page)
}

func (b *fakeBackend) getIssue(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	is, ok := b.issues[pathID(r)]
	if !ok {
		http.Error(w, `{"message":"issue not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, is)
}

func (b *fakeBackend) createIssue(w http.ResponseWriter, r *http.Request) {
	var req types.IssueRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := json.Unmarshal([]byte(r.MultipartForm.Value["issue"][0]), &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		for _, fh := range r.MultipartForm.File["files"] {
			b.uploads = append(b.uploads, fh.Filename)
		}
		b.mu.Unlock()
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.mu.Unlock()
	b.addIssue(id, req.Summary, "2025-01-12T09:00:00", 0)
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, b.issue(id))
}

func (b *fakeBackend) vote(voted bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.voteStatus != 0 {
			http.Error(w, `{"message":"vote rejected"}`, b.voteStatus)
			return
		}
		is, ok := b.issues[pathID(r)]
		if !ok {
			http.Error(w, `{"message":"issue not found"}`, http.StatusNotFound)
			return
		}
		if *is.HasVoted != voted {
			delta := 1
			if !voted {
				delta = -1
			}
			is.Votes = intp(*is.Votes + delta)
			is.HasVoted = boolp(voted)
			b.issues[is.ID] = is
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (b *fakeBackend) listComments(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.comments[pathID(r)]
	if list == nil {
		list = []types.CommentDTO{}
	}
	writeJSON(w, list)
}

func (b *fakeBackend) addComment(w http.ResponseWriter, r *http.Request) {
	var req types.CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.posts++
	b.nextID++
	issueID := pathID(r)
	c := types.CommentDTO{
		ID:        b.nextID,
		IssueID:   issueID,
		Author:    &types.UserRefDTO{ID: b.viewer.ID, FullName: b.viewer.FullName},
		Text:      req.Text,
		CreatedAt: "2025-01-12T09:30:00",
	}
	b.comments[issueID] = append(b.comments[issueID], c)
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, c)
}

func (b *fakeBackend) listNotifications(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.notifications
	if list == nil {
		list = []types.NotificationDTO{}
	}
	writeJSON(w, list)
}

func (b *fakeBackend) unreadCount(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, d := range b.notifications {
		if !d.Read {
			n++
		}
	}
	writeJSON(w, types.UnreadCountDTO{Count: n})
}

func (b *fakeBackend) readAll(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.notifications {
		b.notifications[i].Read = true
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *fakeBackend) readOne(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := pathID(r)
	for i := range b.notifications {
		if b.notifications[i].ID == id {
			b.notifications[i].Read = true
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	http.Error(w, `{"message":"notification not found"}`, http.StatusNotFound)
}

func (b *fakeBackend) status(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.viewer == nil {
		writeJSON(w, types.SessionDTO{})
		return
	}
	writeJSON(w, types.SessionDTO{Authenticated: true, User: b.viewer})
}

// runOit executes the root command against the fake backend and returns
// what the command printed.
func runOit(t *testing.T, b *fakeBackend, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	if b != nil {
		args = append(args, "--api-url", b.srv.URL)
	}
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags puts every flag back to its default so one Execute does not
// leak into the next.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
