package tracker

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/officetracker/oit/internal/api"
	"github.com/officetracker/oit/internal/types"
)

// fakeAPI is an in-memory backend. Mutations can be held at a gate so tests
// can look at the cache while a request is in flight.
type fakeAPI struct {
	mu            sync.Mutex
	issues        map[int64]types.Issue
	comments      map[int64][]types.Comment
	notifications []types.Notification
	profile       types.Profile
	offices       []types.Office
	nextComment   int64

	errs    map[string]error
	gates   map[string]chan struct{}
	entered chan string
	calls   map[string]int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		issues:      make(map[int64]types.Issue),
		comments:    make(map[int64][]types.Comment),
		nextComment: 500,
		errs:        make(map[string]error),
		gates:       make(map[string]chan struct{}),
		entered:     make(chan string, 16),
		calls:       make(map[string]int),
	}
}

func (f *fakeAPI) addIssue(is ...types.Issue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, i := range is {
		f.issues[i.ID] = i
	}
}

func (f *fakeAPI) fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = err
}

// hold makes op wait until the returned function is called.
func (f *fakeAPI) hold(op string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[op] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (f *fakeAPI) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// enter records a call, waits at the gate of op and returns op's error.
func (f *fakeAPI) enter(op string) error {
	f.mu.Lock()
	f.calls[op]++
	gate := f.gates[op]
	f.mu.Unlock()
	select {
	case f.entered <- op:
	default:
	}
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[op]
}

func (f *fakeAPI) ListIssues(_ context.Context, filter types.IssueFilter) (types.Page[types.Issue], error) {
	if err := f.enter("list-issues"); err != nil {
		return types.Page[types.Issue]{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []types.Issue
	for _, i := range f.issues {
		if filter.Matches(i) {
			items = append(items, i)
		}
	}
	sort.Slice(items, func(a, b int) bool { return items[a].ID < items[b].ID })
	return types.Page[types.Issue]{Items: items, Total: len(items), Size: filter.Size, TotalPages: 1}, nil
}

func (f *fakeAPI) GetIssue(_ context.Context, id int64) (types.Issue, error) {
	if err := f.enter("get-issue"); err != nil {
		return types.Issue{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.issues[id]
	if !ok {
		return types.Issue{}, api.ErrNotFound
	}
	return i, nil
}

func (f *fakeAPI) CreateIssue(_ context.Context, in types.IssueInput, _ []api.Upload) (types.Issue, error) {
	if err := f.enter("create-issue"); err != nil {
		return types.Issue{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := int64(len(f.issues) + 1000)
	i := types.Issue{ID: id, Summary: in.Summary, Status: types.StatusOpen, Office: types.OfficeRef{ID: in.OfficeID}}
	f.issues[id] = i
	return i, nil
}

func (f *fakeAPI) UpdateIssue(_ context.Context, id int64, in types.IssueInput, _ []api.Upload) (types.Issue, error) {
	if err := f.enter("update-issue"); err != nil {
		return types.Issue{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.issues[id]
	i.Summary = in.Summary
	if in.Status != "" {
		i.Status = in.Status
	}
	f.issues[id] = i
	return i, nil
}

func (f *fakeAPI) DeleteIssue(_ context.Context, id int64) error {
	if err := f.enter("delete-issue"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.issues, id)
	return nil
}

func (f *fakeAPI) setVote(op string, id int64, voted bool) error {
	if err := f.enter(op); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.issues[id]
	if i.HasVoted != voted {
		i.HasVoted = voted
		if voted {
			i.Votes++
		} else {
			i.Votes--
		}
	}
	f.issues[id] = i
	return nil
}

func (f *fakeAPI) Vote(_ context.Context, id int64) error   { return f.setVote("vote", id, true) }
func (f *fakeAPI) Unvote(_ context.Context, id int64) error { return f.setVote("unvote", id, false) }

func (f *fakeAPI) ListComments(_ context.Context, issueID int64) ([]types.Comment, error) {
	if err := f.enter("list-comments"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Comment(nil), f.comments[issueID]...), nil
}

func (f *fakeAPI) CreateComment(_ context.Context, issueID int64, text string) (types.Comment, error) {
	if err := f.enter("comment"); err != nil {
		return types.Comment{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextComment++
	c := types.Comment{
		ID:         strconv.FormatInt(f.nextComment, 10),
		IssueID:    issueID,
		AuthorName: "Ada Lovelace",
		Text:       text,
		CreatedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	f.comments[issueID] = append(f.comments[issueID], c)
	i := f.issues[issueID]
	i.CommentCount++
	f.issues[issueID] = i
	return c, nil
}

func (f *fakeAPI) ListNotifications(context.Context) ([]types.Notification, error) {
	if err := f.enter("list-notifications"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Notification(nil), f.notifications...), nil
}

func (f *fakeAPI) UnreadCount(context.Context) (int, error) {
	if err := f.enter("unread-count"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, x := range f.notifications {
		if !x.Read {
			n++
		}
	}
	return n, nil
}

func (f *fakeAPI) MarkRead(_ context.Context, id int64) error {
	if err := f.enter("mark-read"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notifications {
		if f.notifications[i].ID == id {
			f.notifications[i].Read = true
		}
	}
	return nil
}

func (f *fakeAPI) MarkAllRead(context.Context) error {
	if err := f.enter("mark-all-read"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notifications {
		f.notifications[i].Read = true
	}
	return nil
}

func (f *fakeAPI) ListOffices(context.Context) ([]types.Office, error) {
	if err := f.enter("list-offices"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Office(nil), f.offices...), nil
}

func (f *fakeAPI) CreateOffice(_ context.Context, req types.OfficeRequest) (types.Office, error) {
	if err := f.enter("create-office"); err != nil {
		return types.Office{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o := types.Office{ID: int64(len(f.offices) + 1), Title: req.Title, Address: req.Address}
	f.offices = append(f.offices, o)
	return o, nil
}

func (f *fakeAPI) UpdateOffice(_ context.Context, id int64, req types.OfficeRequest) (types.Office, error) {
	if err := f.enter("update-office"); err != nil {
		return types.Office{}, err
	}
	return types.Office{ID: id, Title: req.Title, Address: req.Address}, nil
}

func (f *fakeAPI) ListCountries(context.Context) ([]types.Country, error) {
	if err := f.enter("list-countries"); err != nil {
		return nil, err
	}
	return []types.Country{{ID: 1, Name: "Germany", Code: "DE"}}, nil
}

func (f *fakeAPI) ListUsers(context.Context) ([]types.User, error) {
	if err := f.enter("list-users"); err != nil {
		return nil, err
	}
	return []types.User{{ID: 1, FullName: "Ada Lovelace"}}, nil
}

func (f *fakeAPI) Profile(context.Context) (types.Profile, error) {
	if err := f.enter("profile"); err != nil {
		return types.Profile{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profile, nil
}

func (f *fakeAPI) UpdateProfile(_ context.Context, u types.ProfileUpdate) (types.Profile, error) {
	if err := f.enter("update-profile"); err != nil {
		return types.Profile{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profile = u.Apply(f.profile, &types.OfficeRef{ID: u.OfficeID, Title: "Server Office"})
	return f.profile, nil
}

var _ API = (*fakeAPI)(nil)
