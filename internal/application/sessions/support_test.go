package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/lancache-tools/lancachectl/internal/domain/session"
	"github.com/lancache-tools/lancachectl/internal/infrastructure/api"
	"github.com/lancache-tools/lancachectl/internal/shared/logger"
)

func testLogger() logger.Interface {
	return logger.NewLogger()
}

// fakeAPI is an in-memory stand-in for the manager API covering every
// interface this package consumes. Behavior is steered per test through the
// err/hook fields.
type fakeAPI struct {
	mu sync.Mutex

	pages    map[int]*api.SessionPage
	listErr  error
	listCnt  int
	listHook func()

	prefs      map[string]session.Preferences
	getErr     error
	getCnt     int
	getStarted chan struct{}
	getRelease chan struct{}

	putErr error
	putCnt int
	puts   []session.Preferences

	prefillErr map[session.Service]error
	prefills   map[session.Service]bool

	resetCount int
	resetErr   error
	clearCount int
	clearErr   error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		pages:      make(map[int]*api.SessionPage),
		prefs:      make(map[string]session.Preferences),
		prefillErr: make(map[session.Service]error),
		prefills:   make(map[session.Service]bool),
	}
}

func (f *fakeAPI) ListSessions(_ context.Context, page, _ int) (*api.SessionPage, error) {
	f.mu.Lock()
	f.listCnt++
	hook := f.listHook
	err := f.listErr
	p := f.pages[page]
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	if p == nil {
		return &api.SessionPage{Pagination: api.Pagination{Page: page}}, nil
	}
	return p, nil
}

func (f *fakeAPI) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCnt
}

func (f *fakeAPI) GetPreferences(_ context.Context, id string) (*session.Preferences, error) {
	f.mu.Lock()
	f.getCnt++
	started := f.getStarted
	release := f.getRelease
	err := f.getErr
	prefs, ok := f.prefs[id]
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return &session.Preferences{}, nil
	}
	out := prefs.Clone()
	return &out, nil
}

func (f *fakeAPI) getCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCnt
}

func (f *fakeAPI) PutPreferences(_ context.Context, id string, prefs session.Preferences) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putCnt++
	if f.putErr != nil {
		return f.putErr
	}
	f.prefs[id] = prefs.Clone()
	f.puts = append(f.puts, prefs.Clone())
	return nil
}

func (f *fakeAPI) SetSessionPrefill(_ context.Context, _ string, service session.Service, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.prefillErr[service]; err != nil {
		return err
	}
	f.prefills[service] = enabled
	return nil
}

func (f *fakeAPI) ResetAllPreferences(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resetErr != nil {
		return 0, f.resetErr
	}
	return f.resetCount, nil
}

func (f *fakeAPI) ClearGuestSessions(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return 0, f.clearErr
	}
	return f.clearCount, nil
}

// recordingNotifier captures toasts for assertions.
type recordingNotifier struct {
	mu       sync.Mutex
	kinds    []NotifyKind
	messages []string
}

func (n *recordingNotifier) Notify(kind NotifyKind, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, kind)
	n.messages = append(n.messages, message)
}

func (n *recordingNotifier) last() (NotifyKind, string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.kinds) == 0 {
		return "", ""
	}
	return n.kinds[len(n.kinds)-1], n.messages[len(n.messages)-1]
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.kinds)
}

func testSession(id string, typ session.Type) session.Session {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return session.Session{
		ID:          id,
		SessionType: typ,
		IPAddress:   "192.0.2.10",
		CreatedAt:   created,
	}
}

func testPage(page, totalPages, totalCount int, sessions ...session.Session) *api.SessionPage {
	return &api.SessionPage{
		Sessions: sessions,
		Pagination: api.Pagination{
			Page:       page,
			TotalPages: totalPages,
			TotalCount: totalCount,
		},
	}
}
