package app

import (
	"context"
	"io"
	"sync"

	"tutorchat/internal/backend"
	"tutorchat/internal/model"
)

func statusErr(code int) error {
	return &backend.StatusError{Op: "test", Status: code}
}

type fakeProvider struct {
	mu      sync.Mutex
	current *model.AuthSession
	subs    []func(ctx context.Context, s model.AuthSession, active bool)
}

func (p *fakeProvider) Current() (model.AuthSession, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return model.AuthSession{}, false
	}
	return *p.current, true
}

func (p *fakeProvider) Subscribe(fn func(ctx context.Context, s model.AuthSession, active bool)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs = append(p.subs, fn)
	idx := len(p.subs) - 1
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.subs[idx] = nil
	}
}

func (p *fakeProvider) emit(s *model.AuthSession) {
	p.mu.Lock()
	p.current = s
	subs := append([]func(context.Context, model.AuthSession, bool){}, p.subs...)
	p.mu.Unlock()
	for _, fn := range subs {
		if fn == nil {
			continue
		}
		if s != nil {
			fn(context.Background(), *s, true)
		} else {
			fn(context.Background(), model.AuthSession{}, false)
		}
	}
}

type createCall struct {
	identity, name, term string
}

// fakeBackend records calls; hooks let a test block or fail individual calls.
type fakeBackend struct {
	mu sync.Mutex

	courses map[string][]model.Course
	listErr error
	owned   map[string]model.Course
	foreign map[string]bool

	createCalls []createCall
	createErr   error
	onCreate    func()

	getCalls int
	onGet    func(courseID string)

	askCalls []model.AskRequest
	onAsk    func(req model.AskRequest) (*model.AskResponse, error)

	uploadCalls []string
	uploadBody  []byte
	onUpload    func() (*model.UploadReceipt, error)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		courses: map[string][]model.Course{},
		owned:   map[string]model.Course{},
		foreign: map[string]bool{},
	}
}

func (f *fakeBackend) ListCourses(ctx context.Context, identity string) ([]model.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.Course, len(f.courses[identity]))
	copy(out, f.courses[identity])
	return out, nil
}

func (f *fakeBackend) GetCourse(ctx context.Context, identity, courseID string) (*model.Course, error) {
	f.mu.Lock()
	f.getCalls++
	hook := f.onGet
	f.mu.Unlock()
	if hook != nil {
		hook(courseID)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.foreign[courseID] {
		return nil, statusErr(403)
	}
	if c, ok := f.owned[courseID]; ok {
		return &c, nil
	}
	return nil, statusErr(404)
}

func (f *fakeBackend) CreateCourse(ctx context.Context, identity, name, term string) (*model.Course, error) {
	f.mu.Lock()
	f.createCalls = append(f.createCalls, createCall{identity, name, term})
	hook := f.onCreate
	err := f.createErr
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return &model.Course{ID: "new-" + name, Name: name, Term: term}, nil
}

func (f *fakeBackend) Ask(ctx context.Context, identity string, req model.AskRequest) (*model.AskResponse, error) {
	f.mu.Lock()
	f.askCalls = append(f.askCalls, req)
	hook := f.onAsk
	f.mu.Unlock()
	if hook != nil {
		return hook(req)
	}
	return &model.AskResponse{Answer: "ok"}, nil
}

func (f *fakeBackend) Upload(
	ctx context.Context,
	identity string,
	kind model.UploadKind,
	courseID, filename, contentType string,
	body io.Reader,
) (*model.UploadReceipt, error) {
	data, _ := io.ReadAll(body)
	f.mu.Lock()
	f.uploadCalls = append(f.uploadCalls, string(kind)+":"+filename+":"+contentType)
	f.uploadBody = data
	hook := f.onUpload
	f.mu.Unlock()
	if hook != nil {
		return hook()
	}
	return &model.UploadReceipt{OK: true, CourseID: courseID, Filename: filename}, nil
}

func (f *fakeBackend) counts() (creates, gets, asks, uploads int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.createCalls), f.getCalls, len(f.askCalls), len(f.uploadCalls)
}
