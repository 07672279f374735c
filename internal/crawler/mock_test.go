package crawler

import (
	"context"
	"sync"
	"time"
)

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	mu    sync.Mutex
	cache   map[string][]byte
	sets    int
	failing bool
}

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		cache: make(map[string][]byte),
	}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return nil, &mockError{message: "connection refused"}
	}
	return m.cache[key], nil
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return &mockError{message: "connection refused"}
	}
	m.cache[key] = value
	m.sets++
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, key)
	return nil
}

type mockError struct {
	message string
}

func (e *mockError) Error() string {
	return e.message
}

// recordingSleeper records requested pauses instead of sleeping
type recordingSleeper struct {
	mu     sync.Mutex
	pauses []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pauses = append(r.pauses, d)
	return ctx.Err()
}

func (r *recordingSleeper) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pauses)
}

func newTestGovernor() (*Governor, *recordingSleeper) {
	rec := &recordingSleeper{}
	return NewGovernor(2*time.Second, 5*time.Second).WithSleeper(rec.sleep), rec
}

// fakeSession serves canned HTML per URL
type fakeSession struct {
	pages    map[string]string
	errs     map[string]error
	rendered []string
	closed   int
}

func (f *fakeSession) Render(ctx context.Context, pageURL string) (string, error) {
	f.rendered = append(f.rendered, pageURL)
	if err, ok := f.errs[pageURL]; ok {
		return "", err
	}
	return f.pages[pageURL], nil
}

func (f *fakeSession) Close() error {
	f.closed++
	return nil
}

func (f *fakeSession) factory() SessionFactory {
	return func(ctx context.Context) (BrowserSession, error) {
		return f, nil
	}
}
