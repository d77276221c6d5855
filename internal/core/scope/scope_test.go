package scope

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/backpine/users-service/internal/core/domain"
)

type fakeHandle struct {
	mu       sync.Mutex
	closed   int
	closeErr error
}

func (h *fakeHandle) GetContext(context.Context, any, string, ...any) error    { return nil }
func (h *fakeHandle) SelectContext(context.Context, any, string, ...any) error { return nil }
func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed++
	return h.closeErr
}

func (h *fakeHandle) closes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

type fakeConnector struct {
	mu       sync.Mutex
	handles  []*fakeHandle
	err      error
	closeErr error
}

func (c *fakeConnector) Acquire(context.Context) (Handle, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	h := &fakeHandle{closeErr: c.closeErr}
	c.handles = append(c.handles, h)
	return h, nil
}

func (c *fakeConnector) all() []*fakeHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*fakeHandle(nil), c.handles...)
}

func withConnector(conn Connector) Scope {
	return WithBindings(New("req-1"), &Bindings{Database: conn})
}

func TestScope_MissingBindings(t *testing.T) {
	_, err := New("req-1").Bindings()

	var be *domain.BindingsError
	if !errors.As(err, &be) {
		t.Fatalf("expected BindingsError, got %v", err)
	}
}

func TestScope_MissingDatabase(t *testing.T) {
	_, err := WithBindings(New("req-1"), &Bindings{}).Database()

	var de *domain.DatabaseConnectionError
	if !errors.As(err, &de) {
		t.Fatalf("expected DatabaseConnectionError, got %v", err)
	}
}

func TestWithBindings_DoesNotMutateParent(t *testing.T) {
	parent := New("req-1")
	child := WithBindings(parent, &Bindings{Env: Env{Name: "test"}})

	if _, err := parent.Bindings(); err == nil {
		t.Fatal("parent scope must stay without bindings")
	}
	b, err := child.Bindings()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Env.Name != "test" || child.RequestID() != "req-1" {
		t.Fatalf("unexpected child scope: %+v, %q", b.Env, child.RequestID())
	}
}

func TestWithBindings_Nested(t *testing.T) {
	outer := WithBindings(New("req-1"), &Bindings{Env: Env{Name: "outer"}})
	inner := WithBindings(outer, &Bindings{Env: Env{Name: "inner"}})

	ob, _ := outer.Bindings()
	ib, _ := inner.Bindings()
	if ob.Env.Name != "outer" || ib.Env.Name != "inner" {
		t.Fatalf("got outer=%q inner=%q", ob.Env.Name, ib.Env.Name)
	}
}

func TestWithDatabase_NoBindings(t *testing.T) {
	called := false
	err := WithDatabase(context.Background(), New("req-1"), func(Scope) error {
		called = true
		return nil
	})

	var be *domain.BindingsError
	if !errors.As(err, &be) {
		t.Fatalf("expected BindingsError, got %v", err)
	}
	if called {
		t.Fatal("fn must not run without bindings")
	}
}

func TestWithDatabase_AcquireFails(t *testing.T) {
	s := withConnector(&fakeConnector{err: errors.New("dial tcp: refused")})

	err := WithDatabase(context.Background(), s, func(Scope) error {
		t.Fatal("fn must not run")
		return nil
	})

	var de *domain.DatabaseConnectionError
	if !errors.As(err, &de) {
		t.Fatalf("expected DatabaseConnectionError, got %v", err)
	}
	if de.Message != "Database connection failed: dial tcp: refused" {
		t.Fatalf("unexpected message %q", de.Message)
	}
}

func TestWithDatabase_ReleasesOnSuccess(t *testing.T) {
	conn := &fakeConnector{}
	s := withConnector(conn)

	err := WithDatabase(context.Background(), s, func(inner Scope) error {
		if q, err := inner.Database(); err != nil || q == nil {
			t.Fatalf("inner scope has no handle: %v", err)
		}
		if n := conn.all()[0].closes(); n != 0 {
			t.Fatalf("handle released early (%d)", n)
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hs := conn.all(); len(hs) != 1 || hs[0].closes() != 1 {
		t.Fatalf("expected one handle released once, got %d handles", len(hs))
	}
	if _, err := s.Database(); err == nil {
		t.Fatal("outer scope must not see the inner handle")
	}
}

func TestWithDatabase_ReleasesOnTypedFailure(t *testing.T) {
	conn := &fakeConnector{}
	want := &domain.UserNotFoundError{ID: "usr_1", Message: "User not found: usr_1"}

	err := WithDatabase(context.Background(), withConnector(conn), func(Scope) error { return want })

	if err != want {
		t.Fatalf("expected the fn error unchanged, got %v", err)
	}
	if conn.all()[0].closes() != 1 {
		t.Fatal("handle not released")
	}
}

func TestWithDatabase_ReleasesOnPanic(t *testing.T) {
	conn := &fakeConnector{}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected the panic to propagate")
			}
		}()
		_ = WithDatabase(context.Background(), withConnector(conn), func(Scope) error { panic("boom") })
	}()

	if hs := conn.all(); len(hs) != 1 || hs[0].closes() != 1 {
		t.Fatal("handle not released after panic")
	}
}

func TestWithDatabase_ReleaseFailureKeepsSuccess(t *testing.T) {
	conn := &fakeConnector{closeErr: errors.New("conn busy")}

	ran := false
	err := WithDatabase(context.Background(), withConnector(conn), func(Scope) error {
		ran = true
		return nil
	})

	if err != nil {
		t.Fatalf("a completed call must not fail on release, got %v", err)
	}
	if !ran || conn.all()[0].closes() != 1 {
		t.Fatal("fn did not run or handle not released")
	}
}

func TestWithDatabase_ReleaseFailureJoinsCallError(t *testing.T) {
	closeErr := errors.New("conn busy")
	conn := &fakeConnector{closeErr: closeErr}
	want := &domain.UserNotFoundError{ID: "usr_1", Message: "User not found: usr_1"}

	err := WithDatabase(context.Background(), withConnector(conn), func(Scope) error { return want })

	var nf *domain.UserNotFoundError
	if !errors.As(err, &nf) || nf != want {
		t.Fatalf("typed error lost: %v", err)
	}
	if !errors.Is(err, closeErr) {
		t.Fatalf("release error missing: %v", err)
	}
}

func TestWithDatabase_ConcurrentScopesAreIsolated(t *testing.T) {
	conn := &fakeConnector{}
	s := withConnector(conn)

	var wg sync.WaitGroup
	seen := make([]Querier, 16)
	for i := range seen {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = WithDatabase(context.Background(), s, func(inner Scope) error {
				q, _ := inner.Database()
				seen[i] = q
				return nil
			})
		}(i)
	}
	wg.Wait()

	uniq := make(map[Querier]struct{})
	for _, q := range seen {
		uniq[q] = struct{}{}
	}
	if len(uniq) != len(seen) {
		t.Fatalf("expected %d distinct handles, got %d", len(seen), len(uniq))
	}
	for _, h := range conn.all() {
		if h.closes() != 1 {
			t.Fatalf("handle released %d times", h.closes())
		}
	}
}
