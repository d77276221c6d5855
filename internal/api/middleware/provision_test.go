package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backpine/users-service/internal/core/domain"
	"github.com/backpine/users-service/internal/core/scope"
)

type fakeHandle struct {
	closed int
}

func (h *fakeHandle) GetContext(context.Context, any, string, ...any) error    { return nil }
func (h *fakeHandle) SelectContext(context.Context, any, string, ...any) error { return nil }
func (h *fakeHandle) Close() error {
	h.closed++
	return nil
}

type fakeConnector struct {
	handles []*fakeHandle
	err     error
}

func (f *fakeConnector) Acquire(context.Context) (scope.Handle, error) {
	if f.err != nil {
		return nil, f.err
	}
	h := &fakeHandle{}
	f.handles = append(f.handles, h)
	return h, nil
}

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-1")
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestProvideBindings_AttachesScope(t *testing.T) {
	c, _ := newContext()
	b := &scope.Bindings{Env: scope.Env{Name: "test"}}

	var got scope.Scope
	h := ProvideBindings(b)(func(c echo.Context) error {
		got = ScopeFrom(c)
		return nil
	})
	require.NoError(t, h(c))

	bound, err := got.Bindings()
	require.NoError(t, err)
	assert.Same(t, b, bound)
	assert.Equal(t, "req-1", got.RequestID())
}

func TestRequireBindings_RejectsMissingBindings(t *testing.T) {
	c, _ := newContext()

	h := ProvideBindings(nil)(RequireBindings()(func(echo.Context) error {
		t.Fatal("should not reach next handler")
		return nil
	}))

	var be *domain.BindingsError
	assert.ErrorAs(t, h(c), &be)
}

func TestProvideDatabase_HandleLivesForHandler(t *testing.T) {
	c, _ := newContext()
	conn := &fakeConnector{}
	b := &scope.Bindings{Database: conn}

	h := ProvideBindings(b)(ProvideDatabase()(func(c echo.Context) error {
		q, err := ScopeFrom(c).Database()
		require.NoError(t, err)
		assert.NotNil(t, q)
		require.Len(t, conn.handles, 1)
		assert.Zero(t, conn.handles[0].closed)
		return c.NoContent(http.StatusNoContent)
	}))

	require.NoError(t, h(c))
	require.Len(t, conn.handles, 1)
	assert.Equal(t, 1, conn.handles[0].closed)

	// The released handle is not left on the context.
	_, err := ScopeFrom(c).Database()
	assert.Error(t, err)
}

func TestProvideDatabase_ReleasesOnHandlerError(t *testing.T) {
	c, _ := newContext()
	conn := &fakeConnector{}
	boom := errors.New("boom")

	h := ProvideBindings(&scope.Bindings{Database: conn})(ProvideDatabase()(func(echo.Context) error {
		return boom
	}))

	assert.ErrorIs(t, h(c), boom)
	require.Len(t, conn.handles, 1)
	assert.Equal(t, 1, conn.handles[0].closed)
}

func TestProvideDatabase_AcquireFailure(t *testing.T) {
	c, _ := newContext()
	conn := &fakeConnector{err: errors.New("dial tcp: refused")}

	h := ProvideBindings(&scope.Bindings{Database: conn})(ProvideDatabase()(func(echo.Context) error {
		t.Fatal("should not reach next handler")
		return nil
	}))

	var de *domain.DatabaseConnectionError
	require.ErrorAs(t, h(c), &de)
	assert.Contains(t, de.Message, "dial tcp: refused")
}

func TestScopeFrom_WithoutProvider(t *testing.T) {
	c, _ := newContext()
	sc := ScopeFrom(c)

	assert.Equal(t, "req-1", sc.RequestID())
	_, err := sc.Bindings()
	assert.Error(t, err)
}

func TestRequestLogger_LogsStatusFromErrorHandler(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	c, rec := newContext()
	h := RequestLogger(log)(func(echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "short and stout")
	})

	require.NoError(t, h(c))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}
