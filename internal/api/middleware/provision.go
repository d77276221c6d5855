package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/backpine/users-service/internal/core/scope"
)

const scopeKey = "scope"

// ProvideBindings attaches a fresh scope carrying b to every request.
// A nil b yields a scope without bindings.
func ProvideBindings(b *scope.Bindings) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sc := scope.New(requestID(c))
			if b != nil {
				sc = scope.WithBindings(sc, b)
			}
			c.Set(scopeKey, sc)
			return next(c)
		}
	}
}

// RequireBindings rejects the request with a BindingsError when no bindings
// were provided upstream.
func RequireBindings() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := ScopeFrom(c).Bindings(); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// ProvideDatabase holds a database handle for the rest of the chain and
// releases it once the handler returns.
func ProvideDatabase() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			outer := ScopeFrom(c)
			defer c.Set(scopeKey, outer)

			return scope.WithDatabase(c.Request().Context(), outer, func(sc scope.Scope) error {
				c.Set(scopeKey, sc)
				return next(c)
			})
		}
	}
}

// ScopeFrom returns the request scope. Requests that skipped ProvideBindings
// get an empty scope.
func ScopeFrom(c echo.Context) scope.Scope {
	if sc, ok := c.Get(scopeKey).(scope.Scope); ok {
		return sc
	}
	return scope.New(requestID(c))
}

func requestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}
