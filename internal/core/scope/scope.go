// Package scope provisions request-scoped dependencies.
//
// A Scope is an immutable value handed explicitly to every use case. Bindings
// are attached with WithBindings; a database handle is attached for the
// duration of a callback with WithDatabase and released when it returns.
package scope

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/backpine/users-service/internal/core/domain"
)

// Querier is the subset of *sqlx.Conn the repositories need.
type Querier interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// Handle is a request-scoped database connection with an explicit release.
type Handle interface {
	Querier
	Close() error
}

// Connector hands out request-scoped handles (a pool, a proxy, a fresh dial).
type Connector interface {
	Acquire(ctx context.Context) (Handle, error)
}

// Scheduler runs work after the response has been sent.
type Scheduler interface {
	WaitUntil(name string, task func(ctx context.Context) error)
}

// RecentUsers is the key-value binding indexing recently created users.
type RecentUsers interface {
	Remember(ctx context.Context, id domain.UserID, at time.Time) error
}

// AuditLog is the bucket binding receiving audit entries.
type AuditLog interface {
	Record(ctx context.Context, entry domain.AuditEntry) error
}

// Env carries deployment configuration visible to handlers.
type Env struct {
	Name        string
	LogLevel    string
	DatabaseURL string
}

// Bindings are the platform resources supplied per deployment.
// KV and Bucket are optional.
type Bindings struct {
	Env        Env
	Database   Connector
	KV         RecentUsers
	Bucket     AuditLog
	Background Scheduler
}

// Scope is the per-request dependency set. The zero value carries nothing.
type Scope struct {
	bindings  *Bindings
	db        Handle
	requestID string
}

// New returns an empty scope tagged with the request id.
func New(requestID string) Scope {
	return Scope{requestID: requestID}
}

// RequestID returns the id of the request owning this scope.
func (s Scope) RequestID() string { return s.requestID }

// WithBindings returns a copy of s carrying b. The receiver is unchanged.
func WithBindings(s Scope, b *Bindings) Scope {
	s.bindings = b
	return s
}

// Bindings returns the bindings provided for this scope.
func (s Scope) Bindings() (*Bindings, error) {
	if s.bindings == nil {
		return nil, &domain.BindingsError{
			Message: "Platform bindings not available. Ensure the request passes through ProvideBindings.",
		}
	}
	return s.bindings, nil
}

// Database returns the handle provided by an enclosing WithDatabase call.
func (s Scope) Database() (Querier, error) {
	if s.db == nil {
		return nil, &domain.DatabaseConnectionError{
			Message: "Database handle not available. Ensure the request passes through ProvideDatabase.",
		}
	}
	return s.db, nil
}

// WithDatabase acquires a handle from the bindings' connector, runs fn with a
// scope carrying it and releases it when fn returns, panics included.
//
// A release failure is joined to fn's error when fn failed. When fn succeeded
// the result stands and the connector is left to report the failed release.
func WithDatabase(ctx context.Context, s Scope, fn func(Scope) error) (err error) {
	b, err := s.Bindings()
	if err != nil {
		return err
	}
	if b.Database == nil {
		return &domain.DatabaseConnectionError{Message: "Database binding not configured"}
	}

	h, err := b.Database.Acquire(ctx)
	if err != nil {
		return &domain.DatabaseConnectionError{
			Message: fmt.Sprintf("Database connection failed: %v", err),
			Err:     err,
		}
	}
	defer func() {
		if cerr := h.Close(); cerr != nil && err != nil {
			err = errors.Join(err, fmt.Errorf("release database handle: %w", cerr))
		}
	}()

	inner := s
	inner.db = h
	return fn(inner)
}
