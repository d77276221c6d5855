package ports

import (
	"context"

	"github.com/backpine/users-service/internal/core/domain"
	"github.com/backpine/users-service/internal/core/scope"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	List(ctx context.Context) ([]domain.User, error)
	// FindByID returns domain.ErrUserNotFound when no row matches.
	FindByID(ctx context.Context, pk int64) (*domain.User, error)
	// Create inserts a row. Unique violations wrap domain.ErrDuplicateEmail;
	// an insert that returns no row yields domain.ErrNoRowReturned.
	Create(ctx context.Context, email, name string) (*domain.User, error)
}

// UserRepositoryFactory binds a repository to a request-scoped handle.
type UserRepositoryFactory func(q scope.Querier) UserRepository
