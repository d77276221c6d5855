package ports

import (
	"context"

	"github.com/backpine/users-service/internal/core/domain"
	"github.com/backpine/users-service/internal/core/scope"
)

// CreateUserInput carries the create payload.
type CreateUserInput struct {
	Email string
	Name  string
}

// UserList is the list response shape.
type UserList struct {
	Users []domain.User `json:"users"`
	Total int           `json:"total"`
}

// UserService defines use-case operations for users. Every call receives the
// request scope explicitly.
type UserService interface {
	ListUsers(ctx context.Context, sc scope.Scope) (*UserList, error)
	GetUser(ctx context.Context, sc scope.Scope, id string) (*domain.User, error)
	CreateUser(ctx context.Context, sc scope.Scope, input CreateUserInput) (*domain.User, error)
}
