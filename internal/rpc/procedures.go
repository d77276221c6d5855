package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/backpine/users-service/internal/core/domain"
	"github.com/backpine/users-service/internal/core/ports"
	"github.com/backpine/users-service/internal/core/scope"
)

type procedure func(ctx context.Context, sc scope.Scope, payload json.RawMessage) (any, error)

type getUserPayload struct {
	ID string `json:"id"`
}

type createUserPayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func userProcedures(users ports.UserService) map[string]procedure {
	return map[string]procedure{
		"getUser":    getUser(users),
		"listUsers":  listUsers(users),
		"createUser": createUser(users),
	}
}

func getUser(users ports.UserService) procedure {
	return func(ctx context.Context, sc scope.Scope, payload json.RawMessage) (any, error) {
		var in getUserPayload
		if err := decodePayload(payload, &in); err != nil {
			return nil, err
		}

		user, err := users.GetUser(ctx, sc, in.ID)
		if err != nil {
			var nf *domain.UserNotFoundError
			if errors.As(err, &nf) {
				return nil, &failure{userNotFound{Tag: "UserNotFound", ID: nf.ID, Message: nf.Message}}
			}
			return nil, err
		}
		return user, nil
	}
}

func listUsers(users ports.UserService) procedure {
	return func(ctx context.Context, sc scope.Scope, _ json.RawMessage) (any, error) {
		return users.ListUsers(ctx, sc)
	}
}

func createUser(users ports.UserService) procedure {
	return func(ctx context.Context, sc scope.Scope, payload json.RawMessage) (any, error) {
		var in createUserPayload
		if err := decodePayload(payload, &in); err != nil {
			return nil, err
		}

		user, err := users.CreateUser(ctx, sc, ports.CreateUserInput{Email: in.Email, Name: in.Name})
		if err == nil {
			return user, nil
		}

		var (
			ve *domain.ValidationError
			ce *domain.UserCreationError
		)
		switch {
		case errors.As(err, &ve):
			return nil, &failure{validationFailure{Tag: "ValidationError", Message: ve.Message}}
		case errors.As(err, &ce) && errors.Is(err, domain.ErrNoRowReturned):
			return nil, &failure{validationFailure{Tag: "ValidationError", Message: "Failed to create user"}}
		case errors.As(err, &ce):
			return nil, &failure{duplicateEmail{Tag: "DuplicateEmail", Email: ce.Email}}
		}
		return nil, err
	}
}

func decodePayload(payload json.RawMessage, dst any) error {
	if len(payload) == 0 {
		return errors.New("missing payload")
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
