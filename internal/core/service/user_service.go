package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/backpine/users-service/internal/pkg/metrics"
	"github.com/backpine/users-service/internal/core/domain"
	"github.com/backpine/users-service/internal/core/ports"
	"github.com/backpine/users-service/internal/core/scope"
)

// UserService implements the user use cases on top of a request-scoped
// repository.
type UserService struct {
	repos  ports.UserRepositoryFactory
	logger zerolog.Logger
	now    func() time.Time
}

func NewUserService(repos ports.UserRepositoryFactory, logger zerolog.Logger) *UserService {
	return &UserService{
		repos:  repos,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *UserService) repo(sc scope.Scope) (ports.UserRepository, error) {
	q, err := sc.Database()
	if err != nil {
		return nil, err
	}
	return s.repos(q), nil
}

// ListUsers returns every user. A failed query degrades to an empty list
// instead of an error.
func (s *UserService) ListUsers(ctx context.Context, sc scope.Scope) (*ports.UserList, error) {
	repo, err := s.repo(sc)
	if err != nil {
		return nil, err
	}

	users, err := repo.List(ctx)
	if err != nil {
		metrics.UserListDegradedTotal.Inc()
		s.logger.Warn().Err(err).Str("request_id", sc.RequestID()).Msg("list users failed, returning empty list")
		users = nil
	}
	if users == nil {
		users = []domain.User{}
	}

	return &ports.UserList{Users: users, Total: len(users)}, nil
}

// GetUser resolves a public id. Malformed ids, missing rows and failed
// queries all surface as *domain.UserNotFoundError.
func (s *UserService) GetUser(ctx context.Context, sc scope.Scope, id string) (*domain.User, error) {
	pk, ok := domain.ParseUserID(id)
	if !ok {
		metrics.UserLookupsNotFoundTotal.WithLabelValues("malformed_id").Inc()
		return nil, &domain.UserNotFoundError{ID: id, Message: "Invalid user ID format: " + id}
	}

	repo, err := s.repo(sc)
	if err != nil {
		return nil, err
	}

	user, err := repo.FindByID(ctx, pk)
	if err != nil {
		reason := "missing"
		if !errors.Is(err, domain.ErrUserNotFound) {
			reason = "query_failed"
			s.logger.Warn().Err(err).Str("user_id", id).Str("request_id", sc.RequestID()).Msg("find user failed")
		}
		metrics.UserLookupsNotFoundTotal.WithLabelValues(reason).Inc()
		return nil, &domain.UserNotFoundError{ID: id, Message: "User not found: " + id}
	}

	return user, nil
}

// CreateUser validates and inserts a user, then schedules the audit and
// recent-user bookkeeping to run after the response.
func (s *UserService) CreateUser(ctx context.Context, sc scope.Scope, input ports.CreateUserInput) (*domain.User, error) {
	if err := domain.ValidateNewUser(input.Email, input.Name); err != nil {
		return nil, err
	}

	bindings, err := sc.Bindings()
	if err != nil {
		return nil, err
	}
	repo, err := s.repo(sc)
	if err != nil {
		return nil, err
	}

	user, err := repo.Create(ctx, input.Email, input.Name)
	if err != nil {
		metrics.UserCreationFailuresTotal.WithLabelValues(creationFailureReason(err)).Inc()
		s.logger.Error().Err(err).Str("email", input.Email).Str("request_id", sc.RequestID()).Msg("failed to create user")
		return nil, &domain.UserCreationError{Email: input.Email, Name: input.Name, Err: err}
	}

	metrics.UsersCreatedTotal.Inc()
	s.logger.Info().Str("user_id", string(user.ID)).Str("request_id", sc.RequestID()).Msg("user created")

	s.afterCreate(bindings, *user, sc.RequestID())
	return user, nil
}

func (s *UserService) afterCreate(b *scope.Bindings, user domain.User, requestID string) {
	if b.Background == nil || (b.KV == nil && b.Bucket == nil) {
		return
	}

	entry := domain.AuditEntry{
		Action:     domain.AuditUserCreated,
		UserID:     user.ID,
		Email:      user.Email,
		OccurredAt: s.now(),
		RequestID:  requestID,
	}

	b.Background.WaitUntil(domain.AuditUserCreated, func(ctx context.Context) error {
		var errs []error
		if b.Bucket != nil {
			if err := b.Bucket.Record(ctx, entry); err != nil {
				errs = append(errs, fmt.Errorf("audit: %w", err))
			}
		}
		if b.KV != nil {
			if err := b.KV.Remember(ctx, user.ID, user.CreatedAt); err != nil {
				errs = append(errs, fmt.Errorf("recent users: %w", err))
			}
		}
		return errors.Join(errs...)
	})
}

func creationFailureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, domain.ErrNoRowReturned):
		return "no_row"
	default:
		return "insert_failed"
	}
}
