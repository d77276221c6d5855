package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/backpine/users-service/internal/core/domain"
	"github.com/backpine/users-service/internal/core/ports"
	"github.com/backpine/users-service/internal/core/scope"
)

const (
	tracerName = "github.com/backpine/users-service/internal/infrastructure/db/postgres"

	selectUsers = `SELECT id, email, name, created_at FROM users`
	selectUser  = selectUsers + ` WHERE id = $1`
	insertUser  = `INSERT INTO users (email, name) VALUES ($1, $2) RETURNING id, email, name, created_at`

	uniqueViolation = "unique_violation"
)

type UserRepository struct {
	q scope.Querier
}

func NewUserRepository(q scope.Querier) *UserRepository {
	return &UserRepository{q: q}
}

// RepositoryFactory adapts NewUserRepository to ports.UserRepositoryFactory.
func RepositoryFactory(q scope.Querier) ports.UserRepository {
	return NewUserRepository(q)
}

type userRow struct {
	ID        int64     `db:"id"`
	Email     string    `db:"email"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:        domain.FormatUserID(r.ID),
		Email:     r.Email,
		Name:      r.Name,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

// List returns every row in storage order.
func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	ctx, span := startSpan(ctx, "users.list", "SELECT")
	defer span.End()

	var rows []userRow
	if err := r.q.SelectContext(ctx, &rows, selectUsers); err != nil {
		recordError(span, err)
		return nil, fmt.Errorf("select users: %w", err)
	}

	users := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toDomain())
	}
	span.SetAttributes(attribute.Int("db.rows", len(users)))
	return users, nil
}

func (r *UserRepository) FindByID(ctx context.Context, pk int64) (*domain.User, error) {
	ctx, span := startSpan(ctx, "users.find_by_id", "SELECT")
	defer span.End()

	var row userRow
	if err := r.q.GetContext(ctx, &row, selectUser, pk); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		recordError(span, err)
		return nil, fmt.Errorf("select user %d: %w", pk, err)
	}

	u := row.toDomain()
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, email, name string) (*domain.User, error) {
	ctx, span := startSpan(ctx, "users.create", "INSERT")
	defer span.End()

	var row userRow
	if err := r.q.GetContext(ctx, &row, insertUser, email, name); err != nil {
		recordError(span, err)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNoRowReturned
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == uniqueViolation {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateEmail, pqErr.Constraint)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	u := row.toDomain()
	return &u, nil
}

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", op),
			attribute.String("db.sql.table", "users"),
		),
	)
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
