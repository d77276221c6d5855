package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/backpine/users-service/internal/core/domain"
)

const auditCollection = "user_audit"

// AuditRepository is the bucket binding: an append-only log of user events.
type AuditRepository struct {
	coll *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{coll: db.Collection(auditCollection)}
}

type auditDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Action     string             `bson:"action"`
	UserID     string             `bson:"user_id"`
	Email      string             `bson:"email"`
	RequestID  string             `bson:"request_id,omitempty"`
	OccurredAt time.Time          `bson:"occurred_at"`
}

// Record appends an audit entry.
func (r *AuditRepository) Record(ctx context.Context, entry domain.AuditEntry) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.coll.InsertOne(ctx, auditDoc{
		Action:     entry.Action,
		UserID:     string(entry.UserID),
		Email:      entry.Email,
		RequestID:  entry.RequestID,
		OccurredAt: entry.OccurredAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}
