package audit

import (
	"context"
	"fmt"
	"time"

	mg "debtster_routes/internal/config/connections/mongo"
	"debtster_routes/internal/ports"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
)

const AccessDenialsCollection = "access_denials"

type Denial struct {
	UserID    int64          `bson:"user_id" json:"user_id"`
	Role      string         `bson:"role" json:"role"`
	Operation string         `bson:"operation" json:"operation"`
	Reason    string         `bson:"reason" json:"reason"`
	Scope     map[string]any `bson:"scope,omitempty" json:"scope,omitempty"`
	CreatedAt time.Time      `bson:"created_at" json:"created_at"`
}

// Sink appends denials to Mongo. A failed write is logged and dropped so the
// denial itself is still returned to the caller.
type Sink struct {
	mongo *mg.Mongo
	log   *logrus.Logger
}

func NewSink(m *mg.Mongo, log *logrus.Logger) *Sink {
	return &Sink{mongo: m, log: log}
}

var _ ports.AuditSink = (*Sink)(nil)

func (s *Sink) RecordDenial(ctx context.Context, d ports.Denial) {
	if s.mongo == nil || s.mongo.Database == nil {
		s.log.Warn("[AUDIT][SKIP] mongo not available")
		return
	}
	doc := toDoc(d, time.Now().UTC())
	if _, err := s.mongo.Database.Collection(AccessDenialsCollection).InsertOne(ctx, doc); err != nil {
		s.log.WithFields(logrus.Fields{"user_id": d.UserID, "operation": d.Operation}).Warnf("[AUDIT][ERR] %v", err)
	}
}

// Recent returns the latest denials for a user, newest first.
func (s *Sink) Recent(ctx context.Context, userID int64, limit int64) ([]Denial, error) {
	if s.mongo == nil || s.mongo.Database == nil {
		return nil, fmt.Errorf("%w: mongo not available", ports.ErrStoreUnavailable)
	}
	cur, err := s.mongo.Database.Collection(AccessDenialsCollection).Find(ctx,
		bson.M{"user_id": userID},
		optsRecent(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]Denial, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func toDoc(d ports.Denial, at time.Time) Denial {
	return Denial{
		UserID:    d.UserID,
		Role:      string(d.Role),
		Operation: d.Operation,
		Reason:    d.Reason,
		Scope:     d.Scope,
		CreatedAt: at,
	}
}
