package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/woodlands-thekkady/booking-flow/internal/observability"
)

// AuditTrail records every workflow state transition so a support conversation
// can reconstruct what a guest's session did, long after the session is gone.
type AuditTrail struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditTrail(db *mongo.Database, logger observability.Logger) *AuditTrail {
	return &AuditTrail{
		coll:   db.Collection("workflow_transitions"),
		logger: logger,
	}
}

type transitionDoc struct {
	ID        uuid.UUID `bson:"_id"`
	SessionID string    `bson:"session_id"`
	From      string    `bson:"from"`
	To        string    `bson:"to"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data"`
}

func (a *AuditTrail) RecordTransition(ctx context.Context, sessionID, from, to string, data map[string]interface{}) error {
	doc := transitionDoc{
		ID:        uuid.New(),
		SessionID: sessionID,
		From:      from,
		To:        to,
		Timestamp: time.Now(),
		Data:      bson.M(data),
	}
	_, err := a.coll.InsertOne(ctx, doc)
	if err != nil {
		a.logger.Error("failed to insert workflow transition", err)
		return err
	}
	return nil
}
