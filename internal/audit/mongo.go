// Package audit persists admin actions on auctions to MongoDB.
package audit

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "audit_logs"

type actorKey struct{}

// WithActor attaches the acting admin's subject to ctx
func WithActor(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, actorKey{}, subject)
}

// ActorFrom returns the subject stored by WithActor, if any
func ActorFrom(ctx context.Context) string {
	s, _ := ctx.Value(actorKey{}).(string)
	return s
}

type Entry struct {
	ID        string    `bson:"_id"`
	Action    string    `bson:"action"`
	AuctionID string    `bson:"auction_id"`
	Actor     string    `bson:"actor,omitempty"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data,omitempty"`
}

type MongoAuditor struct {
	coll *mongo.Collection
}

func NewMongoAuditor(db *mongo.Database) *MongoAuditor {
	return &MongoAuditor{coll: db.Collection(CollectionName)}
}

// Record implements registry.Auditor
func (a *MongoAuditor) Record(ctx context.Context, action, auctionID string, data map[string]any) error {
	entry := Entry{
		ID:        uuid.NewString(),
		Action:    action,
		AuctionID: auctionID,
		Actor:     ActorFrom(ctx),
		Timestamp: time.Now().UTC(),
		Data:      bson.M(data),
	}
	if _, err := a.coll.InsertOne(ctx, entry); err != nil {
		return errors.Wrapf(err, "audit: insert %s", action)
	}
	return nil
}

// History returns the entries for one auction, oldest first
func (a *MongoAuditor) History(ctx context.Context, auctionID string) ([]Entry, error) {
	cur, err := a.coll.Find(ctx, bson.M{"auction_id": auctionID}, options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "audit: find")
	}
	var out []Entry
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "audit: decode")
	}
	return out, nil
}
