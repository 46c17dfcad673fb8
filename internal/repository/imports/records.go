package importitems

import (
	"context"
	"errors"
	"fmt"
	"time"

	mg "debtster_routes/internal/config/connections/mongo"
	"debtster_routes/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ImportRecordsCollection = "import_records"

const (
	StatusParsed  = "parsed"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

type Record struct {
	ID        any        `bson:"_id" json:"id"`
	UserID    *int64     `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Count     int        `bson:"count" json:"count"`
	Status    string     `bson:"status" json:"status"`
	Errors    *string    `bson:"errors,omitempty" json:"errors,omitempty"`
	Type      string     `bson:"type" json:"type"`
	Path      *string    `bson:"path,omitempty" json:"path,omitempty"`
	Bucket    *string    `bson:"bucket,omitempty" json:"bucket,omitempty"`
	Key       *string    `bson:"key,omitempty" json:"key,omitempty"`
	SizeBytes *int64     `bson:"size_bytes,omitempty" json:"size_bytes,omitempty"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}

// Records is the import_records collection.
type Records struct {
	mongo *mg.Mongo
}

func NewRecords(m *mg.Mongo) *Records {
	return &Records{mongo: m}
}

func (r *Records) coll() (*mongo.Collection, error) {
	if r.mongo == nil || r.mongo.Database == nil {
		return nil, mongo.ErrClientDisconnected
	}
	return r.mongo.Database.Collection(ImportRecordsCollection), nil
}

// Insert stores rec and returns its id as a hex string.
func (r *Records) Insert(ctx context.Context, rec Record) (string, error) {
	coll, err := r.coll()
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	if rec.Status == "" {
		rec.Status = StatusParsed
	}
	oid := primitive.NewObjectID()

	_, err = coll.InsertOne(ctx, bson.D{
		{Key: "_id", Value: oid},
		{Key: "user_id", Value: rec.UserID},
		{Key: "count", Value: rec.Count},
		{Key: "status", Value: rec.Status},
		{Key: "errors", Value: rec.Errors},
		{Key: "type", Value: rec.Type},
		{Key: "path", Value: rec.Path},
		{Key: "bucket", Value: rec.Bucket},
		{Key: "key", Value: rec.Key},
		{Key: "size_bytes", Value: rec.SizeBytes},
		{Key: "created_at", Value: rec.CreatedAt},
		{Key: "updated_at", Value: rec.UpdatedAt},
	})
	if err != nil {
		return "", err
	}
	return oid.Hex(), nil
}

// idFilter matches an ObjectId hex or a plain string id.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{oid, id}}}
	}
	return bson.M{"_id": id}
}

func (r *Records) FindByID(ctx context.Context, id string) (Record, error) {
	var out Record
	coll, err := r.coll()
	if err != nil {
		return out, err
	}
	if err := coll.FindOne(ctx, idFilter(id)).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return out, fmt.Errorf("import record %s: %w", id, ports.ErrNotFound)
		}
		return out, err
	}
	return out, nil
}

// SetStatus updates the record status and, when non-empty, its error text.
func (r *Records) SetStatus(ctx context.Context, id, status, errText string) error {
	if id == "" {
		return fmt.Errorf("empty import record id")
	}
	coll, err := r.coll()
	if err != nil {
		return err
	}
	set := bson.M{"status": status, "updated_at": time.Now().UTC()}
	if errText != "" {
		set["errors"] = errText
	}
	res, err := coll.UpdateOne(ctx, idFilter(id), bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("import record %s: %w", id, ports.ErrNotFound)
	}
	return nil
}

// SetCount stores the number of processed rows.
func (r *Records) SetCount(ctx context.Context, id string, count int) error {
	coll, err := r.coll()
	if err != nil {
		return err
	}
	_, err = coll.UpdateOne(ctx, idFilter(id), bson.M{"$set": bson.M{"count": count, "updated_at": time.Now().UTC()}})
	return err
}

func (r *Records) List(ctx context.Context, filter bson.M, limit, skip int64) ([]Record, int64, error) {
	coll, err := r.coll()
	if err != nil {
		return nil, 0, err
	}
	if filter == nil {
		filter = bson.M{}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	if skip > 0 {
		opts.SetSkip(skip)
	}

	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	recs := make([]Record, 0)
	if err := cur.All(ctx, &recs); err != nil {
		return nil, 0, err
	}
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		total = int64(len(recs))
	}
	return recs, total, nil
}
