package importitems

import (
	"context"
	"encoding/json"
	"time"

	mg "debtster_routes/internal/config/connections/mongo"
	"debtster_routes/internal/ports"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const ImportRecordItemsCollection = "import_record_items"

type Item struct {
	ImportRecordID string    `bson:"import_record_id" json:"import_record_id"`
	ModelType      string    `bson:"model_type" json:"model_type"`
	ModelID        string    `bson:"model_id" json:"model_id"`
	Payload        string    `bson:"payload" json:"payload"`
	Status         string    `bson:"status" json:"status"`
	Errors         string    `bson:"errors" json:"errors"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
}

// ItemLogger writes import row outcomes to Mongo. Write failures are logged
// and never fail the import itself.
type ItemLogger struct {
	mongo   *mg.Mongo
	records *Records
	log     *logrus.Logger
}

func NewItemLogger(m *mg.Mongo, log *logrus.Logger) *ItemLogger {
	return &ItemLogger{mongo: m, records: NewRecords(m), log: log}
}

var _ ports.ItemLogger = (*ItemLogger)(nil)

func (l *ItemLogger) LogItem(ctx context.Context, o ports.ItemOutcome) {
	if _, err := l.insert(ctx, toItem(o)); err != nil {
		l.log.WithFields(logrus.Fields{
			"model_type": o.ModelType,
			"model_id":   o.ModelID,
			"status":     o.Status,
		}).Warnf("[PROC][MONGO][ERR] %v", err)
	}
}

func (l *ItemLogger) MarkDone(ctx context.Context, importRecordID string) error {
	return l.records.SetStatus(ctx, importRecordID, StatusDone, "")
}

func (l *ItemLogger) MarkFailed(ctx context.Context, importRecordID, reason string) error {
	return l.records.SetStatus(ctx, importRecordID, StatusFailed, reason)
}

func (l *ItemLogger) insert(ctx context.Context, item Item) (*mongo.InsertOneResult, error) {
	if l.mongo == nil || l.mongo.Database == nil {
		return nil, mongo.ErrClientDisconnected
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	doc := bson.D{
		{Key: "import_record_id", Value: item.ImportRecordID},
		{Key: "model_type", Value: item.ModelType},
		{Key: "model_id", Value: item.ModelID},
		{Key: "payload", Value: item.Payload},
		{Key: "status", Value: item.Status},
		{Key: "errors", Value: item.Errors},
		{Key: "created_at", Value: item.CreatedAt},
		{Key: "updated_at", Value: item.UpdatedAt},
	}
	return l.mongo.Database.Collection(ImportRecordItemsCollection).InsertOne(ctx, doc)
}

func toItem(o ports.ItemOutcome) Item {
	payload := "{}"
	if len(o.Payload) > 0 {
		if b, err := json.Marshal(o.Payload); err == nil {
			payload = string(b)
		}
	}
	return Item{
		ImportRecordID: o.ImportRecordID,
		ModelType:      o.ModelType,
		ModelID:        o.ModelID,
		Payload:        payload,
		Status:         o.Status,
		Errors:         o.Errors,
	}
}
