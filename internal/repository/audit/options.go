package audit

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func optsRecent(limit int64) *options.FindOptions {
	if limit <= 0 {
		limit = 50
	}
	return options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
}
