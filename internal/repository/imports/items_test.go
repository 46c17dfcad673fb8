package importitems

import (
	"testing"

	"debtster_routes/internal/ports"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestToItemEncodesPayload(t *testing.T) {
	it := toItem(ports.ItemOutcome{
		ImportRecordID: "r1",
		ModelType:      "clients",
		ModelID:        "c1",
		Payload:        map[string]string{"full_name": "Ivanov Ivan"},
		Status:         "success",
	})
	assert.Equal(t, `{"full_name":"Ivanov Ivan"}`, it.Payload)
	assert.Equal(t, "r1", it.ImportRecordID)

	assert.Equal(t, "{}", toItem(ports.ItemOutcome{}).Payload)
}

func TestIDFilter(t *testing.T) {
	oid := primitive.NewObjectID()
	f := idFilter(oid.Hex())
	in := f["_id"].(bson.M)["$in"].(bson.A)
	assert.Equal(t, oid, in[0])
	assert.Equal(t, oid.Hex(), in[1])

	assert.Equal(t, bson.M{"_id": "legacy-id"}, idFilter("legacy-id"))
}

func TestKnownModelType(t *testing.T) {
	assert.True(t, KnownModelType("route_stops"))
	assert.False(t, KnownModelType("debtors"))
}
