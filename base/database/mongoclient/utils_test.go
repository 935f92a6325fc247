package mongoclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/bidmarkt/goapi/base/ptr"
)

func TestMakeBsonM(t *testing.T) {
	type PatchableAuction struct {
		Status         *string `bson:"status,omitempty"`
		CurrentHighBid *int64  `bson:"currentHighBid,omitempty"`
		OwnerId        string  `bson:"ownerId"`
		Note           string  `bson:"note"`
	}

	patchable := &PatchableAuction{}
	patchable.Status = ptr.String("open")
	patchable.CurrentHighBid = ptr.Int64(10500)
	patchable.Note = "hey!yo!"

	updater, err := MakeBsonM(patchable)

	assert.NoError(t, err)
	assert.Equal(
		t,
		bson.M{
			"status":         "open",
			"currentHighBid": int64(10500),
			// field ownerId is empty, so ignore
			"note": "hey!yo!",
		},
		updater,
	)
}
