package databases_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/safekid-nepal/safekid-api/databases"
	"github.com/safekid-nepal/safekid-api/databases/mocks"
	"github.com/safekid-nepal/safekid-api/models"
)

func TestPaymentDatabase_InsertOne(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	ior := &mocks.InsertOneResultHelper{}

	payment := models.Payment{Method: models.MethodEsewa, Amount: 500, FinalAmount: 470, TokensUsed: 30, Success: true}
	collectionHelper.On("InsertOne", context.Background(), payment).Return(ior, nil)
	dbHelper.On("Collection", "payments").Return(collectionHelper)

	err := databases.NewPaymentDatabase(dbHelper).InsertOne(context.Background(), payment)
	assert.NoError(t, err)
	collectionHelper.AssertCalled(t, "InsertOne", context.Background(), payment)
}

func TestPaymentDatabase_Find(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	cursor := &mocks.CursorHelper{}

	cursor.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*[]models.Payment)
		*arg = []models.Payment{{ReportID: "r1", Success: true}}
	})
	collectionHelper.On("Find", context.Background(), mock.Anything).Return(cursor, nil)
	dbHelper.On("Collection", "payments").Return(collectionHelper)

	payments, err := databases.NewPaymentDatabase(dbHelper).Find(context.Background(), map[string]string{"report_id": "r1"})
	assert.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestPaymentDatabase_UpdateOne(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	filter := bson.M{"report_id": "pending_1"}
	update := bson.M{"$set": bson.M{"report_id": "r1"}}
	collectionHelper.On("UpdateOne", context.Background(), filter, update).Return(&mongo.UpdateResult{MatchedCount: 1}, nil)
	dbHelper.On("Collection", "payments").Return(collectionHelper)

	res, err := databases.NewPaymentDatabase(dbHelper).UpdateOne(context.Background(), filter, update)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), res.MatchedCount)
}
