package databases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/safekid-nepal/safekid-api/databases"
	"github.com/safekid-nepal/safekid-api/databases/mocks"
	"github.com/safekid-nepal/safekid-api/models"
)

func TestReportDatabase_FindWithSightings(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	cursor := &mocks.CursorHelper{}

	reportID := primitive.NewObjectID()
	var pipeline mongo.Pipeline

	cursor.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*[]models.MissingChildReport)
		*arg = []models.MissingChildReport{{
			ID:        reportID,
			ChildName: "Aarav",
			Sightings: []models.Sighting{{Description: "near the temple"}},
		}}
	})
	collectionHelper.On("Aggregate", context.Background(), mock.AnythingOfType("mongo.Pipeline")).
		Return(cursor, nil).Run(func(args mock.Arguments) {
		pipeline = args.Get(1).(mongo.Pipeline)
	})
	dbHelper.On("Collection", "reports").Return(collectionHelper)

	reportDba := databases.NewReportDatabase(dbHelper)

	reports, err := reportDba.FindWithSightings(context.Background(), nil)
	assert.NoError(t, err)
	assert.Len(t, reports, 1)
	assert.Equal(t, reportID, reports[0].ID)
	assert.Len(t, reports[0].Sightings, 1)

	// no match stage without a filter: sort then lookup
	assert.Len(t, pipeline, 2)
	assert.Equal(t, "$sort", pipeline[0][0].Key)
	assert.Equal(t, "$lookup", pipeline[1][0].Key)

	_, err = reportDba.FindWithSightings(context.Background(), bson.M{"status": "active"})
	assert.NoError(t, err)
	assert.Len(t, pipeline, 3)
	assert.Equal(t, "$match", pipeline[0][0].Key)
}

func TestReportDatabase_FindWithSightingsError(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	collectionHelper.On("Aggregate", context.Background(), mock.Anything).
		Return(nil, errors.New("mocked-error"))
	dbHelper.On("Collection", "reports").Return(collectionHelper)

	reports, err := databases.NewReportDatabase(dbHelper).FindWithSightings(context.Background(), nil)
	assert.Nil(t, reports)
	assert.EqualError(t, err, "mocked-error")
}

func TestReportDatabase_InsertOneDropsSightings(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	ior := &mocks.InsertOneResultHelper{}

	var stored models.MissingChildReport
	collectionHelper.On("InsertOne", context.Background(), mock.Anything).
		Return(ior, nil).Run(func(args mock.Arguments) {
		stored = args.Get(1).(models.MissingChildReport)
	})
	dbHelper.On("Collection", "reports").Return(collectionHelper)

	report := models.MissingChildReport{
		ID:        primitive.NewObjectID(),
		ChildName: "Aarav",
		Sightings: []models.Sighting{{Description: "x"}},
	}
	err := databases.NewReportDatabase(dbHelper).InsertOne(context.Background(), report)
	assert.NoError(t, err)
	assert.Nil(t, stored.Sightings)
	assert.Equal(t, "Aarav", stored.ChildName)
}
