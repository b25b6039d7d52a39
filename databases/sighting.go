package databases

// go generate: mockery --name SightingDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/safekid-nepal/safekid-api/models"
)

const sightingName = "sightings"

// SightingDatabase contains the methods to use with the sighting database
type SightingDatabase interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Sighting, error)
	InsertOne(ctx context.Context, sighting models.Sighting) error
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

type sightingDatabase struct {
	db DatabaseHelper
}

// NewSightingDatabase initializes a new instance of sighting database with the provided db connection
func NewSightingDatabase(db DatabaseHelper) SightingDatabase {
	return &sightingDatabase{
		db: db,
	}
}

func (s *sightingDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Sighting, error) {
	var sightings []models.Sighting
	cr, err := s.db.Collection(sightingName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cr.Decode(&sightings)
	if err != nil {
		return nil, err
	}
	return sightings, nil
}

func (s *sightingDatabase) InsertOne(ctx context.Context, sighting models.Sighting) error {
	_, err := s.db.Collection(sightingName).InsertOne(ctx, sighting)
	return err
}

func (s *sightingDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return s.db.Collection(sightingName).UpdateOne(ctx, filter, update, opts...)
}
