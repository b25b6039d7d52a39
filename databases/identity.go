package databases

// go generate: mockery --name IdentityDatabase

import (
	"context"

	"github.com/safekid-nepal/safekid-api/models"
)

const identityName = "identities"

// IdentityDatabase contains the methods to use with the identity database
type IdentityDatabase interface {
	FindOne(ctx context.Context, filter interface{}) (*models.Identity, error)
	InsertOne(ctx context.Context, identity models.Identity) error
	CountDocuments(ctx context.Context, filter interface{}) (int64, error)
}

type identityDatabase struct {
	db DatabaseHelper
}

// NewIdentityDatabase initializes a new instance of identity database with the provided db connection
func NewIdentityDatabase(db DatabaseHelper) IdentityDatabase {
	return &identityDatabase{
		db: db,
	}
}

func (i *identityDatabase) FindOne(ctx context.Context, filter interface{}) (*models.Identity, error) {
	identity := &models.Identity{}
	err := i.db.Collection(identityName).FindOne(ctx, filter).Decode(&identity)
	if err != nil {
		return nil, err
	}
	return identity, nil
}

func (i *identityDatabase) InsertOne(ctx context.Context, identity models.Identity) error {
	_, err := i.db.Collection(identityName).InsertOne(ctx, identity)
	return err
}

func (i *identityDatabase) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	return i.db.Collection(identityName).CountDocuments(ctx, filter)
}
