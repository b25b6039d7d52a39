package databases

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/safekid-nepal/safekid-api/config"
)

// The helper interfaces below mirror the subset of the mongo driver the
// repositories use, so each repository can be tested against mocks.

// DatabaseHelper hands out collections for a single database.
type DatabaseHelper interface {
	Collection(name string) CollectionHelper
	Client() ClientHelper
}

// CollectionHelper is the collection-level API used by the repositories.
type CollectionHelper interface {
	FindOne(context.Context, interface{}, ...*options.FindOneOptions) SingleResultHelper
	Find(context.Context, interface{}, ...*options.FindOptions) (CursorHelper, error)
	InsertOne(context.Context, interface{}, ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	UpdateOne(context.Context, interface{}, interface{}, ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(context.Context, interface{}, ...*options.DeleteOptions) (int64, error)
	CountDocuments(context.Context, interface{}, ...*options.CountOptions) (int64, error)
	Aggregate(context.Context, interface{}, ...*options.AggregateOptions) (CursorHelper, error)
}

// SingleResultHelper decodes one document.
type SingleResultHelper interface {
	Decode(v interface{}) error
}

// InsertOneResultHelper exposes the id of an inserted document.
type InsertOneResultHelper interface {
	Decode() interface{}
}

// CursorHelper drains a cursor into a slice.
type CursorHelper interface {
	Decode(v interface{}) error
}

// ClientHelper owns the connection lifecycle.
type ClientHelper interface {
	Database(string) DatabaseHelper
	Connect(context.Context) error
	Disconnect(context.Context) error
}

const (
	appName                = "safekid-api"
	serverSelectionTimeout = 10 * time.Second
)

// NewClient builds a client for conf.URL. The connection is opened by Connect.
func NewClient(conf *config.Config) (ClientHelper, error) {
	opts := options.Client().
		ApplyURI(conf.URL).
		SetAppName(appName).
		SetServerSelectionTimeout(serverSelectionTimeout)
	c, err := mongo.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &client{inner: c}, nil
}

// NewDatabase selects conf.DatabaseName on client.
func NewDatabase(conf *config.Config, c ClientHelper) DatabaseHelper {
	return c.Database(conf.DatabaseName)
}

type client struct{ inner *mongo.Client }

func (c *client) Database(name string) DatabaseHelper {
	return &database{inner: c.inner.Database(name)}
}

func (c *client) Connect(ctx context.Context) error    { return c.inner.Connect(ctx) }
func (c *client) Disconnect(ctx context.Context) error { return c.inner.Disconnect(ctx) }

type database struct{ inner *mongo.Database }

func (d *database) Collection(name string) CollectionHelper {
	return &collection{inner: d.inner.Collection(name)}
}

func (d *database) Client() ClientHelper { return &client{inner: d.inner.Client()} }

type collection struct{ inner *mongo.Collection }

func (c *collection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) SingleResultHelper {
	return c.inner.FindOne(ctx, filter, opts...)
}

func (c *collection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (CursorHelper, error) {
	cur, err := c.inner.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return cursor{inner: cur}, nil
}

func (c *collection) InsertOne(ctx context.Context, doc interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	res, err := c.inner.InsertOne(ctx, doc, opts...)
	if err != nil {
		return nil, err
	}
	return insertResult{id: res.InsertedID}, nil
}

func (c *collection) UpdateOne(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return c.inner.UpdateOne(ctx, filter, update, opts...)
}

func (c *collection) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error) {
	res, err := c.inner.DeleteOne(ctx, filter, opts...)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (c *collection) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return c.inner.CountDocuments(ctx, filter, opts...)
}

func (c *collection) Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (CursorHelper, error) {
	cur, err := c.inner.Aggregate(ctx, pipeline, opts...)
	if err != nil {
		return nil, err
	}
	return cursor{inner: cur}, nil
}

type insertResult struct{ id interface{} }

func (r insertResult) Decode() interface{} { return r.id }

type cursor struct{ inner *mongo.Cursor }

func (c cursor) Decode(v interface{}) error {
	return c.inner.All(context.Background(), v)
}
