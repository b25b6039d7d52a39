package databases

// go generate: mockery --name ReportDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/safekid-nepal/safekid-api/models"
)

const reportName = "reports"

// ReportDatabase contains the methods to use with the report database
type ReportDatabase interface {
	FindWithSightings(ctx context.Context, match bson.M) ([]models.MissingChildReport, error)
	FindOne(ctx context.Context, filter interface{}) (*models.MissingChildReport, error)
	InsertOne(ctx context.Context, report models.MissingChildReport) error
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

type reportDatabase struct {
	db DatabaseHelper
}

// NewReportDatabase initializes a new instance of report database with the provided db connection
func NewReportDatabase(db DatabaseHelper) ReportDatabase {
	return &reportDatabase{
		db: db,
	}
}

// reportPipeline sorts reports newest first and joins each report's
// sightings, oldest first, as a nested array
func reportPipeline(match bson.M) mongo.Pipeline {
	pipeline := mongo.Pipeline{}
	if len(match) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: match}})
	}
	return append(pipeline,
		bson.D{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: sightingName},
			{Key: "let", Value: bson.D{{Key: "rid", Value: bson.D{{Key: "$toString", Value: "$_id"}}}}},
			{Key: "pipeline", Value: bson.A{
				bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{{Key: "$eq", Value: bson.A{"$report_id", "$$rid"}}}}}}},
				bson.D{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: 1}}}},
			}},
			{Key: "as", Value: "sightings"},
		}}},
	)
}

func (c *reportDatabase) FindWithSightings(ctx context.Context, match bson.M) ([]models.MissingChildReport, error) {
	var reports []models.MissingChildReport
	cr, err := c.db.Collection(reportName).Aggregate(ctx, reportPipeline(match))
	if err != nil {
		return nil, err
	}
	if err := cr.Decode(&reports); err != nil {
		return nil, err
	}
	return reports, nil
}

func (c *reportDatabase) FindOne(ctx context.Context, filter interface{}) (*models.MissingChildReport, error) {
	report := &models.MissingChildReport{}
	err := c.db.Collection(reportName).FindOne(ctx, filter).Decode(&report)
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (c *reportDatabase) InsertOne(ctx context.Context, report models.MissingChildReport) error {
	// sightings live in their own collection
	report.Sightings = nil
	_, err := c.db.Collection(reportName).InsertOne(ctx, report)
	return err
}

func (c *reportDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return c.db.Collection(reportName).UpdateOne(ctx, filter, update, opts...)
}
