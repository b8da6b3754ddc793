package databases

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/examshield/proctor-api/models"
)

const scoreName = "cheatScores"

// ScoreDatabase contains the methods to use with the cheat score database.
// Score samples are append-only; there is no update path.
type ScoreDatabase interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.ScoreSample, error)
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) error
	CountDocuments(context.Context, interface{}, ...*options.CountOptions) (int64, error)
}

type scoreDatabase struct {
	db DatabaseHelper
}

// NewScoreDatabase initializes a new instance of score database with the provided db connection
func NewScoreDatabase(db DatabaseHelper) ScoreDatabase {
	return &scoreDatabase{
		db: db,
	}
}

func (c *scoreDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.ScoreSample, error) {
	var samples []models.ScoreSample
	err := c.db.Collection(scoreName).Find(ctx, filter, opts...).Decode(&samples)
	if err != nil {
		return nil, err
	}
	return samples, nil
}

func (c *scoreDatabase) InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) error {
	return c.db.Collection(scoreName).InsertMany(ctx, documents, opts...)
}

func (c *scoreDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return c.db.Collection(scoreName).CountDocuments(ctx, filter, opts...)
}
