package databases

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/examshield/proctor-api/models"
)

const snapshotName = "suspiciousSnapshots"

// SnapshotDatabase contains the methods to use with the snapshot database
type SnapshotDatabase interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Snapshot, error)
	InsertOne(context.Context, interface{}, ...*options.InsertOneOptions) (InsertOneResultHelper, error)
}

type snapshotDatabase struct {
	db DatabaseHelper
}

// NewSnapshotDatabase initializes a new instance of snapshot database with the provided db connection
func NewSnapshotDatabase(db DatabaseHelper) SnapshotDatabase {
	return &snapshotDatabase{
		db: db,
	}
}

func (c *snapshotDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Snapshot, error) {
	var snapshots []models.Snapshot
	err := c.db.Collection(snapshotName).Find(ctx, filter, opts...).Decode(&snapshots)
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (c *snapshotDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	res, err := c.db.Collection(snapshotName).InsertOne(ctx, document, opts...)
	return res, err
}
