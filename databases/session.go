package databases

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/examshield/proctor-api/models"
)

const sessionName = "examSessions"

// SessionDatabase contains the methods to use with the session database
type SessionDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Session, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Session, error)
	InsertOne(context.Context, interface{}, ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	UpdateOne(context.Context, interface{}, interface{}, ...*options.UpdateOptions) (int64, error)
	CountDocuments(context.Context, interface{}, ...*options.CountOptions) (int64, error)
}

type sessionDatabase struct {
	db DatabaseHelper
}

// NewSessionDatabase initializes a new instance of session database with the provided db connection
func NewSessionDatabase(db DatabaseHelper) SessionDatabase {
	return &sessionDatabase{
		db: db,
	}
}

func (c *sessionDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Session, error) {
	session := &models.Session{}
	err := c.db.Collection(sessionName).FindOne(ctx, filter).Decode(&session)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (c *sessionDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Session, error) {
	var sessions []models.Session
	err := c.db.Collection(sessionName).Find(ctx, filter, opts...).Decode(&sessions)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *sessionDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	res, err := c.db.Collection(sessionName).InsertOne(ctx, document, opts...)
	return res, err
}

func (c *sessionDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (int64, error) {
	return c.db.Collection(sessionName).UpdateOne(ctx, filter, update, opts...)
}

func (c *sessionDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return c.db.Collection(sessionName).CountDocuments(ctx, filter, opts...)
}
