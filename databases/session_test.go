package databases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/examshield/proctor-api/databases"
	"github.com/examshield/proctor-api/databases/mocks"
	"github.com/examshield/proctor-api/models"
)

func TestSessionDatabase_FindOneSuccess(t *testing.T) {
	var db databases.DatabaseHelper
	var conn databases.CollectionHelper
	var result databases.SingleResultHelper

	db = &mocks.DatabaseHelper{}
	conn = &mocks.CollectionHelper{}
	result = &mocks.SingleResultHelper{}

	result.(*mocks.SingleResultHelper).On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Session)
		(*arg).ID = "sess-1"
		(*arg).Status = models.SessionInProgress
	})
	conn.(*mocks.CollectionHelper).On("FindOne", mock.Anything, mock.Anything).Return(result)
	db.(*mocks.DatabaseHelper).On("Collection", "examSessions").Return(conn)

	sessionDB := databases.NewSessionDatabase(db)

	session, err := sessionDB.FindOne(context.Background(), bson.M{"_id": "sess-1"})

	assert.NoError(t, err)
	assert.Equal(t, "sess-1", session.ID)
	assert.Equal(t, models.SessionInProgress, session.Status)
}

func TestSessionDatabase_FindOneError(t *testing.T) {
	var db databases.DatabaseHelper
	var conn databases.CollectionHelper
	var result databases.SingleResultHelper

	db = &mocks.DatabaseHelper{}
	conn = &mocks.CollectionHelper{}
	result = &mocks.SingleResultHelper{}

	result.(*mocks.SingleResultHelper).On("Decode", mock.Anything).Return(errors.New("mongo: no documents in result"))
	conn.(*mocks.CollectionHelper).On("FindOne", mock.Anything, mock.Anything).Return(result)
	db.(*mocks.DatabaseHelper).On("Collection", "examSessions").Return(conn)

	sessionDB := databases.NewSessionDatabase(db)

	session, err := sessionDB.FindOne(context.Background(), bson.M{"_id": "missing"})

	assert.Error(t, err)
	assert.Nil(t, session)
}

func TestSessionDatabase_FindSuccess(t *testing.T) {
	var db databases.DatabaseHelper
	var conn databases.CollectionHelper
	var cursor databases.CursorHelper

	db = &mocks.DatabaseHelper{}
	conn = &mocks.CollectionHelper{}
	cursor = &mocks.CursorHelper{}

	cursor.(*mocks.CursorHelper).On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*[]models.Session)
		*arg = []models.Session{
			{ID: "sess-1", Status: models.SessionInProgress},
			{ID: "sess-2", Status: models.SessionInProgress},
		}
	})
	conn.(*mocks.CollectionHelper).On("Find", mock.Anything, mock.Anything).Return(cursor)
	db.(*mocks.DatabaseHelper).On("Collection", "examSessions").Return(conn)

	sessionDB := databases.NewSessionDatabase(db)

	sessions, err := sessionDB.Find(context.Background(), bson.M{"status": models.SessionInProgress})

	assert.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestSessionDatabase_UpdateOne(t *testing.T) {
	var db databases.DatabaseHelper
	var conn databases.CollectionHelper

	db = &mocks.DatabaseHelper{}
	conn = &mocks.CollectionHelper{}

	conn.(*mocks.CollectionHelper).On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil)
	db.(*mocks.DatabaseHelper).On("Collection", "examSessions").Return(conn)

	sessionDB := databases.NewSessionDatabase(db)

	modified, err := sessionDB.UpdateOne(context.Background(),
		bson.M{"_id": "sess-1", "status": models.SessionInProgress},
		bson.M{"$set": bson.M{"status": models.SessionSubmitted}})

	assert.NoError(t, err)
	assert.Equal(t, int64(1), modified)
}
