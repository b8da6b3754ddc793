package databases

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/examshield/proctor-api/models"
)

const examName = "exams"

// ExamDatabase contains the methods to use with the exam database
type ExamDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Exam, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Exam, error)
	InsertOne(context.Context, interface{}, ...*options.InsertOneOptions) (InsertOneResultHelper, error)
}

type examDatabase struct {
	db DatabaseHelper
}

// NewExamDatabase initializes a new instance of exam database with the provided db connection
func NewExamDatabase(db DatabaseHelper) ExamDatabase {
	return &examDatabase{
		db: db,
	}
}

func (c *examDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Exam, error) {
	exam := &models.Exam{}
	err := c.db.Collection(examName).FindOne(ctx, filter).Decode(&exam)
	if err != nil {
		return nil, err
	}
	return exam, nil
}

func (c *examDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Exam, error) {
	var exams []models.Exam
	err := c.db.Collection(examName).Find(ctx, filter, opts...).Decode(&exams)
	if err != nil {
		return nil, err
	}
	return exams, nil
}

func (c *examDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	res, err := c.db.Collection(examName).InsertOne(ctx, document, opts...)
	return res, err
}
