package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Exam holds the structure for the exams collection in mongo
type Exam struct {
	ID              primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	Title           string             `json:"title" bson:"title"`
	Description     string             `json:"description" bson:"description"`
	DurationMinutes int                `json:"durationMinutes" bson:"durationMinutes"`
	StartTime       primitive.DateTime `json:"startTime" bson:"startTime"`
	EndTime         primitive.DateTime `json:"endTime" bson:"endTime"`
	CreatedBy       string             `json:"createdBy" bson:"createdBy"`
	CreatedAt       primitive.DateTime `json:"createdAt" bson:"createdAt"`
}
