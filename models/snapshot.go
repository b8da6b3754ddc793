package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Snapshot holds the structure for the suspiciousSnapshots collection in
// mongo. A snapshot is evidentiary: created only by the evidence policy and
// never deleted here (retention is an external concern).
type Snapshot struct {
	ID          primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	SessionID   string             `json:"sessionID" bson:"sessionID"`
	StoragePath string             `json:"storagePath" bson:"storagePath"`
	CapturedAt  primitive.DateTime `json:"capturedAt" bson:"capturedAt"`
}
