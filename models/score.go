package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// ScoreSample holds the structure for the cheatScores collection in mongo.
// Score is a suspicion score in [0,100]; higher means more suspicious. The
// classifier reports focus, so suspicion = round(100 - focus_score).
// Samples are append-only and never mutated.
type ScoreSample struct {
	ID         primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	SessionID  string             `json:"sessionID" bson:"sessionID"`
	Score      float64            `json:"score" bson:"score"`
	Confidence float64            `json:"confidence" bson:"confidence"`
	Alerts     []string           `json:"alerts" bson:"alerts"`
	Timestamp  primitive.DateTime `json:"timestamp" bson:"timestamp"`
}

// HasAlerts reports whether the sample carries at least one alert.
func (s ScoreSample) HasAlerts() bool {
	return len(s.Alerts) > 0
}

// AnalysisResult is the classifier's per-frame response. The classifier is an
// opaque remote call; failures around it are transport errors.
type AnalysisResult struct {
	Success    bool     `json:"success"`
	FocusScore float64  `json:"focus_score"`
	Confidence float64  `json:"confidence"`
	Alerts     []string `json:"alerts"`
	Status     string   `json:"status"`
}
