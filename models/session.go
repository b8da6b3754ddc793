package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Session status values. A session is created in_progress and transitions to
// submitted or flagged exactly once; after that it is immutable.
const (
	SessionInProgress = "in_progress"
	SessionSubmitted  = "submitted"
	SessionFlagged    = "flagged"
)

// Session holds the structure for the examSessions collection in mongo.
// One session is one student's proctored attempt at one exam.
type Session struct {
	ID          string             `json:"_id" bson:"_id"`
	ExamID      string             `json:"examID" bson:"examID"`
	StudentID   string             `json:"studentID" bson:"studentID"`
	Status      string             `json:"status" bson:"status"`
	StartedAt   primitive.DateTime `json:"startedAt" bson:"startedAt"`
	SubmittedAt primitive.DateTime `json:"submittedAt,omitempty" bson:"submittedAt,omitempty"`
	FinalScore  float64            `json:"finalScore" bson:"finalScore"`
}

// Terminal reports whether the session has already been submitted or flagged.
func (s *Session) Terminal() bool {
	return s.Status == SessionSubmitted || s.Status == SessionFlagged
}

// StartSessionRequest is the payload for POST /session/start
type StartSessionRequest struct {
	ExamID    string `json:"exam_id"`
	StudentID string `json:"student_id"`
}

// StartSessionResponse is returned by POST /session/start
type StartSessionResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
	RoomID    string `json:"room_id"`
	RoomToken string `json:"room_token"`
	Resumed   bool   `json:"resumed"`
}

// LiveStatus is the current monitoring state of one in-progress session.
type LiveStatus struct {
	SessionID string   `json:"session_id"`
	Alive     bool     `json:"alive"`
	Alerts    []string `json:"alerts"`
}

// SubmitSessionResponse is returned by POST /session/{id}/submit
type SubmitSessionResponse struct {
	Success         bool    `json:"success"`
	FinalCheatScore float64 `json:"final_cheat_score"`
	Status          string  `json:"status"`
	Message         string  `json:"message"`
}
