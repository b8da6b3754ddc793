package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/examshield/proctor-api/api"
	"github.com/examshield/proctor-api/config"
	"github.com/examshield/proctor-api/databases"
	"github.com/examshield/proctor-api/models"
	"github.com/examshield/proctor-api/monitor"
	"github.com/examshield/proctor-api/signaling"
)

// roomTokenTTL bounds how long a session's signaling join token stays valid.
// Sessions are reaped at exam end, so a generous ceiling is fine.
const roomTokenTTL = 12 * time.Hour

// FlagNotifier delivers a best-effort notification when a session is flagged.
// Failures are logged and never affect the submit path.
type FlagNotifier interface {
	NotifyFlagged(session models.Session, finalScore float64)
}

// Session exported for testing purposes
type Session struct {
	DB       databases.SessionDatabase
	EDB      databases.ExamDatabase
	ScoreDB  databases.ScoreDatabase
	Registry *monitor.Registry
	Config   *config.Config
	Notifier FlagNotifier

	// NewMonitor builds the per-session monitor; injected so tests can
	// substitute fakes for the classifier and object store.
	NewMonitor func(sessionID, studentID string) *monitor.Monitor
}

// StartSessionHandler starts a proctored session for a student on an exam.
// Starting is idempotent: an in-progress session for the same student and
// exam is resumed, a terminal one rejects the start.
func (s Session) StartSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req models.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.ExamID == "" || req.StudentID == "" {
		config.ErrorStatus("exam_id and student_id are required", http.StatusBadRequest, w,
			fmt.Errorf("missing required fields"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	eID, err := primitive.ObjectIDFromHex(req.ExamID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}
	exam, err := s.EDB.FindOne(ctx, bson.M{"_id": eID})
	if err != nil {
		config.ErrorStatus("failed to get exam by ID", http.StatusNotFound, w, err)
		return
	}
	if time.Now().After(exam.EndTime.Time()) {
		config.ErrorStatus("exam window has closed", http.StatusConflict, w,
			fmt.Errorf("exam %s ended at %v", req.ExamID, exam.EndTime.Time()))
		return
	}

	existing, err := s.DB.FindOne(ctx, bson.M{"examID": req.ExamID, "studentID": req.StudentID})
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		config.ErrorStatus("failed to look up existing session", http.StatusInternalServerError, w, err)
		return
	}

	if existing != nil {
		if existing.Terminal() {
			config.ErrorStatus("session already completed", http.StatusConflict, w,
				fmt.Errorf("session %s has status %s", existing.ID, existing.Status))
			return
		}
		// Resume: re-register monitoring if the previous process lost it.
		s.ensureMonitor(existing.ID, existing.StudentID)
		s.writeStartResponse(w, existing.ID, true)
		return
	}

	session := models.Session{
		ID:        uuid.New().String(),
		ExamID:    req.ExamID,
		StudentID: req.StudentID,
		Status:    models.SessionInProgress,
		StartedAt: primitive.NewDateTimeFromTime(time.Now()),
	}
	if _, err := s.DB.InsertOne(ctx, session); err != nil {
		config.ErrorStatus("failed to create session", http.StatusInternalServerError, w, err)
		return
	}

	s.ensureMonitor(session.ID, session.StudentID)
	zap.S().Infow("session started",
		"sessionID", session.ID,
		"examID", session.ExamID,
		"studentID", session.StudentID,
	)
	s.writeStartResponse(w, session.ID, false)
}

func (s Session) ensureMonitor(sessionID, studentID string) {
	if s.Registry == nil || s.NewMonitor == nil {
		return
	}
	if _, ok := s.Registry.Get(sessionID); ok {
		return
	}
	m := s.NewMonitor(sessionID, studentID)
	s.Registry.Register(m)
	m.Start()
}

func (s Session) writeStartResponse(w http.ResponseWriter, sessionID string, resumed bool) {
	token, err := signaling.MintRoomToken(s.Config.RoomJWTSecret, sessionID, "publisher", roomTokenTTL)
	if err != nil {
		config.ErrorStatus("failed to mint room token", http.StatusInternalServerError, w, err)
		return
	}

	b, err := json.Marshal(models.StartSessionResponse{
		Success:   true,
		SessionID: sessionID,
		RoomID:    signaling.RoomID(sessionID),
		RoomToken: token,
		Resumed:   resumed,
	})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// SubmitSessionHandler finalizes a session: stop monitoring, flush what is
// buffered, compute the confidence-weighted final score over every persisted
// sample, and write the terminal status exactly once. Re-submitting a
// terminal session returns the stored result unchanged.
func (s Session) SubmitSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	session, err := s.DB.FindOne(ctx, bson.M{"_id": sessionID})
	if err != nil {
		config.ErrorStatus("failed to get session by ID", http.StatusNotFound, w, err)
		return
	}

	if session.Terminal() {
		s.writeSubmitResponse(w, session.FinalScore, session.Status, "session was already submitted")
		return
	}

	// Teardown before scoring so the final flush lands in the collection the
	// score is computed from.
	if s.Registry != nil {
		if m, ok := s.Registry.Remove(sessionID); ok {
			m.Stop(ctx)
		}
	}

	samples, err := s.ScoreDB.Find(ctx, bson.M{"sessionID": sessionID})
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		config.ErrorStatus("failed to load score samples", http.StatusInternalServerError, w, err)
		return
	}

	finalScore := monitor.FinalScore(samples)
	status := models.SessionSubmitted
	if finalScore > s.Config.FlagThreshold {
		status = models.SessionFlagged
	}

	update := bson.M{"$set": bson.M{
		"status":      status,
		"finalScore":  finalScore,
		"submittedAt": primitive.NewDateTimeFromTime(time.Now()),
	}}
	if _, err := s.DB.UpdateOne(ctx, bson.M{"_id": sessionID, "status": models.SessionInProgress}, update); err != nil {
		config.ErrorStatus("failed to finalize session", http.StatusInternalServerError, w, err)
		return
	}

	zap.S().Infow("session submitted",
		"sessionID", sessionID,
		"finalScore", finalScore,
		"status", status,
		"samples", len(samples),
	)

	if status == models.SessionFlagged && s.Notifier != nil {
		flagged := *session
		flagged.Status = status
		flagged.FinalScore = finalScore
		go s.Notifier.NotifyFlagged(flagged, finalScore)
	}

	s.writeSubmitResponse(w, finalScore, status, "session submitted successfully")
}

// FinalizeSession applies the terminal transition outside of an HTTP request.
// The session reaper uses it to auto-submit sessions whose exam has ended.
func (s Session) FinalizeSession(ctx context.Context, sessionID string) error {
	session, err := s.DB.FindOne(ctx, bson.M{"_id": sessionID})
	if err != nil {
		return err
	}
	if session.Terminal() {
		return nil
	}

	if s.Registry != nil {
		if m, ok := s.Registry.Remove(sessionID); ok {
			m.Stop(ctx)
		}
	}

	samples, err := s.ScoreDB.Find(ctx, bson.M{"sessionID": sessionID})
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}

	finalScore := monitor.FinalScore(samples)
	status := models.SessionSubmitted
	if finalScore > s.Config.FlagThreshold {
		status = models.SessionFlagged
	}

	update := bson.M{"$set": bson.M{
		"status":      status,
		"finalScore":  finalScore,
		"submittedAt": primitive.NewDateTimeFromTime(time.Now()),
	}}
	if _, err := s.DB.UpdateOne(ctx, bson.M{"_id": sessionID, "status": models.SessionInProgress}, update); err != nil {
		return err
	}

	if status == models.SessionFlagged && s.Notifier != nil {
		flagged := *session
		flagged.Status = status
		flagged.FinalScore = finalScore
		go s.Notifier.NotifyFlagged(flagged, finalScore)
	}
	return nil
}

// SessionByIDHandler returns a session by ID
func (s Session) SessionByIDHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := s.DB.FindOne(ctx, bson.M{"_id": sessionID})
	if err != nil {
		config.ErrorStatus("failed to get session by ID", http.StatusNotFound, w, err)
		return
	}

	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

func (s Session) writeSubmitResponse(w http.ResponseWriter, finalScore float64, status, message string) {
	b, err := json.Marshal(models.SubmitSessionResponse{
		Success:         true,
		FinalCheatScore: finalScore,
		Status:          status,
		Message:         message,
	})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
