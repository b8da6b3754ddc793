package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/examshield/proctor-api/api"
	"github.com/examshield/proctor-api/config"
	"github.com/examshield/proctor-api/databases"
	"github.com/examshield/proctor-api/models"
)

// Exam exported for testing purposes
type Exam struct {
	DB databases.ExamDatabase
}

// CreateExamHandler creates a new exam
func (e Exam) CreateExamHandler(w http.ResponseWriter, r *http.Request) {
	var exam models.Exam
	if err := json.NewDecoder(r.Body).Decode(&exam); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if exam.Title == "" {
		config.ErrorStatus("exam title is required", http.StatusBadRequest, w,
			fmt.Errorf("missing title"))
		return
	}
	if exam.EndTime <= exam.StartTime {
		config.ErrorStatus("exam end time must be after start time", http.StatusBadRequest, w,
			fmt.Errorf("startTime %v, endTime %v", exam.StartTime, exam.EndTime))
		return
	}

	exam.ID = primitive.NewObjectID()
	exam.CreatedAt = primitive.NewDateTimeFromTime(time.Now())

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := e.DB.InsertOne(ctx, exam); err != nil {
		config.ErrorStatus("failed to create exam", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Exam created successfully",
		"id":      exam.ID.Hex(),
		"exam":    exam,
	})
}

// ExamByIDHandler returns an exam by ID
func (e Exam) ExamByIDHandler(w http.ResponseWriter, r *http.Request) {
	examID := mux.Vars(r)["exam_id"]

	eID, err := primitive.ObjectIDFromHex(examID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := e.DB.FindOne(ctx, bson.M{"_id": eID})
	if err != nil {
		config.ErrorStatus("failed to get exam by ID", http.StatusNotFound, w, err)
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

// ExamsHandler returns all exams, newest first
func (e Exam) ExamsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	opts := options.Find().SetSort(bson.M{"_id": -1})

	dbResp, err := e.DB.Find(ctx, bson.D{}, opts)
	if err != nil {
		config.ErrorStatus("failed to get exams", http.StatusNotFound, w, err)
		return
	}

	if len(dbResp) == 0 {
		dbResp = []models.Exam{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
