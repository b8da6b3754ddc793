package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/examshield/proctor-api/api"
	"github.com/examshield/proctor-api/config"
	"github.com/examshield/proctor-api/databases"
	"github.com/examshield/proctor-api/models"
)

// Evidence exported for testing purposes
type Evidence struct {
	SnapDB  databases.SnapshotDatabase
	ScoreDB databases.ScoreDatabase
}

// SnapshotsBySessionIDHandler returns a session's evidentiary snapshots,
// newest first.
func (e Evidence) SnapshotsBySessionIDHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	opts := options.Find().SetSort(bson.M{"capturedAt": -1})

	dbResp, err := e.SnapDB.Find(ctx, bson.M{"sessionID": sessionID}, opts)
	if err != nil {
		config.ErrorStatus("failed to get snapshots", http.StatusNotFound, w, err)
		return
	}

	if len(dbResp) == 0 {
		dbResp = []models.Snapshot{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ScoresBySessionIDHandler returns a session's persisted score samples in
// chronological order.
func (e Evidence) ScoresBySessionIDHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session_id"]

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 1000
	}
	limit64 := int64(limit)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	opts := options.Find().
		SetLimit(limit64).
		SetSort(bson.M{"timestamp": 1})

	dbResp, err := e.ScoreDB.Find(ctx, bson.M{"sessionID": sessionID}, opts)
	if err != nil {
		config.ErrorStatus("failed to get score samples", http.StatusNotFound, w, err)
		return
	}

	if len(dbResp) == 0 {
		dbResp = []models.ScoreSample{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
