package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/examshield/proctor-api/api"
	"github.com/examshield/proctor-api/config"
	"github.com/examshield/proctor-api/models"
	"github.com/examshield/proctor-api/monitor"
)

// Leaderboard exported for testing purposes
type Leaderboard struct {
	Agg *monitor.Aggregator
}

// LeaderboardHandler returns the ranked risk view over all in-progress
// sessions for the observer dashboard, optionally scoped to one exam via the
// exam_id query parameter.
func (l Leaderboard) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	entries, err := l.Agg.Leaderboard(ctx, r.URL.Query().Get("exam_id"))
	if err != nil {
		config.ErrorStatus("failed to build leaderboard", http.StatusInternalServerError, w, err)
		return
	}

	if len(entries) == 0 {
		entries = []models.LeaderboardEntry{}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
