package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/examshield/proctor-api/api/handlers"
	mocksdb "github.com/examshield/proctor-api/databases/mocks"
	"github.com/examshield/proctor-api/models"
	"github.com/examshield/proctor-api/monitor"
)

func TestLeaderboard_LeaderboardHandlerSuccess(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/leaderboard", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer abc123")

	sessions := &mocksdb.SessionDatabase{}
	scores := &mocksdb.ScoreDatabase{}

	sessions.On("Find", mock.Anything, bson.M{"status": models.SessionInProgress}).
		Return([]models.Session{
			{ID: "sess-1", StudentID: "stu-1", ExamID: "exam-1", Status: models.SessionInProgress},
		}, nil)
	scores.On("Find", mock.Anything, bson.M{"sessionID": "sess-1"}).
		Return([]models.ScoreSample{
			{SessionID: "sess-1", Score: 90, Confidence: 80, Alerts: []string{"phone_detected"}},
			{SessionID: "sess-1", Score: 80, Confidence: 80},
		}, nil)

	lb := handlers.Leaderboard{Agg: monitor.NewAggregator(sessions, scores)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(lb.LeaderboardHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var entries []models.LeaderboardEntry
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entries))
	assert.Len(t, entries, 1)
	assert.Equal(t, "sess-1", entries[0].SessionID)
	assert.InDelta(t, 85, entries[0].MeanScore, 0.0001)
	assert.Equal(t, models.RiskCritical, entries[0].RiskTier)
}

func TestLeaderboard_LeaderboardHandlerEmptyIsJSONArray(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/leaderboard", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer abc123")

	sessions := &mocksdb.SessionDatabase{}
	scores := &mocksdb.ScoreDatabase{}
	sessions.On("Find", mock.Anything, mock.Anything).Return(nil, nil)

	lb := handlers.Leaderboard{Agg: monitor.NewAggregator(sessions, scores)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(lb.LeaderboardHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", rr.Body.String())
}

func TestLeaderboard_LeaderboardHandlerError(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/leaderboard", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer abc123")

	sessions := &mocksdb.SessionDatabase{}
	scores := &mocksdb.ScoreDatabase{}
	sessions.On("Find", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

	lb := handlers.Leaderboard{Agg: monitor.NewAggregator(sessions, scores)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(lb.LeaderboardHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
