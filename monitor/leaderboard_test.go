package monitor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/examshield/proctor-api/databases/mocks"
	"github.com/examshield/proctor-api/models"
)

func TestLeaderboardRanksAndTiers(t *testing.T) {
	sessions := &mocks.SessionDatabase{}
	scores := &mocks.ScoreDatabase{}

	sessions.On("Find", mock.Anything, bson.M{"status": models.SessionInProgress}).
		Return([]models.Session{
			{ID: "sess-a", StudentID: "stu-1", ExamID: "exam-1", Status: models.SessionInProgress},
			{ID: "sess-b", StudentID: "stu-2", ExamID: "exam-1", Status: models.SessionInProgress},
			{ID: "sess-c", StudentID: "stu-3", ExamID: "exam-1", Status: models.SessionInProgress},
		}, nil)

	scores.On("Find", mock.Anything, bson.M{"sessionID": "sess-a"}).
		Return([]models.ScoreSample{
			{Score: 90, Confidence: 10, Alerts: []string{"no_face"}},
			{Score: 80, Confidence: 90, Alerts: []string{"phone_detected", "no_face"}},
		}, nil)
	scores.On("Find", mock.Anything, bson.M{"sessionID": "sess-b"}).
		Return([]models.ScoreSample{
			{Score: 50, Confidence: 80},
			{Score: 40, Confidence: 80},
		}, nil)
	scores.On("Find", mock.Anything, bson.M{"sessionID": "sess-c"}).
		Return([]models.ScoreSample{}, nil)

	agg := NewAggregator(sessions, scores)
	entries, err := agg.Leaderboard(context.Background(), "")
	assert.NoError(t, err)
	assert.Len(t, entries, 3)

	// Mean is unweighted: confidence never enters the leaderboard formula.
	assert.Equal(t, "sess-a", entries[0].SessionID)
	assert.InDelta(t, 85, entries[0].MeanScore, 0.0001)
	assert.Equal(t, models.RiskCritical, entries[0].RiskTier)
	assert.Equal(t, []string{"no_face", "phone_detected"}, entries[0].Alerts)
	assert.Equal(t, 2, entries[0].SampleSize)

	assert.Equal(t, "sess-b", entries[1].SessionID)
	assert.InDelta(t, 45, entries[1].MeanScore, 0.0001)
	assert.Equal(t, models.RiskMedium, entries[1].RiskTier)

	// A session with no persisted samples still appears, at zero.
	assert.Equal(t, "sess-c", entries[2].SessionID)
	assert.Zero(t, entries[2].MeanScore)
	assert.Equal(t, models.RiskLow, entries[2].RiskTier)
	assert.Empty(t, entries[2].Alerts)
}

func TestLeaderboardTieBreaksBySessionID(t *testing.T) {
	sessions := &mocks.SessionDatabase{}
	scores := &mocks.ScoreDatabase{}

	sessions.On("Find", mock.Anything, mock.Anything).
		Return([]models.Session{
			{ID: "sess-z", Status: models.SessionInProgress},
			{ID: "sess-a", Status: models.SessionInProgress},
		}, nil)
	scores.On("Find", mock.Anything, bson.M{"sessionID": "sess-z"}).
		Return([]models.ScoreSample{{Score: 65, Confidence: 80}}, nil)
	scores.On("Find", mock.Anything, bson.M{"sessionID": "sess-a"}).
		Return([]models.ScoreSample{{Score: 65, Confidence: 20}}, nil)

	agg := NewAggregator(sessions, scores)

	first, err := agg.Leaderboard(context.Background(), "")
	assert.NoError(t, err)
	assert.Equal(t, "sess-a", first[0].SessionID)
	assert.Equal(t, "sess-z", first[1].SessionID)
	assert.Equal(t, models.RiskHigh, first[0].RiskTier)

	// Recomputing over unchanged data yields the identical ordering.
	second, err := agg.Leaderboard(context.Background(), "")
	assert.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLeaderboardFiltersByExam(t *testing.T) {
	sessions := &mocks.SessionDatabase{}
	scores := &mocks.ScoreDatabase{}

	sessions.On("Find", mock.Anything, bson.M{"status": models.SessionInProgress, "examID": "exam-1"}).
		Return([]models.Session{
			{ID: "sess-a", ExamID: "exam-1", Status: models.SessionInProgress},
		}, nil)
	scores.On("Find", mock.Anything, bson.M{"sessionID": "sess-a"}).
		Return([]models.ScoreSample{{Score: 30, Confidence: 50}}, nil)

	agg := NewAggregator(sessions, scores)
	entries, err := agg.Leaderboard(context.Background(), "exam-1")
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "exam-1", entries[0].ExamID)
}

func TestLeaderboardSkipsUnreadableSession(t *testing.T) {
	sessions := &mocks.SessionDatabase{}
	scores := &mocks.ScoreDatabase{}

	sessions.On("Find", mock.Anything, mock.Anything).
		Return([]models.Session{
			{ID: "sess-ok", Status: models.SessionInProgress},
			{ID: "sess-bad", Status: models.SessionInProgress},
		}, nil)
	scores.On("Find", mock.Anything, bson.M{"sessionID": "sess-ok"}).
		Return([]models.ScoreSample{{Score: 20, Confidence: 50}}, nil)
	scores.On("Find", mock.Anything, bson.M{"sessionID": "sess-bad"}).
		Return(nil, errors.New("mocked-error"))

	agg := NewAggregator(sessions, scores)
	entries, err := agg.Leaderboard(context.Background(), "")
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "sess-ok", entries[0].SessionID)
}

func TestLeaderboardSessionQueryError(t *testing.T) {
	sessions := &mocks.SessionDatabase{}
	scores := &mocks.ScoreDatabase{}
	sessions.On("Find", mock.Anything, mock.Anything).
		Return(nil, errors.New("mocked-error"))

	agg := NewAggregator(sessions, scores)
	entries, err := agg.Leaderboard(context.Background(), "")
	assert.Error(t, err)
	assert.Nil(t, entries)
}
