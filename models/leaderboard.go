package models

// Risk tier labels for the live leaderboard.
const (
	RiskCritical = "CRITICAL"
	RiskHigh     = "HIGH"
	RiskMedium   = "MEDIUM"
	RiskLow      = "LOW"
)

// LeaderboardEntry is one in-progress session in the observer's ranked risk
// view. MeanScore is the plain arithmetic mean of the session's persisted
// suspicion samples; it is deliberately NOT the confidence-weighted final
// score computed at submission. The two formulas coexist on purpose.
type LeaderboardEntry struct {
	SessionID  string   `json:"session_id"`
	StudentID  string   `json:"student_id"`
	ExamID     string   `json:"exam_id"`
	MeanScore  float64  `json:"mean_score"`
	RiskTier   string   `json:"risk_tier"`
	Alerts     []string `json:"alerts"`
	SampleSize int      `json:"sample_size"`
}
