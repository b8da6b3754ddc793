package config

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/examshield/proctor-api/models"
)

// Config holds the project config values
type Config struct {
	URL          string
	DatabaseName string
	BaseURL      string
	Port         string

	ClassifierURL string
	RoomJWTSecret string

	// Monitoring policy knobs. Defaults follow the strictest revision of the
	// proctoring policy; all overridable via environment.
	FlushInterval      time.Duration
	DecimationKeepRate int
	SnapshotCooldown   time.Duration
	SnapshotMinRun     int
	SuspicionThreshold float64
	FlagThreshold      float64
	TabGraceRecoveries int
	IdleThreshold      time.Duration
	WatchdogTick       time.Duration
}

// New sets up all config related services
func New() *Config {

	//setup zap logger and replace default logger
	logger, err := setLogger(os.Getenv("APP_ENV"))
	if err != nil {
		logger = zap.NewExample()
	}
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)

	return &Config{
		URL:          os.Getenv("DB_URI"),
		DatabaseName: os.Getenv("DB_NAME"),
		BaseURL:      os.Getenv("BASE_URL"),
		Port:         os.Getenv("PORT"),

		ClassifierURL: envString("CLASSIFIER_WS_URL", "ws://localhost:8000/analyze"),
		RoomJWTSecret: os.Getenv("ROOM_JWT_SECRET"),

		FlushInterval:      envDuration("SCORE_FLUSH_INTERVAL", 3*time.Second),
		DecimationKeepRate: envInt("SCORE_DECIMATION_RATE", 10),
		SnapshotCooldown:   envDuration("SNAPSHOT_COOLDOWN", 10*time.Second),
		SnapshotMinRun:     envInt("SNAPSHOT_MIN_RUN", 3),
		SuspicionThreshold: envFloat("SUSPICION_THRESHOLD", 70),
		FlagThreshold:      envFloat("FLAG_THRESHOLD", 60),
		TabGraceRecoveries: envInt("TAB_GRACE_RECOVERIES", 1),
		IdleThreshold:      envDuration("IDLE_THRESHOLD", time.Second),
		WatchdogTick:       envDuration("WATCHDOG_TICK", 200*time.Millisecond),
	}

}

func setLogger(env string) (*zap.Logger, error) {
	switch env {
	case "production":
		return zap.NewProduction()
	case "development":
		return zap.NewDevelopment()
	default:
		return zap.NewExample(), nil
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With(err).Error(message)
	w.WriteHeader(httpStatusCode)
	b, _ := json.Marshal(models.ErrorMessageResponse{Response: models.MessageError{
		Message: message,
		Error:   err.Error(),
	}})
	w.Write(b)
}
