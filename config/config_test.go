package config

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	os.Setenv("DB_URI", "mongodb://127.0.0.1:27017")
	os.Setenv("DB_NAME", "test")
	conf := New()

	assert.NotEmpty(t, conf)
}

func TestNewPolicyDefaults(t *testing.T) {
	os.Unsetenv("SNAPSHOT_COOLDOWN")
	os.Unsetenv("SNAPSHOT_MIN_RUN")
	os.Unsetenv("FLAG_THRESHOLD")
	conf := New()

	assert.Equal(t, 10*time.Second, conf.SnapshotCooldown)
	assert.Equal(t, 3, conf.SnapshotMinRun)
	assert.Equal(t, float64(60), conf.FlagThreshold)
	assert.Equal(t, 10, conf.DecimationKeepRate)
	assert.Equal(t, 1, conf.TabGraceRecoveries)
}

func TestNewPolicyOverrides(t *testing.T) {
	os.Setenv("SNAPSHOT_COOLDOWN", "30s")
	os.Setenv("SNAPSHOT_MIN_RUN", "5")
	defer os.Unsetenv("SNAPSHOT_COOLDOWN")
	defer os.Unsetenv("SNAPSHOT_MIN_RUN")

	conf := New()

	assert.Equal(t, 30*time.Second, conf.SnapshotCooldown)
	assert.Equal(t, 5, conf.SnapshotMinRun)
}

func TestErrorStatus(t *testing.T) {

	ErrorStatus("error it borked", http.StatusBadRequest, httptest.NewRecorder(), errors.New("bad request"))
	assert.True(t, true)
}

func TestSetLoggerSetsDevelopmentLogger(t *testing.T) {
	l, err := setLogger("development")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(1))
}

func TestSetLoggerSetsProductionLogger(t *testing.T) {
	l, err := setLogger("production")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(2))
}

func TestSetLoggerSetsLocalLogger(t *testing.T) {
	l, err := setLogger("local")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(0))
}
