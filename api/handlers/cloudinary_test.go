package handlers_test

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/examshield/proctor-api/api/handlers"
)

func TestCloudinary_GenerateSignature(t *testing.T) {
	t.Setenv("CLOUDINARY_UPLOAD_PRESET", "proctor-snapshots")
	t.Setenv("CLOUDINARY_API_SECRET", "test-secret")

	req, err := http.NewRequest("POST", "/api/v1/generate-signature", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer abc123")

	c := handlers.CloudinaryHandler{}

	rr := httptest.NewRecorder()
	http.HandlerFunc(c.GenerateSignature).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["timestamp"])

	h := hmac.New(sha1.New, []byte("test-secret"))
	h.Write([]byte("timestamp=" + resp["timestamp"] + "&upload_preset=proctor-snapshots"))
	assert.Equal(t, hex.EncodeToString(h.Sum(nil)), resp["signature"])
}
