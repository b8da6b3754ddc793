package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/examshield/proctor-api/api/handlers"
	"github.com/examshield/proctor-api/databases"
	mocksdb "github.com/examshield/proctor-api/databases/mocks"
	"github.com/examshield/proctor-api/models"
)

func examBody(t *testing.T, exam models.Exam) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(exam)
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewBuffer(b)
}

func TestExam_CreateExamHandlerSuccess(t *testing.T) {
	now := time.Now()
	body := examBody(t, models.Exam{
		Title:     "Algorithms Midterm",
		StartTime: primitive.NewDateTimeFromTime(now),
		EndTime:   primitive.NewDateTimeFromTime(now.Add(2 * time.Hour)),
	})
	req, err := http.NewRequest("POST", "/api/v1/exam", body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer abc123")

	db := &mocksdb.DatabaseHelper{}
	conn := &mocksdb.CollectionHelper{}
	conn.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)
	db.On("Collection", "exams").Return(conn)

	e := handlers.Exam{DB: databases.NewExamDatabase(db)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(e.CreateExamHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Exam created successfully", resp["message"])
	assert.NotEmpty(t, resp["id"])
}

func TestExam_CreateExamHandlerRejectsMissingTitle(t *testing.T) {
	now := time.Now()
	body := examBody(t, models.Exam{
		StartTime: primitive.NewDateTimeFromTime(now),
		EndTime:   primitive.NewDateTimeFromTime(now.Add(time.Hour)),
	})
	req, err := http.NewRequest("POST", "/api/v1/exam", body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer abc123")

	e := handlers.Exam{}

	rr := httptest.NewRecorder()
	http.HandlerFunc(e.CreateExamHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExam_CreateExamHandlerRejectsInvertedWindow(t *testing.T) {
	now := time.Now()
	body := examBody(t, models.Exam{
		Title:     "Algorithms Midterm",
		StartTime: primitive.NewDateTimeFromTime(now.Add(time.Hour)),
		EndTime:   primitive.NewDateTimeFromTime(now),
	})
	req, err := http.NewRequest("POST", "/api/v1/exam", body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer abc123")

	e := handlers.Exam{}

	rr := httptest.NewRecorder()
	http.HandlerFunc(e.CreateExamHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExam_ExamByIDHandlerSuccess(t *testing.T) {
	examID := primitive.NewObjectID()
	req, err := http.NewRequest("GET", "/api/v1/exam/"+examID.Hex(), nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"exam_id": examID.Hex()})
	req.Header.Set("Authorization", "Bearer abc123")

	db := &mocksdb.DatabaseHelper{}
	conn := &mocksdb.CollectionHelper{}
	result := &mocksdb.SingleResultHelper{}
	result.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Exam)
		(*arg).ID = examID
		(*arg).Title = "Algorithms Midterm"
	})
	conn.On("FindOne", mock.Anything, mock.Anything).Return(result)
	db.On("Collection", "exams").Return(conn)

	e := handlers.Exam{DB: databases.NewExamDatabase(db)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(e.ExamByIDHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var exam models.Exam
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &exam))
	assert.Equal(t, "Algorithms Midterm", exam.Title)
}

func TestExam_ExamByIDHandlerBadHex(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/exam/not-a-hex", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"exam_id": "not-a-hex"})
	req.Header.Set("Authorization", "Bearer abc123")

	e := handlers.Exam{}

	rr := httptest.NewRecorder()
	http.HandlerFunc(e.ExamByIDHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExam_ExamsHandlerEmptyIsJSONArray(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/exams", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer abc123")

	db := &mocksdb.DatabaseHelper{}
	conn := &mocksdb.CollectionHelper{}
	cursor := &mocksdb.CursorHelper{}
	cursor.On("Decode", mock.Anything).Return(nil)
	conn.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(cursor)
	db.On("Collection", "exams").Return(conn)

	e := handlers.Exam{DB: databases.NewExamDatabase(db)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(e.ExamsHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", rr.Body.String())
}

func TestExam_ExamsHandlerFindError(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/exams", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer abc123")

	db := &mocksdb.DatabaseHelper{}
	conn := &mocksdb.CollectionHelper{}
	cursor := &mocksdb.CursorHelper{}
	cursor.On("Decode", mock.Anything).Return(errors.New("cursor exhausted"))
	conn.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(cursor)
	db.On("Collection", "exams").Return(conn)

	e := handlers.Exam{DB: databases.NewExamDatabase(db)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(e.ExamsHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)

	var errResp models.ErrorMessageResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &errResp))
	assert.Equal(t, "failed to get exams", errResp.Response.Message)
}
