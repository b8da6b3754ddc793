package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/examshield/proctor-api/api/handlers"
	"github.com/examshield/proctor-api/databases"
	mocksdb "github.com/examshield/proctor-api/databases/mocks"
	"github.com/examshield/proctor-api/models"
)

func userCreateBody(t *testing.T, details models.UserDetails) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(details)
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewBuffer(b)
}

func userMocks(existing []models.User) *mocksdb.DatabaseHelper {
	db := &mocksdb.DatabaseHelper{}
	conn := &mocksdb.CollectionHelper{}
	cursor := &mocksdb.CursorHelper{}

	cursor.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*[]models.User)
		*arg = existing
	})
	conn.On("Find", mock.Anything, mock.Anything).Return(cursor)
	conn.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)
	db.On("Collection", "users").Return(conn)

	return db
}

func TestUser_UserCreateHandlerSuccess(t *testing.T) {
	body := userCreateBody(t, models.UserDetails{
		Email:    "student@example.com",
		Password: "hunter22",
		FullName: "Sam Student",
	})
	req, err := http.NewRequest("POST", "/api/v1/user/create-user", body)
	if err != nil {
		t.Fatal(err)
	}

	db := userMocks(nil)
	u := handlers.User{DB: databases.NewUserDatabase(db)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(u.UserCreateHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)

	var resp map[string]string
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "User created successfully", resp["message"])
	assert.NotEmpty(t, resp["_id"])
	assert.Equal(t, "student", resp["role"])
}

func TestUser_UserCreateHandlerDuplicateEmail(t *testing.T) {
	body := userCreateBody(t, models.UserDetails{
		Email:    "student@example.com",
		Password: "hunter22",
	})
	req, err := http.NewRequest("POST", "/api/v1/user/create-user", body)
	if err != nil {
		t.Fatal(err)
	}

	db := userMocks([]models.User{{ID: "user-1"}})
	u := handlers.User{DB: databases.NewUserDatabase(db)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(u.UserCreateHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestUser_UserCreateHandlerRejectsUnknownRole(t *testing.T) {
	body := userCreateBody(t, models.UserDetails{
		Email:    "student@example.com",
		Password: "hunter22",
		Role:     "admin",
	})
	req, err := http.NewRequest("POST", "/api/v1/user/create-user", body)
	if err != nil {
		t.Fatal(err)
	}

	u := handlers.User{}

	rr := httptest.NewRecorder()
	http.HandlerFunc(u.UserCreateHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUser_UserCreateHandlerMissingFields(t *testing.T) {
	body := userCreateBody(t, models.UserDetails{Email: "student@example.com"})
	req, err := http.NewRequest("POST", "/api/v1/user/create-user", body)
	if err != nil {
		t.Fatal(err)
	}

	u := handlers.User{}

	rr := httptest.NewRecorder()
	http.HandlerFunc(u.UserCreateHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUser_UserCheckEmailHandler(t *testing.T) {
	tests := []struct {
		name     string
		existing []models.User
		expected bool
	}{
		{name: "registered email", existing: []models.User{{ID: "user-1"}}, expected: true},
		{name: "unknown email", existing: nil, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := bytes.NewBufferString(`{"email": "student@example.com"}`)
			req, err := http.NewRequest("POST", "/api/v1/user/check-user", body)
			if err != nil {
				t.Fatal(err)
			}

			db := userMocks(tt.existing)
			u := handlers.User{DB: databases.NewUserDatabase(db)}

			rr := httptest.NewRecorder()
			http.HandlerFunc(u.UserCheckEmailHandler).ServeHTTP(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code)

			var resp map[string]bool
			assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.expected, resp["exists"])
		})
	}
}

func TestUser_UserHandlerRedactsPassword(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/user/user-1", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"user_id": "user-1"})
	req.Header.Set("Authorization", "Bearer abc123")

	db := &mocksdb.DatabaseHelper{}
	conn := &mocksdb.CollectionHelper{}
	result := &mocksdb.SingleResultHelper{}
	result.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.User)
		(*arg).ID = "user-1"
		(*arg).Details = models.UserDetails{
			Email:    "student@example.com",
			Password: "$2a$10$secret-hash",
			FullName: "Sam Student",
			Role:     "student",
		}
	})
	conn.On("FindOne", mock.Anything, mock.Anything).Return(result)
	db.On("Collection", "users").Return(conn)

	u := handlers.User{DB: databases.NewUserDatabase(db)}

	rr := httptest.NewRecorder()
	http.HandlerFunc(u.UserHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var user models.User
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &user))
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, "student@example.com", user.Details.Email)
	assert.Empty(t, user.Details.Password)
}
