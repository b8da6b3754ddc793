package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"

	"github.com/examshield/proctor-api/api"
	"github.com/examshield/proctor-api/config"
	"github.com/examshield/proctor-api/databases"
	"github.com/examshield/proctor-api/models"
)

// User exported for testing purposes
type User struct {
	DB databases.UserDatabase
}

// UserCreateHandler creates a user with a bcrypt-hashed password
func (u User) UserCreateHandler(w http.ResponseWriter, r *http.Request) {
	var details models.UserDetails
	if err := json.NewDecoder(r.Body).Decode(&details); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if details.Email == "" || details.Password == "" {
		config.ErrorStatus("email and password are required", http.StatusBadRequest, w,
			fmt.Errorf("missing required fields"))
		return
	}
	switch details.Role {
	case "student", "observer":
	case "":
		details.Role = "student"
	default:
		config.ErrorStatus("invalid role", http.StatusBadRequest, w,
			fmt.Errorf("role must be student or observer, got %q", details.Role))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	existing, err := u.DB.Find(ctx, bson.M{"user.email": details.Email})
	if err == nil && len(existing) > 0 {
		config.ErrorStatus("email already registered", http.StatusConflict, w,
			fmt.Errorf("user with email %s already exists", details.Email))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(details.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}
	details.Password = string(hashed)

	user := models.User{
		ID:      uuid.New().String(),
		Details: details,
	}
	if _, err := u.DB.InsertOne(ctx, user); err != nil {
		config.ErrorStatus("failed to create user", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"message": "User created successfully",
		"_id":     user.ID,
		"role":    user.Details.Role,
	})
}

// UserCheckEmailHandler reports whether an email is already registered
func (u User) UserCheckEmailHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	existing, err := u.DB.Find(ctx, bson.M{"user.email": body.Email})
	if err != nil {
		config.ErrorStatus("failed to check email", http.StatusInternalServerError, w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]bool{"exists": len(existing) > 0})
}

// UserHandler returns a user given a userID. The password hash never leaves
// the service.
func (u User) UserHandler(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := u.DB.FindOne(ctx, bson.M{"_id": userID})
	if err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
		return
	}

	dbResp.Details.Password = ""
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
