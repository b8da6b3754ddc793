package models

// User holds the structure for the users collection in mongo
type User struct {
	ID      string      `json:"_id" bson:"_id"`
	Details UserDetails `json:"user" bson:"user"`
}

// UserDetails holds the structure for the inner user structure as defined in
// the users collection in mongo
type UserDetails struct {
	Email    string `json:"email" bson:"email"`
	Password string `json:"password" bson:"password"`
	FullName string `json:"fullName" bson:"fullName"`
	Role     string `json:"role" bson:"role"` // "student" or "observer"
}
