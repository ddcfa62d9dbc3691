package models

import (
	"time"
)

// User represents a user known to the service. Users are owned by the
// authentication collaborator; the core only reads them.
type User struct {
	ID        string    `json:"id" db:"id" bson:"_id"`
	Email     string    `json:"email" db:"email" bson:"email"`
	Name      string    `json:"name" db:"name" bson:"name"`
	Avatar    string    `json:"avatar" db:"avatar" bson:"avatar"`
	Role      string    `json:"role" db:"role" bson:"role"`
	Active    bool      `json:"active" db:"active" bson:"active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at" bson:"updated_at"`
}

const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// DefaultAvatar is used when a user has not uploaded one
const DefaultAvatar = "default-avatar.jpg"

// ValidRoles defines allowed user roles
var ValidRoles = map[string]bool{
	RoleAdmin:  true,
	RoleEditor: true,
	RoleViewer: true,
}

// Summary returns the public author data of the user
func (u *User) Summary() *AuthorSummary {
	avatar := u.Avatar
	if avatar == "" {
		avatar = DefaultAvatar
	}
	return &AuthorSummary{ID: u.ID, Name: u.Name, Avatar: avatar}
}

// Subject is the authenticated actor of a request
type Subject struct {
	ID   string
	Role string
}
