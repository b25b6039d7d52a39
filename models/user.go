package models

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the kind of account a user holds
type Role string

// Roles a user can sign up with
const (
	RoleParent    Role = "parent"
	RoleCommunity Role = "community"
	RoleAdmin     Role = "admin"
)

// Roles lists every valid role
var Roles = []Role{RoleParent, RoleCommunity, RoleAdmin}

// ParseRole returns the role for s or an error when s is not a known role
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// UnmarshalJSON rejects roles outside the closed set
func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// User holds the structure for the users collection in mongo. It is the
// application profile row that sits beside an Identity.
type User struct {
	ID        primitive.ObjectID `json:"id" bson:"_id"`
	Email     string             `json:"email" bson:"email"`
	Phone     string             `json:"phone" bson:"phone"`
	Name      string             `json:"name" bson:"name"`
	Role      Role               `json:"role" bson:"role"`
	Tokens    int                `json:"tokens" bson:"tokens"`
	CreatedAt primitive.DateTime `json:"createdAt" bson:"created_at"`
}

// Identity holds the credentials for a user in the identities collection
type Identity struct {
	ID           primitive.ObjectID `json:"id" bson:"_id"`
	Email        string             `json:"email" bson:"email"`
	Phone        string             `json:"phone" bson:"phone"`
	PasswordHash string             `json:"-" bson:"password_hash"`
	CreatedAt    primitive.DateTime `json:"createdAt" bson:"created_at"`
}

// InitialTokens is the balance a new profile is seeded with for the given role
func InitialTokens(role Role) int {
	if role == RoleCommunity {
		return 50
	}
	return 100
}
