package models

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Actor is the caller identity carried by a bearer credential. The
// authorization policy consumes exactly these two fields and nothing else.
type Actor struct {
	UserID string `json:"user_id" yaml:"user_id"`
	Role   string `json:"role" yaml:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Authenticated reports whether the actor was resolved from a valid
// credential.
func (a Actor) Authenticated() bool {
	return a.UserID != ""
}
