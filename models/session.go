package models

type Role string

const (
	RoleGuest Role = "guest"
	RoleAdmin Role = "admin"
)

// Session is passed explicitly to every mutation; it is never global.
type Session struct {
	ViewerID string `json:"viewerId"`
	Role     Role   `json:"role"`
}

func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}
