package model

// SessionRole determines the direction of board synchronization
type SessionRole string

const (
	RoleHost   SessionRole = "HOST"
	RoleViewer SessionRole = "VIEWER"
)

func (r SessionRole) String() string {
	return string(r)
}

// Valid reports whether the role is one of the known values
func (r SessionRole) Valid() bool {
	return r == RoleHost || r == RoleViewer
}
