package entity

// Role describes what a user is allowed to do on the marketplace.
type Role string

const (
	RoleBuyer   Role = "buyer"
	RoleSeller  Role = "seller"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleManager, RoleAdmin:
		return true
	default:
		return false
	}
}

// String returns the role as a plain string.
func (r Role) String() string {
	return string(r)
}
