package types

// Role is the authorization level of an account.
type Role string

const (
	// RoleEndUser is the default role assigned at registration. End users
	// file tickets and interact with their own tickets.
	RoleEndUser Role = "ENDUSER"

	// RoleSupportUser is assigned to support staff who triage and answer
	// tickets from any end user.
	RoleSupportUser Role = "SUPPORTUSER"

	// RoleAdminUser has the same ticket visibility as support staff.
	RoleAdminUser Role = "ADMINUSER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleEndUser, RoleSupportUser, RoleAdminUser:
		return true
	}
	return false
}

// User represents a registered account.
//
// The email address is the canonical key; the username is a display name
// that is also expected to be unique at registration time.
type User struct {
	// Email is the canonical identifier of the account.
	Email string `json:"email" db:"email"`

	// Username is the unique display name chosen at registration.
	Username string `json:"username" db:"username"`

	// Role governs what ticket operations the account may perform.
	Role Role `json:"role" db:"role"`

	// PasswordHash stores the bcrypt digest of the account password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`
}
