package models

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Credential is one entry of the fixed login table. The table is loaded
// once from config at startup and never reloaded.
type Credential struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// Identity is the resolved authentication state of a request.
type Identity struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// Authenticated reports whether the identity belongs to a logged-in user.
func (i Identity) Authenticated() bool {
	return i.Username != ""
}
