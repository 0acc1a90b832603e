package models

// Roles a user may hold. The token audience carries the role.
const (
	RoleUser      = "user"
	RoleGuide     = "guide"
	RoleLeadGuide = "lead-guide"
	RoleAdmin     = "admin"
)

var Roles = []string{RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin}

// User is a row of the users collection. Password holds the bcrypt hash.
type User struct {
	ID                string  `json:"id"`
	Email             string  `json:"email"`
	Password          string  `json:"password,omitempty"`
	Name              *string `json:"name"`
	Role              string  `json:"role,omitempty"`
	ResetToken        string  `json:"resetToken,omitempty"`
	ResetTokenExpires string  `json:"resetTokenExpires,omitempty"`
}

// RedactedUser is the only user shape returned by login and profile.
type RedactedUser struct {
	ID    string  `json:"id"`
	Name  *string `json:"name"`
	Email string  `json:"email"`
}

func (u *User) Redacted() RedactedUser {
	return RedactedUser{ID: u.ID, Name: u.Name, Email: u.Email}
}
