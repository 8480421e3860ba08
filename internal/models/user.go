package models

// Role is the authorization role of a platform user.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// UserStatus indicates whether a user account is active on the platform.
type UserStatus string

const (
	UserEnabled  UserStatus = "ENABLED"
	UserDisabled UserStatus = "DISABLED"
)

// User represents a platform user. Only Email is used for messaging
// addressing; the rest of the fields mirror the platform's user resource.
type User struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Password  string     `json:"password,omitempty"`
	Role      Role       `json:"role,omitempty"`
	Status    UserStatus `json:"status,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
}

// DisplayName returns the "LastName FirstName" form used in message alerts.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	return u.LastName + " " + u.FirstName
}

// AccountCredentials is the payload of the login endpoint.
type AccountCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
