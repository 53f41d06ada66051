package model

import "time"

type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleFaculty       Role = "faculty"
	RoleStudent       Role = "student"
)

func ParseRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleAdministrator, RoleFaculty, RoleStudent:
		return Role(value), true
	default:
		return "", false
	}
}

// Identity is the credential-layer principal managed by the identity service,
// independent of the application profile.
type Identity struct {
	ID               string
	Email            string
	EmailConfirmedAt *time.Time
}

// Session is an active credential grant linking this gateway to an Identity.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Identity     Identity
}

func (s *Session) Expired(now time.Time) bool {
	return s == nil || !s.ExpiresAt.After(now)
}

// Profile is the application-level record keyed by identity id.
type Profile struct {
	ID         string
	Email      string
	FullName   string
	Role       Role
	EmployeeID *string
	StudentID  *string
	Department string
	Phone      *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FormErrors maps field names to user-facing messages. Absence of a key means
// the field is valid. Non-field failures use the "general" key.
type FormErrors map[string]string

const FieldGeneral = "general"

func (e FormErrors) Empty() bool {
	return len(e) == 0
}

type LoginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type SignupForm struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	FullName        string `json:"fullName"`
	Role            string `json:"role"`
	EmployeeID      string `json:"employeeId,omitempty"`
	StudentID       string `json:"studentId,omitempty"`
	Department      string `json:"department,omitempty"`
	Phone           string `json:"phone,omitempty"`
}
