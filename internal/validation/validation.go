package validation

import (
	"regexp"
	"strings"

	"github.com/drshelkeabhijeet/Studentattendance/internal/model"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9\s\-()]{10,}$`)
	lowerPattern = regexp.MustCompile(`[a-z]`)
	upperPattern = regexp.MustCompile(`[A-Z]`)
	digitPattern = regexp.MustCompile(`[0-9]`)
)

// ValidateLogin checks a login form and returns every field error at once.
// Callers render all messages together, so there is no short-circuit.
func ValidateLogin(form model.LoginForm) model.FormErrors {
	errs := model.FormErrors{}

	validateEmail(errs, form.Email)

	if strings.TrimSpace(form.Password) == "" {
		errs["password"] = "Password is required"
	} else if len(form.Password) < 6 {
		errs["password"] = "Password must be at least 6 characters long"
	}

	validateRole(errs, form.Role)

	return errs
}

// ValidateSignup checks a signup form. Same accumulation contract as
// ValidateLogin; role-dependent id requirements follow the registration rules
// (employee id for faculty and administrators, student id for students).
func ValidateSignup(form model.SignupForm) model.FormErrors {
	errs := model.FormErrors{}

	if name := strings.TrimSpace(form.FullName); name == "" {
		errs["fullName"] = "Full name is required"
	} else if len(name) < 2 {
		errs["fullName"] = "Full name must be at least 2 characters"
	}

	validateEmail(errs, form.Email)

	if strings.TrimSpace(form.Password) == "" {
		errs["password"] = "Password is required"
	} else if len(form.Password) < 8 {
		errs["password"] = "Password must be at least 8 characters long"
	} else if !lowerPattern.MatchString(form.Password) ||
		!upperPattern.MatchString(form.Password) ||
		!digitPattern.MatchString(form.Password) {
		errs["password"] = "Password must contain at least one lowercase letter, one uppercase letter, and one number"
	}

	if form.ConfirmPassword == "" {
		errs["confirmPassword"] = "Please confirm your password"
	} else if form.ConfirmPassword != form.Password {
		errs["confirmPassword"] = "Passwords do not match"
	}

	role, ok := model.ParseRole(form.Role)
	validateRole(errs, form.Role)
	if ok {
		switch role {
		case model.RoleFaculty, model.RoleAdministrator:
			if strings.TrimSpace(form.EmployeeID) == "" {
				errs["employeeId"] = "Employee ID is required"
			}
		case model.RoleStudent:
			if strings.TrimSpace(form.StudentID) == "" {
				errs["studentId"] = "Student ID is required"
			}
		}
	}

	if phone := strings.TrimSpace(form.Phone); phone != "" && !phonePattern.MatchString(phone) {
		errs["phone"] = "Please enter a valid phone number"
	}

	return errs
}

func validateEmail(errs model.FormErrors, email string) {
	if strings.TrimSpace(email) == "" {
		errs["email"] = "Email address is required"
	} else if !emailPattern.MatchString(email) {
		errs["email"] = "Please enter a valid email address"
	}
}

func validateRole(errs model.FormErrors, role string) {
	if role == "" {
		errs["role"] = "Please select your role"
	} else if _, ok := model.ParseRole(role); !ok {
		errs["role"] = "Please select your role"
	}
}
