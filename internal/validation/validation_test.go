package validation

import (
	"reflect"
	"testing"

	"github.com/drshelkeabhijeet/Studentattendance/internal/model"
)

func TestValidateLoginValidForms(t *testing.T) {
	forms := []model.LoginForm{
		{Email: "a@b.com", Password: "secret1", Role: "student"},
		{Email: "jane.doe@university.edu", Password: "longenough", Role: "faculty"},
		{Email: "admin@campus.org", Password: "123456", Role: "administrator"},
	}
	for _, form := range forms {
		if errs := ValidateLogin(form); !errs.Empty() {
			t.Fatalf("expected no errors for %s, got %v", form.Email, errs)
		}
	}
}

func TestValidateLoginFieldErrors(t *testing.T) {
	cases := map[string]struct {
		form  model.LoginForm
		field string
	}{
		"missing email":   {model.LoginForm{Password: "secret1", Role: "student"}, "email"},
		"malformed email": {model.LoginForm{Email: "not-an-email", Password: "secret1", Role: "student"}, "email"},
		"no tld":          {model.LoginForm{Email: "a@b", Password: "secret1", Role: "student"}, "email"},
		"short password":  {model.LoginForm{Email: "a@b.com", Password: "short", Role: "student"}, "password"},
		"empty password":  {model.LoginForm{Email: "a@b.com", Role: "student"}, "password"},
		"missing role":    {model.LoginForm{Email: "a@b.com", Password: "secret1"}, "role"},
		"unknown role":    {model.LoginForm{Email: "a@b.com", Password: "secret1", Role: "dean"}, "role"},
	}
	for name, tc := range cases {
		errs := ValidateLogin(tc.form)
		if errs[tc.field] == "" {
			t.Fatalf("%s: expected %s error, got %v", name, tc.field, errs)
		}
	}
}

func TestValidateLoginAccumulates(t *testing.T) {
	errs := ValidateLogin(model.LoginForm{})
	for _, field := range []string{"email", "password", "role"} {
		if errs[field] == "" {
			t.Fatalf("expected %s error on empty form, got %v", field, errs)
		}
	}
}

func TestValidateSignupValid(t *testing.T) {
	form := model.SignupForm{
		Email:           "s.kumar@university.edu",
		Password:        "Sunrise42x",
		ConfirmPassword: "Sunrise42x",
		FullName:        "S Kumar",
		Role:            "student",
		StudentID:       "STU-2024-0042",
		Department:      "Computer Science",
		Phone:           "+1 (555) 010-2200",
	}
	if errs := ValidateSignup(form); !errs.Empty() {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidateSignupAccumulatesIndependently(t *testing.T) {
	// fullName missing and confirm mismatch at the same time: both must be
	// reported, neither masks the other.
	form := model.SignupForm{
		Email:           "a@b.com",
		Password:        "Sunrise42x",
		ConfirmPassword: "different",
		Role:            "faculty",
		EmployeeID:      "EMP-9",
	}
	errs := ValidateSignup(form)
	if errs["fullName"] == "" {
		t.Fatalf("expected fullName error, got %v", errs)
	}
	if errs["confirmPassword"] == "" {
		t.Fatalf("expected confirmPassword error, got %v", errs)
	}
}

func TestValidateSignupWeakPassword(t *testing.T) {
	form := model.SignupForm{
		Email:           "a@b.com",
		Password:        "abc",
		ConfirmPassword: "abc",
		FullName:        "Ada Lovelace",
		Role:            "faculty",
		EmployeeID:      "EMP-1",
	}
	errs := ValidateSignup(form)
	if errs["password"] == "" {
		t.Fatal("expected password error for weak password")
	}

	form.Password = "lowercaseonly"
	form.ConfirmPassword = "lowercaseonly"
	errs = ValidateSignup(form)
	if errs["password"] == "" {
		t.Fatal("expected password error for missing uppercase and digit")
	}
}

func TestValidateSignupRoleGatedIDs(t *testing.T) {
	student := model.SignupForm{
		Email:           "a@b.com",
		Password:        "Sunrise42x",
		ConfirmPassword: "Sunrise42x",
		FullName:        "Ada Lovelace",
		Role:            "student",
	}
	errs := ValidateSignup(student)
	if errs["studentId"] == "" {
		t.Fatalf("expected studentId error, got %v", errs)
	}
	if errs["employeeId"] != "" {
		t.Fatalf("employeeId must not be required for students, got %v", errs)
	}

	faculty := student
	faculty.Role = "faculty"
	errs = ValidateSignup(faculty)
	if errs["employeeId"] == "" {
		t.Fatalf("expected employeeId error, got %v", errs)
	}
	if errs["studentId"] != "" {
		t.Fatalf("studentId must not be required for faculty, got %v", errs)
	}

	admin := student
	admin.Role = "administrator"
	errs = ValidateSignup(admin)
	if errs["employeeId"] == "" {
		t.Fatalf("expected employeeId error for administrator, got %v", errs)
	}
}

func TestValidateSignupPhone(t *testing.T) {
	base := model.SignupForm{
		Email:           "a@b.com",
		Password:        "Sunrise42x",
		ConfirmPassword: "Sunrise42x",
		FullName:        "Ada Lovelace",
		Role:            "student",
		StudentID:       "STU-1",
	}

	base.Phone = "   "
	if errs := ValidateSignup(base); errs["phone"] != "" {
		t.Fatalf("blank phone must be accepted, got %v", errs)
	}

	base.Phone = "abc123"
	if errs := ValidateSignup(base); errs["phone"] == "" {
		t.Fatal("expected phone error for malformed number")
	}

	base.Phone = "555-0102"
	if errs := ValidateSignup(base); errs["phone"] == "" {
		t.Fatal("expected phone error for too-short number")
	}

	base.Phone = "+44 20 7946 0958"
	if errs := ValidateSignup(base); errs["phone"] != "" {
		t.Fatalf("expected international number accepted, got %v", errs)
	}
}

func TestValidateIsPure(t *testing.T) {
	form := model.LoginForm{Email: "a@b.com", Password: "short"}
	first := ValidateLogin(form)
	second := ValidateLogin(form)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results, got %v then %v", first, second)
	}

	signup := model.SignupForm{Role: "student"}
	if !reflect.DeepEqual(ValidateSignup(signup), ValidateSignup(signup)) {
		t.Fatal("expected identical signup results on repeated calls")
	}
}
