package login

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/drshelkeabhijeet/Studentattendance/internal/authstate"
	"github.com/drshelkeabhijeet/Studentattendance/internal/identity"
	"github.com/drshelkeabhijeet/Studentattendance/internal/model"
	"github.com/drshelkeabhijeet/Studentattendance/internal/validation"
)

const (
	msgInvalidCredentials = "Invalid email or password. Please check your credentials and try again."
	msgEmailNotConfirmed  = "Please confirm your email address before signing in."
	msgLoginFailed        = "An error occurred during login. Please try again."
	msgRoleMismatch       = "You are not registered as a %s. Please select the correct role."
	msgAlreadyRegistered  = "This email address is already registered. Please try logging in or use a different email."
	msgProfileSync        = "Your account was created but the profile could not be saved. Please contact the administrator."
	msgSignupFailed       = "An error occurred during signup. Please try again."
)

// Coordinator is the slice of the auth coordinator the orchestrator drives.
type Coordinator interface {
	SignIn(ctx context.Context, email, password string) error
	SignUp(ctx context.Context, email, password string, record model.Profile) error
	Profile() *model.Profile
}

// Result is the outcome of a login or signup attempt. Errors is nil on
// success; on failure it holds field messages plus at most one "general"
// message for non-field failures.
type Result struct {
	Success bool             `json:"success"`
	Errors  model.FormErrors `json:"errors,omitempty"`
}

// Orchestrator composes validation, the auth coordinator, and the bounded
// profile poll into the synchronous login and signup flows the terminal UI
// calls.
type Orchestrator struct {
	auth              Coordinator
	pollInterval      time.Duration
	pollAttempts      int
	defaultDepartment string
}

type Options struct {
	PollInterval      time.Duration
	PollAttempts      int
	DefaultDepartment string
}

func NewOrchestrator(auth Coordinator, opts Options) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}
	if opts.PollAttempts <= 0 {
		opts.PollAttempts = 10
	}
	return &Orchestrator{
		auth:              auth,
		pollInterval:      opts.PollInterval,
		pollAttempts:      opts.PollAttempts,
		defaultDepartment: opts.DefaultDepartment,
	}
}

// Login validates the form, signs in, and confirms the profile's role matches
// the role selected on the form. Validation failures never reach the network.
//
// The role check waits for the profile with a bounded poll: profile population
// is asynchronous, so the fresh session's profile may not have resolved yet.
// If the poll budget runs out the login still succeeds with the profile
// unresolved; callers must tolerate a momentarily missing profile.
func (o *Orchestrator) Login(ctx context.Context, form model.LoginForm) Result {
	if errs := validation.ValidateLogin(form); !errs.Empty() {
		return Result{Errors: errs}
	}

	if err := o.auth.SignIn(ctx, form.Email, form.Password); err != nil {
		return generalFailure(loginErrorMessage(err))
	}

	record := o.awaitProfile(ctx)
	if record == nil {
		return Result{Success: true}
	}
	if selected, _ := model.ParseRole(form.Role); record.Role != selected {
		return generalFailure(fmt.Sprintf(msgRoleMismatch, form.Role))
	}
	return Result{Success: true}
}

// Signup validates the form, creates the credential, and writes the profile
// record. Department falls back to the configured default when the form
// leaves it blank.
func (o *Orchestrator) Signup(ctx context.Context, form model.SignupForm) Result {
	if errs := validation.ValidateSignup(form); !errs.Empty() {
		return Result{Errors: errs}
	}

	role, _ := model.ParseRole(form.Role)
	record := model.Profile{
		FullName:   strings.TrimSpace(form.FullName),
		Role:       role,
		Department: strings.TrimSpace(form.Department),
	}
	if record.Department == "" {
		record.Department = o.defaultDepartment
	}
	if id := strings.TrimSpace(form.EmployeeID); id != "" {
		record.EmployeeID = &id
	}
	if id := strings.TrimSpace(form.StudentID); id != "" {
		record.StudentID = &id
	}
	if phone := strings.TrimSpace(form.Phone); phone != "" {
		record.Phone = &phone
	}

	if err := o.auth.SignUp(ctx, form.Email, form.Password, record); err != nil {
		return generalFailure(signupErrorMessage(err))
	}
	return Result{Success: true}
}

// awaitProfile polls the coordinator for a resolved profile, up to the
// attempt budget. Returns nil when the budget runs out or ctx is cancelled.
func (o *Orchestrator) awaitProfile(ctx context.Context) *model.Profile {
	if record := o.auth.Profile(); record != nil {
		return record
	}

	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()
	for attempt := 0; attempt < o.pollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return o.auth.Profile()
		case <-ticker.C:
			if record := o.auth.Profile(); record != nil {
				return record
			}
		}
	}
	return nil
}

func loginErrorMessage(err error) string {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		return msgInvalidCredentials
	case errors.Is(err, identity.ErrEmailNotConfirmed):
		return msgEmailNotConfirmed
	default:
		log.Printf("auth-gateway: login failed: %v", err)
		return msgLoginFailed
	}
}

func signupErrorMessage(err error) string {
	switch {
	case errors.Is(err, identity.ErrAlreadyRegistered):
		return msgAlreadyRegistered
	case errors.Is(err, authstate.ErrProfileSync):
		log.Printf("auth-gateway: signup profile sync failed: %v", err)
		return msgProfileSync
	default:
		log.Printf("auth-gateway: signup failed: %v", err)
		return msgSignupFailed
	}
}

func generalFailure(message string) Result {
	return Result{Errors: model.FormErrors{model.FieldGeneral: message}}
}
