package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/drshelkeabhijeet/Studentattendance/internal/authstate"
	"github.com/drshelkeabhijeet/Studentattendance/internal/login"
	"github.com/drshelkeabhijeet/Studentattendance/internal/model"
)

const deviceSessionCookie = "device_session"

var loginOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "auth_gateway_login_attempts_total",
	Help: "Login attempts by outcome.",
}, []string{"outcome"})

// Orchestrator is the flow surface the server exposes to the terminal UI.
type Orchestrator interface {
	Login(ctx context.Context, form model.LoginForm) login.Result
	Signup(ctx context.Context, form model.SignupForm) login.Result
}

// Authenticator is the coordinator state the server reads and the sign-out
// operation it forwards.
type Authenticator interface {
	State() authstate.State
	Session() *model.Session
	Profile() *model.Profile
	Loading() bool
	SignOut(ctx context.Context) error
}

type Server struct {
	flows Orchestrator
	auth  Authenticator
}

func NewServer(flows Orchestrator, auth Authenticator) *Server {
	return &Server{flows: flows, auth: auth}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/logout", s.handleLogout)
	r.Get("/auth/session", s.handleSession)

	return r
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var form model.LoginForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	result := s.flows.Login(r.Context(), form)
	if !result.Success {
		loginOutcomes.WithLabelValues("rejected").Inc()
		writeJSON(w, http.StatusUnauthorized, result)
		return
	}

	loginOutcomes.WithLabelValues("accepted").Inc()
	http.SetCookie(w, &http.Cookie{
		Name:     deviceSessionCookie,
		Value:    uuid.NewString(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var form model.SignupForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	result := s.flows.Signup(r.Context(), form)
	if !result.Success {
		writeJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.SignOut(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, "logout_failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     deviceSessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type sessionResponse struct {
	State   authstate.State  `json:"state"`
	Loading bool             `json:"loading"`
	Email   string           `json:"email,omitempty"`
	Expires *time.Time       `json:"expiresAt,omitempty"`
	Profile *profileResponse `json:"profile"`
}

type profileResponse struct {
	ID         string  `json:"id"`
	Email      string  `json:"email"`
	FullName   string  `json:"fullName"`
	Role       string  `json:"role"`
	EmployeeID *string `json:"employeeId,omitempty"`
	StudentID  *string `json:"studentId,omitempty"`
	Department string  `json:"department"`
	Phone      *string `json:"phone,omitempty"`
}

// handleSession reports the coordinator's current view. Profile is null while
// anonymous, restoring, or when the lookup has not resolved; the terminal UI
// renders a spinner off the loading flag instead of treating null as an error.
func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	resp := sessionResponse{
		State:   s.auth.State(),
		Loading: s.auth.Loading(),
	}
	if session := s.auth.Session(); session != nil {
		resp.Email = session.Identity.Email
		expires := session.ExpiresAt
		resp.Expires = &expires
	}
	if record := s.auth.Profile(); record != nil {
		resp.Profile = &profileResponse{
			ID:         record.ID,
			Email:      record.Email,
			FullName:   record.FullName,
			Role:       string(record.Role),
			EmployeeID: record.EmployeeID,
			StudentID:  record.StudentID,
			Department: record.Department,
			Phone:      record.Phone,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
