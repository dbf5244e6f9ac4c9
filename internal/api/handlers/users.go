package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/user"
)

const minPasswordLength = 8

// UsersHandler handles registration and login.
type UsersHandler struct {
	svc *user.Service
	log zerolog.Logger
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(svc *user.Service, log zerolog.Logger) *UsersHandler {
	return &UsersHandler{svc: svc, log: log}
}

// Register handles POST /api/users
func (h *UsersHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	payload.Email = strings.TrimSpace(payload.Email)
	if payload.Name == "" || payload.Email == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Name and email are required")
		return
	}
	if !strings.Contains(payload.Email, "@") {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid email address")
		return
	}
	if len(payload.Password) < minPasswordLength {
		middleware.WriteError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	created, err := h.svc.Register(r.Context(), user.RegisterInput{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, created)
}

// Login handles POST /api/users/login
func (h *UsersHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if payload.Email == "" || payload.Password == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	token, loggedIn, err := h.svc.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if domain.KindOf(err) == domain.KindInternal {
			writeServiceError(w, h.log, err)
			return
		}
		// Credential failures are always answered 401; anything more
		// specific would leak whether the email exists.
		middleware.WriteError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  loggedIn,
	})
}
