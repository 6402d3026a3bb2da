// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/gitrank/internal/adapters/github"
	"github.com/okian/gitrank/internal/adapters/repository"
)

// UsersDependencies defines the interface for registration operations.
type UsersDependencies interface {
	RegisterUser(ctx context.Context, username string) error
}

// UsersHandler handles user registration requests.
type UsersHandler struct {
	deps UsersDependencies
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(deps UsersDependencies) *UsersHandler {
	return &UsersHandler{deps: deps}
}

// registerRequest mirrors the OpenAPI schema for POST /users.
type registerRequest struct {
	Username string `json:"username"`
}

func (r registerRequest) validate() error {
	name := strings.TrimSpace(r.Username)
	switch {
	case name == "":
		return errors.New("missing username")
	case strings.ContainsAny(name, " /\\"):
		return errors.New("invalid username")
	}
	return nil
}

// HandleRegisterUser handles POST /users requests.
func (h *UsersHandler) HandleRegisterUser(w http.ResponseWriter, r *http.Request) {
	const op = "api.register_user"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	username := strings.TrimSpace(req.Username)
	if err := h.deps.RegisterUser(r.Context(), username); err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyRegistered):
			writeError(w, http.StatusConflict, "already_registered", err)
		case errors.Is(err, github.ErrNotFound):
			writeError(w, http.StatusNotFound, "profile_not_found", err)
		case errors.Is(err, github.ErrRateLimited):
			writeError(w, http.StatusServiceUnavailable, "rate_limited", err)
		default:
			writeError(w, http.StatusBadGateway, "upstream_error", Wrap(op, err))
		}
		return
	}

	writeJSON(w, http.StatusCreated, ackResponse{Status: "registered"})
}
