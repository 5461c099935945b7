package handler

import (
	"errors"
	"net/http"

	"github.com/AlexZinkM/edufund/internal/auth"
	"github.com/AlexZinkM/edufund/internal/model"
	"github.com/AlexZinkM/edufund/internal/store"
)

// Register handles POST /auth/register
// @Summary      Register
// @Description  Creates a student or donor account and returns a bearer token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      model.RegisterRequest  true  "Account data"
// @Success      201      {object}  model.TokenResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      409      {object}  model.ErrorResponse
// @Router       /auth/register [post]
func (h *PlatformHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_request")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	user := &model.User{Email: req.Email, Name: req.Name, Role: req.Role, PasswordHash: hash}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		writeDomainError(w, err)
		return
	}

	h.log.WithField("user_id", user.ID).Info("user registered")
	h.issueToken(w, http.StatusCreated, user)
}

// Login handles POST /auth/login
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      model.LoginRequest  true  "Credentials"
// @Success      200      {object}  model.TokenResponse
// @Failure      401      {object}  model.ErrorResponse
// @Router       /auth/login [post]
func (h *PlatformHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) {
		err = auth.ErrInvalidCredentials
	}
	if err == nil {
		err = auth.CheckPassword(user.PasswordHash, req.Password)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.issueToken(w, http.StatusOK, user)
}

func (h *PlatformHandler) issueToken(w http.ResponseWriter, status int, user *model.User) {
	token, exp, err := h.jwt.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, status, model.TokenResponse{Token: token, ExpiresAt: exp, User: *user})
}
