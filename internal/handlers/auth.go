package handlers

import (
	"errors"
	"net/http"
	"strings"

	"flowstated/internal/auth"
)

// resetRequestedMessage is returned for every reset request, found or
// not, so callers cannot probe which emails are registered.
const resetRequestedMessage = "If a user with that email exists, a password reset link has been sent."

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Username == "" || req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, errors.New("username, email and password are required"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		a.logger.Error().Err(err).Msg("hashing password")
		respondError(w, http.StatusInternalServerError, errors.New("internal server error"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	user, err := a.store.CreateUser(ctx, req.Username, req.Email, hash)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, userResponse{
		ID:       user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UsernameOrEmail string `json:"username_or_email"`
		Password        string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	// Uniform 401 regardless of which check failed: unknown identifier
	// and wrong password are indistinguishable to the caller.
	badCredentials := errors.New("incorrect username or password")

	user, err := a.store.UserByUsernameOrEmail(ctx, strings.TrimSpace(req.UsernameOrEmail))
	if err != nil {
		respondError(w, http.StatusUnauthorized, badCredentials)
		return
	}

	ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		a.logger.Error().Err(err).Msg("verifying password")
		respondError(w, http.StatusInternalServerError, errors.New("internal server error"))
		return
	}
	if !ok {
		respondError(w, http.StatusUnauthorized, badCredentials)
		return
	}

	token, err := a.issuer.Issue(user.ID)
	if err != nil {
		a.logger.Error().Err(err).Msg("issuing token")
		respondError(w, http.StatusInternalServerError, errors.New("internal server error"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	respondJSON(w, http.StatusOK, userResponse{
		ID:       user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
	})
}

func (a *API) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username *string `json:"username"`
		Email    *string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.Username == nil && req.Email == nil {
		respondError(w, http.StatusBadRequest, errors.New("nothing to update"))
		return
	}
	if req.Email != nil {
		normalized := strings.TrimSpace(strings.ToLower(*req.Email))
		req.Email = &normalized
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	user, err := a.store.UpdateUserProfile(ctx, currentUser(r).ID, req.Username, req.Email)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, userResponse{
		ID:       user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
	})
}

func (a *API) handleRequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	if err := a.reset.RequestReset(ctx, req.Email); err != nil {
		// Same response on internal failure: no enumeration signal.
		a.logger.Error().Err(err).Msg("requesting password reset")
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": resetRequestedMessage})
}

func (a *API) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		respondError(w, http.StatusBadRequest, errors.New("token and new_password are required"))
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	if err := a.reset.ConfirmReset(ctx, req.Token, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidResetToken) {
			respondError(w, http.StatusBadRequest, errors.New("invalid or expired password reset token"))
			return
		}
		a.logger.Error().Err(err).Msg("resetting password")
		respondError(w, http.StatusInternalServerError, errors.New("internal server error"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset successfully."})
}
