package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/MrEthical07/tokenguard"
	"github.com/MrEthical07/tokenguard/internal/respond"
)

type handlers struct {
	svc   Service
	log   logrus.FieldLogger
	ready func(ctx context.Context) error
}

type signinRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	Password         string `json:"password"`
	PreviousPassword string `json:"previousPassword"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type signupResponse struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

type profileResponse struct {
	Status string `json:"status"`
	UserID string `json:"userId"`
	Role   string `json:"role,omitempty"`
}

var errInvalidCredentialsBody = respond.ErrorBody{
	Error:   respond.CodeInvalidCredentials,
	Message: "Your username/password is not valid",
}

func (h *handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := respond.DecodeJSON(w, r, dst); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.ErrorBody{
			Error:   respond.CodeInvalidPayload,
			Message: "Request body is not valid JSON",
		})
		return false
	}
	return true
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			h.log.WithError(err).Warn("health check failed")
			respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if !h.decode(w, r, &req) {
		return
	}

	token, err := h.svc.Signin(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		respond.JSON(w, http.StatusOK, tokenResponse{Token: token})
	case errors.Is(err, tokenguard.ErrValidation):
		respond.Error(w, http.StatusBadRequest, respond.ErrorBody{
			Error:   respond.CodeInvalidCredentials,
			Message: "You must provide username and password",
		})
	case errors.Is(err, tokenguard.ErrInvalidCredentials):
		respond.Error(w, http.StatusUnauthorized, errInvalidCredentialsBody)
	case errors.Is(err, tokenguard.ErrSigninRateLimited):
		respond.Error(w, http.StatusTooManyRequests, respond.ErrorBody{
			Error:   respond.CodeRateLimited,
			Message: "Too many failed attempts, please try later",
		})
	default:
		respond.Fatal(w, h.log, "Could not authenticate user, please try later", err)
	}
}

func (h *handlers) signup(w http.ResponseWriter, r *http.Request) {
	var req tokenguard.SignupRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.svc.Signup(r.Context(), req)
	switch {
	case err == nil:
		respond.JSON(w, http.StatusOK, signupResponse{UserID: res.UserID, Token: res.Token})
	case errors.Is(err, tokenguard.ErrValidation):
		body := respond.ErrorBody{Error: respond.CodeValidation, Message: err.Error()}
		var verr *tokenguard.ValidationError
		if errors.As(err, &verr) {
			body.Fields = verr.Fields
		}
		respond.Error(w, http.StatusBadRequest, body)
	case errors.Is(err, tokenguard.ErrConflict):
		respond.Error(w, http.StatusBadRequest, respond.ErrorBody{
			Error:   respond.CodeAlreadyExists,
			Message: "A user with that username or email already exists",
		})
	default:
		respond.Fatal(w, h.log, "Could not create user, please try later", err)
	}
}

func (h *handlers) changePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := tokenguard.ClaimsFromContext(r.Context())
	if !ok {
		respond.Fatal(w, h.log, "Could not change password, please try later", tokenguard.ErrMissingIdentifier)
		return
	}
	var req changePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Password == "" || req.PreviousPassword == "" {
		respond.Error(w, http.StatusBadRequest, respond.ErrorBody{
			Error:   respond.CodeInvalidArguments,
			Message: "You must specify previous and new password",
		})
		return
	}

	token, err := h.svc.ChangePassword(r.Context(), claims, req.PreviousPassword, req.Password)
	switch {
	case err == nil:
		respond.JSON(w, http.StatusOK, tokenResponse{Token: token})
	case errors.Is(err, tokenguard.ErrValidation):
		body := respond.ErrorBody{Error: respond.CodeValidation, Message: err.Error()}
		var verr *tokenguard.ValidationError
		if errors.As(err, &verr) {
			body.Fields = verr.Fields
		}
		respond.Error(w, http.StatusBadRequest, body)
	case errors.Is(err, tokenguard.ErrInvalidCredentials):
		respond.Error(w, http.StatusUnauthorized, respond.ErrorBody{
			Error:   respond.CodeInvalidCredentials,
			Message: "Your old password is not valid",
		})
	default:
		respond.Fatal(w, h.log, "Could not change password, please try later", err)
	}
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	claims, _ := tokenguard.ClaimsFromContext(r.Context())
	if err := h.svc.Logout(r.Context(), claims); err != nil {
		respond.Fatal(w, h.log, "Could not log out, please try later", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *handlers) profile(w http.ResponseWriter, r *http.Request) {
	claims, _ := tokenguard.ClaimsFromContext(r.Context())
	res := profileResponse{Status: "ok"}
	if claims != nil {
		res.UserID = claims.Subject
		res.Role = claims.Role
	}
	respond.JSON(w, http.StatusOK, res)
}
