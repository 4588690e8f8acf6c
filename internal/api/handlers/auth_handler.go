package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/circuit-studio/engine/internal/api/types"
	"github.com/circuit-studio/engine/internal/services"
	appErr "github.com/circuit-studio/engine/pkg/errors"
)

type AuthHandler struct {
	auth     services.AuthService
	validate interface{ Struct(any) error }
}

func NewAuthHandler(auth services.AuthService, v interface{ Struct(any) error }) *AuthHandler {
	return &AuthHandler{auth: auth, validate: v}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.auth.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		// unique index on email surfaces as an internal create failure
		if appErr.IsCode(err, appErr.CodeInternal) {
			writeErrorStr(w, http.StatusConflict, "email already exists")
			return
		}
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusCreated, types.APIResponse{
		Success: true,
		Data: map[string]any{
			"id":    u.ID,
			"email": u.Email,
			"name":  u.Name,
		},
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, err.Error())
		return
	}

	token, u, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeErrorStr(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	writeJSON(w, http.StatusOK, types.APIResponse{
		Success: true,
		Data: map[string]any{
			"access_token": token,
			"token_type":   "Bearer",
			"expires_in":   86400,
			"user": map[string]any{
				"id":    u.ID,
				"email": u.Email,
				"name":  u.Name,
			},
		},
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "not implemented", http.StatusNotImplemented)
}
