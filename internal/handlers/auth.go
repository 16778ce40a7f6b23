package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/diewo77/go-eventdesk/httpx"
	"github.com/diewo77/go-eventdesk/internal/services"
)

type AuthHandler struct {
	responder
	auth       *services.AuthService
	accounts   *services.AccountService
	invalidate services.RoleInvalidator
}

func NewAuthHandler(authSvc *services.AuthService, accounts *services.AccountService, invalidate services.RoleInvalidator, log *zap.Logger) *AuthHandler {
	return &AuthHandler{responder: newResponder(log), auth: authSvc, accounts: accounts, invalidate: invalidate}
}

func (h *AuthHandler) CheckSetup(w http.ResponseWriter, r *http.Request) {
	done, err := h.auth.IsSetupComplete(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"isSetupComplete": done})
}

func (h *AuthHandler) Setup(w http.ResponseWriter, r *http.Request) {
	var in services.SetupInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	sess, err := h.auth.Setup(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.Info("initial admin created", zap.Uint("user_id", sess.User.ID))
	httpx.JSON(w, http.StatusCreated, sess)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	sess, err := h.auth.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sess)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.Me(r.Context(), caller(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

// DeleteAccount wipes the caller and everything they own.
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	var in services.DeleteAccountInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	uid := caller(r)
	res, err := h.accounts.Delete(r.Context(), uid, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if h.invalidate != nil {
		h.invalidate(uid)
	}
	h.log.Info("account deleted", zap.Uint("user_id", uid),
		zap.Int64("polls", res.Polls), zap.Int64("venues", res.Venues))
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "account deleted",
		"deleted": res,
	})
}
