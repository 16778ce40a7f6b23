package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/diewo77/go-eventdesk/httpx"
	"github.com/diewo77/go-eventdesk/internal/services"
)

// AdminUserHandler lets admins manage team accounts and their roles.
type AdminUserHandler struct {
	responder
	users *services.UserService
}

func NewAdminUserHandler(users *services.UserService, log *zap.Logger) *AdminUserHandler {
	return &AdminUserHandler{responder: newResponder(log), users: users}
}

func (h *AdminUserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context(), caller(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

func (h *AdminUserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.MemberInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.users.Create(r.Context(), caller(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.Info("team member created", zap.Uint("user_id", user.ID), zap.String("role", user.Role))
	httpx.JSON(w, http.StatusCreated, user)
}

type roleRequest struct {
	Role string `json:"role"`
}

// AssignRole changes a member's role; the role cache is invalidated by the
// service so the change applies to the member's next request.
func (h *AdminUserHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var in roleRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.users.SetRole(r.Context(), caller(r), id, in.Role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.Info("role assigned", zap.Uint("user_id", user.ID), zap.String("role", user.Role), zap.Uint("by", caller(r)))
	httpx.JSON(w, http.StatusOK, user)
}
