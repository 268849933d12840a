package iam

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/authz"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler wires the IAM admin HTTP surface.
type Handler struct {
	service   *Service
	guard     authz.Guard
	validator *validator.Validate
}

// NewHandler constructs a handler.
func NewHandler(service *Service, guard authz.Guard) *Handler {
	return &Handler{service: service, guard: guard, validator: validator.New()}
}

// Routes registers IAM admin routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/iam", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.guard.Require("ADMIN.ROLE.MANAGE"))
			r.Get("/roles", h.listRoles)
			r.Head("/roles", h.listRoles)
			r.Post("/roles", h.createRole)
			r.Get("/roles/{id}", h.getRole)
			r.Put("/roles/{id}", h.updateRole)
			r.Delete("/roles/{id}", h.deleteRole)
			r.Put("/roles/{id}/permissions", h.replaceRolePermissions)
			r.Get("/permissions", h.listPermissions)
			r.Head("/permissions", h.listPermissions)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.guard.Require("ADMIN.GROUP.MANAGE"))
			r.Get("/groups", h.listGroups)
			r.Head("/groups", h.listGroups)
			r.Post("/groups", h.createGroup)
			r.Get("/groups/{id}", h.getGroup)
			r.Put("/groups/{id}", h.updateGroup)
			r.Delete("/groups/{id}", h.deleteGroup)
			r.Put("/groups/{id}/roles", h.replaceGroupRoles)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.guard.Require("ADMIN.USER.MANAGE"))
			r.Get("/users", h.listUsers)
			r.Head("/users", h.listUsers)
			r.Get("/users/{id}", h.getUser)
			r.Put("/users/{id}/roles", h.setUserRoles)
			r.Put("/users/{id}/groups", h.setUserGroups)
		})
	})
}

func pathID(r *http.Request) (int64, error) {
	return shared.ParseID(chi.URLParam(r, "id"))
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := shared.NormalizePagination(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	roles, total, latest, err := h.service.ListRoles(r.Context(), limit, offset)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	ids := make([]int64, len(roles))
	for i, role := range roles {
		ids[i] = role.ID
	}
	httpx.List(w, r, roles, ids, total, limit, offset, latest)
}

type rolePayload struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=500"`
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req rolePayload
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, r, shared.ValidationErrorf("invalid role payload"))
		return
	}
	role, err := h.service.CreateRole(r.Context(), req.Name, req.Description)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

type roleResponse struct {
	authz.Role
	Permissions []string `json:"permissions"`
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	role, codes, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, roleResponse{Role: role, Permissions: codes})
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	var req rolePayload
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, r, shared.ValidationErrorf("invalid role payload"))
		return
	}
	role, err := h.service.UpdateRole(r.Context(), id, req.Name, req.Description)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type rolePermissionsPayload struct {
	Codes []string `json:"codes"`
}

func (h *Handler) replaceRolePermissions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	var req rolePermissionsPayload
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if err := h.service.ReplaceRolePermissions(r.Context(), id, req.Codes); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := shared.NormalizePagination(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	perms, total, latest, err := h.service.ListPermissions(r.Context(), limit, offset)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	ids := make([]int64, len(perms))
	for i, p := range perms {
		ids[i] = p.ID
	}
	httpx.List(w, r, perms, ids, total, limit, offset, latest)
}

func (h *Handler) listGroups(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := shared.NormalizePagination(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	groups, total, latest, err := h.service.ListGroups(r.Context(), limit, offset)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	ids := make([]int64, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
	}
	httpx.List(w, r, groups, ids, total, limit, offset, latest)
}

type groupPayload struct {
	Name        string            `json:"name" validate:"required,max=120"`
	Description string            `json:"description" validate:"max=500"`
	BranchScope authz.BranchScope `json:"branch_scope"`
}

func (h *Handler) createGroup(w http.ResponseWriter, r *http.Request) {
	var req groupPayload
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, r, shared.ValidationErrorf("invalid group payload"))
		return
	}
	group, err := h.service.CreateGroup(r.Context(), req.Name, req.Description, req.BranchScope)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, group)
}

func (h *Handler) getGroup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	group, err := h.service.GetGroup(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, group)
}

func (h *Handler) updateGroup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	var req groupPayload
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, r, shared.ValidationErrorf("invalid group payload"))
		return
	}
	group, err := h.service.UpdateGroup(r.Context(), id, req.Name, req.Description, req.BranchScope)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, group)
}

func (h *Handler) deleteGroup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if err := h.service.DeleteGroup(r.Context(), id); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type idsPayload struct {
	IDs []int64 `json:"ids"`
}

func (h *Handler) replaceGroupRoles(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	var req idsPayload
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if err := h.service.ReplaceGroupRoles(r.Context(), id, req.IDs); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := shared.NormalizePagination(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	users, total, latest, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	ids := make([]int64, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	httpx.List(w, r, users, ids, total, limit, offset, latest)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) setUserRoles(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	var req idsPayload
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if err := h.service.SetUserRoles(r.Context(), id, req.IDs); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setUserGroups(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	var req idsPayload
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if err := h.service.SetUserGroups(r.Context(), id, req.IDs); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
