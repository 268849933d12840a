package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// Routes registers auth routes on the provided router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/auth/login", h.login)
	r.Post("/auth/logout", h.logout)
	r.Get("/auth/me", h.me)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	AccessToken string   `json:"access_token"`
	UserID      int64    `json:"user_id"`
	Email       string   `json:"email"`
	Perms       []string `json:"perms"`
	BranchIDs   []int64  `json:"branch_ids"`
	Locale      string   `json:"locale,omitempty"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, r, shared.ValidationErrorf("email and password are required"))
		return
	}
	sess, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, loginResponse{
		AccessToken: sess.Token.Signed,
		UserID:      sess.User.ID,
		Email:       sess.User.Email,
		Perms:       sess.Claims.Perms,
		BranchIDs:   sess.Claims.BranchIDs,
		Locale:      sess.Claims.Locale,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	token, ok := TokenFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, r, shared.ErrUnauthorized)
		return
	}
	if err := h.service.Logout(r.Context(), token); err != nil {
		h.logger.Error("logout", slog.Any("error", err))
		httpx.RespondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	User      User     `json:"user"`
	Perms     []string `json:"perms"`
	RoleIDs   []int64  `json:"roles"`
	GroupIDs  []int64  `json:"groups"`
	BranchIDs []int64  `json:"branch_ids"`
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	claims := shared.ClaimsFromContext(r.Context())
	if claims == nil {
		httpx.RespondError(w, r, shared.ErrUnauthorized)
		return
	}
	user, res, err := h.service.Me(r.Context(), claims)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, meResponse{
		User:      user,
		Perms:     res.Perms,
		RoleIDs:   res.RoleIDs,
		GroupIDs:  res.GroupIDs,
		BranchIDs: res.BranchIDs,
	})
}
