// AngelaMos | 2026
// handler.go

package user

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/acquisitions/api/internal/core"
	"github.com/acquisitions/api/internal/middleware"
)

type Handler struct {
	service   *Service
	access    *AccessController
	validator *validator.Validate
	logger    *slog.Logger
}

func NewHandler(
	service *Service,
	access *AccessController,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		service:   service,
		access:    access,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/users", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.ListUsers)
		r.Get("/{id}", h.GetUser)
		r.Put("/{id}", h.UpdateUser)
		r.Delete("/{id}", h.DeleteUser)
	})
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	params := ListUsersParams{
		Search: r.URL.Query().Get("search"),
		Role:   r.URL.Query().Get("role"),
	}

	users, err := h.service.ListUsers(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, r, err)
		return
	}

	core.OK(w, UserListResponse{
		Message: "Users retrieved successfully",
		Users:   ToUserResponseList(users),
		Count:   len(users),
	})
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	core.OK(w, UserEnvelope{
		Message: "User retrieved successfully",
		User:    ToUserResponse(user),
	})
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, []core.FieldError{
			{Field: "_", Message: "invalid request body"},
		})
		return
	}

	req.Normalize()
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	requester, _ := middleware.GetIdentity(r.Context())
	if err := h.access.AuthorizeUpdate(requester, id, req); err != nil {
		h.logger.WarnContext(r.Context(), "user update rejected",
			"requester_id", requester.ID,
			"target_id", id,
			"error", err,
		)
		h.handleError(w, r, err)
		return
	}

	user, err := h.service.UpdateUser(r.Context(), id, req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "user updated",
		"user_id", user.ID,
		"by", requester.ID,
	)

	core.OK(w, UserEnvelope{
		Message: "User updated successfully",
		User:    ToUserResponse(user),
	})
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	requester, _ := middleware.GetIdentity(r.Context())
	if err := h.access.CanMutate(requester, id, ActionDelete); err != nil {
		h.logger.WarnContext(r.Context(), "user delete rejected",
			"requester_id", requester.ID,
			"target_id", id,
		)
		h.handleError(w, r, err)
		return
	}

	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		h.handleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "user deleted",
		"user_id", id,
		"by", requester.ID,
	)

	core.OK(w, core.MessageResponse{Message: "User deleted successfully"})
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case core.IsAppError(err):
		core.JSONError(w, err)
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "User")
	case errors.Is(err, core.ErrDuplicateKey):
		core.JSONError(w, core.DuplicateError("User with this email already exists"))
	default:
		core.InternalServerError(w, r, err)
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		core.BadRequest(w, []core.FieldError{
			{Field: "id", Message: "id must be a positive integer"},
		})
		return 0, false
	}
	return id, true
}
