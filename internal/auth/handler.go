// AngelaMos | 2026
// handler.go

package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/acquisitions/api/internal/core"
	"github.com/acquisitions/api/internal/metrics"
	"github.com/acquisitions/api/internal/middleware"
)

type Handler struct {
	service   *Service
	cookie    CookieOptions
	validator *validator.Validate
	logger    *slog.Logger
}

func NewHandler(
	service *Service,
	cookie CookieOptions,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		service:   service,
		cookie:    cookie,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/sign-up", h.SignUp)
		r.Post("/sign-in", h.SignIn)
		r.Post("/sign-out", h.SignOut)
	})
}

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, invalidBody())
		return
	}

	req.Normalize()
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	user, err := h.service.CreateAccount(
		r.Context(),
		req.Name,
		req.Email,
		req.Password,
		req.Role,
	)
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues("sign_up", "failure").Inc()
		if errors.Is(err, ErrEmailExists) {
			core.JSONError(w, core.DuplicateError("User with this email already exists"))
			return
		}
		core.InternalServerError(w, r, err)
		return
	}

	if !h.startSession(w, r, user) {
		return
	}

	metrics.AuthEventsTotal.WithLabelValues("sign_up", "success").Inc()
	core.Created(w, AuthResponse{
		Message: "User registered successfully",
		User:    toUserResponse(user),
	})
}

func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, invalidBody())
		return
	}

	req.Normalize()
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues("sign_in", "failure").Inc()
		if errors.Is(err, ErrInvalidCredentials) {
			core.JSONError(w, core.InvalidCredentialsError())
			return
		}
		core.InternalServerError(w, r, err)
		return
	}

	if !h.startSession(w, r, user) {
		return
	}

	metrics.AuthEventsTotal.WithLabelValues("sign_in", "success").Inc()
	core.OK(w, AuthResponse{
		Message: "User signed in successfully",
		User:    toUserResponse(user),
	})
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	token, err := middleware.ExtractToken(r, h.cookie.Name)
	if err == nil {
		h.service.SignOut(r.Context(), token)
	}

	h.cookie.Clear(w)
	metrics.AuthEventsTotal.WithLabelValues("sign_out", "success").Inc()
	core.OK(w, core.MessageResponse{Message: "User signed out successfully"})
}

func (h *Handler) startSession(
	w http.ResponseWriter,
	r *http.Request,
	user *UserInfo,
) bool {
	token, _, err := h.service.IssueToken(user)
	if err != nil {
		core.InternalServerError(w, r, err)
		return false
	}

	h.cookie.Set(w, token)
	return true
}

func invalidBody() []core.FieldError {
	return []core.FieldError{{Field: "_", Message: "invalid request body"}}
}
