package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Rrens/flora-expert/internal/api/middleware"
	"github.com/Rrens/flora-expert/internal/api/response"
	"github.com/Rrens/flora-expert/internal/domain"
	"github.com/Rrens/flora-expert/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

// decodeAndValidate reads a JSON body into v and runs its validate tags.
// It writes the 400 response itself and reports whether the caller may go on.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.BadRequest(w, "invalid request body")
		return false
	}

	if err := validate.Struct(v); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			fields := make(map[string]string)
			for _, e := range validationErrors {
				field := e.Field()
				tag := e.Tag()
				switch tag {
				case "required", "required_with", "required_without":
					fields[field] = "field is required"
				case "email":
					fields[field] = "invalid email format"
				case "base64":
					fields[field] = "must be base64 encoded"
				case "min":
					fields[field] = "must be at least " + e.Param() + " characters"
				case "max":
					fields[field] = "must be at most " + e.Param() + " characters"
				default:
					fields[field] = "validation failed on " + tag
				}
			}
			response.BadRequest(w, fields)
			return false
		}
		response.BadRequest(w, err.Error())
		return false
	}

	return true
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input domain.UserCreate
	if !decodeAndValidate(w, r, &input) {
		return
	}

	identity, err := h.authService.Register(r.Context(), input.Email, input.Password, input.Name)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	h.respondWithToken(w, http.StatusCreated, identity)
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input domain.UserLogin
	if !decodeAndValidate(w, r, &input) {
		return
	}

	identity, err := h.authService.Login(r.Context(), input.Email, input.Password)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	h.respondWithToken(w, http.StatusOK, identity)
}

// SignOut revokes the presented access token
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	if err := h.authService.SignOut(r.Context(), claims); err != nil {
		log.Error().Err(err).Str("uid", claims.Subject).Msg("Failed to sign out")
		response.InternalError(w, "failed to sign out")
		return
	}

	response.NoContent(w)
}

// Me returns the current authenticated identity
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	response.OK(w, identity)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, status int, identity *domain.Identity) {
	auth, err := h.authService.IssueToken(identity)
	if err != nil {
		log.Error().Err(err).Str("uid", identity.UID).Msg("Failed to issue token")
		response.InternalError(w, "failed to issue token")
		return
	}

	response.JSON(w, status, auth)
}

func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrEmailInUse), errors.Is(err, domain.ErrDuplicateEmail):
		response.Conflict(w, domain.ErrEmailInUse.Error())
	case errors.Is(err, domain.ErrUserNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, domain.ErrWrongPassword):
		response.Unauthorized(w, err.Error())
	default:
		log.Error().Err(err).Msg("Authentication request failed")
		response.InternalError(w, "internal error")
	}
}
