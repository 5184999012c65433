package handler

import (
	"encoding/json"
	"net/http"

	"cosmetics-shop-api/internal/middleware"
	"cosmetics-shop-api/internal/service"
	"cosmetics-shop-api/pkg/apierror"
	"cosmetics-shop-api/pkg/response"
)

// AuthHandler handles account and token requests.
type AuthHandler struct {
	accounts *service.AccountService
	tokens   *service.TokenService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(accounts *service.AccountService, tokens *service.TokenService) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		tokens:   tokens,
	}
}

// CredentialsRequest represents the request body for register and login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func decodeCredentials(r *http.Request) (*CredentialsRequest, error) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, apierror.BadRequest("invalid request body")
	}
	defer r.Body.Close()

	var missing []apierror.FieldError
	if req.Username == "" {
		missing = append(missing, apierror.FieldError{Field: "username", Message: "is required"})
	}
	if req.Password == "" {
		missing = append(missing, apierror.FieldError{Field: "password", Message: "is required"})
	}
	if len(missing) > 0 {
		return nil, apierror.ValidationError("username and password are required", missing...)
	}
	return &req, nil
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	issued, err := h.accounts.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Created(w, issued)
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	issued, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, issued)
}

// Revoke handles POST /api/v1/auth/revoke
func (h *AuthHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	tokenData := middleware.GetTokenDataFromContext(r.Context())
	if tokenData == nil {
		response.Error(w, apierror.Unauthorized(""))
		return
	}

	if err := h.tokens.RevokeToken(r.Context(), tokenData); err != nil {
		response.Error(w, apierror.InternalError("failed to revoke token"))
		return
	}

	response.OK(w, map[string]string{"status": "revoked"})
}
