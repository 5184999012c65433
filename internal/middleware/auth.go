package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"cosmetics-shop-api/internal/model"
	"cosmetics-shop-api/pkg/apierror"
)

// TokenDataKey is the key for storing token data in request context.
const TokenDataKey contextKey = "token_data"

// TokenValidator checks an access token and returns who it belongs to.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*model.TokenData, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Tokens TokenValidator
	Logger logrus.FieldLogger
}

// NewAuthMiddleware requires a valid Bearer token and stores its data in the
// request context. Mount it on route groups that need a signed-in user.
func NewAuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, apierror.Unauthorized("Missing or malformed Authorization header"))
				return
			}

			tokenData, err := cfg.Tokens.ValidateToken(r.Context(), token)
			if err != nil {
				if cfg.Logger != nil {
					cfg.Logger.WithError(err).WithField("request_id", GetRequestID(r.Context())).
						Debug("Token validation failed")
				}
				writeError(w, apierror.Unauthorized("Invalid or expired token"))
				return
			}

			setRequestUser(r.Context(), tokenData.UserID)
			ctx := context.WithValue(r.Context(), TokenDataKey, tokenData)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireLoginKey guards admin routes with a shared X-Login-Key header.
// An empty key disables the routes entirely.
func RequireLoginKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				writeError(w, apierror.Forbidden("Admin access is not configured"))
				return
			}
			provided := r.Header.Get("X-Login-Key")
			if provided == "" {
				writeError(w, apierror.Unauthorized("X-Login-Key header required"))
				return
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				writeError(w, apierror.Unauthorized("Invalid login key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// writeError writes an API error response.
func writeError(w http.ResponseWriter, err *apierror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	w.Write(err.ToJSON())
}

// GetTokenDataFromContext retrieves token data from request context.
func GetTokenDataFromContext(ctx context.Context) *model.TokenData {
	if data, ok := ctx.Value(TokenDataKey).(*model.TokenData); ok {
		return data
	}
	return nil
}

// GetUserID returns the authenticated user's id, or "" for anonymous requests.
func GetUserID(ctx context.Context) string {
	if data := GetTokenDataFromContext(ctx); data != nil {
		return data.UserID
	}
	return ""
}
