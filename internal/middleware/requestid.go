package middleware

import (
	"context"
	"net/http"

	"cosmetics-shop-api/pkg/uid"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// RequestIDKey is the context key for the per-request record.
const RequestIDKey contextKey = "request_id"

// maxRequestIDLen bounds client supplied ids before they reach the logs.
const maxRequestIDLen = 128

// requestInfo is shared by every middleware layer of one request. Inner
// layers fill it in so outer ones (access log, rate limiter) can read it
// after next.ServeHTTP returns.
type requestInfo struct {
	id     string
	userID string
}

// RequestID is a middleware that adds a unique request ID to each request.
// Client supplied ids are kept when they are short printable ASCII.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if !validRequestID(requestID) {
			requestID = uid.New()
		}

		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, &requestInfo{id: requestID})

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

func infoFrom(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(RequestIDKey).(*requestInfo)
	return info
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	if info := infoFrom(ctx); info != nil {
		return info.id
	}
	return ""
}

// setRequestUser records the authenticated user on the request record.
func setRequestUser(ctx context.Context, userID string) {
	if info := infoFrom(ctx); info != nil {
		info.userID = userID
	}
}

// requestUser returns the user recorded by the auth middleware, if any ran.
func requestUser(ctx context.Context) string {
	if info := infoFrom(ctx); info != nil {
		return info.userID
	}
	return ""
}
