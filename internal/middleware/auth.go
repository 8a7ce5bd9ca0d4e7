package middleware

import (
	"context"
	"net/http"

	"peerprep/interview/internal/utils"
)

const userIDKey contextKey = "user_id"

// Auth rejects requests without a valid JWT and stores the caller's user id.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := utils.VerifyToken(r, secret)
			if err != nil {
				utils.Error(w, http.StatusUnauthorized, "unauthorized", err.Error())
				return
			}
			userID, err := utils.GetUserIDFromClaims(claims)
			if err != nil || userID == "" {
				utils.Error(w, http.StatusUnauthorized, "unauthorized", "token has no subject")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the id stored by Auth, or "" outside it.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
