package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/apexcare/booking-platform/internal/identity"
)

// BookingClaims are the JWT claims issued to patients and admins.
type BookingClaims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Auth validates an HMAC-signed bearer token and stores the resulting actor
// in the request context. Requests without a valid token are rejected.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "authentication disabled", http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := BookingClaims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid || claims.UserID <= 0 {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			role := claims.Role
			if role == "" {
				role = identity.RoleUser
			}
			actor := identity.Actor{ID: claims.UserID, Role: role}
			next.ServeHTTP(w, r.WithContext(identity.WithActor(r.Context(), actor)))
		})
	}
}

// RequireAdmin rejects authenticated requests whose actor lacks the admin
// role. It must run after Auth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := identity.ActorFromContext(r.Context())
		if !ok {
			http.Error(w, "missing authorization header", http.StatusUnauthorized)
			return
		}
		if !actor.IsAdmin() {
			http.Error(w, "admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
