package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"github.com/ttleague/ladder-system/models"
)

type contextKey string

const realmContextKey contextKey = "realm"

const sessionCookie = "ladder_session"

// Authenticate verifies the session token (Authorization bearer header or the
// session cookie) and stores the realm in the request context.
func Authenticate(jwtSecret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.New("unexpected signing method")
				}
				return jwtSecret, nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			role, _ := claims["role"].(string)
			realm := models.AuthRealm(role)
			if realm != models.RealmViewer && realm != models.RealmTrainer {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), realmContextKey, realm)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// RequireTrainer allows only the trainer realm through. Viewer routes need no
// extra gate: Authenticate already guarantees one of the two realms.
func RequireTrainer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		realm, err := RealmFromContext(r.Context())
		if err != nil || realm != models.RealmTrainer {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RealmFromContext returns the authenticated realm of the request.
func RealmFromContext(ctx context.Context) (models.AuthRealm, error) {
	realm, ok := ctx.Value(realmContextKey).(models.AuthRealm)
	if !ok {
		return "", errors.New("realm not found in context")
	}
	return realm, nil
}

// SessionCookieName is exported for the auth handler that sets the cookie.
func SessionCookieName() string {
	return sessionCookie
}
