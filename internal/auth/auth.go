package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type (
	ctxKey   struct{}
	emailKey struct{}
)

// Middleware authenticates HS256 bearer tokens issued by the account
// service. The user id is read from the "id" claim, falling back to "sub".
// An "email" claim is passed along when present.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
				http.Error(w, "Bearer token required", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimSpace(authHeader[len("Bearer "):])
			if tokenString == "" {
				http.Error(w, "Bearer token required", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "Invalid bearer token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "Invalid token payload", http.StatusUnauthorized)
				return
			}
			subject, _ := claims["id"].(string)
			if subject == "" {
				subject, _ = claims["sub"].(string)
			}
			userID, err := uuid.Parse(strings.TrimSpace(subject))
			if err != nil {
				http.Error(w, "Token subject missing", http.StatusUnauthorized)
				return
			}

			ctx := WithUserID(r.Context(), userID)
			if email, _ := claims["email"].(string); email != "" {
				ctx = WithEmail(ctx, strings.TrimSpace(email))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ctxKey{}).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

func WithEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, emailKey{}, email)
}

func Email(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(emailKey{}).(string)
	return email, ok && email != ""
}
