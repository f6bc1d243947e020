package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sakif/todo-service/internal/model"
)

// TokenVerifier turns a bearer token into a caller identity.
// *TokenService satisfies it; tests can substitute a stub.
type TokenVerifier interface {
	Verify(token string) (model.Identity, error)
}

// contextKey is unexported so no other package can read or overwrite the
// identity stored in a request context.
type contextKey string

const identityKey contextKey = "identity"

// RequireAuth rejects requests without a valid "Authorization: Bearer <jwt>"
// header with 401 and stores the verified model.Identity in the context of
// those that pass.
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp.
// Put RequireAuth on the route group, not globally, so /auth stays public.
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeUnauthorized(w, "valid authentication required")
				return
			}

			id, err := verifier.Verify(token)
			if err != nil {
				writeUnauthorized(w, "could not validate credentials")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the authenticated caller.
//
// Returns (Identity{}, false) when the request did not pass RequireAuth.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(identityKey).(model.Identity)
	return id, ok && id.UserID > 0
}

// bearerToken extracts the token from the Authorization header. The scheme is
// matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(prefix):])
	return token, token != ""
}

// writeUnauthorized mirrors handler.writeError's body shape. It lives here
// because the handler package depends on auth, not the other way around.
func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}
