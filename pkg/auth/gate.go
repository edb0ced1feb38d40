//go:generate go run go.uber.org/mock/mockgen -source=gate.go -destination=../mocks/mock_gate.go -package=mocks
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mahaj/teamsync/pkg/model"
)

type UserLookup interface {
	FindUser(ctx context.Context, userID string) (model.Principal, error)
}

type contextKey string

const principalKey contextKey = "principal"

// Gate turns a bearer credential into a Principal. It fails closed: every
// failure is reported as one of the package errors and nothing else is created.
type Gate struct {
	verifier *Verifier
	users    UserLookup
	log      *slog.Logger
}

func NewGate(verifier *Verifier, users UserLookup, log *slog.Logger) *Gate {
	return &Gate{verifier: verifier, users: users, log: log}
}

func (g *Gate) Authenticate(ctx context.Context, token string) (model.Principal, error) {
	claims, err := g.verifier.Validate(token)
	if err != nil {
		return model.Principal{}, err
	}

	principal, err := g.users.FindUser(ctx, claims.UserID)
	if err != nil {
		g.log.Debug("Token subject lookup failed", "user_id", claims.UserID, "error", err)
		return model.Principal{}, fmt.Errorf("%w: %s", ErrUnknownSubject, claims.UserID)
	}
	return principal, nil
}

// Middleware rejects unauthenticated requests with a generic 401 and stores
// the principal in the request context.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := g.Authenticate(r.Context(), BearerToken(r))
		if err != nil {
			if !errors.Is(err, ErrMissingToken) {
				g.log.Info("Rejected request", "path", r.URL.Path, "error", err)
			}
			http.Error(w, "Not authorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// BearerToken reads the Authorization header, falling back to the token query
// parameter that browser websocket clients have to use.
func BearerToken(r *http.Request) string {
	token := r.Header.Get("Authorization")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if len(token) > 7 && strings.EqualFold(token[:7], "Bearer ") {
		token = token[7:]
	}
	return strings.TrimSpace(token)
}

func WithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFrom(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(principalKey).(model.Principal)
	return p, ok
}
