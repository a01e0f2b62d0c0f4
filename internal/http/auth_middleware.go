package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/PythonTilk/Notes/internal/domain"
)

type authContextKey string

const contextKeyAuth authContextKey = "notes-auth-identity"

type contextSetter interface {
	SetContext(context.Context)
}

// requireAuth ensures the request has a valid bearer token before
// invoking the handler. The account state is re-checked on every
// request, so a ban takes effect for in-flight sessions.
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx, _, ok := r.ensureAuth(w, req)
		if !ok {
			return
		}
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, req.WithContext(ctx))
	}
}

// requireAdmin layers an admin check on top of requireAuth.
func (r *Router) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return r.requireAuth(func(w http.ResponseWriter, req *http.Request) {
		who, ok := identityFromContext(req.Context())
		if !ok || !who.IsAdmin {
			writeError(w, http.StatusForbidden, "admin privileges required")
			return
		}
		next(w, req)
	})
}

// ensureAuth validates the Authorization header and enriches the context.
func (r *Router) ensureAuth(w http.ResponseWriter, req *http.Request) (context.Context, domain.Identity, bool) {
	token, err := bearerToken(req.Header.Get("Authorization"))
	if err != nil {
		r.logger.Warn("authorization header invalid", "error", err, "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "authentication required")
		return req.Context(), domain.Identity{}, false
	}
	user, _, err := r.accounts.Authorize(req.Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			r.logger.Warn("banned account rejected", "path", req.URL.Path)
			writeError(w, http.StatusForbidden, "account suspended")
			return req.Context(), domain.Identity{}, false
		}
		r.logger.Warn("token validation failed", "error", err, "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "authentication failed")
		return req.Context(), domain.Identity{}, false
	}
	who := domain.Identity{UserID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin}
	ctx := context.WithValue(req.Context(), contextKeyAuth, who)
	return ctx, who, true
}

// identityFromContext extracts the session identity from context.
func identityFromContext(ctx context.Context) (domain.Identity, bool) {
	value := ctx.Value(contextKeyAuth)
	if value == nil {
		return domain.Identity{}, false
	}
	who, ok := value.(domain.Identity)
	return who, ok
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}
