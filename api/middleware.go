package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/basic"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.uber.org/zap"

	"github.com/safekid-nepal/safekid-api/models"
	"github.com/safekid-nepal/safekid-api/session"
)

// tokenExtension carries the issued access token on an auth.Info
const tokenExtension = "token"

// Sessions is the part of the session store the middleware needs
type Sessions interface {
	SignIn(ctx context.Context, identifier, password string) (*session.Session, error)
	Authenticate(token string) (*models.User, error)
	SignOut(ctx context.Context, token string)
}

// Guard authenticates requests with go-guardian. Basic credentials are
// exchanged for a fresh session token on every request; bearer tokens are
// cached and checked against the session store on a cache miss so sessions
// survive a restart.
type Guard struct {
	sessions      Sessions
	authenticator auth.Authenticator
	cache         store.Cache
}

// NewGuard sets up the basic and cached bearer strategies. Cached bearer
// entries live for ttl. Basic results are not cached: a cached basic entry
// would keep handing out a token after it was revoked.
func NewGuard(ctx context.Context, sessions Sessions, ttl time.Duration) *Guard {
	g := &Guard{
		sessions:      sessions,
		authenticator: auth.New(),
		cache:         store.NewFIFO(ctx, ttl),
	}
	basicStrategy := basic.AuthenticateFunc(g.ValidateUser)
	tokenStrategy := bearer.New(g.validateToken, g.cache)

	g.authenticator.EnableStrategy(basic.StrategyKey, basicStrategy)
	g.authenticator.EnableStrategy(bearer.CachedStrategyKey, tokenStrategy)
	return g
}

func infoFor(user models.User, token string) auth.Info {
	return auth.NewDefaultUser(user.Name, user.ID.Hex(), []string{string(user.Role)}, map[string][]string{
		tokenExtension: {token},
	})
}

func principalFrom(info auth.Info) Principal {
	p := Principal{UserID: info.ID(), Name: info.UserName()}
	if groups := info.Groups(); len(groups) > 0 {
		p.Role = models.Role(groups[0])
	}
	if tokens := info.Extensions()[tokenExtension]; len(tokens) > 0 {
		p.Token = tokens[0]
	}
	return p
}

// ValidateUser signs the identifier in and hands the session on to the token
// handler through the auth.Info extensions
func (g *Guard) ValidateUser(ctx context.Context, r *http.Request, identifier, password string) (auth.Info, error) {
	sess, err := g.sessions.SignIn(ctx, identifier, password)
	if err != nil {
		return nil, err
	}
	return infoFor(sess.User, sess.Token), nil
}

func (g *Guard) validateToken(ctx context.Context, r *http.Request, token string) (auth.Info, error) {
	user, err := g.sessions.Authenticate(token)
	if err != nil {
		return nil, err
	}
	return infoFor(*user, token), nil
}

// Middleware rejects unauthenticated requests and stores the Principal on the
// request context
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		info, err := g.authenticator.Authenticate(r)
		if err != nil {
			zap.S().Errorw("unauthorized",
				"url", r.URL,
				"error", err)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "unauthorized"}`))
			return
		}
		p := principalFrom(info)
		zap.S().Debugw("user authenticated", "user_id", p.UserID)
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// AdminOnly must run behind Middleware and rejects callers without the admin
// role
func (g *Guard) AdminOnly(next http.Handler) http.Handler {
	return g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFromContext(r.Context())
		if !p.IsAdmin() {
			zap.S().Warnw("admin route refused", "user_id", p.UserID, "url", r.URL)
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error": "forbidden"}`))
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// Remember caches token for user so the next bearer request skips the
// session lookup
func (g *Guard) Remember(r *http.Request, user models.User, token string) error {
	tokenStrategy := g.authenticator.Strategy(bearer.CachedStrategyKey)
	return auth.Append(tokenStrategy, token, infoFor(user, token), r)
}

// Revoke drops the bearer token of r from the auth cache and ends its session
func (g *Guard) Revoke(r *http.Request) (string, error) {
	token, err := bearerToken(r)
	if err != nil {
		return "", err
	}
	tokenStrategy := g.authenticator.Strategy(bearer.CachedStrategyKey)
	if err := auth.Revoke(tokenStrategy, token, r); err != nil {
		zap.S().Warnw("failed to revoke cached token", "error", err)
	}
	g.sessions.SignOut(r.Context(), token)
	return token, nil
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" || token == header {
		return "", fmt.Errorf("missing bearer token")
	}
	return token, nil
}
