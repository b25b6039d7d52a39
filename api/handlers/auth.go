package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/safekid-nepal/safekid-api/api"
	"github.com/safekid-nepal/safekid-api/apperrors"
	"github.com/safekid-nepal/safekid-api/models"
	"github.com/safekid-nepal/safekid-api/session"
)

// Accounts is the part of the session store the auth routes need
type Accounts interface {
	SignUp(ctx context.Context, name, identifier string, role models.Role, password string) (*session.Session, error)
	Resume(token string) (*models.User, session.Route)
}

// Auth exported for testing purposes
type Auth struct {
	Accounts Accounts
	Guard    *api.Guard
}

type signUpRequest struct {
	Name       string      `json:"name"`
	Identifier string      `json:"identifier"`
	Role       models.Role `json:"role"`
	Password   string      `json:"password"`
}

type tokenResponse struct {
	Token string        `json:"token,omitempty"`
	ID    string        `json:"_id,omitempty"`
	Route session.Route `json:"route"`
	User  *models.User  `json:"user,omitempty"`
}

func routeFor(role models.Role) session.Route {
	if role == models.RoleAdmin {
		return session.RouteAdmin
	}
	return session.RouteHome
}

// SignUpHandler creates an account and returns its first session
func (a Auth) SignUpHandler(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "failed to decode request", err)
		return
	}
	if req.Role == "" {
		req.Role = models.RoleParent
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	sess, err := a.Accounts.SignUp(ctx, req.Name, req.Identifier, req.Role, req.Password)
	if err != nil {
		writeError(w, "failed to sign up", err)
		return
	}
	if err := a.Guard.Remember(r, sess.User, sess.Token); err != nil {
		writeError(w, "failed to cache token", err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, tokenResponse{
		Token: sess.Token,
		ID:    sess.User.ID.Hex(),
		Route: routeFor(sess.User.Role),
		User:  &sess.User,
	})
}

// CreateTokenHandler returns the session token for a caller authenticated by
// basic credentials
func (a Auth) CreateTokenHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := api.PrincipalFromContext(r.Context())
	if !ok || p.Token == "" {
		writeError(w, "failed to create token", apperrors.Auth("no session for caller", nil))
		return
	}
	api.WriteJSON(w, http.StatusOK, tokenResponse{
		Token: p.Token,
		ID:    p.UserID,
		Route: routeFor(p.Role),
	})
}

// LogoutHandler revokes the caller's bearer token
func (a Auth) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	token, err := a.Guard.Revoke(r)
	if err != nil {
		writeError(w, "failed to revoke token", apperrors.Validation("Authorization", err.Error()))
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"revoked token": token})
}

// SessionHandler tells a client where to go for the token it holds. It is
// public: a missing or stale token answers with the sign-in route.
func (a Auth) SessionHandler(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	if token == "" {
		api.WriteJSON(w, http.StatusOK, tokenResponse{Route: session.RouteSignIn})
		return
	}
	user, route := a.Accounts.Resume(token)
	resp := tokenResponse{Route: route, User: user}
	if user != nil {
		resp.Token = token
		resp.ID = user.ID.Hex()
	}
	api.WriteJSON(w, http.StatusOK, resp)
}
