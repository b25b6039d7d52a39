package handlers

import (
	"context"
	"net/http"

	"github.com/safekid-nepal/safekid-api/api"
	"github.com/safekid-nepal/safekid-api/apperrors"
	"github.com/safekid-nepal/safekid-api/models"
)

// Balances is the part of the session store that changes token balances
type Balances interface {
	Profiles
	UpdateTokens(ctx context.Context, userID string, balance int) (*models.User, error)
}

// User exported for testing purposes
type User struct {
	Balances Balances
}

type updateTokensRequest struct {
	UserID string `json:"userId,omitempty"`
	Tokens *int   `json:"tokens"`
}

// UserHandler returns the caller's profile
func (u User) UserHandler(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r, u.Balances)
	if err != nil {
		writeError(w, "failed to get user", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, user)
}

// UpdateTokensHandler sets a token balance. Admins may set any user's
// balance; everyone else may only spend from their own.
func (u User) UpdateTokensHandler(w http.ResponseWriter, r *http.Request) {
	var req updateTokensRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "failed to decode request", err)
		return
	}
	if req.Tokens == nil {
		writeError(w, "failed to update tokens", apperrors.Validation("tokens", "tokens is required"))
		return
	}

	caller, err := currentUser(r, u.Balances)
	if err != nil {
		writeError(w, "failed to get user", err)
		return
	}
	target := caller.ID.Hex()
	if req.UserID != "" && req.UserID != target {
		if caller.Role != models.RoleAdmin {
			writeForbidden(w)
			return
		}
		target = req.UserID
	} else if caller.Role != models.RoleAdmin && *req.Tokens > caller.Tokens {
		writeError(w, "failed to update tokens", apperrors.Validation("tokens", "balance can only be lowered"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	updated, err := u.Balances.UpdateTokens(ctx, target, *req.Tokens)
	if err != nil {
		writeError(w, "failed to update tokens", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, updated)
}
