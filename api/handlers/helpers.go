package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/safekid-nepal/safekid-api/api"
	"github.com/safekid-nepal/safekid-api/apperrors"
	"github.com/safekid-nepal/safekid-api/config"
	"github.com/safekid-nepal/safekid-api/models"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

// Profiles resolves the signed-in user behind a request
type Profiles interface {
	Current(token string) (*models.User, bool)
	Refresh(ctx context.Context, userID string) (*models.User, error)
}

// currentUser returns the freshest profile for the caller of r
func currentUser(r *http.Request, profiles Profiles) (*models.User, error) {
	p, ok := api.PrincipalFromContext(r.Context())
	if !ok {
		return nil, apperrors.Auth("no authenticated user", nil)
	}
	if user, ok := profiles.Current(p.Token); ok {
		return user, nil
	}
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	return profiles.Refresh(ctx, p.UserID)
}

// writeError answers with the status matching err
func writeError(w http.ResponseWriter, message string, err error) {
	config.ErrorStatus(message, apperrors.Status(err), w, err)
}

// readBody reads a bounded request body
func readBody(r *http.Request) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, apperrors.Validation("", "failed to read request body")
	}
	return b, nil
}

// decodeJSON decodes a bounded request body into v
func decodeJSON(r *http.Request, v interface{}) error {
	b, err := readBody(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return apperrors.Validation("", err.Error())
	}
	return nil
}

func writeForbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(`{"error": "forbidden"}`))
}
