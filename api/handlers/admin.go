package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/safekid-nepal/safekid-api/api"
	"github.com/safekid-nepal/safekid-api/apperrors"
	"github.com/safekid-nepal/safekid-api/models"
	"github.com/safekid-nepal/safekid-api/pricing"
)

// ReportAdmin is the part of the report repository behind the admin routes
type ReportAdmin interface {
	Get(id string) (*models.MissingChildReport, error)
	Stats() models.ReportStats
	MarkAsFound(ctx context.Context, id string) (*models.MissingChildReport, error)
	Close(ctx context.Context, id string) (*models.MissingChildReport, error)
	VerifySighting(ctx context.Context, reportID, sightingID string) (*models.Sighting, error)
	Reload(ctx context.Context) error
}

// MapFocus re-centres connected maps on a marker
type MapFocus interface {
	Focus(id string) bool
}

// Admin exported for testing purposes
type Admin struct {
	Reports ReportAdmin
	Map     MapFocus
	Metrics *api.MetricsCollector
}

// StatsHandler returns the dashboard counters
func (a Admin) StatsHandler(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, a.Reports.Stats())
}

// MarkFoundHandler marks a report found
func (a Admin) MarkFoundHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	report, err := a.Reports.MarkAsFound(ctx, mux.Vars(r)["report_id"])
	if err != nil {
		writeError(w, "failed to mark report found", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, report)
}

// CloseHandler closes a report without it being found
func (a Admin) CloseHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	report, err := a.Reports.Close(ctx, mux.Vars(r)["report_id"])
	if err != nil {
		writeError(w, "failed to close report", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, report)
}

// VerifySightingHandler marks a sighting verified
func (a Admin) VerifySightingHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	sighting, err := a.Reports.VerifySighting(ctx, vars["report_id"], vars["sighting_id"])
	if err != nil {
		writeError(w, "failed to verify sighting", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, sighting)
}

// RewardHandler splits a reward for a report. The total defaults to the
// report's cost; finder names the submitter who led to the child, and every
// other distinct submitter of a verified sighting is a helper.
func (a Admin) RewardHandler(w http.ResponseWriter, r *http.Request) {
	report, err := a.Reports.Get(mux.Vars(r)["report_id"])
	if err != nil {
		writeError(w, "failed to get report", err)
		return
	}

	total := report.Cost
	if v := r.URL.Query().Get("total"); v != "" {
		total, err = strconv.Atoi(v)
		if err != nil {
			writeError(w, "invalid total", apperrors.Validation("total", "total must be a whole number of rupees"))
			return
		}
	}
	finder := r.URL.Query().Get("finder")

	helpers := map[string]bool{}
	for _, s := range report.Sightings {
		if s.IsVerified && s.SubmitterID != finder {
			helpers[s.SubmitterID] = true
		}
	}

	reward, err := pricing.DistributeReward(total, len(helpers))
	if err != nil {
		writeError(w, "failed to split reward", apperrors.Validation("total", err.Error()))
		return
	}
	api.WriteJSON(w, http.StatusOK, reward)
}

// FocusHandler re-centres every connected map on a report marker
func (a Admin) FocusHandler(w http.ResponseWriter, r *http.Request) {
	reportID := mux.Vars(r)["report_id"]
	if !a.Map.Focus(reportID) {
		writeError(w, "failed to focus map", apperrors.NotFound("marker", reportID))
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"focused": reportID})
}

// ReloadHandler re-fetches the report collection from the remote store
func (a Admin) ReloadHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := a.Reports.Reload(ctx); err != nil {
		writeError(w, "failed to reload reports", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, a.Reports.Stats())
}

// MetricsHandler returns request metrics
func (a Admin) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}
	api.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"summary": a.Metrics.GetSummary(),
		"slowest": a.Metrics.GetSlowestRoutes(limit),
		"recent":  a.Metrics.GetTraces(limit),
	})
}
