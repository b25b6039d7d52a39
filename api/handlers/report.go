package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/safekid-nepal/safekid-api/api"
	"github.com/safekid-nepal/safekid-api/models"
	"github.com/safekid-nepal/safekid-api/pricing"
	"github.com/safekid-nepal/safekid-api/workflow"
)

// ReportReader serves the cached report collection
type ReportReader interface {
	List() []models.MissingChildReport
	ActiveReports() []models.MissingChildReport
	ReportsByOwner(parentID string) []models.MissingChildReport
	Get(id string) (*models.MissingChildReport, error)
}

// Flows runs the checkout and sighting flows
type Flows interface {
	Quote(user models.User, area models.BroadcastArea) (pricing.Quote, error)
	PostReport(ctx context.Context, user models.User, form workflow.ReportForm) (*workflow.Checkout, error)
	SubmitSighting(ctx context.Context, user models.User, reportID string, form workflow.SightingForm) (*models.Sighting, error)
}

// Report exported for testing purposes
type Report struct {
	Reports  ReportReader
	Flows    Flows
	Profiles Profiles
}

type quoteRequest struct {
	BroadcastArea models.BroadcastArea `json:"broadcastArea"`
}

// ReportsHandler returns every report, newest first
func (rp Report) ReportsHandler(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, rp.Reports.List())
}

// ActiveReportsHandler returns the reports still being searched for
func (rp Report) ActiveReportsHandler(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, rp.Reports.ActiveReports())
}

// MyReportsHandler returns the reports posted by the caller
func (rp Report) MyReportsHandler(w http.ResponseWriter, r *http.Request) {
	p, _ := api.PrincipalFromContext(r.Context())
	api.WriteJSON(w, http.StatusOK, rp.Reports.ReportsByOwner(p.UserID))
}

// ReportByIDHandler returns a report and its sightings
func (rp Report) ReportByIDHandler(w http.ResponseWriter, r *http.Request) {
	reportID := mux.Vars(r)["report_id"]

	zap.S().Debugf("report_id: %v", reportID)

	report, err := rp.Reports.Get(reportID)
	if err != nil {
		writeError(w, "failed to get report", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, report)
}

// QuoteHandler prices a broadcast area against the caller's balance
func (rp Report) QuoteHandler(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "failed to decode request", err)
		return
	}
	user, err := currentUser(r, rp.Profiles)
	if err != nil {
		writeError(w, "failed to get user", err)
		return
	}
	quote, err := rp.Flows.Quote(*user, req.BroadcastArea)
	if err != nil {
		writeError(w, "failed to quote broadcast", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, quote)
}

// CreateReportHandler runs the checkout for a new report
func (rp Report) CreateReportHandler(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, "failed to read request", err)
		return
	}
	form, err := workflow.DecodeReportForm(r.Context(), body)
	if err != nil {
		writeError(w, "invalid report", err)
		return
	}
	user, err := currentUser(r, rp.Profiles)
	if err != nil {
		writeError(w, "failed to get user", err)
		return
	}

	checkout, err := rp.Flows.PostReport(r.Context(), *user, form)
	if err != nil {
		writeError(w, "failed to post report", err)
		return
	}
	zap.S().Infow("report posted",
		"report_id", checkout.Report.ID.Hex(),
		"parent_id", user.ID.Hex(),
		"sent", checkout.Broadcast.SentCount)
	api.WriteJSON(w, http.StatusCreated, checkout)
}

// CreateSightingHandler adds a sighting to a report
func (rp Report) CreateSightingHandler(w http.ResponseWriter, r *http.Request) {
	reportID := mux.Vars(r)["report_id"]

	body, err := readBody(r)
	if err != nil {
		writeError(w, "failed to read request", err)
		return
	}
	form, err := workflow.DecodeSightingForm(r.Context(), body)
	if err != nil {
		writeError(w, "invalid sighting", err)
		return
	}
	user, err := currentUser(r, rp.Profiles)
	if err != nil {
		writeError(w, "failed to get user", err)
		return
	}

	sighting, err := rp.Flows.SubmitSighting(r.Context(), *user, reportID, form)
	if err != nil {
		writeError(w, "failed to submit sighting", err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, sighting)
}
