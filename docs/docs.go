// Package docs SafeKid Nepal API.
//
// Documentation of the SafeKid Nepal API.
//
//     Schemes: https
//     BasePath: /
//     Version: 1.0.0
//
//     Consumes:
//     - application/json
//
//     Produces:
//     - application/json
//
//     Security:
//     - basic
//     - bearer
//
//    SecurityDefinitions:
//    basic:
//      type: basic
//    bearer:
//      type: apiKey
//      name: Authorization
//      in: header
//
// swagger:meta
package docs

import (
	"github.com/safekid-nepal/safekid-api/models"
	"github.com/safekid-nepal/safekid-api/pricing"
	"github.com/safekid-nepal/safekid-api/workflow"
)

// swagger:route GET /health health healthEndpointID
// Lists the healthchex of the web service api.
// responses:
//   200: healthResponse

// Shows the current health of the api. true means it is alive, false means it is not.
// swagger:response healthResponse
type healthResponseWrapper struct {
	// in:body
	Body models.HealthCheckResponse
}

// swagger:route GET /api/v1/reports/{report_id} reports reportByID
// Gets a single report and its sightings by ID.
// responses:
//   200: reportByIDResponse
//   404: errorResponse

// Shows a single report by the given {report_id}
// swagger:response reportByIDResponse
type reportByIDResponseWrapper struct {
	// in:body
	Body models.MissingChildReport
}

// swagger:route POST /api/v1/reports/quote reports reportQuote
// Prices a broadcast area against the caller's token balance.
// responses:
//   200: quoteResponse

// swagger:response quoteResponse
type quoteResponseWrapper struct {
	// in:body
	Body pricing.Quote
}

// swagger:route POST /api/v1/reports reports createReport
// Posts a report, paying for whatever the caller's tokens do not cover.
// responses:
//   201: checkoutResponse
//   402: errorResponse
//   422: errorResponse

// swagger:parameters createReport
type createReportParams struct {
	// in:body
	Body workflow.ReportForm
}

// swagger:response checkoutResponse
type checkoutResponseWrapper struct {
	// in:body
	Body workflow.Checkout
}

// swagger:route POST /api/v1/reports/{report_id}/sightings sightings createSighting
// Adds a sighting to a report and credits the submitter.
// responses:
//   201: sightingResponse
//   404: errorResponse
//   422: errorResponse

// swagger:parameters createSighting
type createSightingParams struct {
	// in:body
	Body workflow.SightingForm
}

// swagger:response sightingResponse
type sightingResponseWrapper struct {
	// in:body
	Body models.Sighting
}

// swagger:response errorResponse
type errorResponseWrapper struct {
	// in:body
	Body models.ErrorResponse
}
