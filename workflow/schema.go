package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qri-io/jsonschema"

	"github.com/safekid-nepal/safekid-api/apperrors"
)

const coordinatesSchema = `{
	"type": "object",
	"required": ["latitude", "longitude"],
	"properties": {
		"latitude": {"type": "number", "minimum": -90, "maximum": 90},
		"longitude": {"type": "number", "minimum": -180, "maximum": 180}
	}
}`

var reportFormSchema = `{
	"type": "object",
	"required": ["childName", "childAge", "childPhoto", "description", "broadcastArea"],
	"properties": {
		"childName": {"type": "string", "minLength": 1},
		"childAge": {"type": "integer", "minimum": 1},
		"childPhoto": {"type": "string", "minLength": 1},
		"description": {"type": "string", "minLength": 1},
		"lastSeenLocation": {"type": "string"},
		"lastSeenCoordinates": ` + coordinatesSchema + `,
		"broadcastArea": {"enum": ["city", "province", "nationwide"]},
		"paymentMethod": {"enum": ["esewa", "khalti", "card"]},
		"paymentMethodId": {"type": "string"}
	}
}`

var sightingFormSchema = `{
	"type": "object",
	"required": ["description"],
	"properties": {
		"photo": {"type": "string"},
		"description": {"type": "string", "minLength": 1},
		"location": {"type": "string"},
		"coordinates": ` + coordinatesSchema + `
	}
}`

var (
	reportSchema   = mustSchema(reportFormSchema)
	sightingSchema = mustSchema(sightingFormSchema)
)

func mustSchema(raw string) *jsonschema.Schema {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(raw), rs); err != nil {
		panic(fmt.Sprintf("compile schema: %v", err))
	}
	return rs
}

// validate checks data against rs and reports the first violation as a
// ValidationError
func validate(ctx context.Context, rs *jsonschema.Schema, data []byte) error {
	verrs, err := rs.ValidateBytes(ctx, data)
	if err != nil {
		return apperrors.Validation("", "request body is not valid JSON")
	}
	if len(verrs) == 0 {
		return nil
	}
	field := strings.TrimPrefix(verrs[0].PropertyPath, "/")
	return apperrors.Validation(field, verrs[0].Message)
}

// DecodeReportForm validates and decodes a report form body
func DecodeReportForm(ctx context.Context, data []byte) (ReportForm, error) {
	var form ReportForm
	if err := validate(ctx, reportSchema, data); err != nil {
		return form, err
	}
	if err := json.Unmarshal(data, &form); err != nil {
		return form, apperrors.Validation("", err.Error())
	}
	return form, nil
}

// DecodeSightingForm validates and decodes a sighting form body
func DecodeSightingForm(ctx context.Context, data []byte) (SightingForm, error) {
	var form SightingForm
	if err := validate(ctx, sightingSchema, data); err != nil {
		return form, err
	}
	if err := json.Unmarshal(data, &form); err != nil {
		return form, apperrors.Validation("", err.Error())
	}
	return form, nil
}
