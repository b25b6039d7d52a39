package models

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BroadcastArea is the geographic scope an alert is priced against
type BroadcastArea string

// Broadcast areas in ascending reach
const (
	AreaCity       BroadcastArea = "city"
	AreaProvince   BroadcastArea = "province"
	AreaNationwide BroadcastArea = "nationwide"
)

// BroadcastAreas lists every valid broadcast area
var BroadcastAreas = []BroadcastArea{AreaCity, AreaProvince, AreaNationwide}

// ParseBroadcastArea returns the area for s or an error when s is not a known area
func ParseBroadcastArea(s string) (BroadcastArea, error) {
	for _, a := range BroadcastAreas {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown broadcast area %q", s)
}

// UnmarshalJSON rejects areas outside the closed set
func (a *BroadcastArea) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseBroadcastArea(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// UnmarshalBSONValue rejects stored areas outside the closed set
func (a *BroadcastArea) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	var s string
	if err := (bson.RawValue{Type: t, Value: data}).Unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseBroadcastArea(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ReportStatus is the lifecycle state of a report
type ReportStatus string

// Report states. Active is the only non-terminal state.
const (
	StatusActive ReportStatus = "active"
	StatusFound  ReportStatus = "found"
	StatusClosed ReportStatus = "closed"
)

// Coordinates is a WGS84 point
type Coordinates struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

// MissingChildReport holds the structure for the reports collection in mongo.
// Sightings are stored in their own collection and joined on read.
type MissingChildReport struct {
	ID                  primitive.ObjectID  `json:"id" bson:"_id"`
	ParentID            string              `json:"parentId" bson:"parent_id"`
	ParentName          string              `json:"parentName" bson:"parent_name"`
	ParentPhone         string              `json:"parentPhone" bson:"parent_phone"`
	ParentEmail         string              `json:"parentEmail,omitempty" bson:"parent_email,omitempty"`
	ChildName           string              `json:"childName" bson:"child_name"`
	ChildAge            int                 `json:"childAge" bson:"child_age"`
	ChildPhoto          string              `json:"childPhoto" bson:"child_photo"`
	Description         string              `json:"description" bson:"description"`
	LastSeenLocation    string              `json:"lastSeenLocation" bson:"last_seen_location"`
	LastSeenCoordinates *Coordinates        `json:"lastSeenCoordinates,omitempty" bson:"last_seen_coordinates,omitempty"`
	BroadcastArea       BroadcastArea       `json:"broadcastArea" bson:"broadcast_area"`
	Cost                int                 `json:"cost" bson:"cost"`
	Status              ReportStatus        `json:"status" bson:"status"`
	CreatedAt           primitive.DateTime  `json:"createdAt" bson:"created_at"`
	FoundAt             *primitive.DateTime `json:"foundAt,omitempty" bson:"found_at,omitempty"`
	ClosedAt            *primitive.DateTime `json:"closedAt,omitempty" bson:"closed_at,omitempty"`
	Sightings           []Sighting          `json:"sightings" bson:"sightings,omitempty"`
}

// ReportInput is the caller-supplied part of a new report
type ReportInput struct {
	ParentID            string        `json:"parentId"`
	ParentName          string        `json:"parentName"`
	ParentPhone         string        `json:"parentPhone"`
	ParentEmail         string        `json:"parentEmail,omitempty"`
	ChildName           string        `json:"childName"`
	ChildAge            int           `json:"childAge"`
	ChildPhoto          string        `json:"childPhoto"`
	Description         string        `json:"description"`
	LastSeenLocation    string        `json:"lastSeenLocation"`
	LastSeenCoordinates *Coordinates  `json:"lastSeenCoordinates,omitempty"`
	BroadcastArea       BroadcastArea `json:"broadcastArea"`
	Cost                int           `json:"cost"`
}

// Clone returns a deep copy so callers can't mutate the cached collection
func (r MissingChildReport) Clone() MissingChildReport {
	c := r
	if r.LastSeenCoordinates != nil {
		coords := *r.LastSeenCoordinates
		c.LastSeenCoordinates = &coords
	}
	c.Sightings = make([]Sighting, len(r.Sightings))
	copy(c.Sightings, r.Sightings)
	return c
}

// ReportStats summarises the report collection for the admin dashboard
type ReportStats struct {
	Active         int `json:"active"`
	Found          int `json:"found"`
	Closed         int `json:"closed"`
	TotalSightings int `json:"totalSightings"`
	Revenue        int `json:"revenue"`
}
