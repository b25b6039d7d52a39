package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// SightingReward is the flat number of tokens a sighting earns
const SightingReward = 10

// Sighting holds the structure for the sightings collection in mongo
type Sighting struct {
	ID             primitive.ObjectID  `json:"id" bson:"_id"`
	ReportID       string              `json:"reportId" bson:"report_id"`
	SubmitterID    string              `json:"submitterId" bson:"submitter_id"`
	SubmitterName  string              `json:"submitterName" bson:"submitter_name"`
	SubmitterPhone string              `json:"submitterPhone" bson:"submitter_phone"`
	Photo          string              `json:"photo,omitempty" bson:"photo,omitempty"`
	Description    string              `json:"description" bson:"description"`
	Location       string              `json:"location" bson:"location"`
	Coordinates    *Coordinates        `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
	TokensEarned   int                 `json:"tokensEarned" bson:"tokens_earned"`
	CreatedAt      primitive.DateTime  `json:"createdAt" bson:"created_at"`
	IsVerified     bool                `json:"isVerified" bson:"is_verified"`
	VerifiedAt     *primitive.DateTime `json:"verifiedAt,omitempty" bson:"verified_at,omitempty"`
}

// SightingInput is the caller-supplied part of a new sighting
type SightingInput struct {
	SubmitterID    string       `json:"submitterId"`
	SubmitterName  string       `json:"submitterName"`
	SubmitterPhone string       `json:"submitterPhone"`
	Photo          string       `json:"photo,omitempty"`
	Description    string       `json:"description"`
	Location       string       `json:"location"`
	Coordinates    *Coordinates `json:"coordinates,omitempty"`
}
