package models

import "time"

// Composition is a piece written in the simulator. CompositionData is the
// client's JSON document, stored verbatim.
type Composition struct {
	ID              string
	OwnerID         string
	Title           string
	Description     string
	CompositionData string
	IsPublic        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type CompositionUpdate struct {
	Title           *string
	Description     *string
	CompositionData *string
	IsPublic        *bool
}
