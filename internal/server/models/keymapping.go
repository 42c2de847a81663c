package models

import (
	"encoding/json"
	"time"
)

// KeyMapping is a named keyboard layout preset. The preset named "default"
// is the one the simulator loads on start.
type KeyMapping struct {
	ID          string
	UserID      string
	Name        string
	MappingData json.RawMessage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type KeyMappingUpdate struct {
	Name        *string
	MappingData json.RawMessage
}
