package models

import "time"

const (
	CategoryPersonal      = "personal"
	CategoryPractice      = "practice"
	CategoryComposition   = "composition"
	CategoryCover         = "cover"
	CategoryImprovisation = "improvisation"

	DefaultTempo = 120
)

// RecordingCategories lists the accepted values of Recording.Category.
var RecordingCategories = []string{
	CategoryPersonal,
	CategoryPractice,
	CategoryComposition,
	CategoryCover,
	CategoryImprovisation,
}

// IsRecordingCategory reports whether c is one of RecordingCategories.
func IsRecordingCategory(c string) bool {
	for _, v := range RecordingCategories {
		if v == c {
			return true
		}
	}
	return false
}

// RecordedNote is one key press. Times are milliseconds from the start of
// the recording.
type RecordedNote struct {
	Note      string  `json:"note"`
	Octave    int     `json:"octave"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Velocity  float64 `json:"velocity"`
}

type Recording struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Notes       []RecordedNote
	Duration    int
	Tempo       int
	Category    string
	// MIDIKey is the object-storage key of the exported MIDI file, empty
	// until one is uploaded.
	MIDIKey   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type RecordingUpdate struct {
	Title       *string
	Description *string
	Tempo       *int
	Category    *string
}

// RecordingFilter selects a page of a user's recordings. Page is 1-based.
type RecordingFilter struct {
	Category string
	Page     int
	PerPage  int
}

type RecordingPage struct {
	Recordings []*Recording
	Total      int
	Page       int
	PerPage    int
	TotalPages int
}
