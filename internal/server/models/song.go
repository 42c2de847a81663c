package models

import "time"

const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"

	DefaultKeySignature  = "C major"
	DefaultTimeSignature = "4/4"
)

// SongDifficulties lists the accepted values of Song.Difficulty.
var SongDifficulties = []string{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced}

func IsSongDifficulty(d string) bool {
	for _, v := range SongDifficulties {
		if v == d {
			return true
		}
	}
	return false
}

// SongNote is one key of a tutorial melody, e.g. "F#5". Times are
// milliseconds from the start of the song.
type SongNote struct {
	Key       string `json:"key"`
	StartTime int    `json:"start_time"`
	Duration  int    `json:"duration"`
}

// Song is an entry of the shared tutorial catalog. CreatedBy is empty for
// songs seeded outside the API.
type Song struct {
	ID            string
	CreatedBy     string
	Title         string
	Artist        string
	Difficulty    string
	Category      string
	BPM           int
	Duration      int
	Notes         []SongNote
	KeySignature  string
	TimeSignature string
	Description   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SongFilter selects catalog songs; empty fields match everything.
type SongFilter struct {
	Category   string
	Difficulty string
	Limit      int
	Offset     int
}

// SongConversion overrides the defaults used when a recording becomes a song.
type SongConversion struct {
	Title      string
	Difficulty string
	Category   string
}
