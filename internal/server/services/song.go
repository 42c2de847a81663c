package services

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/labandina/internal/common"
	"github.com/dmitrijs2005/labandina/internal/dbx"
	"github.com/dmitrijs2005/labandina/internal/server/auth"
	"github.com/dmitrijs2005/labandina/internal/server/models"
	"github.com/dmitrijs2005/labandina/internal/server/repositories/repomanager"
)

const (
	// defaultRecordedNoteLength applies to recorded notes with no end time.
	defaultRecordedNoteLength = 500
	defaultConvertedCategory  = "Recordings"
)

// SongService manages the tutorial song catalog. Every authenticated user
// can browse it; only the creator of a song may delete it.
type SongService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewSongService(db *sql.DB, m repomanager.RepositoryManager) *SongService {
	return &SongService{db: db, repomanager: m}
}

func validateDifficulty(d string) error {
	if !models.IsSongDifficulty(d) {
		return validationError("difficulty must be one of %s", strings.Join(models.SongDifficulties, ", "))
	}
	return nil
}

// validateSong trims and defaults s, then checks it.
func validateSong(s *models.Song) error {
	s.Title = strings.TrimSpace(s.Title)
	s.Artist = strings.TrimSpace(s.Artist)
	s.Category = strings.TrimSpace(s.Category)
	if s.KeySignature == "" {
		s.KeySignature = models.DefaultKeySignature
	}
	if s.TimeSignature == "" {
		s.TimeSignature = models.DefaultTimeSignature
	}

	if s.Title == "" {
		return validationError("title is required")
	}
	if s.Artist == "" {
		return validationError("artist is required")
	}
	if s.Category == "" {
		return validationError("category is required")
	}
	if err := validateDifficulty(s.Difficulty); err != nil {
		return err
	}
	if s.BPM < 1 || s.BPM > maxTempo {
		return validationError("bpm must be between 1 and %d", maxTempo)
	}
	for i, n := range s.Notes {
		if strings.TrimSpace(n.Key) == "" {
			return validationError("note %d: key is required", i)
		}
		if n.StartTime < 0 || n.Duration < 0 {
			return validationError("note %d: start_time and duration must not be negative", i)
		}
	}
	return nil
}

// songDuration is the end of the last sounding note.
func songDuration(notes []models.SongNote) int {
	var d int
	for _, n := range notes {
		if end := n.StartTime + n.Duration; end > d {
			d = end
		}
	}
	return d
}

// Create adds s to the catalog on behalf of userID. Duration is derived
// from the notes.
func (s *SongService) Create(ctx context.Context, userID string, song *models.Song) (*models.Song, error) {
	song.CreatedBy = userID
	if err := validateSong(song); err != nil {
		return nil, err
	}
	song.Duration = songDuration(song.Notes)

	created, err := s.repomanager.Songs(s.db).Create(ctx, song)
	if err != nil {
		return nil, fmt.Errorf("error creating song: %w", err)
	}
	return created, nil
}

func (s *SongService) Get(ctx context.Context, id string) (*models.Song, error) {
	return s.repomanager.Songs(s.db).GetByID(ctx, id)
}

// List returns catalog songs newest first, optionally filtered by category
// and difficulty.
func (s *SongService) List(ctx context.Context, f models.SongFilter) ([]*models.Song, error) {
	f.Limit, f.Offset = normalizeLimit(f.Limit, f.Offset)
	if f.Difficulty != "" {
		if err := validateDifficulty(f.Difficulty); err != nil {
			return nil, err
		}
	}
	return s.repomanager.Songs(s.db).List(ctx, f)
}

// Delete removes song id. Seeded catalog songs have no creator and cannot
// be deleted through the API.
func (s *SongService) Delete(ctx context.Context, identityID, id string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Songs(tx)
		song, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if song.CreatedBy == "" || !auth.AuthorizeOwner(identityID, song.CreatedBy) {
			return common.ErrForbidden
		}
		return repo.Delete(ctx, id)
	})
}

// ConvertRecording turns one of identityID's recordings into a catalog song
// so it can be practised as a tutorial. The performer's username becomes
// the artist.
func (s *SongService) ConvertRecording(ctx context.Context, identityID, recordingID string, opts models.SongConversion) (*models.Song, error) {
	rec, err := ownedRecording(ctx, s.repomanager.Recordings(s.db).GetByID, identityID, recordingID)
	if err != nil {
		return nil, err
	}
	performer, err := s.repomanager.Users(s.db).GetByID(ctx, rec.UserID)
	if err != nil {
		return nil, fmt.Errorf("error loading performer: %w", err)
	}

	song := &models.Song{
		Title:       opts.Title,
		Artist:      performer.UserName,
		Difficulty:  opts.Difficulty,
		Category:    opts.Category,
		BPM:         rec.Tempo,
		Notes:       songNotesFromRecording(rec.Notes),
		Description: "Converted from recording: " + firstNonEmpty(rec.Description, rec.Title),
	}
	if strings.TrimSpace(song.Title) == "" {
		song.Title = rec.Title + " (Tutorial)"
	}
	if song.Difficulty == "" {
		song.Difficulty = models.DifficultyBeginner
	}
	if strings.TrimSpace(song.Category) == "" {
		song.Category = defaultConvertedCategory
	}

	return s.Create(ctx, identityID, song)
}

// songNotesFromRecording joins note name and octave into a key ("C" + 4 is
// "C4") and turns start/end times into a start and a length.
func songNotesFromRecording(recorded []models.RecordedNote) []models.SongNote {
	notes := make([]models.SongNote, 0, len(recorded))
	for _, n := range recorded {
		start := int(math.Round(n.StartTime))
		end := start + defaultRecordedNoteLength
		if n.EndTime != 0 {
			end = int(math.Round(n.EndTime))
		}
		notes = append(notes, models.SongNote{
			Key:       n.Note + strconv.Itoa(n.Octave),
			StartTime: start,
			Duration:  max(end-start, 0),
		})
	}
	return notes
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
