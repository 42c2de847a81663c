package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/labandina/internal/common"
	"github.com/dmitrijs2005/labandina/internal/dbx"
	"github.com/dmitrijs2005/labandina/internal/server/auth"
	"github.com/dmitrijs2005/labandina/internal/server/models"
	"github.com/dmitrijs2005/labandina/internal/server/objectstore"
	"github.com/dmitrijs2005/labandina/internal/server/repositories/repomanager"
)

const (
	defaultRecordingsPerPage = 20
	maxRecordingsPerPage     = 100
	maxTempo                 = 400
)

// Presigner hands out time-limited URLs for object storage.
// Implemented by objectstore.S3Presigner.
type Presigner interface {
	PresignPut(ctx context.Context, key string) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
	Expiry() time.Duration
}

// MIDIURL is a presigned link to a recording's MIDI file.
type MIDIURL struct {
	URL       string
	Key       string
	ExpiresIn time.Duration
}

type RecordingService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	presigner   Presigner
	now         func() time.Time
}

func NewRecordingService(db *sql.DB, m repomanager.RepositoryManager, p Presigner) *RecordingService {
	return &RecordingService{db: db, repomanager: m, presigner: p, now: time.Now}
}

func validateTempo(tempo int) error {
	if tempo < 1 || tempo > maxTempo {
		return validationError("tempo must be between 1 and %d", maxTempo)
	}
	return nil
}

func validateCategory(category string) error {
	if !models.IsRecordingCategory(category) {
		return validationError("category must be one of %s", strings.Join(models.RecordingCategories, ", "))
	}
	return nil
}

// Create stores rec for userID. Zero tempo and empty category fall back to
// the defaults.
func (s *RecordingService) Create(ctx context.Context, userID string, rec *models.Recording) (*models.Recording, error) {
	rec.UserID = userID
	rec.MIDIKey = ""
	rec.Title = strings.TrimSpace(rec.Title)
	if rec.Title == "" {
		return nil, validationError("title is required")
	}
	if rec.Tempo == 0 {
		rec.Tempo = models.DefaultTempo
	}
	if rec.Category == "" {
		rec.Category = models.CategoryPersonal
	}
	if err := validateTempo(rec.Tempo); err != nil {
		return nil, err
	}
	if err := validateCategory(rec.Category); err != nil {
		return nil, err
	}
	if rec.Duration < 0 {
		return nil, validationError("duration must not be negative")
	}

	created, err := s.repomanager.Recordings(s.db).Create(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("error creating recording: %w", err)
	}
	return created, nil
}

// List returns one page of the user's recordings, newest first.
func (s *RecordingService) List(ctx context.Context, userID string, f models.RecordingFilter) (*models.RecordingPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = defaultRecordingsPerPage
	}
	if f.PerPage > maxRecordingsPerPage {
		f.PerPage = maxRecordingsPerPage
	}
	if f.Category != "" {
		if err := validateCategory(f.Category); err != nil {
			return nil, err
		}
	}

	recs, total, err := s.repomanager.Recordings(s.db).List(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	return &models.RecordingPage{
		Recordings: recs,
		Total:      total,
		Page:       f.Page,
		PerPage:    f.PerPage,
		TotalPages: (total + f.PerPage - 1) / f.PerPage,
	}, nil
}

func (s *RecordingService) Categories(ctx context.Context, userID string) ([]string, error) {
	return s.repomanager.Recordings(s.db).Categories(ctx, userID)
}

// ownedRecording loads id through load and checks that identityID owns it.
// Transactions pass GetByIDForUpdate so the row stays locked until commit.
func ownedRecording(ctx context.Context, load func(context.Context, string) (*models.Recording, error), identityID, id string) (*models.Recording, error) {
	rec, err := load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.AuthorizeOwner(identityID, rec.UserID) {
		return nil, common.ErrForbidden
	}
	return rec, nil
}

func (s *RecordingService) Get(ctx context.Context, identityID, id string) (*models.Recording, error) {
	return ownedRecording(ctx, s.repomanager.Recordings(s.db).GetByID, identityID, id)
}

func (s *RecordingService) Update(ctx context.Context, identityID, id string, upd models.RecordingUpdate) (*models.Recording, error) {
	var rec *models.Recording
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Recordings(tx)
		var err error
		if rec, err = ownedRecording(ctx, repo.GetByIDForUpdate, identityID, id); err != nil {
			return err
		}

		if upd.Title != nil {
			title := strings.TrimSpace(*upd.Title)
			if title == "" {
				return validationError("title is required")
			}
			rec.Title = title
		}
		if upd.Description != nil {
			rec.Description = *upd.Description
		}
		if upd.Tempo != nil {
			if err := validateTempo(*upd.Tempo); err != nil {
				return err
			}
			rec.Tempo = *upd.Tempo
		}
		if upd.Category != nil {
			if err := validateCategory(*upd.Category); err != nil {
				return err
			}
			rec.Category = *upd.Category
		}
		return repo.Update(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *RecordingService) Delete(ctx context.Context, identityID, id string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Recordings(tx)
		if _, err := ownedRecording(ctx, repo.GetByIDForUpdate, identityID, id); err != nil {
			return err
		}
		return repo.Delete(ctx, id)
	})
}

// MIDIUploadURL reserves a fresh storage key for the recording's MIDI file
// and returns a presigned PUT URL for it. A previous file, if any, is
// replaced by the new key.
func (s *RecordingService) MIDIUploadURL(ctx context.Context, identityID, id string) (*MIDIURL, error) {
	repo := s.repomanager.Recordings(s.db)
	rec, err := ownedRecording(ctx, repo.GetByID, identityID, id)
	if err != nil {
		return nil, err
	}

	key := objectstore.MIDIKey(rec.UserID, rec.ID, s.now())
	url, err := s.presigner.PresignPut(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("error presigning upload: %w", err)
	}
	if err := repo.SetMIDIKey(ctx, rec.ID, key); err != nil {
		return nil, err
	}
	return &MIDIURL{URL: url, Key: key, ExpiresIn: s.presigner.Expiry()}, nil
}

// MIDIDownloadURL returns a presigned GET URL for the recording's MIDI file,
// or common.ErrorNotFound when none was uploaded.
func (s *RecordingService) MIDIDownloadURL(ctx context.Context, identityID, id string) (*MIDIURL, error) {
	rec, err := ownedRecording(ctx, s.repomanager.Recordings(s.db).GetByID, identityID, id)
	if err != nil {
		return nil, err
	}
	if rec.MIDIKey == "" {
		return nil, common.ErrorNotFound
	}
	url, err := s.presigner.PresignGet(ctx, rec.MIDIKey)
	if err != nil {
		return nil, fmt.Errorf("error presigning download: %w", err)
	}
	return &MIDIURL{URL: url, Key: rec.MIDIKey, ExpiresIn: s.presigner.Expiry()}, nil
}
