package http

import (
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/labandina/internal/server/models"
	"github.com/dmitrijs2005/labandina/internal/server/services"
)

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.UserName,
		FullName:  u.FullName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// publicUserResponse is what other users get to see.
type publicUserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func toTokenResponse(p *services.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(p.ExpiresIn / time.Second),
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type registerResponse struct {
	User userResponse `json:"user"`
	tokenResponse
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type updateUserRequest struct {
	Email    *string `json:"email"`
	Username *string `json:"username"`
	FullName *string `json:"full_name"`
	Password *string `json:"password"`
}

type compositionRequest struct {
	Title           *string         `json:"title"`
	Description     *string         `json:"description"`
	CompositionData json.RawMessage `json:"composition_data"`
	IsPublic        *bool           `json:"is_public"`
}

type compositionResponse struct {
	ID              string          `json:"id"`
	OwnerID         string          `json:"owner_id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	CompositionData json.RawMessage `json:"composition_data"`
	IsPublic        bool            `json:"is_public"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func toCompositionResponse(c *models.Composition) compositionResponse {
	data := json.RawMessage(c.CompositionData)
	if !json.Valid(data) {
		data = json.RawMessage("null")
	}
	return compositionResponse{
		ID:              c.ID,
		OwnerID:         c.OwnerID,
		Title:           c.Title,
		Description:     c.Description,
		CompositionData: data,
		IsPublic:        c.IsPublic,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func toCompositionResponses(cs []*models.Composition) []compositionResponse {
	out := make([]compositionResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, toCompositionResponse(c))
	}
	return out
}

type keyMappingRequest struct {
	Name        *string         `json:"name"`
	MappingData json.RawMessage `json:"mapping_data"`
}

type keyMappingResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	MappingData json.RawMessage `json:"mapping_data"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func toKeyMappingResponse(m *models.KeyMapping) keyMappingResponse {
	return keyMappingResponse{
		ID:          m.ID,
		Name:        m.Name,
		MappingData: m.MappingData,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

type createRecordingRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Notes       []models.RecordedNote `json:"notes"`
	Duration    int                   `json:"duration"`
	Tempo       int                   `json:"tempo"`
	Category    string                `json:"category"`
}

type updateRecordingRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Tempo       *int    `json:"tempo"`
	Category    *string `json:"category"`
}

type recordingResponse struct {
	ID          string                `json:"id"`
	UserID      string                `json:"user_id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Notes       []models.RecordedNote `json:"notes"`
	Duration    int                   `json:"duration"`
	Tempo       int                   `json:"tempo"`
	Category    string                `json:"category"`
	HasMIDI     bool                  `json:"has_midi"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

func toRecordingResponse(r *models.Recording) recordingResponse {
	notes := r.Notes
	if notes == nil {
		notes = []models.RecordedNote{}
	}
	return recordingResponse{
		ID:          r.ID,
		UserID:      r.UserID,
		Title:       r.Title,
		Description: r.Description,
		Notes:       notes,
		Duration:    r.Duration,
		Tempo:       r.Tempo,
		Category:    r.Category,
		HasMIDI:     r.MIDIKey != "",
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type recordingListResponse struct {
	Recordings []recordingResponse `json:"recordings"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page"`
	PerPage    int                 `json:"per_page"`
	TotalPages int                 `json:"total_pages"`
}

type midiURLResponse struct {
	URL       string `json:"url"`
	Method    string `json:"method"`
	Key       string `json:"key"`
	ExpiresIn int64  `json:"expires_in"`
}

func toMIDIURLResponse(u *services.MIDIURL, method string) midiURLResponse {
	return midiURLResponse{
		URL:       u.URL,
		Method:    method,
		Key:       u.Key,
		ExpiresIn: int64(u.ExpiresIn / time.Second),
	}
}

type songRequest struct {
	Title         string            `json:"title"`
	Artist        string            `json:"artist"`
	Difficulty    string            `json:"difficulty"`
	Category      string            `json:"category"`
	BPM           int               `json:"bpm"`
	Notes         []models.SongNote `json:"notes"`
	KeySignature  string            `json:"key_signature"`
	TimeSignature string            `json:"time_signature"`
	Description   string            `json:"description"`
}

type songResponse struct {
	ID            string            `json:"id"`
	CreatedBy     *string           `json:"created_by"`
	Title         string            `json:"title"`
	Artist        string            `json:"artist"`
	Difficulty    string            `json:"difficulty"`
	Category      string            `json:"category"`
	BPM           int               `json:"bpm"`
	Duration      int               `json:"duration"`
	Notes         []models.SongNote `json:"notes"`
	KeySignature  string            `json:"key_signature"`
	TimeSignature string            `json:"time_signature"`
	Description   string            `json:"description"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func toSongResponse(s *models.Song) songResponse {
	notes := s.Notes
	if notes == nil {
		notes = []models.SongNote{}
	}
	var createdBy *string
	if s.CreatedBy != "" {
		createdBy = &s.CreatedBy
	}
	return songResponse{
		ID:            s.ID,
		CreatedBy:     createdBy,
		Title:         s.Title,
		Artist:        s.Artist,
		Difficulty:    s.Difficulty,
		Category:      s.Category,
		BPM:           s.BPM,
		Duration:      s.Duration,
		Notes:         notes,
		KeySignature:  s.KeySignature,
		TimeSignature: s.TimeSignature,
		Description:   s.Description,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func toSongResponses(ss []*models.Song) []songResponse {
	out := make([]songResponse, 0, len(ss))
	for _, s := range ss {
		out = append(out, toSongResponse(s))
	}
	return out
}
