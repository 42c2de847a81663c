// Package http exposes the La Bandina REST API under /api/v1.
package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/labandina/internal/logging"
	"github.com/dmitrijs2005/labandina/internal/server/auth"
	"github.com/dmitrijs2005/labandina/internal/server/metrics"
	"github.com/dmitrijs2005/labandina/internal/server/models"
	"github.com/dmitrijs2005/labandina/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
)

type UserService interface {
	Register(ctx context.Context, email, username, password, fullName string) (*models.User, *services.TokenPair, error)
	Login(ctx context.Context, login, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, claims *auth.Claims, refreshToken string) error
	Me(ctx context.Context, identityID string) (*models.User, error)
	UpdateMe(ctx context.Context, identityID string, upd models.UserUpdate) (*models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
}

type CompositionService interface {
	Create(ctx context.Context, ownerID string, c *models.Composition) (*models.Composition, error)
	Get(ctx context.Context, identityID, id string) (*models.Composition, error)
	ListMine(ctx context.Context, ownerID string, limit, offset int) ([]*models.Composition, error)
	ListPublic(ctx context.Context, limit, offset int) ([]*models.Composition, error)
	Update(ctx context.Context, identityID, id string, upd models.CompositionUpdate) (*models.Composition, error)
	Delete(ctx context.Context, identityID, id string) error
}

type KeyMappingService interface {
	Create(ctx context.Context, userID, name string, data json.RawMessage) (*models.KeyMapping, error)
	List(ctx context.Context, userID string) ([]*models.KeyMapping, error)
	Update(ctx context.Context, identityID, id string, upd models.KeyMappingUpdate) (*models.KeyMapping, error)
	Delete(ctx context.Context, identityID, id string) error
	SaveDefault(ctx context.Context, userID string, data json.RawMessage) (*models.KeyMapping, error)
	GetDefault(ctx context.Context, userID string) (*models.KeyMapping, error)
}

type RecordingService interface {
	Create(ctx context.Context, userID string, rec *models.Recording) (*models.Recording, error)
	List(ctx context.Context, userID string, f models.RecordingFilter) (*models.RecordingPage, error)
	Categories(ctx context.Context, userID string) ([]string, error)
	Get(ctx context.Context, identityID, id string) (*models.Recording, error)
	Update(ctx context.Context, identityID, id string, upd models.RecordingUpdate) (*models.Recording, error)
	Delete(ctx context.Context, identityID, id string) error
	MIDIUploadURL(ctx context.Context, identityID, id string) (*services.MIDIURL, error)
	MIDIDownloadURL(ctx context.Context, identityID, id string) (*services.MIDIURL, error)
}

type SongService interface {
	Create(ctx context.Context, userID string, s *models.Song) (*models.Song, error)
	Get(ctx context.Context, id string) (*models.Song, error)
	List(ctx context.Context, f models.SongFilter) ([]*models.Song, error)
	Delete(ctx context.Context, identityID, id string) error
	ConvertRecording(ctx context.Context, identityID, recordingID string, opts models.SongConversion) (*models.Song, error)
}

// RevocationChecker reports logged-out tokens. Implemented by
// cache.RevocationStore.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Deps are the collaborators of Handler. Revocations may be nil.
type Deps struct {
	Authority    *auth.Authority
	Users        UserService
	Compositions CompositionService
	KeyMappings  KeyMappingService
	Recordings   RecordingService
	Songs        SongService
	Revocations  RevocationChecker
	Metrics      *metrics.Metrics
	Logger       logging.Logger
}

type Handler struct {
	authority    *auth.Authority
	users        UserService
	compositions CompositionService
	keyMappings  KeyMappingService
	recordings   RecordingService
	songs        SongService
	revocations  RevocationChecker
	metrics      *metrics.Metrics
	logger       logging.Logger
}

func NewHandler(d Deps) *Handler {
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.Logger == nil {
		d.Logger = logging.Nop()
	}
	return &Handler{
		authority:    d.Authority,
		users:        d.Users,
		compositions: d.Compositions,
		keyMappings:  d.KeyMappings,
		recordings:   d.Recordings,
		songs:        d.Songs,
		revocations:  d.Revocations,
		metrics:      d.Metrics,
		logger:       d.Logger.With("module", "http"),
	}
}

// NewRouter registers the API routes and middleware stack. corsOrigins are
// the browser origins allowed to call the API.
func NewRouter(h *Handler, corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(h.recoverMiddleware)
	r.Use(h.loggingMiddleware)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id", "WWW-Authenticate"},
		AllowCredentials: true,
	}).Handler)

	r.Get("/healthz", h.healthz)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", h.register)
		r.Post("/auth/login", h.login)
		r.Post("/auth/refresh", h.refresh)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware)

			r.Post("/auth/logout", h.logout)

			r.Get("/users/me", h.getMe)
			r.Put("/users/me", h.updateMe)
			r.Get("/users/{id}", h.getUser)

			r.Route("/compositions", func(r chi.Router) {
				r.Get("/", h.listCompositions)
				r.Post("/", h.createComposition)
				r.Get("/public", h.listPublicCompositions)
				r.Get("/{id}", h.getComposition)
				r.Put("/{id}", h.updateComposition)
				r.Delete("/{id}", h.deleteComposition)
			})

			r.Route("/key-mappings", func(r chi.Router) {
				r.Get("/", h.listKeyMappings)
				r.Post("/", h.createKeyMapping)
				r.Get("/default", h.getDefaultKeyMapping)
				r.Post("/save-default", h.saveDefaultKeyMapping)
				r.Put("/{id}", h.updateKeyMapping)
				r.Delete("/{id}", h.deleteKeyMapping)
			})

			r.Route("/recordings", func(r chi.Router) {
				r.Get("/", h.listRecordings)
				r.Post("/", h.createRecording)
				r.Get("/categories", h.recordingCategories)
				r.Get("/{id}", h.getRecording)
				r.Put("/{id}", h.updateRecording)
				r.Delete("/{id}", h.deleteRecording)
				r.Post("/{id}/midi/upload-url", h.midiUploadURL)
				r.Get("/{id}/midi", h.midiDownloadURL)
				r.Post("/{id}/convert-to-song", h.convertRecordingToSong)
			})

			r.Route("/songs", func(r chi.Router) {
				r.Get("/", h.listSongs)
				r.Post("/", h.createSong)
				r.Get("/{id}", h.getSong)
				r.Delete("/{id}", h.deleteSong)
			})
		})
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}
