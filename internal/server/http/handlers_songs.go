package http

import (
	"net/http"

	"github.com/dmitrijs2005/labandina/internal/server/models"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) listSongs(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	q := r.URL.Query()
	list, err := h.songs.List(r.Context(), models.SongFilter{
		Category:   q.Get("category"),
		Difficulty: q.Get("difficulty"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		writeMappedError(r.Context(), h.logger, w, "list_songs", err)
		return
	}
	writeSuccess(w, http.StatusOK, toSongResponses(list))
}

func (h *Handler) createSong(w http.ResponseWriter, r *http.Request) {
	var req songRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeValidationError(w, err)
		return
	}

	song, err := h.songs.Create(r.Context(), identity(r), &models.Song{
		Title:         req.Title,
		Artist:        req.Artist,
		Difficulty:    req.Difficulty,
		Category:      req.Category,
		BPM:           req.BPM,
		Notes:         req.Notes,
		KeySignature:  req.KeySignature,
		TimeSignature: req.TimeSignature,
		Description:   req.Description,
	})
	if err != nil {
		writeMappedError(r.Context(), h.logger, w, "create_song", err)
		return
	}
	writeSuccess(w, http.StatusCreated, toSongResponse(song))
}

func (h *Handler) getSong(w http.ResponseWriter, r *http.Request) {
	song, err := h.songs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeMappedError(r.Context(), h.logger, w, "get_song", err)
		return
	}
	writeSuccess(w, http.StatusOK, toSongResponse(song))
}

func (h *Handler) deleteSong(w http.ResponseWriter, r *http.Request) {
	if err := h.songs.Delete(r.Context(), identity(r), chi.URLParam(r, "id")); err != nil {
		writeMappedError(r.Context(), h.logger, w, "delete_song", err)
		return
	}
	writeMessage(w, http.StatusOK, "song deleted")
}

// convertRecordingToSong publishes a recording as a tutorial song. Title,
// difficulty and category come from the query string.
func (h *Handler) convertRecordingToSong(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	song, err := h.songs.ConvertRecording(r.Context(), identity(r), chi.URLParam(r, "id"), models.SongConversion{
		Title:      q.Get("title"),
		Difficulty: q.Get("difficulty"),
		Category:   q.Get("category"),
	})
	if err != nil {
		writeMappedError(r.Context(), h.logger, w, "convert_recording_to_song", err)
		return
	}
	writeSuccess(w, http.StatusCreated, toSongResponse(song))
}
