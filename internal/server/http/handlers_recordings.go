package http

import (
	"net/http"

	"github.com/dmitrijs2005/labandina/internal/server/models"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) listRecordings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.recordings.List(r.Context(), identity(r), models.RecordingFilter{
		Category: q.Get("category"),
		Page:     parseIntDefault(q.Get("page"), 1),
		PerPage:  parseIntDefault(q.Get("per_page"), 0),
	})
	if err != nil {
		writeMappedError(r.Context(), h.logger, w, "list_recordings", err)
		return
	}

	out := recordingListResponse{
		Recordings: make([]recordingResponse, 0, len(page.Recordings)),
		Total:      page.Total,
		Page:       page.Page,
		PerPage:    page.PerPage,
		TotalPages: page.TotalPages,
	}
	for _, rec := range page.Recordings {
		out.Recordings = append(out.Recordings, toRecordingResponse(rec))
	}
	writeSuccess(w, http.StatusOK, out)
}

func (h *Handler) createRecording(w http.ResponseWriter, r *http.Request) {
	var req createRecordingRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeValidationError(w, err)
		return
	}

	rec, err := h.recordings.Create(r.Context(), identity(r), &models.Recording{
		Title:       req.Title,
		Description: req.Description,
		Notes:       req.Notes,
		Duration:    req.Duration,
		Tempo:       req.Tempo,
		Category:    req.Category,
	})
	if err != nil {
		writeMappedError(r.Context(), h.logger, w, "create_recording", err)
		return
	}
	writeSuccess(w, http.StatusCreated, toRecordingResponse(rec))
}

func (h *Handler) recordingCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.recordings.Categories(r.Context(), identity(r))
	if err != nil {
		writeMappedError(r.Context(), h.logger, w, "recording_categories", err)
		return
	}
	writeSuccess(w, http.StatusOK, cats)
}

func (h *Handler) getRecording(w http.ResponseWriter, r *http.Request) {
	rec, err := h.recordings.Get(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		writeMappedError(r.Context(), h.logger, w, "get_recording", err)
		return
	}
	writeSuccess(w, http.StatusOK, toRecordingResponse(rec))
}

func (h *Handler) updateRecording(w http.ResponseWriter, r *http.Request) {
	var req updateRecordingRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeValidationError(w, err)
		return
	}

	rec, err := h.recordings.Update(r.Context(), identity(r), chi.URLParam(r, "id"), models.RecordingUpdate{
		Title:       req.Title,
		Description: req.Description,
		Tempo:       req.Tempo,
		Category:    req.Category,
	})
	if err != nil {
		writeMappedError(r.Context(), h.logger, w, "update_recording", err)
		return
	}
	writeSuccess(w, http.StatusOK, toRecordingResponse(rec))
}

func (h *Handler) deleteRecording(w http.ResponseWriter, r *http.Request) {
	if err := h.recordings.Delete(r.Context(), identity(r), chi.URLParam(r, "id")); err != nil {
		writeMappedError(r.Context(), h.logger, w, "delete_recording", err)
		return
	}
	writeMessage(w, http.StatusOK, "recording deleted")
}

func (h *Handler) midiUploadURL(w http.ResponseWriter, r *http.Request) {
	u, err := h.recordings.MIDIUploadURL(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		writeMappedError(r.Context(), h.logger, w, "midi_upload_url", err)
		return
	}
	writeSuccess(w, http.StatusOK, toMIDIURLResponse(u, http.MethodPut))
}

func (h *Handler) midiDownloadURL(w http.ResponseWriter, r *http.Request) {
	u, err := h.recordings.MIDIDownloadURL(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		writeMappedError(r.Context(), h.logger, w, "midi_download_url", err)
		return
	}
	writeSuccess(w, http.StatusOK, toMIDIURLResponse(u, http.MethodGet))
}
