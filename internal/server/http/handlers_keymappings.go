package http

import (
	"net/http"

	"github.com/dmitrijs2005/labandina/internal/server/models"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) listKeyMappings(w http.ResponseWriter, r *http.Request) {
	list, err := h.keyMappings.List(r.Context(), identity(r))
	if err != nil {
		writeMappedError(r.Context(), h.logger, w, "list_key_mappings", err)
		return
	}
	out := make([]keyMappingResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toKeyMappingResponse(m))
	}
	writeSuccess(w, http.StatusOK, out)
}

func (h *Handler) createKeyMapping(w http.ResponseWriter, r *http.Request) {
	var req keyMappingRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeValidationError(w, err)
		return
	}
	var name string
	if req.Name != nil {
		name = *req.Name
	}

	m, err := h.keyMappings.Create(r.Context(), identity(r), name, req.MappingData)
	if err != nil {
		writeMappedError(r.Context(), h.logger, w, "create_key_mapping", err)
		return
	}
	writeSuccess(w, http.StatusCreated, toKeyMappingResponse(m))
}

func (h *Handler) getDefaultKeyMapping(w http.ResponseWriter, r *http.Request) {
	m, err := h.keyMappings.GetDefault(r.Context(), identity(r))
	if err != nil {
		writeMappedError(r.Context(), h.logger, w, "get_default_key_mapping", err)
		return
	}
	writeSuccess(w, http.StatusOK, toKeyMappingResponse(m))
}

func (h *Handler) saveDefaultKeyMapping(w http.ResponseWriter, r *http.Request) {
	var req keyMappingRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeValidationError(w, err)
		return
	}

	m, err := h.keyMappings.SaveDefault(r.Context(), identity(r), req.MappingData)
	if err != nil {
		writeMappedError(r.Context(), h.logger, w, "save_default_key_mapping", err)
		return
	}
	writeSuccess(w, http.StatusOK, toKeyMappingResponse(m))
}

func (h *Handler) updateKeyMapping(w http.ResponseWriter, r *http.Request) {
	var req keyMappingRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeValidationError(w, err)
		return
	}

	m, err := h.keyMappings.Update(r.Context(), identity(r), chi.URLParam(r, "id"), models.KeyMappingUpdate{
		Name:        req.Name,
		MappingData: req.MappingData,
	})
	if err != nil {
		writeMappedError(r.Context(), h.logger, w, "update_key_mapping", err)
		return
	}
	writeSuccess(w, http.StatusOK, toKeyMappingResponse(m))
}

func (h *Handler) deleteKeyMapping(w http.ResponseWriter, r *http.Request) {
	if err := h.keyMappings.Delete(r.Context(), identity(r), chi.URLParam(r, "id")); err != nil {
		writeMappedError(r.Context(), h.logger, w, "delete_key_mapping", err)
		return
	}
	writeMessage(w, http.StatusOK, "key mapping deleted")
}
