package http

import (
	"net/http"

	"github.com/dmitrijs2005/labandina/internal/server/models"
	"github.com/go-chi/chi/v5"
)

func pageParams(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	return parseIntDefault(q.Get("limit"), 0), parseIntDefault(q.Get("skip"), 0)
}

func (h *Handler) listCompositions(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	list, err := h.compositions.ListMine(r.Context(), identity(r), limit, offset)
	if err != nil {
		writeMappedError(r.Context(), h.logger, w, "list_compositions", err)
		return
	}
	writeSuccess(w, http.StatusOK, toCompositionResponses(list))
}

func (h *Handler) listPublicCompositions(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	list, err := h.compositions.ListPublic(r.Context(), limit, offset)
	if err != nil {
		writeMappedError(r.Context(), h.logger, w, "list_public_compositions", err)
		return
	}
	writeSuccess(w, http.StatusOK, toCompositionResponses(list))
}

func (h *Handler) createComposition(w http.ResponseWriter, r *http.Request) {
	var req compositionRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeValidationError(w, err)
		return
	}

	c := &models.Composition{CompositionData: string(req.CompositionData)}
	if req.Title != nil {
		c.Title = *req.Title
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.IsPublic != nil {
		c.IsPublic = *req.IsPublic
	}

	created, err := h.compositions.Create(r.Context(), identity(r), c)
	if err != nil {
		writeMappedError(r.Context(), h.logger, w, "create_composition", err)
		return
	}
	writeSuccess(w, http.StatusCreated, toCompositionResponse(created))
}

func (h *Handler) getComposition(w http.ResponseWriter, r *http.Request) {
	c, err := h.compositions.Get(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		writeMappedError(r.Context(), h.logger, w, "get_composition", err)
		return
	}
	writeSuccess(w, http.StatusOK, toCompositionResponse(c))
}

func (h *Handler) updateComposition(w http.ResponseWriter, r *http.Request) {
	var req compositionRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeValidationError(w, err)
		return
	}

	upd := models.CompositionUpdate{
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	}
	if req.CompositionData != nil {
		data := string(req.CompositionData)
		upd.CompositionData = &data
	}

	c, err := h.compositions.Update(r.Context(), identity(r), chi.URLParam(r, "id"), upd)
	if err != nil {
		writeMappedError(r.Context(), h.logger, w, "update_composition", err)
		return
	}
	writeSuccess(w, http.StatusOK, toCompositionResponse(c))
}

func (h *Handler) deleteComposition(w http.ResponseWriter, r *http.Request) {
	if err := h.compositions.Delete(r.Context(), identity(r), chi.URLParam(r, "id")); err != nil {
		writeMappedError(r.Context(), h.logger, w, "delete_composition", err)
		return
	}
	writeMessage(w, http.StatusOK, "composition deleted")
}
