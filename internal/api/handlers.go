package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/spotmap/internal/apperr"
	"github.com/starford/spotmap/internal/checksum"
	"github.com/starford/spotmap/internal/mapsurface"
	"github.com/starford/spotmap/internal/spots"
	"github.com/starford/spotmap/internal/ui"
)

const maxJSONBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc       *spots.Service
	surface   *mapsurface.Surface
	presenter *ui.Presenter
	renderer  *ui.Renderer
}

// NewHandler creates a new Handler.
func NewHandler(svc *spots.Service, surface *mapsurface.Surface, presenter *ui.Presenter, renderer *ui.Renderer) *Handler {
	return &Handler{svc: svc, surface: surface, presenter: presenter, renderer: renderer}
}

func spotID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "id"))
}

// ListSpots handles GET /api/spots.
//
//	@Summary		List all spots ordered by creation time
//	@Tags			spots
//	@Produce		json
//	@Success		200	{object}	SpotListResponse
//	@Router			/spots [get]
func (h *Handler) ListSpots(w http.ResponseWriter, r *http.Request) {
	all, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, "list spots", err)
		return
	}
	writeJSON(w, http.StatusOK, SpotListResponse{Spots: all, Total: len(all)})
}

// GetSpot handles GET /api/spots/{id}.
//
//	@Summary		Get a single spot
//	@Tags			spots
//	@Produce		json
//	@Param			id				path		string	true	"Spot id"
//	@Param			If-None-Match	header		string	false	"ETag from a previous response"
//	@Success		200				{object}	models.Spot
//	@Success		304				"Not modified"
//	@Failure		404				{object}	errResponse
//	@Router			/spots/{id} [get]
func (h *Handler) GetSpot(w http.ResponseWriter, r *http.Request) {
	id := spotID(r)
	sp, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, "get spot", err, slog.String("id", id))
		return
	}
	etag := checksum.ETag(checksum.Spot(sp))
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, sp)
}

// CreateSpot handles POST /api/spots.
//
//	@Summary		Create a new spot
//	@Tags			spots
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SpotRequest	true	"Spot to create"
//	@Success		201		{object}	models.Spot
//	@Failure		400		{object}	errResponse
//	@Router			/spots [post]
func (h *Handler) CreateSpot(w http.ResponseWriter, r *http.Request) {
	var req SpotRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, "create spot", err)
		return
	}
	sp, err := h.svc.Create(r.Context(), req.input())
	if err != nil {
		writeError(w, "create spot", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(checksum.Spot(sp)))
	writeJSON(w, http.StatusCreated, sp)
}

// UpdateSpot handles PUT /api/spots/{id}.
//
//	@Summary		Replace a spot with optimistic concurrency
//	@Tags			spots
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string		true	"Spot id"
//	@Param			If-Match	header		string		false	"ETag for optimistic concurrency"
//	@Param			body		body		SpotRequest	true	"Replacement spot"
//	@Success		200			{object}	models.Spot
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		412			{object}	errResponse
//	@Router			/spots/{id} [put]
func (h *Handler) UpdateSpot(w http.ResponseWriter, r *http.Request) {
	id := spotID(r)
	var req SpotRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, "update spot", err)
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	if ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`); ifMatch != "" {
		current, err := h.svc.Get(r.Context(), id)
		if err != nil {
			writeError(w, "update spot", err, slog.String("id", id))
			return
		}
		if checksum.Spot(current) != ifMatch {
			writeError(w, "update spot", apperr.ErrConflict)
			return
		}
	}

	sp, err := h.svc.Edit(r.Context(), id, req.input())
	if err != nil {
		writeError(w, "update spot", err, slog.String("id", id))
		return
	}
	w.Header().Set("ETag", checksum.ETag(checksum.Spot(sp)))
	writeJSON(w, http.StatusOK, sp)
}

// DeleteSpot handles DELETE /api/spots/{id}.
//
//	@Summary		Delete a spot
//	@Tags			spots
//	@Param			id	path	string	true	"Spot id"
//	@Success		204	"Spot deleted"
//	@Failure		404	{object}	errResponse
//	@Router			/spots/{id} [delete]
func (h *Handler) DeleteSpot(w http.ResponseWriter, r *http.Request) {
	id := spotID(r)
	if _, err := h.svc.Get(r.Context(), id); err != nil {
		writeError(w, "delete spot", err, slog.String("id", id))
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, "delete spot", err, slog.String("id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
