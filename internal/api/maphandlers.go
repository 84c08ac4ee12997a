package api

import (
	"log/slog"
	"net/http"

	"github.com/starford/spotmap/internal/models"
)

// GetMap handles GET /api/map.
//
//	@Summary		Snapshot of the map surface
//	@Tags			map
//	@Produce		json
//	@Success		200	{object}	mapsurface.Snapshot
//	@Router			/map [get]
func (h *Handler) GetMap(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.surface.Snapshot())
}

// ListBasemaps handles GET /api/basemaps.
//
//	@Summary		List selectable basemaps
//	@Tags			map
//	@Produce		json
//	@Success		200	{object}	BasemapListResponse
//	@Router			/basemaps [get]
func (h *Handler) ListBasemaps(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, BasemapListResponse{
		Basemaps: h.surface.Basemaps(),
		Active:   h.surface.ActiveBasemap().Name,
	})
}

// ClickMap handles POST /api/map/click. A click opens the add form at the
// clicked position.
//
//	@Summary		Dispatch a map click
//	@Tags			map
//	@Accept			json
//	@Param			body	body	ClickRequest	true	"Click position"
//	@Success		204		"Dispatched"
//	@Failure		400		{object}	errResponse
//	@Router			/map/click [post]
func (h *Handler) ClickMap(w http.ResponseWriter, r *http.Request) {
	var req ClickRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, "map click", err)
		return
	}
	h.surface.Click(models.LatLng{Lat: req.Lat, Lng: req.Lng})
	w.WriteHeader(http.StatusNoContent)
}

// SetView handles POST /api/map/view.
//
//	@Summary		Report the browser viewport
//	@Tags			map
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ViewRequest	true	"Viewport"
//	@Success		200		{object}	mapsurface.View
//	@Failure		400		{object}	errResponse
//	@Router			/map/view [post]
func (h *Handler) SetView(w http.ResponseWriter, r *http.Request) {
	var req ViewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, "set view", err)
		return
	}
	h.surface.SetView(req.Center, req.Zoom)
	writeJSON(w, http.StatusOK, h.surface.View())
}

// ChangeBasemap handles POST /api/map/basemap.
//
//	@Summary		Switch the active basemap
//	@Tags			map
//	@Accept			json
//	@Produce		json
//	@Param			body	body		BasemapRequest	true	"Basemap name"
//	@Success		200		{object}	mapsurface.Basemap
//	@Failure		400		{object}	errResponse
//	@Router			/map/basemap [post]
func (h *Handler) ChangeBasemap(w http.ResponseWriter, r *http.Request) {
	var req BasemapRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.surface.ChangeBasemap(req.Name); err != nil {
		writeError(w, "change basemap", err, slog.String("name", req.Name))
		return
	}
	writeJSON(w, http.StatusOK, h.surface.ActiveBasemap())
}

// ClickMarker handles POST /api/map/markers/{id}/click. A marker click opens
// the spot's detail panel.
//
//	@Summary		Dispatch a marker click
//	@Tags			map
//	@Param			id	path	string	true	"Spot id"
//	@Success		204	"Dispatched"
//	@Failure		404	{object}	errResponse
//	@Router			/map/markers/{id}/click [post]
func (h *Handler) ClickMarker(w http.ResponseWriter, r *http.Request) {
	id := spotID(r)
	if err := h.surface.ClickMarker(id); err != nil {
		writeError(w, "marker click", err, slog.String("id", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
