package api

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with the REST and map routes, mounted under
// /api. events, if non-nil, is mounted at GET /events.
func NewRouter(h *Handler, events http.Handler) chi.Router {
	r := chi.NewRouter()

	// Spots CRUD.
	r.Get("/spots", h.ListSpots)
	r.Post("/spots", h.CreateSpot)
	r.Get("/spots/{id}", h.GetSpot)
	r.Put("/spots/{id}", h.UpdateSpot)
	r.Delete("/spots/{id}", h.DeleteSpot)
	r.Get("/spots/{id}/photo", h.GetSpotPhoto)

	// Map surface.
	r.Get("/map", h.GetMap)
	r.Get("/basemaps", h.ListBasemaps)
	r.Post("/map/click", h.ClickMap)
	r.Post("/map/view", h.SetView)
	r.Post("/map/basemap", h.ChangeBasemap)
	r.Post("/map/markers/{id}/click", h.ClickMarker)

	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}

// NewUIRouter creates the router for browser actions, mounted under /ui.
func NewUIRouter(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/state", h.UIState)
	r.Post("/form", h.SubmitForm)
	r.Post("/form/cancel", h.CancelForm)
	r.Post("/form/preview", h.PreviewPhoto)
	r.Post("/spots/{id}/select", h.SelectSpot)
	r.Post("/spots/{id}/edit", h.EditSpot)
	r.Post("/spots/{id}/delete", h.RequestDelete)
	r.Post("/confirm", h.Confirm)
	r.Post("/detail/close", h.CloseDetail)

	return r
}

// Mount registers the page, static assets, /api and /ui on r.
func Mount(r chi.Router, h *Handler, events http.Handler, static fs.FS) {
	r.Get("/", h.Index)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	r.Mount("/api", NewRouter(h, events))
	r.Mount("/ui", NewUIRouter(h))
}
