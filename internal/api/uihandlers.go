package api

import (
	"log/slog"
	"net/http"

	"github.com/starford/spotmap/internal/apperr"
	"github.com/starford/spotmap/internal/spots"
	"github.com/starford/spotmap/internal/ui"
)

// Index handles GET /.
func (h *Handler) Index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := ui.Page{Map: h.surface.Snapshot(), Spots: h.presenter.Spots()}
	if err := h.renderer.RenderPage(w, page); err != nil {
		slog.Error("render index failed", slog.String("error", err.Error()))
	}
}

// UIState handles GET /ui/state.
func (h *Handler) UIState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.presenter.State())
}

// SubmitForm handles POST /ui/form (multipart: title, notes, photo). Failures
// are also raised as error toasts and leave the form open.
func (h *Handler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	form, ok := h.presenter.Form()
	if !ok {
		writeJSON(w, http.StatusConflict, errorBody("no open form"))
		return
	}
	if err := parseForm(w, r); err != nil {
		h.presenter.ShowToast(spots.Notification{Level: spots.LevelError, Message: err.Error()})
		writeError(w, "submit form", err)
		return
	}
	photo, file, err := formPhoto(r, "photo")
	if err != nil {
		writeError(w, "submit form", err)
		return
	}
	if file != nil {
		defer file.Close()
	}

	sub := spots.FormSubmission{
		Title: r.FormValue("title"),
		Notes: r.FormValue("notes"),
		Photo: photo,
	}
	sp, err := h.svc.SubmitForm(r.Context(), sub, form.Coords, form.Existing)
	if err != nil {
		writeError(w, "submit form", err)
		return
	}
	writeJSON(w, http.StatusOK, sp)
}

// CancelForm handles POST /ui/form/cancel.
func (h *Handler) CancelForm(w http.ResponseWriter, _ *http.Request) {
	h.presenter.CancelForm()
	w.WriteHeader(http.StatusNoContent)
}

// PreviewPhoto handles POST /ui/form/preview (multipart: photo). Nothing is
// saved.
func (h *Handler) PreviewPhoto(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		h.presenter.ShowToast(spots.Notification{Level: spots.LevelError, Message: err.Error()})
		writeError(w, "preview photo", err)
		return
	}
	photo, file, err := formPhoto(r, "photo")
	if err != nil {
		writeError(w, "preview photo", err)
		return
	}
	if photo == nil {
		writeError(w, "preview photo", apperr.Invalid("No photo file provided"))
		return
	}
	defer file.Close()

	dataURL, err := h.presenter.PreviewPhoto(r.Context(), *photo)
	if err != nil {
		writeError(w, "preview photo", err)
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{Photo: dataURL})
}

// SelectSpot handles POST /ui/spots/{id}/select.
func (h *Handler) SelectSpot(w http.ResponseWriter, r *http.Request) {
	detail, err := h.presenter.SelectSpot(spotID(r))
	if err != nil {
		writeError(w, "select spot", err)
		return
	}
	writeJSON(w, http.StatusOK, SelectResponse{Detail: detail})
}

// EditSpot handles POST /ui/spots/{id}/edit.
func (h *Handler) EditSpot(w http.ResponseWriter, r *http.Request) {
	if err := h.presenter.EditSpot(spotID(r)); err != nil {
		writeError(w, "edit spot", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RequestDelete handles POST /ui/spots/{id}/delete. The spot is only removed
// once the confirm dialog is answered.
func (h *Handler) RequestDelete(w http.ResponseWriter, r *http.Request) {
	fromDetail := r.URL.Query().Get("from") == "detail"
	if err := h.presenter.RequestDelete(spotID(r), fromDetail); err != nil {
		writeError(w, "request delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Confirm handles POST /ui/confirm.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.presenter.Confirm(r.Context(), req.Yes); err != nil {
		writeError(w, "confirm", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CloseDetail handles POST /ui/detail/close.
func (h *Handler) CloseDetail(w http.ResponseWriter, _ *http.Request) {
	h.presenter.CloseDetail()
	w.WriteHeader(http.StatusNoContent)
}
