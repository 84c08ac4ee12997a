package api

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/starford/spotmap/internal/apperr"
	"github.com/starford/spotmap/internal/spots"
)

// maxFormBytes bounds a multipart form. It leaves room above the photo limit
// so oversized photos reach the size check and get its message.
const maxFormBytes = 2*spots.MaxPhotoBytes + 1<<20

var errFormTooLarge = apperr.Invalid("File too large. Maximum size is 5MB")

// parseForm parses a size-limited multipart form.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseMultipartForm(maxFormBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errFormTooLarge
		}
		return apperr.Invalid("invalid multipart form")
	}
	return nil
}

// formPhoto returns the photo part of a parsed form, or nil when no file was
// chosen. The caller closes the returned file.
func formPhoto(r *http.Request, field string) (*spots.PhotoFile, multipart.File, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, apperr.Invalid("invalid photo upload")
	}
	return &spots.PhotoFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
	}, file, nil
}

// GetSpotPhoto handles GET /api/spots/{id}/photo.
//
//	@Summary		Get the decoded photo of a spot
//	@Tags			spots
//	@Produce		image/jpeg,image/png,image/gif,image/webp
//	@Param			id	path	string	true	"Spot id"
//	@Success		200	"Image bytes"
//	@Failure		404	{object}	errResponse
//	@Router			/spots/{id}/photo [get]
func (h *Handler) GetSpotPhoto(w http.ResponseWriter, r *http.Request) {
	id := spotID(r)
	sp, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, "get photo", err, slog.String("id", id))
		return
	}
	if !sp.HasPhoto() {
		writeJSON(w, http.StatusNotFound, errorBody("spot has no photo"))
		return
	}
	mime, data, err := spots.DecodePhoto(sp.Photo)
	if err != nil {
		writeError(w, "decode photo", err, slog.String("id", id))
		return
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=60")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
