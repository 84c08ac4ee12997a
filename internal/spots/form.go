package spots

import (
	"context"
	"errors"
	"log/slog"

	"github.com/starford/spotmap/internal/apperr"
	"github.com/starford/spotmap/internal/models"
)

// FormSubmission holds the raw fields of the spot form. Photo is nil when no
// new file was chosen.
type FormSubmission struct {
	Title string
	Notes string
	Photo *PhotoFile
}

// SubmitForm runs the create-or-edit flow for a form opened at coords. When
// existing is non-nil the spot is edited and keeps its photo unless a new file
// was chosen. Failures are reported as error notifications and leave the form
// open; success closes the form and, for a new spot, clears the provisional
// marker.
func (s *Service) SubmitForm(ctx context.Context, sub FormSubmission, coords models.LatLng, existing *models.Spot) (models.Spot, error) {
	sp, err := s.submit(ctx, sub, coords, existing)
	if err != nil {
		if !errors.Is(err, apperr.ErrInvalid) {
			s.logger.Error("spot form submit failed", slog.String("error", err.Error()))
		}
		s.notify(LevelError, userMessage(err))
		return models.Spot{}, err
	}
	if existing == nil {
		s.surface.ClearTemporaryMarker()
	}
	s.each(func(o Observer) { o.FormClosed() })
	return sp, nil
}

func (s *Service) submit(ctx context.Context, sub FormSubmission, coords models.LatLng, existing *models.Spot) (models.Spot, error) {
	in := Input{
		Title:     sub.Title,
		Latitude:  coords.Lat,
		Longitude: coords.Lng,
		Notes:     sub.Notes,
	}
	if existing != nil {
		in.Photo = existing.Photo
	}
	if sub.Photo != nil && sub.Photo.Size > 0 {
		photo, err := ProcessPhoto(ctx, *sub.Photo)
		if err != nil {
			return models.Spot{}, err
		}
		in.Photo = photo
	}

	if existing != nil {
		return s.Edit(ctx, existing.ID, in)
	}
	return s.Create(ctx, in)
}
