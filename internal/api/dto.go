package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/spotmap/internal/apperr"
	"github.com/starford/spotmap/internal/mapsurface"
	"github.com/starford/spotmap/internal/models"
	"github.com/starford/spotmap/internal/spots"
)

// SpotRequest is the request body for creating or replacing a spot.
type SpotRequest struct {
	Title     string  `json:"title" example:"Cafe" validate:"required"`
	Latitude  float64 `json:"latitude" example:"10"`
	Longitude float64 `json:"longitude" example:"20"`
	Photo     string  `json:"photo,omitempty" example:"data:image/png;base64,iVBORw0..."`
	Notes     string  `json:"notes" example:"Good coffee"`
}

func (req SpotRequest) input() spots.Input {
	return spots.Input{
		Title:     req.Title,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Photo:     req.Photo,
		Notes:     req.Notes,
	}
}

// Validate checks the photo field, which the coordinator stores verbatim.
func (req SpotRequest) Validate() error {
	return validation.Validate(req.Photo, validation.By(func(v any) error {
		photo, _ := v.(string)
		if photo == "" {
			return nil
		}
		mime, data, err := spots.DecodePhoto(photo)
		if err != nil {
			return apperr.Invalid("Photo must be a base64 data URL")
		}
		if !spots.AllowedPhotoType(mime) {
			return apperr.Invalid("Invalid file type. Please use JPEG, PNG, GIF, or WebP")
		}
		if len(data) > spots.MaxPhotoBytes {
			return apperr.Invalid("File too large. Maximum size is 5MB")
		}
		return nil
	}))
}

// SpotListResponse wraps spot listings.
type SpotListResponse struct {
	Spots []models.Spot `json:"spots" validate:"required"`
	Total int           `json:"total" example:"3" validate:"required"`
}

// ClickRequest is a map click position.
type ClickRequest struct {
	Lat float64 `json:"lat" example:"10"`
	Lng float64 `json:"lng" example:"20"`
}

// Validate validates the click position.
func (req ClickRequest) Validate() error {
	if err := validation.ValidateStruct(&req,
		validation.Field(&req.Lat, validation.Min(-90.0), validation.Max(90.0)),
	); err != nil {
		return apperr.Invalid(err.Error())
	}
	return nil
}

// ViewRequest reports the browser's current viewport.
type ViewRequest struct {
	Center models.LatLng `json:"center"`
	Zoom   int           `json:"zoom" example:"12"`
}

// Validate validates the viewport.
func (req ViewRequest) Validate() error {
	if err := validation.ValidateStruct(&req,
		validation.Field(&req.Zoom, validation.Min(0), validation.Max(mapsurface.MaxZoomLimit)),
	); err != nil {
		return apperr.Invalid(err.Error())
	}
	return nil
}

// BasemapRequest selects a basemap by name.
type BasemapRequest struct {
	Name string `json:"name" example:"dark" validate:"required"`
}

// BasemapListResponse lists the selectable basemaps.
type BasemapListResponse struct {
	Basemaps []mapsurface.Basemap `json:"basemaps" validate:"required"`
	Active   string               `json:"active" example:"streets" validate:"required"`
}

// ConfirmRequest answers the confirm dialog.
type ConfirmRequest struct {
	Yes bool `json:"yes"`
}

// PreviewResponse carries a processed, unsaved photo.
type PreviewResponse struct {
	Photo string `json:"photo" validate:"required"`
}

// SelectResponse reports what a card selection did.
type SelectResponse struct {
	Detail bool `json:"detail"`
}
