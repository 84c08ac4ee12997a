package spots

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/spotmap/internal/apperr"
)

// Field limits.
const (
	MaxTitleLength = 100
	MaxNotesLength = 1000
)

// Input is the user-editable part of a spot.
type Input struct {
	Title     string  `json:"title"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Photo     string  `json:"photo,omitempty"`
	Notes     string  `json:"notes"`
}

// Normalize returns a copy with title and notes trimmed. Coordinates are kept
// exactly as supplied.
func (in Input) Normalize() Input {
	in.Title = strings.TrimSpace(in.Title)
	in.Notes = strings.TrimSpace(in.Notes)
	return in
}

// Validate checks a normalized input and returns an apperr.ErrInvalid error
// carrying the first user-facing message.
func (in Input) Validate() error {
	checks := []struct {
		value any
		rules []validation.Rule
	}{
		{in.Title, []validation.Rule{
			validation.Required.Error("Title is required"),
			validation.RuneLength(1, MaxTitleLength).Error("Title must be 100 characters or less"),
		}},
		{in.Notes, []validation.Rule{
			validation.RuneLength(0, MaxNotesLength).Error("Notes must be 1000 characters or less"),
		}},
		{in.Latitude, []validation.Rule{
			validation.Min(-90.0).Error("Latitude must be between -90 and 90"),
			validation.Max(90.0).Error("Latitude must be between -90 and 90"),
		}},
	}
	for _, c := range checks {
		if err := validation.Validate(c.value, c.rules...); err != nil {
			var verr validation.Error
			if errors.As(err, &verr) {
				return apperr.Invalid(verr.Message())
			}
			return apperr.Invalid(err.Error())
		}
	}
	return nil
}
