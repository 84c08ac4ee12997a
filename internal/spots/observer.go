package spots

import "github.com/starford/spotmap/internal/models"

// Notification levels.
const (
	LevelSuccess = "success"
	LevelError   = "error"
	LevelInfo    = "info"
)

// Notification is a transient message for the user.
type Notification struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Observer receives coordinator state changes. Implementations render them;
// they never write back to the store.
type Observer interface {
	// SpotsChanged delivers the full, freshly loaded spot list.
	SpotsChanged(spots []models.Spot)
	// SpotRemoved reports a deleted spot so open views of it can close.
	SpotRemoved(id string)
	// FormClosed asks the form surface to close.
	FormClosed()
	// Notify shows a transient notification.
	Notify(n Notification)
}
