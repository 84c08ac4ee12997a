// Package ui is the presentation layer: it renders the sidebar, the spot form,
// the detail panel, the confirm dialog and toasts as HTML fragments and pushes
// them to the browser. It holds view state only; every write goes through the
// spot coordinator.
package ui

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/spotmap/internal/apperr"
	"github.com/starford/spotmap/internal/mapsurface"
	"github.com/starford/spotmap/internal/models"
	"github.com/starford/spotmap/internal/spots"
	"github.com/starford/spotmap/internal/sse"
)

// Event types pushed to the browser.
const (
	EventSidebar      = "ui.sidebar"
	EventModal        = "ui.modal"
	EventDetail       = "ui.detail"
	EventToast        = "toast"
	EventToastCleared = "toast.cleared"
)

// StickyEvents are the event types that describe whole UI state.
var StickyEvents = []string{EventSidebar, EventModal, EventDetail}

// ToastDuration is how long a toast stays visible.
const ToastDuration = 3 * time.Second

// Modal kinds. Form and confirm dialog share the one modal.
const (
	ModalNone    = ""
	ModalForm    = "form"
	ModalConfirm = "confirm"
)

// Publisher delivers events to connected browsers.
type Publisher interface {
	Publish(event sse.Event)
}

// Coordinator is the part of the spot coordinator the presenter calls.
type Coordinator interface {
	Delete(ctx context.Context, id string) error
}

// MapView is the part of the map surface the presenter drives.
type MapView interface {
	IsViewing(ll models.LatLng) bool
	FlyTo(spot models.Spot) mapsurface.Flight
	SetTemporaryMarker(ll models.LatLng)
	ClearTemporaryMarker()
}

// FormState is the open spot form.
type FormState struct {
	Coords   models.LatLng `json:"coords"`
	Existing *models.Spot  `json:"existing,omitempty"`
	Preview  string        `json:"-"`
}

// ConfirmState is an open confirm dialog awaiting an answer.
type ConfirmState struct {
	SpotID  string `json:"spotId"`
	Message string `json:"message"`
}

// State is a snapshot of the presenter's view state.
type State struct {
	Count    int                 `json:"count"`
	Modal    string              `json:"modal"`
	Form     *FormState          `json:"form,omitempty"`
	Confirm  *ConfirmState       `json:"confirm,omitempty"`
	DetailID string              `json:"detailId,omitempty"`
	Toast    *spots.Notification `json:"toast,omitempty"`
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithToastDuration overrides how long toasts stay visible.
func WithToastDuration(d time.Duration) Option {
	return func(p *Presenter) { p.toastFor = d }
}

// WithLogger sets the presenter logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Presenter) { p.logger = logger }
}

// Presenter renders coordinator changes and user interactions. It implements
// spots.Observer.
type Presenter struct {
	renderer *Renderer
	pub      Publisher
	surface  MapView
	coord    Coordinator
	toastFor time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	spots   []models.Spot
	modal   string
	form    *FormState
	confirm *ConfirmState
	detail  *models.Spot
	toast   *spots.Notification
	toastID uint64
	timer   *time.Timer
}

var _ spots.Observer = (*Presenter)(nil)

// NewPresenter creates a presenter with no open views.
func NewPresenter(r *Renderer, pub Publisher, surface MapView, coord Coordinator, opts ...Option) *Presenter {
	p := &Presenter{
		renderer: r,
		pub:      pub,
		surface:  surface,
		coord:    coord,
		toastFor: ToastDuration,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Close stops any pending toast timer.
func (p *Presenter) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Presenter) render(name string, data any) string {
	html, err := p.renderer.Render(name, data)
	if err != nil {
		p.logger.Error("render fragment", slog.String("template", name), slog.String("error", err.Error()))
		return ""
	}
	return html
}

func (p *Presenter) publish(typ string, data any) {
	p.pub.Publish(sse.Event{Type: typ, Data: data})
}

// SpotsChanged re-renders the whole sidebar list.
func (p *Presenter) SpotsChanged(list []models.Spot) {
	list = append([]models.Spot(nil), list...)
	p.mu.Lock()
	p.spots = list
	p.mu.Unlock()

	p.publish(EventSidebar, map[string]any{
		"count": len(list),
		"html":  p.render("sidebar", list),
	})
}

// SpotRemoved closes the detail panel if it shows id.
func (p *Presenter) SpotRemoved(id string) {
	p.mu.Lock()
	showing := p.detail != nil && p.detail.ID == id
	p.mu.Unlock()
	if showing {
		p.CloseDetail()
	}
}

// FormClosed hides the modal when it holds the spot form.
func (p *Presenter) FormClosed() {
	p.mu.Lock()
	isForm := p.modal == ModalForm
	p.mu.Unlock()
	if isForm {
		p.HideModal()
	}
}

// Notify shows n as a toast.
func (p *Presenter) Notify(n spots.Notification) {
	p.ShowToast(n)
}

// Spots returns the last rendered list.
func (p *Presenter) Spots() []models.Spot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Spot(nil), p.spots...)
}

func (p *Presenter) find(id string) (models.Spot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, sp := range p.spots {
		if sp.ID == id {
			return sp, nil
		}
	}
	return models.Spot{}, fmt.Errorf("spot %s: %w", id, apperr.ErrNotFound)
}

// MapClicked places the provisional marker at ll and opens an empty form.
func (p *Presenter) MapClicked(ll models.LatLng) {
	p.surface.SetTemporaryMarker(ll)
	p.ShowForm(ll, nil)
}

// MarkerClicked opens the detail panel for spot.
func (p *Presenter) MarkerClicked(spot models.Spot) {
	p.ShowDetail(spot)
}

type formView struct {
	Coords     models.LatLng
	Existing   *models.Spot
	PreviewURL template.URL
	MaxTitle   int
	MaxNotes   int
	Accept     string
}

func (p *Presenter) publishForm(f FormState) {
	v := formView{
		Coords:   f.Coords,
		Existing: f.Existing,
		MaxTitle: spots.MaxTitleLength,
		MaxNotes: spots.MaxNotesLength,
		Accept:   "image/jpeg,image/png,image/gif,image/webp",
	}
	if url, ok := (models.Spot{Photo: f.Preview}).PhotoDataURL(); ok {
		v.PreviewURL = template.URL(url)
	}
	p.publish(EventModal, map[string]any{
		"kind": ModalForm,
		"html": p.render("form", v),
	})
}

// ShowForm opens the spot form at coords. A non-nil existing spot opens it in
// edit mode seeded with that spot.
func (p *Presenter) ShowForm(coords models.LatLng, existing *models.Spot) {
	f := FormState{Coords: coords}
	if existing != nil {
		sp := *existing
		f.Existing = &sp
		f.Preview = sp.Photo
	}
	p.mu.Lock()
	p.modal = ModalForm
	p.form = &f
	p.confirm = nil
	p.mu.Unlock()

	p.publishForm(f)
}

// Form returns the open form, if any.
func (p *Presenter) Form() (FormState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.modal != ModalForm || p.form == nil {
		return FormState{}, false
	}
	return *p.form, true
}

// CancelForm closes the form and discards the provisional marker.
func (p *Presenter) CancelForm() {
	p.HideModal()
	p.surface.ClearTemporaryMarker()
}

// HideModal closes whatever the modal shows.
func (p *Presenter) HideModal() {
	p.mu.Lock()
	p.modal = ModalNone
	p.form = nil
	p.confirm = nil
	p.mu.Unlock()

	p.publish(EventModal, map[string]any{"kind": ModalNone, "html": ""})
}

// PreviewPhoto processes a chosen file and shows it in the open form without
// saving anything. Rejected files raise an error toast.
func (p *Presenter) PreviewPhoto(ctx context.Context, f spots.PhotoFile) (string, error) {
	dataURL, err := spots.ProcessPhoto(ctx, f)
	if err != nil {
		msg := "Could not read photo"
		if errors.Is(err, apperr.ErrInvalid) {
			msg = err.Error()
		}
		p.ShowToast(spots.Notification{Level: spots.LevelError, Message: msg})
		return "", err
	}

	p.mu.Lock()
	var form *FormState
	if p.modal == ModalForm && p.form != nil {
		p.form.Preview = dataURL
		f := *p.form
		form = &f
	}
	p.mu.Unlock()

	if form != nil {
		p.publishForm(*form)
	}
	return dataURL, nil
}

// SelectSpot handles a sidebar card click: the detail panel opens when the
// map is already looking at the spot, otherwise the map flies there.
func (p *Presenter) SelectSpot(id string) (bool, error) {
	sp, err := p.find(id)
	if err != nil {
		return false, err
	}
	if p.surface.IsViewing(sp.Position()) {
		p.ShowDetail(sp)
		return true, nil
	}
	p.surface.FlyTo(sp)
	return false, nil
}

// ShowDetail opens the detail panel for spot, replacing any open one.
func (p *Presenter) ShowDetail(spot models.Spot) {
	p.mu.Lock()
	sp := spot
	p.detail = &sp
	p.mu.Unlock()

	p.publish(EventDetail, map[string]any{
		"id":   spot.ID,
		"html": p.render("detail", spot),
	})
}

// CloseDetail closes the detail panel.
func (p *Presenter) CloseDetail() {
	p.mu.Lock()
	p.detail = nil
	p.mu.Unlock()

	p.publish(EventDetail, map[string]any{"id": "", "html": ""})
}

// EditSpot closes the detail panel and opens the form seeded with the spot.
func (p *Presenter) EditSpot(id string) error {
	sp, err := p.find(id)
	if err != nil {
		return err
	}
	p.CloseDetail()
	p.ShowForm(sp.Position(), &sp)
	return nil
}

// RequestDelete asks for confirmation before deleting id. When fromDetail is
// set the detail panel is closed first.
func (p *Presenter) RequestDelete(id string, fromDetail bool) error {
	sp, err := p.find(id)
	if err != nil {
		return err
	}
	if fromDetail {
		p.CloseDetail()
	}

	c := ConfirmState{SpotID: sp.ID, Message: `Delete "` + sp.Title + `"?`}
	p.mu.Lock()
	p.modal = ModalConfirm
	p.form = nil
	p.confirm = &c
	p.mu.Unlock()

	p.publish(EventModal, map[string]any{
		"kind": ModalConfirm,
		"html": p.render("confirm", c),
	})
	return nil
}

// Confirm answers the open confirm dialog. It is a no-op when none is open.
func (p *Presenter) Confirm(ctx context.Context, yes bool) error {
	p.mu.Lock()
	pending := p.confirm
	p.mu.Unlock()
	if pending == nil {
		return nil
	}

	p.HideModal()
	if !yes {
		return nil
	}
	if err := p.coord.Delete(ctx, pending.SpotID); err != nil {
		p.logger.Error("delete spot", slog.String("id", pending.SpotID), slog.String("error", err.Error()))
		p.ShowToast(spots.Notification{Level: spots.LevelError, Message: "Failed to delete spot"})
		return err
	}
	return nil
}

// ShowToast replaces any visible toast with n and hides it after the toast
// duration.
func (p *Presenter) ShowToast(n spots.Notification) {
	if n.Level == "" {
		n.Level = spots.LevelInfo
	}

	p.mu.Lock()
	p.toastID++
	id := p.toastID
	p.toast = &n
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.toastFor, func() { p.expireToast(id) })
	p.mu.Unlock()

	p.publish(EventToast, map[string]any{
		"level":   n.Level,
		"message": n.Message,
		"html":    p.render("toast", n),
	})
}

func (p *Presenter) expireToast(id uint64) {
	p.mu.Lock()
	if id != p.toastID || p.toast == nil {
		p.mu.Unlock()
		return
	}
	p.toast = nil
	p.timer = nil
	p.mu.Unlock()

	p.publish(EventToastCleared, map[string]any{})
}

// State returns a snapshot of the view state.
func (p *Presenter) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := State{Count: len(p.spots), Modal: p.modal}
	if p.form != nil {
		f := *p.form
		st.Form = &f
	}
	if p.confirm != nil {
		c := *p.confirm
		st.Confirm = &c
	}
	if p.detail != nil {
		st.DetailID = p.detail.ID
	}
	if p.toast != nil {
		t := *p.toast
		st.Toast = &t
	}
	return st
}
