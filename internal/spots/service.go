// Package spots is the coordinator that keeps the store, the map surface and
// the presentation observers consistent across create, edit and delete.
package spots

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/starford/spotmap/internal/apperr"
	"github.com/starford/spotmap/internal/models"
	"github.com/starford/spotmap/internal/store"
)

// Surface is the part of the map surface the coordinator drives.
type Surface interface {
	AddMarker(spot models.Spot) error
	RemoveMarker(id string)
	MarkerIDs() []string
	ClearTemporaryMarker()
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides id generation.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *Service) { s.newID = gen }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// Change kinds passed to a change hook.
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
)

// WithChangeHook registers fn to be called after every persisted change.
func WithChangeHook(fn func(kind, id string)) Option {
	return func(s *Service) { s.onChange = fn }
}

// Service coordinates store, map surface and observers.
type Service struct {
	store    store.SpotStore
	surface  Surface
	now      func() time.Time
	newID    IDGenerator
	logger   *slog.Logger
	onChange func(kind, id string)

	// opMu is held from a store write until the markers match the store.
	opMu   sync.Mutex
	placed map[string]int64 // marker id -> UpdatedAt of the spot it shows

	mu        sync.RWMutex
	observers []Observer
}

// NewService creates a new coordinator.
func NewService(st store.SpotStore, surface Surface, opts ...Option) *Service {
	s := &Service{
		store:   st,
		surface: surface,
		now:     time.Now,
		newID:   NewID,
		logger:  slog.Default(),
		placed:  make(map[string]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers an observer for all subsequent changes.
func (s *Service) Subscribe(o Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()
}

func (s *Service) each(fn func(Observer)) {
	s.mu.RLock()
	obs := append([]Observer(nil), s.observers...)
	s.mu.RUnlock()
	for _, o := range obs {
		fn(o)
	}
}

func (s *Service) notify(level, msg string) {
	s.each(func(o Observer) { o.Notify(Notification{Level: level, Message: msg}) })
}

func (s *Service) changed(kind, id string) {
	if s.onChange != nil {
		s.onChange(kind, id)
	}
}

func (s *Service) millis() int64 {
	return s.now().UnixMilli()
}

// Get returns a stored spot.
func (s *Service) Get(ctx context.Context, id string) (models.Spot, error) {
	return s.store.Get(ctx, id)
}

// List returns all spots ordered by creation time.
func (s *Service) List(ctx context.Context) ([]models.Spot, error) {
	all, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].CreatedAt != all[j].CreatedAt {
			return all[i].CreatedAt < all[j].CreatedAt
		}
		return all[i].ID < all[j].ID
	})
	return all, nil
}

// syncLocked lists the store and brings the markers in line with it: stale
// or orphaned markers are removed and missing ones placed. The caller holds
// opMu.
func (s *Service) syncLocked(ctx context.Context) ([]models.Spot, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	pending := make(map[string]bool, len(all))
	stored := make(map[string]int64, len(all))
	for _, sp := range all {
		pending[sp.ID] = true
		stored[sp.ID] = sp.UpdatedAt
	}
	for _, id := range s.surface.MarkerIDs() {
		if updated, ok := stored[id]; ok {
			if v, placed := s.placed[id]; placed && v == updated {
				delete(pending, id)
				continue
			}
		}
		s.surface.RemoveMarker(id)
		delete(s.placed, id)
	}
	for _, sp := range all {
		if !pending[sp.ID] {
			continue
		}
		if err := s.surface.AddMarker(sp); err != nil {
			return nil, err
		}
		s.placed[sp.ID] = sp.UpdatedAt
	}
	return all, nil
}

// apply runs write and reconciles the markers under opMu, then hands the
// fresh list to the observers.
func (s *Service) apply(ctx context.Context, write func() error) error {
	s.opMu.Lock()
	if err := write(); err != nil {
		s.opMu.Unlock()
		return err
	}
	all, err := s.syncLocked(ctx)
	s.opMu.Unlock()
	if err != nil {
		return err
	}
	s.each(func(o Observer) { o.SpotsChanged(all) })
	return nil
}

// LoadAll places one marker per stored spot and renders the list.
func (s *Service) LoadAll(ctx context.Context) error {
	if err := s.apply(ctx, func() error { return nil }); err != nil {
		return fmt.Errorf("load spots: %w", err)
	}
	s.logger.Info("spots loaded", slog.Int("count", len(s.surface.MarkerIDs())))
	return nil
}

// Refresh reloads the list from the store, reconciles the markers with it and
// hands it to the observers. Writes made by other processes sharing the
// database show up here.
func (s *Service) Refresh(ctx context.Context) error {
	if err := s.apply(ctx, func() error { return nil }); err != nil {
		return fmt.Errorf("refresh spots: %w", err)
	}
	return nil
}

// Create validates in, persists a new spot, places its marker and refreshes
// the list.
func (s *Service) Create(ctx context.Context, in Input) (models.Spot, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return models.Spot{}, err
	}

	ts := s.millis()
	sp := models.Spot{
		ID:        s.newID(),
		Title:     in.Title,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		Photo:     in.Photo,
		Notes:     in.Notes,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	err := s.apply(ctx, func() error { return s.store.Save(ctx, sp) })
	if err != nil {
		return models.Spot{}, err
	}
	s.logger.Debug("spot created", slog.String("id", sp.ID))
	s.changed(ChangeCreated, sp.ID)
	s.notify(LevelSuccess, "Spot saved!")
	return sp, nil
}

// Edit replaces the spot at id wholesale, keeping its id and creation time,
// and swaps its marker.
func (s *Service) Edit(ctx context.Context, id string, in Input) (models.Spot, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return models.Spot{}, err
	}

	var sp models.Spot
	err := s.apply(ctx, func() error {
		prev, err := s.store.Get(ctx, id)
		if err != nil {
			return err
		}
		updated := s.millis()
		if updated <= prev.UpdatedAt {
			updated = prev.UpdatedAt + 1
		}
		sp = models.Spot{
			ID:        id,
			Title:     in.Title,
			Latitude:  in.Latitude,
			Longitude: in.Longitude,
			Photo:     in.Photo,
			Notes:     in.Notes,
			CreatedAt: prev.CreatedAt,
			UpdatedAt: updated,
		}
		return s.store.Update(ctx, id, sp)
	})
	if err != nil {
		return models.Spot{}, err
	}
	s.logger.Debug("spot updated", slog.String("id", id))
	s.changed(ChangeUpdated, id)
	s.notify(LevelSuccess, "Spot updated!")
	return sp, nil
}

// Delete removes the spot, its marker and any open form.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.apply(ctx, func() error { return s.store.Delete(ctx, id) }); err != nil {
		return err
	}
	s.each(func(o Observer) {
		o.SpotRemoved(id)
		o.FormClosed()
	})
	s.logger.Debug("spot deleted", slog.String("id", id))
	s.changed(ChangeDeleted, id)
	s.notify(LevelSuccess, "Spot deleted!")
	return nil
}

// userMessage is the notification text for a failed operation.
func userMessage(err error) string {
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		return verr.Msg
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return "Spot not found"
	}
	return "Something went wrong: " + err.Error()
}
