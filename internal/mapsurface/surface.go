// Package mapsurface models the interactive map widget: one marker per spot,
// a provisional marker for an unsaved placement, the active basemap, and the
// viewport. It holds no business logic and never talks to the store.
package mapsurface

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/starford/spotmap/internal/apperr"
	"github.com/starford/spotmap/internal/models"
)

// Fly-to parameters used when centring on a spot.
const (
	FlyToZoom     = 15
	FlyToDuration = time.Second
)

// NearbyMeters is the radius within which the view counts as already
// looking at a spot.
const NearbyMeters = 100.0

// Change kinds delivered to the change listener.
const (
	ChangeMarkerAdded     = "marker.added"
	ChangeMarkerRemoved   = "marker.removed"
	ChangeMarkersResized  = "markers.resized"
	ChangeTempSet         = "temp.set"
	ChangeTempCleared     = "temp.cleared"
	ChangeBasemapChanged  = "basemap.changed"
	ChangeBasemapsChanged = "basemaps.changed"
	ChangeFlyTo           = "view.flyto"
)

// Change describes a visual mutation of the surface.
type Change struct {
	Kind string
	Data any
}

// Flight is a requested animated recentre.
type Flight struct {
	Target   models.LatLng `json:"target"`
	Zoom     int           `json:"zoom"`
	Duration time.Duration `json:"duration"`
}

// View is the current viewport.
type View struct {
	Center models.LatLng `json:"center"`
	Zoom   int           `json:"zoom"`
}

// Snapshot is a read-only copy of the whole surface state.
type Snapshot struct {
	View      View           `json:"view"`
	Basemap   Basemap        `json:"basemap"`
	Basemaps  []Basemap      `json:"basemaps"`
	Markers   []Marker       `json:"markers"`
	Temporary *models.LatLng `json:"temporary,omitempty"`
}

// Option configures a Surface.
type Option func(*Surface)

// WithView sets the initial centre and zoom.
func WithView(center models.LatLng, zoom int) Option {
	return func(s *Surface) {
		s.view = View{Center: center, Zoom: zoom}
	}
}

// WithBasemaps replaces the built-in basemap table.
func WithBasemaps(basemaps []Basemap) Option {
	return func(s *Surface) {
		s.basemaps = normalizeTable(basemaps)
	}
}

// WithDefaultBasemap selects the basemap installed at start.
func WithDefaultBasemap(name string) Option {
	return func(s *Surface) {
		s.defaultBasemap = NormalizeName(name)
	}
}

// WithListener registers fn to receive every visual change.
func WithListener(fn func(Change)) Option {
	return func(s *Surface) {
		s.listener = fn
	}
}

// Surface is the server-side model of the map widget. All methods are safe
// for concurrent use; handlers run outside the internal lock.
type Surface struct {
	mu sync.Mutex

	basemaps       []Basemap
	defaultBasemap string
	layers         []Basemap
	view           View
	markers        map[string]*Marker
	temp           *models.LatLng

	clickHandlers  []func(models.LatLng)
	markerHandlers []func(models.Spot)
	zoomHandlers   []func(int)
	listener       func(Change)
}

// New creates a surface centred on the default world view with the default
// basemap attached. Marker sizes are recomputed on every zoom change.
func New(opts ...Option) (*Surface, error) {
	s := &Surface{
		basemaps:       DefaultBasemaps(),
		defaultBasemap: BasemapStreets,
		view:           View{Center: models.LatLng{Lat: 20, Lng: 0}, Zoom: 2},
		markers:        make(map[string]*Marker),
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.basemaps) == 0 {
		return nil, fmt.Errorf("mapsurface: no basemaps configured")
	}
	bm, ok := s.lookup(s.defaultBasemap)
	if !ok {
		return nil, fmt.Errorf("mapsurface: unknown default basemap %q", s.defaultBasemap)
	}
	s.layers = []Basemap{bm}
	s.view.Zoom = clampZoom(s.view.Zoom, bm.MaxZoom)

	s.OnZoomChanged(func(int) { s.refreshMarkerSizes() })
	return s, nil
}

func (s *Surface) lookup(name string) (Basemap, bool) {
	name = NormalizeName(name)
	for _, b := range s.basemaps {
		if b.Name == name {
			return b, true
		}
	}
	return Basemap{}, false
}

func (s *Surface) emit(c Change) {
	if s.listener != nil {
		s.listener(c)
	}
}

// AddMarker places a marker for spot. It never replaces: an existing marker
// for the same id must be removed first.
func (s *Surface) AddMarker(spot models.Spot) error {
	s.mu.Lock()
	if _, exists := s.markers[spot.ID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("mapsurface: marker %s: %w", spot.ID, apperr.ErrAlreadyExists)
	}
	m := newMarker(spot, s.view.Zoom)
	s.markers[spot.ID] = m
	out := *m
	s.mu.Unlock()

	s.emit(Change{Kind: ChangeMarkerAdded, Data: out})
	return nil
}

// RemoveMarker removes the marker for id if present.
func (s *Surface) RemoveMarker(id string) {
	s.mu.Lock()
	_, ok := s.markers[id]
	delete(s.markers, id)
	s.mu.Unlock()

	if ok {
		s.emit(Change{Kind: ChangeMarkerRemoved, Data: map[string]string{"id": id}})
	}
}

// Marker returns a copy of the marker for id.
func (s *Surface) Marker(id string) (Marker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markers[id]
	if !ok {
		return Marker{}, false
	}
	return *m, true
}

// Markers returns copies of all markers ordered by spot id.
func (s *Surface) Markers() []Marker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markersLocked()
}

// MarkerIDs returns the ids of all placed markers, sorted.
func (s *Surface) MarkerIDs() []string {
	s.mu.Lock()
	ids := make([]string, 0, len(s.markers))
	for id := range s.markers {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Strings(ids)
	return ids
}

func (s *Surface) markersLocked() []Marker {
	out := make([]Marker, 0, len(s.markers))
	for _, m := range s.markers {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Spot.ID < out[j].Spot.ID })
	return out
}

func (s *Surface) refreshMarkerSizes() {
	s.mu.Lock()
	for id, m := range s.markers {
		s.markers[id] = newMarker(m.Spot, s.view.Zoom)
	}
	out := s.markersLocked()
	s.mu.Unlock()

	s.emit(Change{Kind: ChangeMarkersResized, Data: out})
}

// SetTemporaryMarker shows the provisional marker at ll, discarding any
// previous one.
func (s *Surface) SetTemporaryMarker(ll models.LatLng) {
	s.mu.Lock()
	s.temp = &ll
	s.mu.Unlock()

	s.emit(Change{Kind: ChangeTempSet, Data: ll})
}

// ClearTemporaryMarker removes the provisional marker if present.
func (s *Surface) ClearTemporaryMarker() {
	s.mu.Lock()
	had := s.temp != nil
	s.temp = nil
	s.mu.Unlock()

	if had {
		s.emit(Change{Kind: ChangeTempCleared})
	}
}

// TemporaryMarker returns the provisional marker position, if any.
func (s *Surface) TemporaryMarker() (models.LatLng, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.temp == nil {
		return models.LatLng{}, false
	}
	return *s.temp, true
}

// ChangeBasemap swaps the active tile layer for the named basemap.
func (s *Surface) ChangeBasemap(name string) error {
	s.mu.Lock()
	bm, ok := s.lookup(name)
	if !ok {
		s.mu.Unlock()
		return apperr.Invalid(fmt.Sprintf("unknown basemap %q", name))
	}
	s.layers = append(s.layers[:0], bm)
	zoomChanged := s.clampViewLocked(bm.MaxZoom)
	zoom := s.view.Zoom
	s.mu.Unlock()

	s.emit(Change{Kind: ChangeBasemapChanged, Data: bm})
	if zoomChanged {
		s.fireZoom(zoom)
	}
	return nil
}

// ActiveBasemap returns the basemap currently attached.
func (s *Surface) ActiveBasemap() Basemap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layers[len(s.layers)-1]
}

// Layers returns every tile layer currently attached to the map.
func (s *Surface) Layers() []Basemap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Basemap(nil), s.layers...)
}

// Basemaps returns the selectable basemaps in selector order.
func (s *Surface) Basemaps() []Basemap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Basemap(nil), s.basemaps...)
}

// SetBasemaps replaces the basemap table. The active layer is refreshed from
// the new table by name, or falls back to the first entry.
func (s *Surface) SetBasemaps(basemaps []Basemap) error {
	if len(basemaps) == 0 {
		return fmt.Errorf("mapsurface: empty basemap table")
	}
	s.mu.Lock()
	s.basemaps = normalizeTable(basemaps)
	active, ok := s.lookup(s.layers[len(s.layers)-1].Name)
	if !ok {
		active = s.basemaps[0]
	}
	s.layers = append(s.layers[:0], active)
	zoomChanged := s.clampViewLocked(active.MaxZoom)
	zoom := s.view.Zoom
	table := append([]Basemap(nil), s.basemaps...)
	s.mu.Unlock()

	s.emit(Change{Kind: ChangeBasemapsChanged, Data: table})
	s.emit(Change{Kind: ChangeBasemapChanged, Data: active})
	if zoomChanged {
		s.fireZoom(zoom)
	}
	return nil
}

func (s *Surface) clampViewLocked(maxZoom int) bool {
	z := clampZoom(s.view.Zoom, maxZoom)
	if z == s.view.Zoom {
		return false
	}
	s.view.Zoom = z
	return true
}

func clampZoom(zoom, maxZoom int) int {
	if zoom < 0 {
		return 0
	}
	if zoom > maxZoom {
		return maxZoom
	}
	return zoom
}

// View returns the current viewport.
func (s *Surface) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// SetView records a viewport reported by the widget. A zoom change runs the
// zoom handlers.
func (s *Surface) SetView(center models.LatLng, zoom int) {
	s.mu.Lock()
	zoom = clampZoom(zoom, s.layers[len(s.layers)-1].MaxZoom)
	changed := zoom != s.view.Zoom
	s.view = View{Center: center, Zoom: zoom}
	s.mu.Unlock()

	if changed {
		s.fireZoom(zoom)
	}
}

// OnZoomChanged registers fn to run after every zoom change.
func (s *Surface) OnZoomChanged(fn func(zoom int)) {
	s.mu.Lock()
	s.zoomHandlers = append(s.zoomHandlers, fn)
	s.mu.Unlock()
}

func (s *Surface) fireZoom(zoom int) {
	s.mu.Lock()
	handlers := slices.Clone(s.zoomHandlers)
	s.mu.Unlock()
	for _, fn := range handlers {
		fn(zoom)
	}
}

// OnMapClicked registers fn to receive the coordinate of every map click.
func (s *Surface) OnMapClicked(fn func(models.LatLng)) {
	s.mu.Lock()
	s.clickHandlers = append(s.clickHandlers, fn)
	s.mu.Unlock()
}

// Click dispatches a map click at ll.
func (s *Surface) Click(ll models.LatLng) {
	s.mu.Lock()
	handlers := slices.Clone(s.clickHandlers)
	s.mu.Unlock()
	for _, fn := range handlers {
		fn(ll)
	}
}

// OnMarkerClicked registers fn to receive the spot of every clicked marker.
func (s *Surface) OnMarkerClicked(fn func(models.Spot)) {
	s.mu.Lock()
	s.markerHandlers = append(s.markerHandlers, fn)
	s.mu.Unlock()
}

// ClickMarker dispatches a click on the marker for id.
func (s *Surface) ClickMarker(id string) error {
	s.mu.Lock()
	m, ok := s.markers[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("mapsurface: marker %s: %w", id, apperr.ErrNotFound)
	}
	spot := m.Spot
	handlers := slices.Clone(s.markerHandlers)
	s.mu.Unlock()

	for _, fn := range handlers {
		fn(spot)
	}
	return nil
}

// FlyTo recentres the view on spot at FlyToZoom with a fixed-length
// animation.
func (s *Surface) FlyTo(spot models.Spot) Flight {
	s.mu.Lock()
	zoom := clampZoom(FlyToZoom, s.layers[len(s.layers)-1].MaxZoom)
	changed := zoom != s.view.Zoom
	s.view = View{Center: spot.Position(), Zoom: zoom}
	s.mu.Unlock()

	f := Flight{Target: spot.Position(), Zoom: zoom, Duration: FlyToDuration}
	s.emit(Change{Kind: ChangeFlyTo, Data: f})
	if changed {
		s.fireZoom(zoom)
	}
	return f
}

// IsViewing reports whether the view is centred within NearbyMeters of ll
// and zoomed to at least FlyToZoom.
func (s *Surface) IsViewing(ll models.LatLng) bool {
	v := s.View()
	if v.Zoom < FlyToZoom {
		return false
	}
	return Distance(v.Center, ll) < NearbyMeters
}

// Distance returns the geodesic distance in meters between a and b.
func Distance(a, b models.LatLng) float64 {
	return geo.Distance(orb.Point{a.Lng, a.Lat}, orb.Point{b.Lng, b.Lat})
}

// Snapshot returns a copy of the whole surface state.
func (s *Surface) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		View:     s.view,
		Basemap:  s.layers[len(s.layers)-1],
		Basemaps: append([]Basemap(nil), s.basemaps...),
		Markers:  s.markersLocked(),
	}
	if s.temp != nil {
		t := *s.temp
		snap.Temporary = &t
	}
	return snap
}
