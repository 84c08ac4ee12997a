package spots

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/spotmap/internal/apperr"
	"github.com/starford/spotmap/internal/mapsurface"
	"github.com/starford/spotmap/internal/models"
	"github.com/starford/spotmap/internal/store"
	"github.com/starford/spotmap/internal/testutil"
)

// recorder is an Observer that keeps everything it is told.
type recorder struct {
	mu            sync.Mutex
	lists         [][]models.Spot
	removed       []string
	formsClosed   int
	notifications []Notification
}

func (r *recorder) SpotsChanged(spots []models.Spot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists = append(r.lists, spots)
}

func (r *recorder) SpotRemoved(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, id)
}

func (r *recorder) FormClosed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.formsClosed++
}

func (r *recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
}

func (r *recorder) lastList() []models.Spot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.lists) == 0 {
		return nil
	}
	return r.lists[len(r.lists)-1]
}

func (r *recorder) lastNotification() Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notifications) == 0 {
		return Notification{}
	}
	return r.notifications[len(r.notifications)-1]
}

type env struct {
	svc     *Service
	surface *mapsurface.Surface
	obs     *recorder
	clock   *testutil.Clock
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := testutil.TestStore(t)
	surface := testutil.TestSurface(t)
	clock := testutil.NewClock(time.UnixMilli(1_700_000_000_000))
	svc := NewService(st, surface, WithClock(clock.Now))
	obs := &recorder{}
	svc.Subscribe(obs)
	return &env{svc: svc, surface: surface, obs: obs, clock: clock}
}

func TestCreateTrimsAndStamps(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	sp, err := e.svc.Create(ctx, Input{
		Title:     "  Cafe  ",
		Latitude:  10,
		Longitude: 20,
		Photo:     "data:image/png;base64,AAAA",
		Notes:     " Good coffee \n",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := e.svc.Get(ctx, sp.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Cafe" || got.Notes != "Good coffee" {
		t.Errorf("not trimmed: %+v", got)
	}
	if got.CreatedAt != got.UpdatedAt {
		t.Errorf("createdAt %d != updatedAt %d", got.CreatedAt, got.UpdatedAt)
	}
	if got.Latitude != 10 || got.Longitude != 20 || got.Photo != "data:image/png;base64,AAAA" {
		t.Errorf("fields changed: %+v", got)
	}
	if got.ID == "" {
		t.Error("empty id")
	}
	if _, ok := e.surface.Marker(sp.ID); !ok {
		t.Error("no marker for created spot")
	}
	if len(e.obs.lastList()) != 1 {
		t.Errorf("list len = %d", len(e.obs.lastList()))
	}
	if n := e.obs.lastNotification(); n.Level != LevelSuccess || n.Message != "Spot saved!" {
		t.Errorf("notification = %+v", n)
	}
}

func TestCreateTitleLength(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := e.svc.Create(ctx, Input{Title: strings.Repeat("a", 100)}); err != nil {
		t.Errorf("100 chars: %v", err)
	}
	_, err := e.svc.Create(ctx, Input{Title: strings.Repeat("a", 101)})
	if !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("101 chars = %v, want ErrInvalid", err)
	}
	if err.Error() != "Title must be 100 characters or less" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestCreateValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   Input
		msg  string
	}{
		{"empty title", Input{Title: "   "}, "Title is required"},
		{"long notes", Input{Title: "x", Notes: strings.Repeat("n", 1001)}, "Notes must be 1000 characters or less"},
		{"bad latitude", Input{Title: "x", Latitude: 91}, "Latitude must be between -90 and 90"},
	}
	for _, tc := range cases {
		_, err := e.svc.Create(ctx, tc.in)
		if !errors.Is(err, apperr.ErrInvalid) || err.Error() != tc.msg {
			t.Errorf("%s: err = %v, want %q", tc.name, err, tc.msg)
		}
	}
	all, _ := e.svc.List(ctx)
	if len(all) != 0 {
		t.Errorf("invalid input persisted %d spots", len(all))
	}
	if len(e.surface.Markers()) != 0 {
		t.Error("invalid input placed a marker")
	}
}

func TestCreateUniqueIDs(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		sp, err := e.svc.Create(ctx, Input{Title: "t"})
		if err != nil {
			t.Fatal(err)
		}
		if seen[sp.ID] {
			t.Fatalf("duplicate id %s", sp.ID)
		}
		seen[sp.ID] = true
	}
}

func TestEditKeepsIDAndCreatedAt(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sp, _ := e.svc.Create(ctx, Input{Title: "Cafe", Latitude: 1, Longitude: 2})

	// Same millisecond: updatedAt must still move forward.
	edited, err := e.svc.Edit(ctx, sp.ID, Input{Title: "Bakery", Latitude: 1, Longitude: 2})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	got, _ := e.svc.Get(ctx, sp.ID)
	if got.ID != sp.ID || edited.ID != sp.ID {
		t.Errorf("id changed: %s -> %s", sp.ID, got.ID)
	}
	if got.CreatedAt != sp.CreatedAt {
		t.Errorf("createdAt changed: %d -> %d", sp.CreatedAt, got.CreatedAt)
	}
	if got.UpdatedAt <= got.CreatedAt {
		t.Errorf("updatedAt %d not after createdAt %d", got.UpdatedAt, got.CreatedAt)
	}
	if got.Title != "Bakery" {
		t.Errorf("title = %q", got.Title)
	}

	e.clock.Advance(time.Minute)
	_, _ = e.svc.Edit(ctx, sp.ID, Input{Title: "Bakery 2", Latitude: 1, Longitude: 2})
	got, _ = e.svc.Get(ctx, sp.ID)
	if got.UpdatedAt != e.clock.Now().UnixMilli() {
		t.Errorf("updatedAt = %d, want clock time", got.UpdatedAt)
	}

	m, ok := e.surface.Marker(sp.ID)
	if !ok || m.Spot.Title != "Bakery 2" {
		t.Errorf("marker not replaced: %+v", m)
	}
	if len(e.surface.Markers()) != 1 {
		t.Errorf("markers = %d, want 1", len(e.surface.Markers()))
	}
	if n := e.obs.lastNotification(); n.Message != "Spot updated!" {
		t.Errorf("notification = %+v", n)
	}
}

func TestEditMissing(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Edit(context.Background(), "ghost", Input{Title: "x"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Edit(ghost) = %v", err)
	}
}

func TestDeleteRemovesEverywhere(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sp, _ := e.svc.Create(ctx, Input{Title: "Cafe"})

	if err := e.svc.Delete(ctx, sp.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := e.svc.Get(ctx, sp.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get after delete = %v", err)
	}
	if _, ok := e.surface.Marker(sp.ID); ok {
		t.Error("marker survived delete")
	}
	if len(e.obs.lastList()) != 0 {
		t.Error("list not refreshed")
	}
	if e.obs.formsClosed != 1 || len(e.obs.removed) != 1 || e.obs.removed[0] != sp.ID {
		t.Errorf("observer = closed %d removed %v", e.obs.formsClosed, e.obs.removed)
	}
	if n := e.obs.lastNotification(); n.Message != "Spot deleted!" {
		t.Errorf("notification = %+v", n)
	}
}

func TestLoadAll(t *testing.T) {
	st := testutil.TestStore(t)
	ctx := context.Background()
	for _, id := range []string{"b", "a"} {
		_ = st.Save(ctx, models.Spot{ID: id, Title: id, CreatedAt: 1, UpdatedAt: 1})
	}
	surface := testutil.TestSurface(t)
	svc := NewService(st, surface)
	obs := &recorder{}
	svc.Subscribe(obs)

	if err := svc.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(surface.Markers()) != 2 {
		t.Errorf("markers = %d", len(surface.Markers()))
	}
	list := obs.lastList()
	if len(list) != 2 || list[0].ID != "a" {
		t.Errorf("list = %+v", list)
	}
}

func TestSubmitFormCreate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	coords := models.LatLng{Lat: 10, Lng: 20}
	e.surface.SetTemporaryMarker(coords)

	sp, err := e.svc.SubmitForm(ctx, FormSubmission{Title: "Cafe", Notes: "Good coffee"}, coords, nil)
	if err != nil {
		t.Fatalf("SubmitForm: %v", err)
	}
	all, _ := e.svc.List(ctx)
	if len(all) != 1 || all[0].Title != "Cafe" || all[0].Notes != "Good coffee" ||
		all[0].Latitude != 10 || all[0].Longitude != 20 || all[0].ID != sp.ID {
		t.Fatalf("store = %+v", all)
	}
	if _, ok := e.surface.TemporaryMarker(); ok {
		t.Error("provisional marker not cleared")
	}
	markers := e.surface.Markers()
	if len(markers) != 1 || markers[0].Spot.Position() != coords {
		t.Errorf("markers = %+v", markers)
	}
	if e.obs.formsClosed != 1 {
		t.Errorf("formsClosed = %d", e.obs.formsClosed)
	}
}

func TestSubmitFormValidationKeepsFormOpen(t *testing.T) {
	e := newEnv(t)
	coords := models.LatLng{Lat: 1, Lng: 1}
	e.surface.SetTemporaryMarker(coords)

	_, err := e.svc.SubmitForm(context.Background(), FormSubmission{Title: ""}, coords, nil)
	if !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("err = %v", err)
	}
	if e.obs.formsClosed != 0 {
		t.Error("form closed on validation failure")
	}
	if n := e.obs.lastNotification(); n.Level != LevelError || n.Message != "Title is required" {
		t.Errorf("notification = %+v", n)
	}
	if _, ok := e.surface.TemporaryMarker(); !ok {
		t.Error("provisional marker cleared on failure")
	}
}

func TestSubmitFormEditCarriesPhoto(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sp, _ := e.svc.Create(ctx, Input{Title: "Cafe", Photo: "data:image/png;base64,AAAA"})
	e.surface.SetTemporaryMarker(models.LatLng{Lat: 5, Lng: 5})

	edited, err := e.svc.SubmitForm(ctx, FormSubmission{Title: "Cafe 2"}, sp.Position(), &sp)
	if err != nil {
		t.Fatalf("SubmitForm: %v", err)
	}
	if edited.Photo != sp.Photo {
		t.Errorf("photo dropped: %q", edited.Photo)
	}
	if _, ok := e.surface.TemporaryMarker(); !ok {
		t.Error("edit must not touch the provisional marker")
	}
}

func TestSubmitFormNewPhoto(t *testing.T) {
	e := newEnv(t)
	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)
	sub := FormSubmission{
		Title: "Pic",
		Photo: &PhotoFile{Name: "a.png", ContentType: "image/png", Size: int64(len(png)), Content: bytes.NewReader(png)},
	}
	sp, err := e.svc.SubmitForm(context.Background(), sub, models.LatLng{}, nil)
	if err != nil {
		t.Fatalf("SubmitForm: %v", err)
	}
	if !strings.HasPrefix(sp.Photo, "data:image/png;base64,") {
		t.Errorf("photo = %.40q", sp.Photo)
	}
}

func TestSubmitFormBadPhoto(t *testing.T) {
	e := newEnv(t)
	sub := FormSubmission{
		Title: "Pic",
		Photo: &PhotoFile{Name: "a.bmp", ContentType: "image/bmp", Size: 10, Content: strings.NewReader("BMxxxxxxxx")},
	}
	_, err := e.svc.SubmitForm(context.Background(), sub, models.LatLng{}, nil)
	if !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("err = %v", err)
	}
	if n := e.obs.lastNotification(); !strings.HasPrefix(n.Message, "Invalid file type") {
		t.Errorf("notification = %+v", n)
	}
}

func TestChangeHook(t *testing.T) {
	st := testutil.TestStore(t)
	var got []string
	svc := NewService(st, testutil.TestSurface(t), WithChangeHook(func(kind, id string) {
		got = append(got, kind+":"+id)
	}), WithIDGenerator(func() string { return "fixed" }))
	ctx := context.Background()

	if _, err := svc.Create(ctx, Input{Title: "A"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, Input{Title: ""}); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := svc.Edit(ctx, "fixed", Input{Title: "B"}); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, "fixed"); err != nil {
		t.Fatal(err)
	}

	want := []string{"created:fixed", "updated:fixed", "deleted:fixed"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("hook calls = %v, want %v", got, want)
	}
}

func TestCreateKeepsLongitude(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	sp, err := e.svc.Create(ctx, Input{Title: "Dateline", Latitude: -10, Longitude: 200})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, _ := e.svc.Get(ctx, sp.ID)
	if got.Longitude != 200 {
		t.Errorf("stored longitude = %v, want 200", got.Longitude)
	}
	if m, ok := e.surface.Marker(sp.ID); !ok || m.Spot.Longitude != 200 {
		t.Errorf("marker = %+v, %v", m, ok)
	}
}

// gatedStore blocks the first Update after it has been written until release
// is closed.
type gatedStore struct {
	store.SpotStore
	reached chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedStore) Update(ctx context.Context, id string, spot models.Spot) error {
	err := g.SpotStore.Update(ctx, id, spot)
	g.once.Do(func() {
		close(g.reached)
		<-g.release
	})
	return err
}

func TestDeleteDuringEditLeavesNoMarker(t *testing.T) {
	st := &gatedStore{
		SpotStore: testutil.TestStore(t),
		reached:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	surface := testutil.TestSurface(t)
	svc := NewService(st, surface)
	ctx := context.Background()

	sp, err := svc.Create(ctx, Input{Title: "Cafe", Latitude: 1, Longitude: 2})
	if err != nil {
		t.Fatal(err)
	}

	editErr := make(chan error, 1)
	go func() {
		_, err := svc.Edit(ctx, sp.ID, Input{Title: "Bakery", Latitude: 3, Longitude: 4})
		editErr <- err
	}()
	<-st.reached

	deleteErr := make(chan error, 1)
	go func() { deleteErr <- svc.Delete(ctx, sp.ID) }()

	select {
	case err := <-deleteErr:
		close(st.release)
		t.Fatalf("Delete returned while Edit was in flight: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	close(st.release)

	if err := <-editErr; err != nil {
		t.Errorf("Edit: %v", err)
	}
	if err := <-deleteErr; err != nil {
		t.Errorf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, sp.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get after delete = %v", err)
	}
	if ids := surface.MarkerIDs(); len(ids) != 0 {
		t.Errorf("orphan markers %v", ids)
	}
}

func TestConcurrentEditsMarkerMatchesStore(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sp, err := e.svc.Create(ctx, Input{Title: "Cafe", Latitude: 0, Longitude: 0})
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = e.svc.Edit(ctx, sp.ID, Input{Title: "Cafe", Latitude: float64(i), Longitude: float64(i)})
		}(i)
	}
	wg.Wait()

	stored, _ := e.svc.Get(ctx, sp.ID)
	m, ok := e.surface.Marker(sp.ID)
	if !ok {
		t.Fatal("marker missing")
	}
	if m.Spot.Latitude != stored.Latitude || m.Spot.UpdatedAt != stored.UpdatedAt {
		t.Errorf("marker shows %+v, store has %+v", m.Spot, stored)
	}
}

func TestRefreshReconcilesExternalWrites(t *testing.T) {
	st := testutil.TestStore(t)
	surface := testutil.TestSurface(t)
	svc := NewService(st, surface)
	obs := &recorder{}
	svc.Subscribe(obs)
	ctx := context.Background()

	a, err := svc.Create(ctx, Input{Title: "A", Latitude: 1, Longitude: 1})
	if err != nil {
		t.Fatal(err)
	}

	// Writes straight to the table, as another process would.
	_ = st.Save(ctx, models.Spot{ID: "b", Title: "B", Latitude: 2, Longitude: 2, CreatedAt: a.CreatedAt + 1, UpdatedAt: a.CreatedAt + 1})
	moved := a
	moved.Latitude = 50
	moved.UpdatedAt = a.UpdatedAt + 1
	_ = st.Update(ctx, a.ID, moved)

	if err := svc.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, ok := surface.Marker("b"); !ok {
		t.Error("no marker for externally created spot")
	}
	if m, _ := surface.Marker(a.ID); m.Spot.Latitude != 50 {
		t.Errorf("marker latitude = %v, want 50", m.Spot.Latitude)
	}
	if len(obs.lastList()) != 2 {
		t.Errorf("list len = %d", len(obs.lastList()))
	}

	_ = st.Delete(ctx, "b")
	if err := svc.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, ok := surface.Marker("b"); ok {
		t.Error("marker survived external delete")
	}
	if ids := surface.MarkerIDs(); len(ids) != 1 || ids[0] != a.ID {
		t.Errorf("markers = %v", ids)
	}
}
