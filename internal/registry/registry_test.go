package registry

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolroute/internal/catalog"
	"toolroute/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "registry.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func desc(id string, cat domain.Category, tools ...string) domain.CapabilityDescriptor {
	d := domain.CapabilityDescriptor{ServerID: id, DisplayName: id, Category: cat}
	for _, name := range tools {
		d.Tools = append(d.Tools, domain.ToolInfo{Name: name})
	}
	return d
}

func TestRunMigrations_Idempotent(t *testing.T) {
	s := testStore(t)

	require.NoError(t, RunMigrations(s.db, testLogger()))
	version, err := GetSchemaVersion(s.db)
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, version)
}

func TestStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	d := desc("google-maps", domain.CategoryLocation, "maps_search_places")
	d.Metadata.Keywords = []string{"directions"}
	require.NoError(t, s.Put(ctx, d))

	got, err := s.Get(ctx, "google-maps")
	require.NoError(t, err)
	assert.Equal(t, d, got)

	d.DisplayName = "Google Maps"
	require.NoError(t, s.Put(ctx, d))
	got, err = s.Get(ctx, "google-maps")
	require.NoError(t, err)
	assert.Equal(t, "Google Maps", got.DisplayName)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, s.Delete(ctx, "google-maps"))
	_, err = s.Get(ctx, "google-maps")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "google-maps"), ErrNotFound)
}

func TestStore_Events(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	require.NoError(t, s.Put(ctx, desc("brave", domain.CategoryNewsSearch, "web_search")))
	require.NoError(t, s.Delete(ctx, "brave"))

	events, err := s.Events(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "delete", events[0].Action)
	assert.Equal(t, "put", events[1].Action)
	assert.Equal(t, "brave", events[1].ServerID)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "registry.db")

	s, err := OpenStore(path, testLogger())
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, desc("playwright", domain.CategoryLiveExtraction, "browser_navigate")))
	require.NoError(t, s.Close())

	s, err = OpenStore(path, testLogger())
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, "playwright")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryLiveExtraction, got.Category)
}

func TestRegistry_PublishesAfterEveryChange(t *testing.T) {
	ctx := context.Background()
	cat := catalog.New(testLogger())
	r := New(testStore(t), PublisherFunc(cat.Register), testLogger())

	require.NoError(t, r.Add(ctx, desc("google-maps", "maps", "maps_search_places")))
	require.Equal(t, 1, cat.Snapshot().Len())
	got, ok := cat.Snapshot().Get("google-maps")
	require.True(t, ok)
	assert.Equal(t, domain.CategoryLocation, got.Category)

	require.NoError(t, r.Add(ctx, desc("playwright", domain.CategoryLiveExtraction, "browser_navigate")))
	assert.Equal(t, 2, cat.Snapshot().Len())

	require.NoError(t, r.Remove(ctx, "google-maps"))
	assert.Equal(t, 1, cat.Snapshot().Len())
	_, ok = cat.Snapshot().Get("google-maps")
	assert.False(t, ok)
}

func TestRegistry_AddRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	cat := catalog.New(testLogger())
	r := New(testStore(t), PublisherFunc(cat.Register), testLogger())

	err := r.Add(ctx, desc("  ", domain.CategoryLocation, "x"))
	assert.ErrorIs(t, err, catalog.ErrInvalidDescriptor)
	err = r.Add(ctx, desc("empty", domain.CategoryLocation))
	assert.ErrorIs(t, err, catalog.ErrInvalidDescriptor)

	all, err := r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Equal(t, 0, cat.Snapshot().Len())
}

func TestRegistry_ImportSkipsInvalid(t *testing.T) {
	ctx := context.Background()
	cat := catalog.New(testLogger())
	r := New(testStore(t), PublisherFunc(cat.Register), testLogger())

	n, err := r.Import(ctx, []domain.CapabilityDescriptor{
		desc("brave", domain.CategoryNewsSearch, "web_search"),
		desc("", domain.CategoryLocation, "x"),
		desc("playwright", domain.CategoryLiveExtraction, "browser_navigate"),
	})
	assert.ErrorIs(t, err, catalog.ErrInvalidDescriptor)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, cat.Snapshot().Len())
}

func TestRegistry_RemoveUnknown(t *testing.T) {
	r := New(testStore(t), nil, testLogger())
	assert.ErrorIs(t, r.Remove(context.Background(), "nope"), ErrNotFound)
}

func TestStore_MetricTotalsAccumulate(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	totals, err := s.MetricTotals(ctx)
	require.NoError(t, err)
	assert.Empty(t, totals)

	series := `toolroute_plans_total{mode="single"}`
	require.NoError(t, s.AddMetricTotals(ctx, map[string]int64{series: 2}))
	require.NoError(t, s.AddMetricTotals(ctx, map[string]int64{series: 3, "toolroute_plan_steps_total{}": 4}))
	require.NoError(t, s.AddMetricTotals(ctx, nil))

	totals, err = s.MetricTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), totals[series])
	assert.Equal(t, int64(4), totals["toolroute_plan_steps_total{}"])
}
