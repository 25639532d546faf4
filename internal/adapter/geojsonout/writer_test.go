package geojsonout_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmordue/snowline/internal/adapter/geojsonout"
	"github.com/bmordue/snowline/internal/domain"
	"github.com/bmordue/snowline/internal/observability"
)

var day1 = time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)

func sampleResults() domain.Results {
	return domain.Results{
		{Date: day1, Status: domain.StatusOK, ObservationCount: 40,
			Geometry: orb.MultiLineString{{{-5, 57.1}, {-4, 57.2}, {-3.1, 57.1}}}},
		{Date: day1.AddDate(0, 0, 1), Status: domain.StatusNoSnow, ObservationCount: 38},
		{Date: day1.AddDate(0, 0, 2), Status: domain.StatusInsufficientData, ObservationCount: 1,
			Detail: "1 observations, need at least 3"},
	}
}

func TestFeatureCollection(t *testing.T) {
	fc := geojsonout.FeatureCollection(sampleResults())
	require.Len(t, fc.Features, 1)

	f := fc.Features[0]
	assert.Equal(t, "2023-01-15", f.ID)
	assert.Equal(t, "2023-01-15", f.Properties["date"])
	assert.Equal(t, "ok", f.Properties["status"])
	assert.Equal(t, 40, f.Properties["observation_count"])
	assert.Equal(t, "MultiLineString", f.Geometry.GeoJSONType())
}

func TestBuildManifest(t *testing.T) {
	m := geojsonout.BuildManifest(sampleResults())

	assert.Equal(t, 3, m.Count)
	assert.Equal(t, 1, m.Statuses[domain.StatusOK])
	require.Len(t, m.Dates, 3)
	assert.Equal(t, "MULTILINESTRING((-5 57.1,-4 57.2,-3.1 57.1))", m.Dates[0].WKT)
	assert.Empty(t, m.Dates[1].WKT)
	assert.Equal(t, "1 observations, need at least 3", m.Dates[2].Detail)
}

func TestWriter_Write(t *testing.T) {
	dir := t.TempDir()
	w := geojsonout.NewWriter(dir, "run_", slog.Default(), observability.NewMetricsForTesting())
	results := sampleResults()

	require.NoError(t, w.Write(context.Background(), results))

	data, err := os.ReadFile(w.CollectionPath())
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, results[0].Geometry, fc.Features[0].Geometry)
	assert.Equal(t, 40, fc.Features[0].Properties.MustInt("observation_count"))

	m, err := geojsonout.ReadManifest(w.ManifestPath())
	require.NoError(t, err)
	require.Len(t, m.Dates, 3)
	got, err := m.Dates[0].Geometry()
	require.NoError(t, err)
	if diff := cmp.Diff(results[0].Geometry, got); diff != "" {
		t.Errorf("manifest geometry mismatch (-want +got):\n%s", diff)
	}
	none, err := m.Dates[1].Geometry()
	require.NoError(t, err)
	assert.Nil(t, none)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temporary files left behind")
}

func TestWriter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := geojsonout.NewWriter(t.TempDir(), "", slog.Default(), observability.NewMetricsForTesting())
	assert.ErrorIs(t, w.Write(ctx, sampleResults()), context.Canceled)
}
