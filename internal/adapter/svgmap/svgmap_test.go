package svgmap_test

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmordue/snowline/internal/adapter/svgmap"
	"github.com/bmordue/snowline/internal/domain"
	"github.com/bmordue/snowline/internal/observability"
)

var (
	scotland = domain.BoundingBox{MinLon: -5, MaxLon: -3, MinLat: 56, MaxLat: 58}
	day1     = time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)
	style    = svgmap.Style{SnowlineColor: "#0000FF", SnowlineWidth: 1.5, GridlineColor: "#CCCCCC", GridlineDash: "6,4"}
)

func okResult() domain.SnowlineResult {
	return domain.SnowlineResult{
		Date: day1, Status: domain.StatusOK, ObservationCount: 121,
		Geometry: orb.MultiLineString{{{-5, 57.1}, {-4, 57.2}, {-3.1, 57.1}}},
	}
}

func render(t *testing.T, r *svgmap.SVGRenderer, res domain.SnowlineResult) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, res))
	return buf.String()
}

// wellFormed decodes the whole document to catch unbalanced tags.
func wellFormed(t *testing.T, doc string) {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(doc))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return
		}
		require.NoError(t, err)
	}
}

func TestSVGRenderer_Snowline(t *testing.T) {
	doc := render(t, svgmap.NewSVGRenderer(scotland, nil, style), okResult())
	wellFormed(t, doc)

	assert.Contains(t, doc, "<title>Snowline 2023-01-15</title>")
	assert.Contains(t, doc, "Snowline 2023-01-15 (ok)")
	assert.Equal(t, 1, strings.Count(doc, `class="snowline"`))
	assert.Contains(t, doc, "stroke:#0000FF;stroke-width:1.5")
	assert.Contains(t, doc, "stroke-dasharray:6,4")
	assert.Contains(t, doc, "57°N")
	assert.Contains(t, doc, "4°W")
	assert.Contains(t, doc, `id="north-arrow"`)
	assert.Contains(t, doc, `id="legend"`)
	assert.Contains(t, doc, ">Snowline</text>")
}

func TestSVGRenderer_NoGeometry(t *testing.T) {
	res := domain.SnowlineResult{Date: day1, Status: domain.StatusNoSnow, ObservationCount: 40}
	doc := render(t, svgmap.NewSVGRenderer(scotland, nil, style), res)
	wellFormed(t, doc)

	assert.NotContains(t, doc, `class="snowline"`)
	assert.Contains(t, doc, "No snow observed")
	assert.Contains(t, doc, `id="legend"`)
}

func TestSVGRenderer_Basemap(t *testing.T) {
	island := orb.Polygon{{{-4.5, 56.5}, {-3.5, 56.5}, {-3.5, 57.5}, {-4.5, 56.5}}}
	coast := orb.LineString{{-5, 56}, {-3, 58}}
	doc := render(t, svgmap.NewSVGRenderer(scotland, []orb.Geometry{island, coast}, style), okResult())
	wellFormed(t, doc)

	assert.Contains(t, doc, `id="basemap"`)
	assert.Contains(t, doc, "fill-rule:evenodd")
}

func TestSVGRenderer_Deterministic(t *testing.T) {
	r := svgmap.NewSVGRenderer(scotland, nil, style)
	assert.Equal(t, render(t, r, okResult()), render(t, r, okResult()))
}

func TestMapGenerator_Write(t *testing.T) {
	dir := t.TempDir()
	gen := svgmap.NewMapGenerator(dir, "snowline_", svgmap.NewSVGRenderer(scotland, nil, style),
		slog.Default(), observability.NewMetricsForTesting())

	results := domain.Results{
		okResult(),
		{Date: day1.AddDate(0, 0, 1), Status: domain.StatusInsufficientData},
	}
	require.NoError(t, gen.Write(context.Background(), results))

	for _, day := range []string{"2023-01-15", "2023-01-16"} {
		data, err := os.ReadFile(filepath.Join(dir, "snowline_"+day+".svg"))
		require.NoError(t, err, day)
		assert.Contains(t, string(data), "Snowline "+day)
	}
}

func TestLoadBasemap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coast.geojson")
	data := `{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"name":"a"},"geometry":{"type":"Polygon","coordinates":[[[-4.5,56.5],[-3.5,56.5],[-3.5,57.5],[-4.5,56.5]]]}},
{"type":"Feature","properties":{},"geometry":{"type":"LineString","coordinates":[[-5,56],[-3,58]]}}
]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	geoms, err := svgmap.LoadBasemap(path)
	require.NoError(t, err)
	require.Len(t, geoms, 2)
	assert.Equal(t, "Polygon", geoms[0].GeoJSONType())
	assert.Equal(t, "LineString", geoms[1].GeoJSONType())

	_, err = svgmap.LoadBasemap(filepath.Join(t.TempDir(), "missing.geojson"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
