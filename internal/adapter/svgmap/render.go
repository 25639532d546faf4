// Package svgmap draws one SVG map per date showing the snowline over an
// optional basemap.
package svgmap

import (
	"fmt"
	"io"
	"math"
	"strings"

	svg "github.com/ajstarks/svgo/float"
	"github.com/paulmach/orb"

	"github.com/bmordue/snowline/internal/domain"
)

// Style controls line appearance.
type Style struct {
	SnowlineColor string
	SnowlineWidth float64
	GridlineColor string
	// GridlineDash is an SVG stroke-dasharray; empty draws solid lines.
	GridlineDash string
}

// Renderer draws a single result.
type Renderer interface {
	Render(w io.Writer, r domain.SnowlineResult) error
}

const (
	mapWidth     = 800.0
	marginLeft   = 70.0
	marginRight  = 20.0
	marginTop    = 50.0
	marginBottom = 40.0

	backgroundFill = "#F4F8FB"
	landFill       = "#E9E5D9"
	landStroke     = "#9A9A9A"
)

// SVGRenderer implements Renderer with an equirectangular projection scaled
// by the cosine of the mid latitude.
type SVGRenderer struct {
	bbox    domain.BoundingBox
	basemap []orb.Geometry
	style   Style
	scaleX  float64
	scaleY  float64
	height  float64
}

func NewSVGRenderer(bbox domain.BoundingBox, basemap []orb.Geometry, style Style) *SVGRenderer {
	midLat := (bbox.MinLat + bbox.MaxLat) / 2 * math.Pi / 180
	scaleX := mapWidth / bbox.Width()
	scaleY := scaleX / math.Max(math.Cos(midLat), 0.1)
	return &SVGRenderer{
		bbox:    bbox,
		basemap: basemap,
		style:   style,
		scaleX:  scaleX,
		scaleY:  scaleY,
		height:  bbox.Height() * scaleY,
	}
}

// project maps a lon/lat pair to canvas coordinates.
func (r *SVGRenderer) project(p orb.Point) (x, y float64) {
	x = marginLeft + (p.Lon()-r.bbox.MinLon)*r.scaleX
	y = marginTop + (r.bbox.MaxLat-p.Lat())*r.scaleY
	return x, y
}

func (r *SVGRenderer) projectAll(ls []orb.Point) (xs, ys []float64) {
	xs = make([]float64, len(ls))
	ys = make([]float64, len(ls))
	for i, p := range ls {
		xs[i], ys[i] = r.project(p)
	}
	return xs, ys
}

// Size returns the canvas dimensions in pixels.
func (r *SVGRenderer) Size() (w, h float64) {
	return marginLeft + mapWidth + marginRight, marginTop + r.height + marginBottom
}

func (r *SVGRenderer) Render(w io.Writer, res domain.SnowlineResult) error {
	ew := &errWriter{w: w}
	canvas := svg.New(ew)

	width, height := r.Size()
	day := res.Date.Format(domain.DateLayout)

	canvas.Start(width, height)
	canvas.Title("Snowline " + day)
	canvas.Desc(fmt.Sprintf("status=%s observations=%d %s", res.Status, res.ObservationCount, res.Detail))

	canvas.Def()
	canvas.ClipPath(`id="map-area"`)
	canvas.Rect(marginLeft, marginTop, mapWidth, r.height)
	canvas.ClipEnd()
	canvas.DefEnd()

	canvas.Rect(0, 0, width, height, "fill:white")
	canvas.Rect(marginLeft, marginTop, mapWidth, r.height, "fill:"+backgroundFill)

	canvas.Group(`clip-path="url(#map-area)"`)
	r.drawBasemap(canvas)
	r.drawGraticule(canvas)
	r.drawSnowline(canvas, res)
	canvas.Gend()

	r.drawLabels(canvas)
	canvas.Rect(marginLeft, marginTop, mapWidth, r.height, "fill:none;stroke:black;stroke-width:1")
	r.drawNorthArrow(canvas)
	r.drawLegend(canvas)

	canvas.Text(marginLeft, marginTop-18, fmt.Sprintf("Snowline %s (%s)", day, res.Status),
		"font-family:sans-serif;font-size:18px;fill:black")
	if !res.HasGeometry() {
		canvas.Text(marginLeft+mapWidth/2, marginTop+r.height/2, statusCaption(res),
			"font-family:sans-serif;font-size:16px;fill:#555555;text-anchor:middle")
	}
	canvas.End()
	return ew.err
}

func statusCaption(res domain.SnowlineResult) string {
	switch res.Status {
	case domain.StatusNoSnow:
		return "No snow observed"
	case domain.StatusCompleteSnow:
		return "Complete snow cover"
	case domain.StatusInsufficientData:
		return "Insufficient data"
	default:
		return "No snowline extracted"
	}
}

func (r *SVGRenderer) drawBasemap(canvas *svg.SVG) {
	if len(r.basemap) == 0 {
		return
	}
	polyStyle := fmt.Sprintf("fill:%s;fill-rule:evenodd;stroke:%s;stroke-width:0.5", landFill, landStroke)
	lineStyle := fmt.Sprintf("fill:none;stroke:%s;stroke-width:0.5", landStroke)

	canvas.Gid("basemap")
	for _, g := range r.basemap {
		switch g := g.(type) {
		case orb.Polygon:
			canvas.Path(r.polygonPath(g), polyStyle)
		case orb.MultiPolygon:
			for _, p := range g {
				canvas.Path(r.polygonPath(p), polyStyle)
			}
		case orb.Ring:
			canvas.Path(r.polygonPath(orb.Polygon{g}), polyStyle)
		case orb.LineString:
			xs, ys := r.projectAll(g)
			canvas.Polyline(xs, ys, lineStyle)
		case orb.MultiLineString:
			for _, ls := range g {
				xs, ys := r.projectAll(ls)
				canvas.Polyline(xs, ys, lineStyle)
			}
		}
	}
	canvas.Gend()
}

func (r *SVGRenderer) polygonPath(p orb.Polygon) string {
	var b strings.Builder
	for _, ring := range p {
		for i, pt := range ring {
			x, y := r.project(pt)
			cmd := "L"
			if i == 0 {
				cmd = "M"
			}
			fmt.Fprintf(&b, "%s%.2f,%.2f ", cmd, x, y)
		}
		b.WriteString("Z ")
	}
	return strings.TrimSpace(b.String())
}

func (r *SVGRenderer) gridStyle() string {
	s := fmt.Sprintf("stroke:%s;stroke-width:0.5", r.style.GridlineColor)
	if r.style.GridlineDash != "" {
		s += ";stroke-dasharray:" + r.style.GridlineDash
	}
	return s
}

func (r *SVGRenderer) drawGraticule(canvas *svg.SVG) {
	style := r.gridStyle()
	canvas.Gid("graticule")
	for _, lon := range ticks(r.bbox.MinLon, r.bbox.MaxLon) {
		x1, y1 := r.project(orb.Point{lon, r.bbox.MaxLat})
		x2, y2 := r.project(orb.Point{lon, r.bbox.MinLat})
		canvas.Line(x1, y1, x2, y2, style)
	}
	for _, lat := range ticks(r.bbox.MinLat, r.bbox.MaxLat) {
		x1, y1 := r.project(orb.Point{r.bbox.MinLon, lat})
		x2, y2 := r.project(orb.Point{r.bbox.MaxLon, lat})
		canvas.Line(x1, y1, x2, y2, style)
	}
	canvas.Gend()
}

func (r *SVGRenderer) drawLabels(canvas *svg.SVG) {
	font := "font-family:sans-serif;font-size:11px;fill:#333333"
	for _, lon := range ticks(r.bbox.MinLon, r.bbox.MaxLon) {
		x, _ := r.project(orb.Point{lon, r.bbox.MinLat})
		canvas.Text(x, marginTop+r.height+16, formatDegrees(lon, "E", "W"), font+";text-anchor:middle")
	}
	for _, lat := range ticks(r.bbox.MinLat, r.bbox.MaxLat) {
		_, y := r.project(orb.Point{r.bbox.MinLon, lat})
		canvas.Text(marginLeft-6, y+4, formatDegrees(lat, "N", "S"), font+";text-anchor:end")
	}
}

func (r *SVGRenderer) drawSnowline(canvas *svg.SVG, res domain.SnowlineResult) {
	if !res.HasGeometry() {
		return
	}
	style := r.snowlineStyle()
	canvas.Gid("snowline")
	for _, ls := range res.Geometry {
		xs, ys := r.projectAll(ls)
		canvas.Polyline(xs, ys, `class="snowline"`, style)
	}
	canvas.Gend()
}

func (r *SVGRenderer) drawNorthArrow(canvas *svg.SVG) {
	x := marginLeft + mapWidth - 30
	y := marginTop + 20
	canvas.Gid("north-arrow")
	canvas.Polygon([]float64{x, x - 8, x, x + 8}, []float64{y, y + 24, y + 18, y + 24}, "fill:black")
	canvas.Text(x, y+38, "N", "font-family:sans-serif;font-size:12px;font-weight:bold;text-anchor:middle")
	canvas.Gend()
}

func (r *SVGRenderer) snowlineStyle() string {
	return fmt.Sprintf("fill:none;stroke:%s;stroke-width:%g;stroke-linejoin:round;stroke-linecap:round",
		r.style.SnowlineColor, r.style.SnowlineWidth)
}

// drawLegend puts a sample of the snowline stroke in the lower left corner
// of the map, always drawn so every map in a series reads the same.
func (r *SVGRenderer) drawLegend(canvas *svg.SVG) {
	x := marginLeft + 10
	y := marginTop + r.height - 34
	canvas.Gid("legend")
	canvas.Rect(x, y, 110, 24, "fill:white;fill-opacity:0.9;stroke:#999999;stroke-width:0.5")
	canvas.Line(x+8, y+12, x+38, y+12, r.snowlineStyle())
	canvas.Text(x+46, y+16, "Snowline", "font-family:sans-serif;font-size:12px;fill:black")
	canvas.Gend()
}

var tickSteps = []float64{0.1, 0.2, 0.25, 0.5, 1, 2, 5, 10, 15, 30}

// ticks returns round graticule positions inside [lo, hi], aiming for at
// most six lines.
func ticks(lo, hi float64) []float64 {
	step := tickSteps[len(tickSteps)-1]
	for _, s := range tickSteps {
		if (hi-lo)/s <= 6 {
			step = s
			break
		}
	}
	var out []float64
	for i := math.Ceil(lo/step - 1e-9); i*step <= hi+1e-9; i++ {
		out = append(out, math.Round(i*step*1e6)/1e6)
	}
	return out
}

func formatDegrees(v float64, pos, neg string) string {
	hemi := pos
	if v < 0 {
		hemi = neg
	}
	return fmt.Sprintf("%g°%s", math.Abs(v), hemi)
}

// errWriter remembers the first write error so rendering code can stay
// linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return len(p), nil
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, nil
}
