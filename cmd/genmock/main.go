// Command genmock writes a synthetic SSGB observation CSV for demos and
// fixtures. Snow is reported at sites north of a threshold latitude that
// drifts from day to day, with a little noise near the line. The output is
// fully determined by the flags, including -seed.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out testdata/ssgb_mock.csv \
//	  -start 2023-01-01 -end 2023-01-31 \
//	  -sites 150 -seed 42
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bmordue/snowline/internal/domain"
)

type site struct {
	id        string
	lat, lon  float64
	elevation float64
}

type options struct {
	start, end time.Time
	bbox       domain.BoundingBox
	sites      int
	seed       uint64
	threshold  float64 // snowline latitude on the first day
	drift      float64 // maximum daily change of the threshold, degrees
	noise      float64 // probability of flipping a site within 0.2° of the line
	missing    float64 // probability that a site does not report on a day
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output CSV path")
	start := flag.String("start", "2023-01-01", "first date (YYYY-MM-DD)")
	end := flag.String("end", "2023-01-31", "last date (YYYY-MM-DD)")
	sites := flag.Int("sites", 150, "number of observing sites")
	seed := flag.Uint64("seed", 42, "random seed")
	threshold := flag.Float64("threshold", 57.0, "snowline latitude on the first day")
	drift := flag.Float64("drift", 0.15, "maximum daily threshold change in degrees")
	noise := flag.Float64("noise", 0.1, "flip probability for sites near the line")
	missing := flag.Float64("missing", 0.05, "probability a site misses a day")
	minLon := flag.Float64("min-lon", -8.0, "region west edge")
	maxLon := flag.Float64("max-lon", -1.5, "region east edge")
	minLat := flag.Float64("min-lat", 54.5, "region south edge")
	maxLat := flag.Float64("max-lat", 59.0, "region north edge")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	opts := options{
		bbox:      domain.BoundingBox{MinLon: *minLon, MaxLon: *maxLon, MinLat: *minLat, MaxLat: *maxLat},
		sites:     *sites,
		seed:      *seed,
		threshold: *threshold,
		drift:     *drift,
		noise:     *noise,
		missing:   *missing,
	}
	var err error
	if opts.start, err = domain.ParseDay(*start); err != nil {
		return fmt.Errorf("parse -start: %w", err)
	}
	if opts.end, err = domain.ParseDay(*end); err != nil {
		return fmt.Errorf("parse -end: %w", err)
	}
	if opts.end.Before(opts.start) {
		return fmt.Errorf("-end %s is before -start %s", *end, *start)
	}
	if opts.sites < domain.MinObservations {
		return fmt.Errorf("-sites must be at least %d", domain.MinObservations)
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create %s: %w", *out, err)
	}
	defer f.Close()

	stats, err := generate(f, opts)
	if err != nil {
		return fmt.Errorf("writing %s: %w", *out, err)
	}
	log.Printf("wrote %s: %d rows over %d days, %d with snow", *out, stats.rows, stats.days, stats.snow)
	return nil
}

type stats struct {
	rows, days, snow int
}

func newSites(rng *rand.Rand, opts options) []site {
	sites := make([]site, opts.sites)
	for i := range sites {
		sites[i] = site{
			id:        fmt.Sprintf("SSGB%04d", i+1),
			lat:       opts.bbox.MinLat + rng.Float64()*opts.bbox.Height(),
			lon:       opts.bbox.MinLon + rng.Float64()*opts.bbox.Width(),
			elevation: math.Round(rng.Float64() * 1000),
		}
	}
	return sites
}

// generate writes the CSV to w. The same options always produce the same
// bytes.
func generate(w io.Writer, opts options) (stats, error) {
	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))
	sites := newSites(rng, opts)

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "site_id", "latitude", "longitude", "snow_present", "snow_depth", "elevation"}); err != nil {
		return stats{}, err
	}

	var st stats
	threshold := opts.threshold
	for _, day := range domain.DateRange(opts.start, opts.end) {
		st.days++
		date := day.Format(domain.DateLayout)
		for _, s := range sites {
			if rng.Float64() < opts.missing {
				continue
			}
			snow := s.lat >= threshold
			if math.Abs(s.lat-threshold) < 0.2 && rng.Float64() < opts.noise {
				snow = !snow
			}
			depth := 0.0
			if snow {
				depth = math.Round((1+(s.lat-threshold)*20+s.elevation/50)*10) / 10
				depth = math.Max(depth, 0.5)
				st.snow++
			}
			if err := cw.Write([]string{
				date,
				s.id,
				strconv.FormatFloat(s.lat, 'f', 4, 64),
				strconv.FormatFloat(s.lon, 'f', 4, 64),
				strconv.FormatBool(snow),
				strconv.FormatFloat(depth, 'f', 1, 64),
				strconv.FormatFloat(s.elevation, 'f', 0, 64),
			}); err != nil {
				return st, err
			}
			st.rows++
		}
		threshold += (rng.Float64()*2 - 1) * opts.drift
		threshold = math.Min(math.Max(threshold, opts.bbox.MinLat), opts.bbox.MaxLat)
	}
	cw.Flush()
	return st, cw.Error()
}
