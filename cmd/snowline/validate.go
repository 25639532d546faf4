package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sort"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/bmordue/snowline/internal/adapter/geojsonout"
	"github.com/bmordue/snowline/internal/adapter/ssgb"
	"github.com/bmordue/snowline/internal/adapter/svgmap"
	"github.com/bmordue/snowline/internal/config"
	"github.com/bmordue/snowline/internal/domain"
	"github.com/bmordue/snowline/internal/isoline"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
	notes  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func validateCmd() *cobra.Command {
	var configPath string

	c := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and input files without writing outputs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Configuration error: %v\n", err)
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "=== Snowline Configuration ===")
			fmt.Fprintln(out)
			fmt.Fprint(out, cfg.Summary())
			fmt.Fprintln(out)

			phases := []*phase{
				checkGrid(cfg),
				checkObservations(cmd.Context(), cfg),
				checkBasemap(cfg),
				checkPreviousOutput(cfg),
			}
			if !report(out, phases) {
				return fmt.Errorf("validation failed")
			}
			return nil
		},
	}

	c.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML configuration file")
	return c
}

func report(w io.Writer, phases []*phase) bool {
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-28s %s\n", p.name, status)
		for _, n := range p.notes {
			fmt.Fprintf(w, "      %s\n", n)
		}
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nConfiguration is valid.")
	} else {
		fmt.Fprintln(w, "\nValidation FAILED.")
	}
	return allPassed
}

func checkGrid(cfg *config.Config) *phase {
	p := &phase{name: "Interpolation grid"}
	g, err := isoline.NewGrid(cfg.Region.BoundingBox, cfg.Processing.GridResolution)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	p.notef("%d x %d cells at %g°", g.Cols(), g.Rows(), g.Resolution())
	return p
}

func checkObservations(ctx context.Context, cfg *config.Config) *phase {
	p := &phase{name: "Snow cover data"}
	if ctx == nil {
		ctx = context.Background()
	}

	f, err := os.Open(cfg.Input.SnowCoverData)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	defer f.Close()

	quiet := slog.New(slog.DiscardHandler)
	all, err := ssgb.Read(ctx, f, cfg.Input.SnowCoverData, quiet)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	start, end, err := cfg.Time.Range()
	if err != nil {
		p.errorf("%v", err)
		return p
	}

	obs := domain.FilterObservations(all, start, end, cfg.Region.BoundingBox)
	p.notef("%d observations, %d inside the region and time window", len(all), len(obs))
	if len(obs) == 0 {
		p.errorf("no observations between %s and %s inside %s",
			cfg.Time.StartDate, cfg.Time.EndDate, cfg.Region.BoundingBox)
		return p
	}

	groups := domain.GroupByDay(obs)
	days := domain.DateRange(start, end)
	counts := make([]float64, 0, len(days))
	var sparse []string
	for _, day := range days {
		n := len(groups[day])
		counts = append(counts, float64(n))
		if domain.Classify(groups[day]) == domain.StatusInsufficientData {
			sparse = append(sparse, fmt.Sprintf("%s (%d)", day.Format(domain.DateLayout), n))
		}
	}
	if len(counts) > 1 {
		mean, std := stat.MeanStdDev(counts, nil)
		p.notef("%.1f ± %.1f reports per date over %d dates", mean, std, len(days))
	} else {
		p.notef("%.0f reports on the only date", counts[0])
	}
	sort.Strings(sparse)
	if len(sparse) > 0 {
		p.notef("%d dates will be reported as %s: %v", len(sparse), domain.StatusInsufficientData, sparse)
	}
	return p
}

func checkBasemap(cfg *config.Config) *phase {
	p := &phase{name: "Basemap"}
	if cfg.Input.BasemapData == "" {
		p.notef("none configured")
		return p
	}
	geoms, err := svgmap.LoadBasemap(cfg.Input.BasemapData)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	p.notef("%d features", len(geoms))
	return p
}

// checkPreviousOutput reads back the manifest of an earlier run, if one is
// present in the output directory, and checks every entry decodes.
func checkPreviousOutput(cfg *config.Config) *phase {
	p := &phase{name: "Previous output"}
	if !cfg.Output.GeoJSON {
		p.notef("geojson output disabled")
		return p
	}

	path := geojsonout.ManifestFile(cfg.Output.Directory, cfg.Output.FilenamePrefix)
	m, err := geojsonout.ReadManifest(path)
	if errors.Is(err, os.ErrNotExist) {
		p.notef("no manifest at %s", path)
		return p
	}
	if err != nil {
		p.errorf("%s: %v", path, err)
		return p
	}

	if m.Count != len(m.Dates) {
		p.errorf("manifest count %d does not match %d entries", m.Count, len(m.Dates))
	}
	lines := 0
	for _, e := range m.Dates {
		if _, err := domain.ParseDay(e.Date); err != nil {
			p.errorf("entry %q: bad date", e.Date)
			continue
		}
		if !slices.Contains(domain.Statuses, e.Status) {
			p.errorf("%s: unknown status %q", e.Date, e.Status)
		}
		mls, err := e.Geometry()
		switch {
		case err != nil:
			p.errorf("%s: %v", e.Date, err)
		case len(mls) > 0 && e.Status != domain.StatusOK:
			p.errorf("%s: %s date carries a snowline", e.Date, e.Status)
		case len(mls) > 0:
			lines++
		}
	}
	p.notef("%d dates in %s, %d with a snowline", len(m.Dates), path, lines)
	return p
}
