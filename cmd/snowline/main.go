// Command snowline extracts daily snowlines from Snow Survey of Great
// Britain observations and writes them as GeoJSON and SVG maps.
//
// Usage:
//
//	snowline run --config config.yaml
//	snowline validate --config config.yaml
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "snowline",
		Short:        "Extract snowlines from SSGB snow cover observations",
		SilenceUsage: true,
	}
	cmd.AddCommand(runCmd(), validateCmd())
	return cmd
}
