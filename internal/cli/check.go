package cli

import (
	"github.com/spf13/cobra"

	"hotel-price-watch/internal/app"
)

var (
	checkURL      string
	checkExpected float64
	checkTarget   float64
	checkDropPct  float64
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check all configured targets once, or a single --url",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.CheckOptions{URL: checkURL}
		if cmd.Flags().Changed("expected") {
			opts.Expected = &checkExpected
		}
		if cmd.Flags().Changed("target") {
			opts.Target = &checkTarget
		}
		if cmd.Flags().Changed("drop-pct") {
			opts.DropPct = &checkDropPct
		}
		return getApp().Check(cmd.Context(), opts)
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkURL, "url", "", "Single booking page URL (bypasses configured targets)")
	checkCmd.Flags().Float64Var(&checkExpected, "expected", 0, "Expected price for --url")
	checkCmd.Flags().Float64Var(&checkTarget, "target", 0, "Target price ceiling for --url")
	checkCmd.Flags().Float64Var(&checkDropPct, "drop-pct", 0, "Drop percent threshold for --url")
}
