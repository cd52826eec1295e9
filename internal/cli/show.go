package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"hotel-price-watch/internal/app"
)

var (
	showTarget string
	showLimit  int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent price checks for a target",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showTarget == "" {
			return fmt.Errorf("--target is required")
		}
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Target: showTarget,
			Limit:  showLimit,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().StringVar(&showTarget, "target", "", "Target name as configured")
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of checks to display")
}
