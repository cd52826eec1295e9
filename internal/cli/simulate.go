package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"hotel-price-watch/internal/app"
)

var (
	simulateAmounts  []float64
	simulateLast     float64
	simulateExpected float64
	simulateTarget   float64
	simulateDropPct  float64
	simulateNotify   bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一组扫描金额并核对告警判定",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(simulateAmounts) == 0 {
			return errors.New("--amounts 不能为空")
		}

		opts := app.SimulateOptions{
			Amounts: simulateAmounts,
			Notify:  simulateNotify,
		}
		if cmd.Flags().Changed("last") {
			opts.Last = &simulateLast
		}
		if cmd.Flags().Changed("expected") {
			opts.Expected = &simulateExpected
		}
		if cmd.Flags().Changed("target") {
			opts.Target = &simulateTarget
		}
		if cmd.Flags().Changed("drop-pct") {
			opts.DropPct = &simulateDropPct
		}

		return getApp().SimulateAlert(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().Float64SliceVar(&simulateAmounts, "amounts", nil, "模拟扫描到的金额集合")
	simulateCmd.Flags().Float64Var(&simulateLast, "last", 0, "模拟的上次价格")
	simulateCmd.Flags().Float64Var(&simulateExpected, "expected", 0, "模拟的期望价格")
	simulateCmd.Flags().Float64Var(&simulateTarget, "target", 0, "模拟的目标价格")
	simulateCmd.Flags().Float64Var(&simulateDropPct, "drop-pct", 0, "模拟的跌幅阈值")
	simulateCmd.Flags().BoolVar(&simulateNotify, "notify", false, "将告警实际推送到配置的通道")
}
