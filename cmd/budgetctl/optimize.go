package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"budgetwise/internal/budget"
	"budgetwise/internal/cli"
	"budgetwise/internal/core"
	"budgetwise/internal/storage"
)

var (
	flagBudget string
	flagMethod string
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Allocate a monthly budget from the previous month's spending",
	Args:  cobra.NoArgs,
	RunE:  runOptimize,
}

func init() {
	addPeriodFlags(optimizeCmd)
	optimizeCmd.Flags().StringVarP(&flagBudget, "budget", "b", "", "Total budget, e.g. 400 or 1250.50")
	optimizeCmd.Flags().StringVar(&flagMethod, "method", string(budget.DefaultMethod), fmt.Sprintf("Allocation method %v", budget.Methods()))
	_ = optimizeCmd.MarkFlagRequired("budget")
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	total, err := core.ParseMoney(flagBudget)
	if err != nil {
		return fmt.Errorf("invalid --budget: %w", err)
	}

	return withStore(cmd.Context(), func(store storage.Store, user core.User, p core.Period, log zerolog.Logger) error {
		plan, err := budget.NewPlanner(store, log).Optimize(cmd.Context(), user.ID, p, total, budget.Method(flagMethod))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), cli.RenderPlan(plan))
		return nil
	})
}
