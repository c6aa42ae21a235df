package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"budgetwise/internal/core"
	"budgetwise/internal/export"
	"budgetwise/internal/services"
	"budgetwise/internal/storage"
)

var flagOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a user's monthly report as an Excel workbook",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	addPeriodFlags(exportCmd)
	exportCmd.Flags().StringVarP(&flagOut, "out", "o", "", "Output file (default budgetwise-YYYY-MM.xlsx)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	return withStore(cmd.Context(), func(store storage.Store, user core.User, p core.Period, log zerolog.Logger) error {
		report, err := services.NewReportService(store, store, store, log).Monthly(cmd.Context(), user.ID, p)
		if err != nil {
			return err
		}

		out := flagOut
		if out == "" {
			out = fmt.Sprintf("budgetwise-%s.xlsx", p)
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := export.WriteMonthlyReport(f, report); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
		return nil
	})
}
