package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/expiry-tracker/constants"
	"github.com/joseph-ayodele/expiry-tracker/internal/export"
	"github.com/joseph-ayodele/expiry-tracker/internal/repository"
)

var (
	exportFormat string
	exportOut    string
	exportFilter string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export products to CSV or XLSX",
	Long: `Export writes the owner's products with columns Name, Expiry Date,
Days Left and Status.

Example:
  expiry-tracker export --format xlsx --out groceries.xlsx
  expiry-tracker export --filter expired > expired.csv`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "csv or xlsx")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout for csv, products_<date>.xlsx for xlsx)")
	exportCmd.Flags().StringVarP(&exportFilter, "filter", "f", "all", "which products to export")
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	format := strings.ToLower(strings.TrimSpace(exportFormat))
	if format != "csv" && format != "xlsx" {
		return fmt.Errorf("unknown format %q (want csv or xlsx)", exportFormat)
	}
	filter, ok := constants.ParseFilter(exportFilter)
	if !ok {
		return fmt.Errorf("unknown filter %q", exportFilter)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	owner, err := a.requireOwner()
	if err != nil {
		return err
	}

	now := time.Now()
	svc := export.NewService(a.products, a.logger)
	q := repository.ListQuery{Owner: owner, Filter: filter, Now: now}

	var data []byte
	if format == "xlsx" {
		data, err = svc.ExportXLSX(ctx, q)
	} else {
		data, err = svc.ExportCSV(ctx, q)
	}
	if err != nil {
		return err
	}

	out := exportOut
	if out == "" && format == "xlsx" {
		out = fmt.Sprintf("products_%s.xlsx", now.Format("20060102"))
	}
	if out == "" || out == "-" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s\n", out)
	return nil
}
