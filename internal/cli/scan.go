package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/expiry-tracker/constants"
	"github.com/joseph-ayodele/expiry-tracker/internal/entity"
	"github.com/joseph-ayodele/expiry-tracker/internal/pipeline"
	"github.com/joseph-ayodele/expiry-tracker/internal/worker"
)

var (
	scanJSON        bool
	scanTimeout     time.Duration
	scanConcurrency int
	scanRecursive   bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <image>...",
	Short: "OCR label photos and store the products found",
	Long: `Scan runs OCR on each image, extracts the expiry record and stores it
for the owner. An image that was already scanned is reported as a duplicate.

Example:
  expiry-tracker scan milk.jpg yoghurt.heic --owner me@example.com`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd, func(ctx context.Context, b *worker.BatchProcessor, owner string) ([]*worker.ScanResult, error) {
			return b.ProcessPaths(ctx, owner, args), nil
		})
	},
}

var scanDirCmd = &cobra.Command{
	Use:   "scan-dir <dir>",
	Short: "Scan every label image in a directory in parallel",
	Long: `Scan-dir lists the label images (jpg, png, tiff, bmp, webp, heic) in a
directory, skipping hidden files, and scans them with a worker pool.

Example:
  expiry-tracker scan-dir ~/Pictures/groceries --recursive --concurrency 4`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan(cmd, func(ctx context.Context, b *worker.BatchProcessor, owner string) ([]*worker.ScanResult, error) {
			return b.ProcessDir(ctx, owner, args[0], scanRecursive)
		})
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(scanDirCmd)

	for _, c := range []*cobra.Command{scanCmd, scanDirCmd} {
		c.Flags().BoolVar(&scanJSON, "json", false, "print results as JSON")
		c.Flags().DurationVar(&scanTimeout, "timeout", 30*time.Minute, "total timeout")
		c.Flags().IntVar(&scanConcurrency, "concurrency", runtime.NumCPU(), "number of concurrent OCR workers")
	}
	scanDirCmd.Flags().BoolVarP(&scanRecursive, "recursive", "r", false, "descend into subdirectories")
}

type batchFunc func(ctx context.Context, b *worker.BatchProcessor, owner string) ([]*worker.ScanResult, error)

func runScan(cmd *cobra.Command, run batchFunc) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), scanTimeout)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	owner, err := a.requireOwner()
	if err != nil {
		return err
	}

	batch := worker.NewBatchProcessor(a.processor(), scanConcurrency, a.logger)
	results, err := run(ctx, batch, owner)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if scanJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(jsonResults(results)); err != nil {
			return err
		}
	} else {
		printScanResults(out, results, time.Now())
	}

	sum := worker.Summarize(results)
	if failed := sum.Counts[constants.ScanStatusFailed]; failed > 0 {
		return fmt.Errorf("%d of %d image(s) failed", failed, sum.Total)
	}
	return nil
}

type scanOutput struct {
	pipeline.ScanResult
	Error string `json:"error,omitempty"`
}

func jsonResults(results []*worker.ScanResult) []scanOutput {
	out := make([]scanOutput, 0, len(results))
	for _, r := range results {
		o := scanOutput{ScanResult: r.Result}
		o.Path = r.Path
		if r.Error != nil {
			o.Error = r.Error.Error()
		}
		out = append(out, o)
	}
	return out
}

func printScanResults(w io.Writer, results []*worker.ScanResult, now time.Time) {
	fmt.Fprintln(w, titleStyle.Render("Scan results"))
	for _, r := range results {
		if r.Error != nil {
			fmt.Fprintf(w, "%s  %s\n", errorStyle.Render(pad(string(constants.ScanStatusFailed), 10)), r.Path)
			fmt.Fprintf(w, "            %s\n", mutedStyle.Render(r.Error.Error()))
			continue
		}
		fmt.Fprintf(w, "%s  %s\n", pad(string(r.Result.Status), 10), r.Path)
		fmt.Fprintf(w, "            %s\n", describe(r.Result, now))
	}
	sum := worker.Summarize(results)
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%d image(s): %d parsed, %d duplicate, %d failed",
		sum.Total,
		sum.Counts[constants.ScanStatusParsed],
		sum.Counts[constants.ScanStatusDuplicate],
		sum.Counts[constants.ScanStatusFailed])))
}

func describe(res pipeline.ScanResult, now time.Time) string {
	name := entity.UnnamedProduct
	if res.Record.ProductName != nil {
		name = *res.Record.ProductName
	}
	st, ok := res.Record.Status(now)
	if !ok {
		return name + mutedStyle.Render("  (no expiry date found)")
	}
	days, _ := res.Record.DaysLeft(now)
	return fmt.Sprintf("%s  %s  %s  %s", name, res.Record.ExpiryDate,
		statusStyle(st).Render(string(st)), mutedStyle.Render(daysLeftText(days)))
}
