package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/expiry-tracker/internal/extract"
	"github.com/joseph-ayodele/expiry-tracker/internal/pipeline"
)

var (
	parseSave bool
	parseNow  string
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Extract the expiry record from label text",
	Long: `Parse reads already recognised label text from a file, or from stdin when
no file (or "-") is given, and prints the extraction record as JSON.

Example:
  tesseract label.jpg - | expiry-tracker parse
  expiry-tracker parse label.txt --save --owner me@example.com`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().BoolVar(&parseSave, "save", false, "store the result as a product")
	parseCmd.Flags().StringVar(&parseNow, "now", "", "reference date for status (YYYY-MM-DD, default today)")
}

type parseOutput struct {
	extract.ExtractionRecord
	Status   extract.ExpiryStatus `json:"status,omitempty"`
	DaysLeft *int                 `json:"days_left,omitempty"`
	ID       string               `json:"id,omitempty"`
}

func runParse(cmd *cobra.Command, args []string) error {
	b, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	now, err := referenceTime(parseNow)
	if err != nil {
		return err
	}
	rec, err := extract.NewParser(setupLogger()).ParseBytes(b)
	if err != nil {
		return fmt.Errorf("%s: %w", inputName(args), err)
	}

	res := pipeline.ScanResult{Record: rec}
	if parseSave {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		o, err := a.requireOwner()
		if err != nil {
			return err
		}
		if res, err = a.processor().ParseText(cmd.Context(), o, string(b), true); err != nil {
			return err
		}
	}

	out := parseOutput{ExtractionRecord: res.Record}
	if st, ok := res.Record.Status(now); ok {
		out.Status = st
		n, _ := res.Record.DaysLeft(now)
		out.DaysLeft = &n
	}
	if res.Product != nil {
		out.ID = res.Product.ID.String()
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// readInput returns the raw bytes of the named file, or of stdin for no
// argument or "-".
func readInput(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return b, nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", args[0], err)
	}
	return b, nil
}

func inputName(args []string) string {
	if len(args) == 0 || args[0] == "-" {
		return "stdin"
	}
	return args[0]
}

// referenceTime parses an optional YYYY-MM-DD override for "now".
func referenceTime(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	d, err := extract.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--now must be YYYY-MM-DD: %w", err)
	}
	return d.In(time.Local).Add(12 * time.Hour), nil
}
