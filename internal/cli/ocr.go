package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var ocrTimeout time.Duration

var ocrCmd = &cobra.Command{
	Use:   "ocr <image>",
	Short: "Print the raw OCR text of a label photo",
	Long: `OCR runs tesseract over one image and prints the recognised text without
parsing it. Useful to see why a label was not understood.

Example:
  expiry-tracker ocr label.jpg | expiry-tracker parse`,
	Args: cobra.ExactArgs(1),
	RunE: runOCR,
}

func init() {
	rootCmd.AddCommand(ocrCmd)
	ocrCmd.Flags().DurationVar(&ocrTimeout, "timeout", 2*time.Minute, "time limit for the OCR run")
}

func runOCR(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), ocrTimeout)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.extractor().Extract(ctx, args[0])
	if err != nil {
		a.logger.Error("text extraction failed", "path", args[0], "error", err)
		return err
	}
	a.logger.Info("text extraction OK",
		"method", res.Method,
		"confidence", res.Confidence,
		"bytes", len(res.Text),
		"duration_ms", res.Duration.Milliseconds(),
	)
	for _, w := range res.Warnings {
		a.logger.Warn("ocr warning", "warning", w)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Text)
	return err
}
