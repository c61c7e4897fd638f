package ocr

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

func (e *Extractor) extractImage(ctx context.Context, path string) (Result, error) {
	txt, warn, err := e.tesseractOCR(ctx, path)
	if err != nil {
		return Result{Warnings: warn}, err
	}
	txt = Normalize(txt)

	var ocrConf float32
	if e.cfg.EnableTSVConfidence && txt != "" {
		c, w, err2 := e.tesseractTSVConfidence(ctx, path)
		warn = append(warn, w...)
		if err2 != nil {
			warn = append(warn, err2.Error())
		} else {
			ocrConf = c
		}
	}
	heurConf := heuristicConfidence(txt)

	// weight tesseract's own score higher when we have it
	conf := heurConf
	if ocrConf > 0 {
		conf = 0.7*ocrConf + 0.3*heurConf
	}
	if conf > 1.0 {
		conf = 1.0
	}

	return Result{
		Text:       txt,
		Method:     "image-ocr",
		Language:   e.cfg.TesseractLang,
		Warnings:   warn,
		Confidence: conf,
	}, nil
}

func (e *Extractor) baseArgs(path string) []string {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return args
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, []string, error) {
	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.baseArgs(path)...)
	if err != nil {
		return "", []string{string(errb)}, fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nil, nil
}

// tesseractTSVConfidence runs tesseract in TSV mode and returns mean word conf in 0..1.
func (e *Extractor) tesseractTSVConfidence(ctx context.Context, path string) (float32, []string, error) {
	args := append(e.baseArgs(path), "tsv")

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return 0, []string{string(errb)}, fmt.Errorf("tesseract TSV: %w", err)
	}
	return meanTSVConfidence(string(out)), nil, nil
}

// meanTSVConfidence averages the conf column of tesseract TSV output, skipping the header.
// Columns: level page block par line word left top width height conf text.
func meanTSVConfidence(tsv string) float32 {
	var sum, n float64
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || ln == "" {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := strings.TrimSpace(cols[10])
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float32(sum / n / 100.0)
}
