package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shora051/Digital-Faxing-Simulation/internal/common"
)

// PageSeparator marks page boundaries in multi-page extracted text.
const PageSeparator = "\n--- PAGE END ---\n"

// Status describes how content extraction ended. Fallbacks are recorded,
// not hidden: a run that only succeeded via local OCR says so.
type Status string

const (
	StatusSuccess            Status = "success"
	StatusSuccessVision      Status = "success_vision"
	StatusSuccessOCRFallback Status = "success_ocr_fallback"
	StatusError              Status = "error"
	StatusErrorFileRead      Status = "error_file_read"
	StatusErrorVision        Status = "error_vision"
)

// Options selects the extraction strategy for a single run.
type Options struct {
	// DocumentDirect returns the raw document bytes untouched, for
	// reasoning services that accept whole documents.
	DocumentDirect bool
	// VisionAPI routes recognition through the hosted vision API.
	VisionAPI bool
	// OCRFallback allows a local OCR retry when the vision API fails.
	// It does not apply to the document-direct path, which has no
	// recognition step to fall back from.
	OCRFallback bool
}

// Result is the outcome of one extraction. Exactly one of Bytes or Text
// carries content: Bytes when IsBinary, Text otherwise.
type Result struct {
	Bytes    []byte
	Text     string
	IsBinary bool
	Status   Status
	Pages    int
	Duration time.Duration
	Warnings []string
}

type Config struct {
	Tesseract     string // binary name or absolute path; if empty -> "tesseract"
	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI, default 300
	PSM           int    // page segmentation mode, default 6
	OEM           int    // engine mode, default 3
	MaxPages      int    // 0 = no limit
}

type Extractor struct {
	cfg    Config
	runner Runner
	raster Rasterizer
	vision VisionClient
	logger *slog.Logger
}

// NewExtractor wires the extraction strategies together. vision may be
// nil when no vision API is configured; the vision path then reports
// failure immediately and the usual fallback rules apply.
func NewExtractor(cfg Config, vision VisionClient, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.PSM <= 0 {
		cfg.PSM = 6
	}
	if cfg.OEM <= 0 {
		cfg.OEM = 3
	}
	return &Extractor{
		cfg:    cfg,
		runner: newExecRunner(logger),
		raster: NewRasterizer(logger),
		vision: vision,
		logger: logger,
	}
}

// Extract reads the document and produces its content per opts. An
// unreadable file is fatal regardless of strategy; there is nothing to
// fall back to without bytes.
func (e *Extractor) Extract(ctx context.Context, path string, opts Options) (Result, error) {
	start := time.Now()

	data, err := os.ReadFile(path)
	if err != nil {
		e.logger.Error("extract.file_read_failed", "path", path, "error", err)
		return Result{Status: StatusErrorFileRead, Duration: time.Since(start)},
			common.NewAppError(common.KindFileRead, fmt.Sprintf("read %s", path), err)
	}

	if opts.DocumentDirect {
		e.logger.Debug("extract.document_direct", "path", path, "bytes", len(data))
		return Result{Bytes: data, IsBinary: true, Status: StatusSuccess, Duration: time.Since(start)}, nil
	}

	if opts.VisionAPI {
		text, pages, visionErr := e.visionRecognize(ctx, path)
		if visionErr == nil {
			return Result{Text: text, Status: StatusSuccessVision, Pages: pages, Duration: time.Since(start)}, nil
		}
		e.logger.Warn("extract.vision_failed", "path", path, "error", visionErr)

		if opts.OCRFallback {
			text, pages, ocrErr := e.ocr(ctx, path)
			if ocrErr != nil {
				e.logger.Error("extract.fallback_failed", "path", path, "error", ocrErr)
				return Result{Status: StatusErrorVision, Duration: time.Since(start)},
					common.NewAppError(common.KindService,
						fmt.Sprintf("vision api and ocr fallback both failed (vision: %v)", visionErr), ocrErr)
			}
			return Result{
				Text:     text,
				Status:   StatusSuccessOCRFallback,
				Pages:    pages,
				Duration: time.Since(start),
				Warnings: []string{visionErr.Error()},
			}, nil
		}
		return Result{Status: StatusErrorVision, Duration: time.Since(start)},
			common.NewAppError(common.KindService, "vision api failed", visionErr)
	}

	text, pages, err := e.ocr(ctx, path)
	if err != nil {
		e.logger.Error("extract.ocr_failed", "path", path, "error", err)
		return Result{Status: StatusError, Duration: time.Since(start)},
			common.NewAppError(common.KindService, "local ocr failed", err)
	}
	return Result{Text: text, Status: StatusSuccess, Pages: pages, Duration: time.Since(start)}, nil
}

func (e *Extractor) visionRecognize(ctx context.Context, path string) (string, int, error) {
	if e.vision == nil {
		return "", 0, fmt.Errorf("no vision api configured")
	}
	pages, cleanup, err := e.raster.Rasterize(ctx, path, e.cfg.DPI, e.cfg.MaxPages)
	if err != nil {
		return "", 0, err
	}
	defer cleanup()

	text, err := e.vision.RecognizeText(ctx, pages)
	if err != nil {
		return "", 0, err
	}
	return text, len(pages), nil
}

// ocr rasterizes the document and runs tesseract page by page, joining
// the per-page text with PageSeparator.
func (e *Extractor) ocr(ctx context.Context, path string) (string, int, error) {
	pages, cleanup, err := e.raster.Rasterize(ctx, path, e.cfg.DPI, e.cfg.MaxPages)
	if err != nil {
		return "", 0, err
	}
	defer cleanup()

	var texts []string
	for _, page := range pages {
		txt, err := e.tesseractOCR(ctx, page)
		if err != nil {
			return "", 0, err
		}
		texts = append(texts, strings.TrimSpace(txt))
	}
	return strings.Join(texts, PageSeparator), len(pages), nil
}

func (e *Extractor) tesseractOCR(ctx context.Context, imagePath string) (string, error) {
	// tesseract <file> stdout -l <lang> --psm <n> --oem <n>
	args := []string{
		imagePath, "stdout",
		"-l", e.cfg.TesseractLang,
		"--psm", fmt.Sprintf("%d", e.cfg.PSM),
		"--oem", fmt.Sprintf("%d", e.cfg.OEM),
	}
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w (stderr: %s)", err, truncate(string(errb), 512))
	}
	return string(out), nil
}
