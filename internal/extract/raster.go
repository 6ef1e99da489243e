package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	fitz "github.com/gen2brain/go-fitz"
)

// Rasterizer renders document pages to image files so that OCR and the
// vision API, which both consume images, can handle PDF input.
type Rasterizer interface {
	// Rasterize returns the rendered page paths and a cleanup func that
	// removes them. cleanup is non-nil whenever err is nil.
	Rasterize(ctx context.Context, path string, dpi, maxPages int) (pages []string, cleanup func(), err error)
}

type fitzRasterizer struct {
	logger *slog.Logger
}

func NewRasterizer(logger *slog.Logger) Rasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &fitzRasterizer{logger: logger}
}

func (r *fitzRasterizer) Rasterize(ctx context.Context, path string, dpi, maxPages int) ([]string, func(), error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open document: %w", err)
	}
	defer doc.Close()

	tmpDir, err := os.MkdirTemp("", "fax-pages-*")
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	total := doc.NumPage()
	if maxPages > 0 && total > maxPages {
		total = maxPages
	}

	var pages []string
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			cleanup()
			return nil, nil, err
		}
		img, err := doc.ImageDPI(i, float64(dpi))
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("render page %d: %w", i+1, err)
		}

		// grayscale + contrast boost + light blur gets scanned fax
		// noise down before recognition
		processed := imaging.Grayscale(img)
		processed = imaging.AdjustContrast(processed, 30)
		processed = imaging.Blur(processed, 0.5)

		out := filepath.Join(tmpDir, fmt.Sprintf("page-%04d.png", i+1))
		if err := imaging.Save(processed, out); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("save page %d: %w", i+1, err)
		}
		pages = append(pages, out)
	}

	if len(pages) == 0 {
		cleanup()
		return nil, nil, fmt.Errorf("document has no renderable pages")
	}

	r.logger.Debug("extract.rasterized", "path", path, "pages", len(pages), "dpi", dpi)
	return pages, cleanup, nil
}
