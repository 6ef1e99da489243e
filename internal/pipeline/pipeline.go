// Package pipeline coordinates the document processing flow: content
// extraction, template classification, structured field extraction, and
// encrypted persistence.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/shora051/Digital-Faxing-Simulation/internal/classify"
	"github.com/shora051/Digital-Faxing-Simulation/internal/common"
	"github.com/shora051/Digital-Faxing-Simulation/internal/extract"
	"github.com/shora051/Digital-Faxing-Simulation/internal/llm"
	"github.com/shora051/Digital-Faxing-Simulation/internal/repository"
)

// Stage names the pipeline step a run is in, or finished at.
type Stage string

const (
	StageReceived          Stage = "received"
	StageExtractingContent Stage = "extracting_content"
	StageClassifying       Stage = "classifying_template"
	StageExtractingFields  Stage = "extracting_fields"
	StagePersisting        Stage = "persisting"
	StageDone              Stage = "done"
	StageError             Stage = "error"
)

// SentinelVisionProcessed is stored in place of recognized text when the
// document went to the reasoning service as raw bytes and no text pass
// ever ran.
const SentinelVisionProcessed = "Processed by PDF vision model"

// Result summarizes one pipeline run. On failure Stage records where it
// stopped and Message carries the error text; nothing was persisted.
type Result struct {
	Status   Stage  `json:"status"`
	ID       int64  `json:"id,omitempty"`
	Stage    Stage  `json:"stage"`
	Template string `json:"template,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ContentExtractor is the slice of extract.Extractor the pipeline needs.
type ContentExtractor interface {
	Extract(ctx context.Context, path string, opts extract.Options) (extract.Result, error)
}

type Options struct {
	// DocumentDirect, VisionAPI and OCRFallback select the content
	// extraction strategy; see extract.Options.
	DocumentDirect bool
	VisionAPI      bool
	OCRFallback    bool
	// ReceivedTempDir is where Receive materializes incoming payloads.
	ReceivedTempDir string
}

type Pipeline struct {
	opts      Options
	extractor ContentExtractor
	fields    llm.FieldExtractor
	docs      repository.DocumentRepository
	logger    *slog.Logger
}

func New(opts Options, extractor ContentExtractor, fields llm.FieldExtractor, docs repository.DocumentRepository, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ReceivedTempDir == "" {
		opts.ReceivedTempDir = "received_faxes_temp"
	}
	return &Pipeline{
		opts:      opts,
		extractor: extractor,
		fields:    fields,
		docs:      docs,
		logger:    logger,
	}
}

// Receive materializes an incoming fax payload to a temp file and runs
// the full pipeline on it. The temp file is removed afterwards whatever
// the outcome; only the encrypted record survives.
func (p *Pipeline) Receive(ctx context.Context, content []byte, filename string, declared classify.Template, meta repository.FaxMetadata) Result {
	if err := os.MkdirAll(p.opts.ReceivedTempDir, 0o755); err != nil {
		return p.fail(StageReceived, fmt.Errorf("create temp dir: %w", err))
	}
	tmpPath := filepath.Join(p.opts.ReceivedTempDir, fmt.Sprintf("received_%s.pdf", uuid.New().String()))
	if err := os.WriteFile(tmpPath, content, 0o644); err != nil {
		return p.fail(StageReceived, fmt.Errorf("write received fax: %w", err))
	}
	defer func() {
		if err := os.Remove(tmpPath); err != nil {
			p.logger.Warn("pipeline.temp_cleanup_failed", "path", tmpPath, "error", err)
		}
	}()

	p.logger.Info("pipeline.received", "filename", filename, "bytes", len(content), "fax_id", meta.ExternalFaxID)
	return p.Process(ctx, tmpPath, filename, declared, meta)
}

// Process runs one document through every stage. Stages run strictly in
// order and the first failure aborts the run; a document is either fully
// persisted or not stored at all.
func (p *Pipeline) Process(ctx context.Context, path, filename string, declared classify.Template, meta repository.FaxMetadata) Result {
	start := time.Now()

	if declared == "" {
		declared = classify.TemplateDefault
	}

	// content extraction
	p.logger.Info("pipeline.stage", "stage", StageExtractingContent, "filename", filename)
	res, err := p.extractor.Extract(ctx, path, extract.Options{
		DocumentDirect: p.opts.DocumentDirect,
		VisionAPI:      p.opts.VisionAPI,
		OCRFallback:    p.opts.OCRFallback,
	})
	if err != nil {
		return p.fail(StageExtractingContent, err)
	}

	// template classification; binary content gets a best-effort quick
	// OCR pass purely for the hint, and losing it is not fatal
	p.logger.Info("pipeline.stage", "stage", StageClassifying, "filename", filename)
	hint := res.Text
	if res.IsBinary && declared == classify.TemplateDefault {
		if hintRes, hintErr := p.extractor.Extract(ctx, path, extract.Options{}); hintErr == nil {
			hint = hintRes.Text
		} else {
			p.logger.Warn("pipeline.hint_ocr_failed", "filename", filename, "error", hintErr)
		}
	}
	template := classify.Infer(hint, declared)
	p.logger.Info("pipeline.template", "filename", filename, "template", template, "declared", declared)

	// structured field extraction
	p.logger.Info("pipeline.stage", "stage", StageExtractingFields, "filename", filename, "extract_status", res.Status)
	req := llm.ExtractRequest{Template: template, Filename: filename}
	if res.IsBinary {
		req.Document = res.Bytes
	} else {
		req.Text = res.Text
	}
	fields, raw, err := p.fields.ExtractFields(ctx, req)
	if err != nil {
		p.logger.Error("pipeline.fields_failed", "filename", filename, "raw_bytes", len(raw), "error", err)
		return p.fail(StageExtractingFields, err)
	}

	// persistence; binary runs have no recognized text to store, the
	// sentinel records that the vision model saw the document instead
	p.logger.Info("pipeline.stage", "stage", StagePersisting, "filename", filename)
	storedText := res.Text
	if res.IsBinary {
		storedText = SentinelVisionProcessed
	}
	id, err := p.docs.Insert(ctx, filename, storedText, fields, meta)
	if err != nil {
		return p.fail(StagePersisting, err)
	}

	p.logger.Info("pipeline.done",
		"filename", filename,
		"id", id,
		"template", template,
		"extract_status", res.Status,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Result{Status: StageDone, Stage: StageDone, ID: id, Template: string(template)}
}

func (p *Pipeline) fail(stage Stage, err error) Result {
	p.logger.Error("pipeline.failed", "stage", stage, "kind", common.KindOf(err), "error", err)
	return Result{Status: StageError, Stage: stage, Message: err.Error()}
}
