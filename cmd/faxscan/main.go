// faxscan runs a single local document through the extraction pipeline
// without the HTTP boundary. Useful for trying out templates and
// credentials against a sample form.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/shora051/Digital-Faxing-Simulation/internal/classify"
	"github.com/shora051/Digital-Faxing-Simulation/internal/common"
	"github.com/shora051/Digital-Faxing-Simulation/internal/crypto"
	"github.com/shora051/Digital-Faxing-Simulation/internal/extract"
	"github.com/shora051/Digital-Faxing-Simulation/internal/llm/googleai"
	"github.com/shora051/Digital-Faxing-Simulation/internal/pipeline"
	"github.com/shora051/Digital-Faxing-Simulation/internal/repository"
)

func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		file     = flag.String("file", "", "document to process (required)")
		template = flag.String("template", string(classify.TemplateDefault), "declared template: default | provider_fax_form | otc_fax_form")
	)
	flag.Parse()

	if *file == "" {
		printError("Error: --file is required\n")
		os.Exit(1)
	}
	declared := classify.Template(*template)
	if !declared.Valid() {
		printError("Error: unknown template %q\n", *template)
		os.Exit(1)
	}

	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if cfg.LLM.APIKey == "" {
		printError("Error: GEMINI_API_KEY is required\n")
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		printError("Error: open database: %v\n", err)
		os.Exit(1)
	}
	defer repository.Close(db, logger)

	cipher, err := crypto.NewCipher(cfg.Crypto.AESKey, logger)
	if err != nil {
		printError("Error: init cipher: %v\n", err)
		os.Exit(1)
	}
	docs := repository.NewDocumentRepository(db, cipher, logger)

	var vision extract.VisionClient
	if cfg.LLM.VisionAPI {
		vision = extract.NewAzureVisionClient(cfg.Vision.Endpoint, cfg.Vision.APIKey, logger)
	}
	extractor := extract.NewExtractor(extract.Config{
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		DPI:           cfg.OCR.DPI,
		PSM:           cfg.OCR.PSM,
		OEM:           cfg.OCR.OEM,
		MaxPages:      cfg.OCR.MaxPages,
	}, vision, logger)

	fields, err := googleai.NewClient(ctx, googleai.Config{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
	}, logger)
	if err != nil {
		printError("Error: init llm client: %v\n", err)
		os.Exit(1)
	}

	pipe := pipeline.New(pipeline.Options{
		DocumentDirect:  cfg.LLM.DocumentDirect,
		VisionAPI:       cfg.LLM.VisionAPI,
		OCRFallback:     cfg.LLM.OCRFallback,
		ReceivedTempDir: cfg.Fax.ReceivedTempDir,
	}, extractor, fields, docs, logger)

	res := pipe.Process(ctx, *file, filepath.Base(*file), declared, repository.FaxMetadata{})
	if res.Status != pipeline.StageDone {
		printError("Processing failed at %s: %s\n", res.Stage, res.Message)
		os.Exit(1)
	}
	fmt.Printf("Stored document %d (template %s)\n", res.ID, res.Template)
}
