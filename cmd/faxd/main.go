package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/shora051/Digital-Faxing-Simulation/internal/common"
	"github.com/shora051/Digital-Faxing-Simulation/internal/crypto"
	"github.com/shora051/Digital-Faxing-Simulation/internal/export"
	"github.com/shora051/Digital-Faxing-Simulation/internal/extract"
	"github.com/shora051/Digital-Faxing-Simulation/internal/llm/googleai"
	"github.com/shora051/Digital-Faxing-Simulation/internal/pipeline"
	"github.com/shora051/Digital-Faxing-Simulation/internal/repository"
	"github.com/shora051/Digital-Faxing-Simulation/internal/server"
)

func main() {
	// .env is optional; real env vars win either way
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("faxd.config_invalid", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("faxd.db_open_failed", "error", err)
		os.Exit(1)
	}
	defer repository.Close(db, logger)

	cipher, err := crypto.NewCipher(cfg.Crypto.AESKey, logger)
	if err != nil {
		logger.Error("faxd.cipher_init_failed", "error", err)
		os.Exit(1)
	}

	docs := repository.NewDocumentRepository(db, cipher, logger)
	users := repository.NewUserRepository(db, logger)

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
		logger.Error("faxd.llm_init_failed", "error", err)
		os.Exit(1)
	}

	pipe := pipeline.New(pipeline.Options{
		DocumentDirect:  cfg.LLM.DocumentDirect,
		VisionAPI:       cfg.LLM.VisionAPI,
		OCRFallback:     cfg.LLM.OCRFallback,
		ReceivedTempDir: cfg.Fax.ReceivedTempDir,
	}, extractor, fields, docs, logger)

	exporter := export.NewService(docs, logger)
	srv := server.New(pipe, docs, users, exporter, cfg.Fax.UploadDir, logger)

	httpSrv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: srv.Router(),
	}

	go func() {
		logger.Info("faxd.listening", "addr", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("faxd.serve_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("faxd.shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("faxd.shutdown_failed", "error", err)
	}
	logger.Info("faxd.stopped")
}
