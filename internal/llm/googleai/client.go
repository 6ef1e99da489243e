// Package googleai implements llm.FieldExtractor on the Gemini API.
package googleai

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	lcgoogleai "github.com/tmc/langchaingo/llms/googleai"

	"github.com/shora051/Digital-Faxing-Simulation/internal/common"
	"github.com/shora051/Digital-Faxing-Simulation/internal/llm"
)

type Config struct {
	APIKey string
	Model  string // e.g., "gemini-2.5-flash"
	// Temperature in 0..2. Zero is a valid, fully deterministic setting
	// and is passed through; a negative value selects the default.
	Temperature float64
}

func (cfg Config) withDefaults() Config {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Temperature < 0 {
		cfg.Temperature = 0.2
	}
	return cfg
}

type Client struct {
	cfg    Config
	model  *lcgoogleai.GoogleAI
	logger *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	model, err := lcgoogleai.New(ctx,
		lcgoogleai.WithAPIKey(cfg.APIKey),
		lcgoogleai.WithDefaultModel(cfg.Model),
	)
	if err != nil {
		return nil, common.NewAppError(common.KindService, "init gemini client", err)
	}
	return &Client{cfg: cfg, model: model, logger: logger}, nil
}

// ExtractFields sends the document to Gemini in JSON mode and parses the
// reply against the template schema. The raw response travels back with
// every parse failure so the caller can record what the model said.
func (c *Client) ExtractFields(ctx context.Context, req llm.ExtractRequest) (map[string]any, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"template", req.Template,
		"document_bytes", len(req.Document),
		"text_len", len(req.Text),
	)

	parts := []llms.ContentPart{llms.TextPart(llm.BuildPrompt(req))}
	if len(req.Document) > 0 {
		parts = append(parts, llms.BinaryPart("application/pdf", req.Document))
	}
	messages := []llms.MessageContent{{
		Role:  llms.ChatMessageTypeHuman,
		Parts: parts,
	}}

	resp, err := c.model.GenerateContent(ctx, messages,
		llms.WithTemperature(c.cfg.Temperature),
		llms.WithJSONMode(),
	)
	if err != nil {
		c.logger.Error("llm.extract.api_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, nil, common.NewAppError(common.KindService, "gemini generate content", err)
	}
	if len(resp.Choices) == 0 {
		c.logger.Error("llm.extract.no_candidates",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, nil, common.NewAppError(common.KindService, "gemini returned no candidates", nil)
	}

	raw := []byte(resp.Choices[0].Content)
	fields, err := llm.ParseFields(raw, req.Template)
	if err != nil {
		c.logger.Error("llm.extract.invalid_response",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, raw, err
	}

	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"fields", len(fields),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return fields, raw, nil
}
