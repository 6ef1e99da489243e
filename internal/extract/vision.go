package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
)

// VisionClient recognizes printed text in page images. The concrete
// implementation calls the hosted vision API; tests stub this.
type VisionClient interface {
	RecognizeText(ctx context.Context, imagePaths []string) (string, error)
}

type azureVisionClient struct {
	client *computervision.BaseClient
	logger *slog.Logger
}

// NewAzureVisionClient builds a client for the Computer Vision OCR
// endpoint using key auth.
func NewAzureVisionClient(endpoint, apiKey string, logger *slog.Logger) VisionClient {
	if logger == nil {
		logger = slog.Default()
	}
	client := computervision.New(endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)
	return &azureVisionClient{client: &client, logger: logger}
}

func (c *azureVisionClient) RecognizeText(ctx context.Context, imagePaths []string) (string, error) {
	var pages []string
	for _, path := range imagePaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read page image: %w", err)
		}

		result, err := c.client.RecognizePrintedTextInStream(
			ctx,
			true, // detect orientation
			io.NopCloser(bytes.NewReader(data)),
			computervision.OcrLanguages(computervision.En),
		)
		if err != nil {
			return "", fmt.Errorf("vision api: %w", err)
		}
		pages = append(pages, flattenOCRResult(result))
	}

	c.logger.Debug("extract.vision.recognized", "pages", len(pages))
	return strings.Join(pages, PageSeparator), nil
}

// flattenOCRResult joins the region/line/word tree back into plain text,
// one recognized line per output line.
func flattenOCRResult(result computervision.OcrResult) string {
	if result.Regions == nil {
		return ""
	}
	var b strings.Builder
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			var words []string
			for _, word := range *line.Words {
				if word.Text != nil {
					words = append(words, *word.Text)
				}
			}
			if len(words) > 0 {
				b.WriteString(strings.Join(words, " "))
				b.WriteByte('\n')
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
