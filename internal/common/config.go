package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	Vision   VisionConfig
	LLM      LLMConfig
	Crypto   CryptoConfig
	Fax      FaxConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	DialTimeout  time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
}

// OCRConfig holds the local text-recognition configuration
type OCRConfig struct {
	Tesseract     string
	TesseractLang string
	DPI           int
	PSM           int
	OEM           int
	MaxPages      int
}

// VisionConfig holds credentials for the dedicated vision API
type VisionConfig struct {
	Endpoint string
	APIKey   string
}

// LLMConfig holds the reasoning-service configuration
type LLMConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	// DocumentDirect hands raw document bytes straight to the reasoning
	// service instead of running OCR first.
	DocumentDirect bool
	// VisionAPI routes content extraction through the dedicated vision API.
	VisionAPI bool
	// OCRFallback enables the local OCR fallback when the vision API fails.
	OCRFallback bool
}

// CryptoConfig holds the at-rest encryption key material
type CryptoConfig struct {
	// AESKey is the base64-encoded 256-bit key. Empty means an ephemeral
	// key is generated for this process, which makes stored data
	// unrecoverable after restart.
	AESKey string
}

// FaxConfig holds directories used by the simulated fax boundary
type FaxConfig struct {
	UploadDir       string
	ReceivedTempDir string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:          getEnv("DB_URL", "fax_data.db"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			DialTimeout:  getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		OCR: OCRConfig{
			Tesseract:     getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "eng"),
			DPI:           getEnvAsInt("OCR_DPI", 300),
			PSM:           getEnvAsInt("OCR_PSM", 6),
			OEM:           getEnvAsInt("OCR_OEM", 3),
			MaxPages:      getEnvAsInt("OCR_MAX_PAGES", 0),
		},
		Vision: VisionConfig{
			Endpoint: getEnv("VISION_API_ENDPOINT", ""),
			APIKey:   getEnv("VISION_API_KEY", ""),
		},
		LLM: LLMConfig{
			APIKey:         getEnv("GEMINI_API_KEY", ""),
			Model:          getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			Temperature:    getEnvAsFloat64("GEMINI_TEMPERATURE", 0.2),
			DocumentDirect: getEnvAsBool("LLM_DOCUMENT_DIRECT", true),
			VisionAPI:      getEnvAsBool("USE_VISION_API", false),
			OCRFallback:    getEnvAsBool("OCR_FALLBACK", true),
		},
		Crypto: CryptoConfig{
			AESKey: getEnv("AES_KEY", ""),
		},
		Fax: FaxConfig{
			UploadDir:       getEnv("UPLOAD_DIR", "uploads"),
			ReceivedTempDir: getEnv("RECEIVED_FAX_TEMP_DIR", "received_faxes_temp"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError(KindConfig, "DB_URL is required", ErrInvalidInput)
	}
	if c.LLM.APIKey == "" {
		return NewAppError(KindConfig, "GEMINI_API_KEY is required", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError(KindConfig, "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.LLM.VisionAPI && (c.Vision.Endpoint == "" || c.Vision.APIKey == "") {
		return NewAppError(KindConfig, "USE_VISION_API requires VISION_API_ENDPOINT and VISION_API_KEY", ErrInvalidInput)
	}
	return nil
}
