package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	LLM        LLMConfig
	OCR        OCRConfig
	Segment    SegmentConfig
	Gateway    GatewayConfig
	Registry   RegistryConfig
	Store      StoreConfig
	OutputDir  string
	SamplesDir string
}

// LLMConfig holds language-model oracle configuration
type LLMConfig struct {
	Provider    string // "ollama" or "openai"
	OllamaURL   string
	OllamaModel string
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration // default per-call timeout
}

// OCRConfig holds text-recognition and correction-pass configuration
type OCRConfig struct {
	EnableValidation    bool
	ConfidenceThreshold float32 // correct only below this
	MinTextLength       int     // correct only at or above this many chars
	ValidationTimeout   time.Duration
}

// SegmentConfig holds page-segmentation configuration
type SegmentConfig struct {
	MinContentLength int // chars before a page counts as substantial
	AnalysisTimeout  time.Duration
}

// GatewayConfig holds the downstream submission endpoint configuration
type GatewayConfig struct {
	BaseURL        string
	Timeout        time.Duration
	Operation      string // e.g. "setDocumentDetails"
	PostEnabled    bool
	PostValidation bool // invalid payloads block submission when true
}

// RegistryConfig locates the document-type registry file
type RegistryConfig struct {
	Path string
}

// StoreConfig holds the audit store configuration
type StoreConfig struct {
	DSN string // sqlite path, ":memory:" for ephemeral runs
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    getEnv("LLM_PROVIDER", "ollama"),
			OllamaURL:   getEnv("OLLAMA_API_URL", "http://localhost:11434/api/generate"),
			OllamaModel: getEnv("OLLAMA_MODEL", "llama3.2:3b"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0.1),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 5*time.Minute),
		},
		OCR: OCRConfig{
			EnableValidation:    getEnvAsBool("OCR_LLM_VALIDATION", true),
			ConfidenceThreshold: getEnvAsFloat32("OCR_CONFIDENCE_THRESHOLD", 0.85),
			MinTextLength:       getEnvAsInt("OCR_MIN_TEXT_LENGTH", 100),
			ValidationTimeout:   getEnvAsDuration("OCR_VALIDATION_TIMEOUT", 2*time.Minute),
		},
		Segment: SegmentConfig{
			MinContentLength: getEnvAsInt("SEGMENT_MIN_CONTENT_LENGTH", 50),
			AnalysisTimeout:  getEnvAsDuration("SEGMENT_ANALYSIS_TIMEOUT", 4*time.Minute),
		},
		Gateway: GatewayConfig{
			BaseURL:        getEnv("GATEWAY_URL", "http://localhost:9000"),
			Timeout:        getEnvAsDuration("GATEWAY_TIMEOUT", 30*time.Second),
			Operation:      getEnv("GATEWAY_OPERATION", "setDocumentDetails"),
			PostEnabled:    getEnvAsBool("POST_ENABLED", false),
			PostValidation: getEnvAsBool("POST_VALIDATION", true),
		},
		Registry: RegistryConfig{
			Path: getEnv("DOC_REGISTRY_PATH", "config/document_registry.yaml"),
		},
		Store: StoreConfig{
			DSN: getEnv("AUDIT_DB_PATH", "docpipeline.db"),
		},
		OutputDir:  getEnv("OUTPUT_DIR", "output"),
		SamplesDir: getEnv("SAMPLES_DIR", "config/samples"),
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

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
	switch c.LLM.Provider {
	case "ollama":
		if c.LLM.OllamaURL == "" {
			return NewAppError("CONFIG_ERROR", "OLLAMA_API_URL is required", ErrInvalidInput)
		}
	case "openai":
		if c.LLM.APIKey == "" {
			return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required for the openai provider", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "LLM_PROVIDER must be 'ollama' or 'openai'", ErrInvalidInput)
	}
	if c.Gateway.PostEnabled && c.Gateway.BaseURL == "" {
		return NewAppError("CONFIG_ERROR", "GATEWAY_URL is required when POST_ENABLED is set", ErrInvalidInput)
	}
	return nil
}
