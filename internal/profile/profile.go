package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the retrieval core.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Data is the data directory
	Data string
	// DSN points to where cuerecall stores cues
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of the binary
	Version string

	// Embedding provider configuration
	AIEnabled             bool   // CUERECALL_AI_ENABLED
	AIEmbeddingProvider   string // CUERECALL_AI_EMBEDDING_PROVIDER (default: siliconflow)
	AIEmbeddingModel      string // CUERECALL_AI_EMBEDDING_MODEL (default: BAAI/bge-m3)
	AIEmbeddingDimensions int    // CUERECALL_AI_EMBEDDING_DIMENSIONS (default: 1024)
	AISiliconFlowAPIKey   string // CUERECALL_AI_SILICONFLOW_API_KEY
	AISiliconFlowBaseURL  string // CUERECALL_AI_SILICONFLOW_BASE_URL (default: https://api.siliconflow.cn/v1)
	AIOpenAIAPIKey        string // CUERECALL_AI_OPENAI_API_KEY
	AIOpenAIBaseURL       string // CUERECALL_AI_OPENAI_BASE_URL (default: https://api.openai.com/v1)
	AIOllamaBaseURL       string // CUERECALL_AI_OLLAMA_BASE_URL (default: http://localhost:11434)

	// Chat model used by the ask command
	AILLMProvider     string // CUERECALL_AI_LLM_PROVIDER (default: deepseek)
	AILLMModel        string // CUERECALL_AI_LLM_MODEL (default: deepseek-chat)
	AIDeepSeekAPIKey  string // CUERECALL_AI_DEEPSEEK_API_KEY
	AIDeepSeekBaseURL string // CUERECALL_AI_DEEPSEEK_BASE_URL (default: https://api.deepseek.com)

	// Retrieval tuning
	RetrievalCacheLimit    int           // CUERECALL_RETRIEVAL_CACHE_LIMIT (default: 1000)
	RetrievalCandidatePool int           // CUERECALL_RETRIEVAL_CANDIDATE_POOL (default: 100)
	RetrievalMaxInputRunes int           // CUERECALL_RETRIEVAL_MAX_INPUT_RUNES (default: 8000)
	EmbeddingTimeout       time.Duration // CUERECALL_EMBEDDING_TIMEOUT (default: 5s)
	EmbeddingRPS           float64       // CUERECALL_EMBEDDING_RPS (default: 0, unlimited)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if the remote embedding provider is enabled and has credentials.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && (p.AISiliconFlowAPIKey != "" || p.AIOpenAIAPIKey != "" || p.AIEmbeddingProvider == "ollama")
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		slog.Warn("invalid integer env value, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return v
}

func getFloatEnv(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		slog.Warn("invalid float env value, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return v
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		slog.Warn("invalid duration env value, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return v
}

// FromEnv loads embedding and retrieval configuration from environment variables.
func (p *Profile) FromEnv() {
	p.AIEnabled = os.Getenv("CUERECALL_AI_ENABLED") == "true"
	p.AIEmbeddingProvider = getEnvWithDefault("CUERECALL_AI_EMBEDDING_PROVIDER", "siliconflow")
	p.AIEmbeddingModel = getEnvWithDefault("CUERECALL_AI_EMBEDDING_MODEL", "BAAI/bge-m3")
	p.AIEmbeddingDimensions = getIntEnv("CUERECALL_AI_EMBEDDING_DIMENSIONS", 1024)
	p.AISiliconFlowAPIKey = os.Getenv("CUERECALL_AI_SILICONFLOW_API_KEY")
	p.AISiliconFlowBaseURL = getEnvWithDefault("CUERECALL_AI_SILICONFLOW_BASE_URL", "https://api.siliconflow.cn/v1")
	p.AIOpenAIAPIKey = os.Getenv("CUERECALL_AI_OPENAI_API_KEY")
	p.AIOpenAIBaseURL = getEnvWithDefault("CUERECALL_AI_OPENAI_BASE_URL", "https://api.openai.com/v1")
	p.AIOllamaBaseURL = getEnvWithDefault("CUERECALL_AI_OLLAMA_BASE_URL", "http://localhost:11434")
	p.AILLMProvider = getEnvWithDefault("CUERECALL_AI_LLM_PROVIDER", "deepseek")
	p.AILLMModel = getEnvWithDefault("CUERECALL_AI_LLM_MODEL", "deepseek-chat")
	p.AIDeepSeekAPIKey = os.Getenv("CUERECALL_AI_DEEPSEEK_API_KEY")
	p.AIDeepSeekBaseURL = getEnvWithDefault("CUERECALL_AI_DEEPSEEK_BASE_URL", "https://api.deepseek.com")

	p.RetrievalCacheLimit = getIntEnv("CUERECALL_RETRIEVAL_CACHE_LIMIT", 1000)
	p.RetrievalCandidatePool = getIntEnv("CUERECALL_RETRIEVAL_CANDIDATE_POOL", 100)
	p.RetrievalMaxInputRunes = getIntEnv("CUERECALL_RETRIEVAL_MAX_INPUT_RUNES", 8000)
	p.EmbeddingTimeout = getDurationEnv("CUERECALL_EMBEDDING_TIMEOUT", 5*time.Second)
	p.EmbeddingRPS = getFloatEnv("CUERECALL_EMBEDDING_RPS", 0)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q: only 'sqlite' and 'postgres' are supported", p.Driver)
	}
	if p.Data == "" {
		p.Data = "."
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("cuerecall_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn is required for the postgres driver")
	}

	return nil
}
