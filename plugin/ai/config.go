package ai

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/hrygo/cuerecall/internal/profile"
)

const defaultOllamaURL = "http://localhost:11434"

var (
	embeddingProviders = []string{"siliconflow", "openai", "ollama"}
	llmProviders       = []string{"deepseek", "openai", "siliconflow", "ollama"}
)

// Config represents AI configuration.
type Config struct {
	Enabled bool

	Embedding EmbeddingConfig
	LLM       LLMConfig
	Retrieval RetrievalConfig
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Provider   string // siliconflow, openai, ollama
	Model      string // BAAI/bge-m3
	Dimensions int    // 1024
	APIKey     string
	BaseURL    string
}

// LLMConfig represents the chat model that answers personalized prompts.
type LLMConfig struct {
	Provider    string // deepseek, openai, siliconflow, ollama
	Model       string // deepseek-chat
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 2048
	Temperature float32 // default: 0.7
}

// RetrievalConfig tunes the personalization retrieval core.
type RetrievalConfig struct {
	Dimensions       int           // vector length shared by remote and local encoders
	CacheLimit       int           // max embedding cache entries
	CandidatePool    int           // cues fetched per request before ranking
	MaxInputRunes    int           // preprocessed text is truncated to this many runes
	EmbeddingTimeout time.Duration // bound on a single remote embedding call
	RemoteRPS        float64       // remote call rate; 0 means unlimited
}

// DefaultRetrievalConfig returns the default retrieval configuration.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		Dimensions:       1024,
		CacheLimit:       1000,
		CandidatePool:    100,
		MaxInputRunes:    8000,
		EmbeddingTimeout: 5 * time.Second,
	}
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled:   p.AIEnabled,
		Retrieval: DefaultRetrievalConfig(),
	}

	if p.AIEmbeddingDimensions > 0 {
		cfg.Retrieval.Dimensions = p.AIEmbeddingDimensions
	}
	if p.RetrievalCacheLimit > 0 {
		cfg.Retrieval.CacheLimit = p.RetrievalCacheLimit
	}
	if p.RetrievalCandidatePool > 0 {
		cfg.Retrieval.CandidatePool = p.RetrievalCandidatePool
	}
	if p.RetrievalMaxInputRunes > 0 {
		cfg.Retrieval.MaxInputRunes = p.RetrievalMaxInputRunes
	}
	if p.EmbeddingTimeout > 0 {
		cfg.Retrieval.EmbeddingTimeout = p.EmbeddingTimeout
	}
	cfg.Retrieval.RemoteRPS = p.EmbeddingRPS

	if !cfg.Enabled {
		return cfg
	}

	cfg.Embedding = EmbeddingConfig{
		Provider:   p.AIEmbeddingProvider,
		Model:      p.AIEmbeddingModel,
		Dimensions: cfg.Retrieval.Dimensions,
	}

	switch p.AIEmbeddingProvider {
	case "siliconflow":
		cfg.Embedding.APIKey = p.AISiliconFlowAPIKey
		cfg.Embedding.BaseURL = p.AISiliconFlowBaseURL
	case "openai":
		cfg.Embedding.APIKey = p.AIOpenAIAPIKey
		cfg.Embedding.BaseURL = p.AIOpenAIBaseURL
	case "ollama":
		cfg.Embedding.BaseURL = p.AIOllamaBaseURL
	}

	if p.AILLMProvider != "" {
		cfg.LLM = LLMConfig{
			Provider:    p.AILLMProvider,
			Model:       p.AILLMModel,
			MaxTokens:   2048,
			Temperature: 0.7,
		}
		switch p.AILLMProvider {
		case "deepseek":
			cfg.LLM.APIKey = p.AIDeepSeekAPIKey
			cfg.LLM.BaseURL = p.AIDeepSeekBaseURL
		case "openai":
			cfg.LLM.APIKey = p.AIOpenAIAPIKey
			cfg.LLM.BaseURL = p.AIOpenAIBaseURL
		case "siliconflow":
			cfg.LLM.APIKey = p.AISiliconFlowAPIKey
			cfg.LLM.BaseURL = p.AISiliconFlowBaseURL
		case "ollama":
			cfg.LLM.BaseURL = p.AIOllamaBaseURL
		}
	}

	return cfg
}

// HasLLM reports whether a chat model is configured.
func (c *Config) HasLLM() bool {
	return c.Enabled && c.LLM.Provider != "" && (c.LLM.APIKey != "" || c.LLM.Provider == "ollama")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Retrieval.Dimensions <= 0 {
		return errors.New("retrieval dimensions must be positive")
	}
	if c.Retrieval.CacheLimit <= 0 {
		return errors.New("retrieval cache limit must be positive")
	}

	if !c.Enabled {
		return nil
	}

	if c.Embedding.Provider == "" {
		return errors.New("embedding provider is required")
	}

	if c.Embedding.Provider != "ollama" && c.Embedding.APIKey == "" {
		return errors.New("embedding API key is required")
	}

	return nil
}

// clientConfig resolves the OpenAI compatible endpoint of the embedding provider.
func (c *EmbeddingConfig) clientConfig() (openai.ClientConfig, error) {
	return openAIClientConfig("embedding", embeddingProviders, c.Provider, c.APIKey, c.BaseURL)
}

// clientConfig resolves the OpenAI compatible endpoint of the chat provider.
func (c *LLMConfig) clientConfig() (openai.ClientConfig, error) {
	return openAIClientConfig("LLM", llmProviders, c.Provider, c.APIKey, c.BaseURL)
}

// openAIClientConfig maps a provider to a go-openai client config. Ollama
// serves the OpenAI API under /v1 and ignores the key.
func openAIClientConfig(kind string, supported []string, provider, apiKey, baseURL string) (openai.ClientConfig, error) {
	if !slices.Contains(supported, provider) {
		return openai.ClientConfig{}, fmt.Errorf("unsupported %s provider: %s", kind, provider)
	}

	if provider == "ollama" {
		cfg := openai.DefaultConfig("ollama")
		cfg.BaseURL = ollamaBaseURL(baseURL)
		return cfg, nil
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	return cfg, nil
}

func ollamaBaseURL(baseURL string) string {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL += "/v1"
	}
	return baseURL
}
