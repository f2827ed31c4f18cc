package profile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CUERECALL_AI_ENABLED",
		"CUERECALL_AI_EMBEDDING_PROVIDER",
		"CUERECALL_AI_EMBEDDING_MODEL",
		"CUERECALL_AI_EMBEDDING_DIMENSIONS",
		"CUERECALL_AI_SILICONFLOW_API_KEY",
		"CUERECALL_AI_SILICONFLOW_BASE_URL",
		"CUERECALL_AI_OPENAI_API_KEY",
		"CUERECALL_AI_OPENAI_BASE_URL",
		"CUERECALL_AI_OLLAMA_BASE_URL",
		"CUERECALL_AI_LLM_PROVIDER",
		"CUERECALL_AI_LLM_MODEL",
		"CUERECALL_AI_DEEPSEEK_API_KEY",
		"CUERECALL_AI_DEEPSEEK_BASE_URL",
		"CUERECALL_RETRIEVAL_CACHE_LIMIT",
		"CUERECALL_RETRIEVAL_CANDIDATE_POOL",
		"CUERECALL_RETRIEVAL_MAX_INPUT_RUNES",
		"CUERECALL_EMBEDDING_TIMEOUT",
		"CUERECALL_EMBEDDING_RPS",
	} {
		t.Setenv(key, "")
	}
}

func TestProfileDefaults(t *testing.T) {
	clearEnv(t)

	p := &Profile{}
	p.FromEnv()

	assert.False(t, p.AIEnabled)
	assert.Equal(t, "siliconflow", p.AIEmbeddingProvider)
	assert.Equal(t, "BAAI/bge-m3", p.AIEmbeddingModel)
	assert.Equal(t, 1024, p.AIEmbeddingDimensions)
	assert.Equal(t, "https://api.siliconflow.cn/v1", p.AISiliconFlowBaseURL)
	assert.Equal(t, "https://api.openai.com/v1", p.AIOpenAIBaseURL)
	assert.Equal(t, "http://localhost:11434", p.AIOllamaBaseURL)
	assert.Equal(t, "deepseek", p.AILLMProvider)
	assert.Equal(t, "deepseek-chat", p.AILLMModel)
	assert.Equal(t, "https://api.deepseek.com", p.AIDeepSeekBaseURL)
	assert.Equal(t, 1000, p.RetrievalCacheLimit)
	assert.Equal(t, 100, p.RetrievalCandidatePool)
	assert.Equal(t, 8000, p.RetrievalMaxInputRunes)
	assert.Equal(t, 5*time.Second, p.EmbeddingTimeout)
	assert.Equal(t, 0.0, p.EmbeddingRPS)
}

func TestProfileFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CUERECALL_AI_ENABLED", "true")
	t.Setenv("CUERECALL_AI_EMBEDDING_PROVIDER", "openai")
	t.Setenv("CUERECALL_AI_OPENAI_API_KEY", "sk-test")
	t.Setenv("CUERECALL_AI_EMBEDDING_DIMENSIONS", "768")
	t.Setenv("CUERECALL_RETRIEVAL_CACHE_LIMIT", "64")
	t.Setenv("CUERECALL_EMBEDDING_TIMEOUT", "1500ms")
	t.Setenv("CUERECALL_EMBEDDING_RPS", "2.5")

	p := &Profile{}
	p.FromEnv()

	assert.True(t, p.AIEnabled)
	assert.True(t, p.IsAIEnabled())
	assert.Equal(t, "openai", p.AIEmbeddingProvider)
	assert.Equal(t, 768, p.AIEmbeddingDimensions)
	assert.Equal(t, 64, p.RetrievalCacheLimit)
	assert.Equal(t, 1500*time.Millisecond, p.EmbeddingTimeout)
	assert.Equal(t, 2.5, p.EmbeddingRPS)
}

func TestProfileFromEnv_InvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("CUERECALL_RETRIEVAL_CACHE_LIMIT", "-3")
	t.Setenv("CUERECALL_EMBEDDING_TIMEOUT", "soon")
	t.Setenv("CUERECALL_EMBEDDING_RPS", "fast")

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, 1000, p.RetrievalCacheLimit)
	assert.Equal(t, 5*time.Second, p.EmbeddingTimeout)
	assert.Equal(t, 0.0, p.EmbeddingRPS)
}

func TestIsAIEnabled(t *testing.T) {
	tests := []struct {
		name     string
		profile  Profile
		expected bool
	}{
		{"disabled", Profile{AIEnabled: false, AIOpenAIAPIKey: "k"}, false},
		{"enabled without key", Profile{AIEnabled: true, AIEmbeddingProvider: "openai"}, false},
		{"enabled with siliconflow key", Profile{AIEnabled: true, AISiliconFlowAPIKey: "k"}, true},
		{"enabled ollama needs no key", Profile{AIEnabled: true, AIEmbeddingProvider: "ollama"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.profile.IsAIEnabled())
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("SQLiteDefaultDSN", func(t *testing.T) {
		dir := t.TempDir()
		p := &Profile{Mode: "weird", Data: dir}
		require.NoError(t, p.Validate())
		assert.Equal(t, "demo", p.Mode)
		assert.Equal(t, "sqlite", p.Driver)
		assert.Equal(t, filepath.Join(dir, "cuerecall_demo.db"), p.DSN)
	})

	t.Run("PostgresRequiresDSN", func(t *testing.T) {
		p := &Profile{Mode: "prod", Driver: "postgres", Data: t.TempDir()}
		assert.Error(t, p.Validate())
	})

	t.Run("UnknownDriver", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "mysql", Data: t.TempDir()}
		assert.Error(t, p.Validate())
	})

	t.Run("MissingDataDir", func(t *testing.T) {
		p := &Profile{Mode: "dev", Data: filepath.Join(t.TempDir(), "missing")}
		assert.Error(t, p.Validate())
	})
}
