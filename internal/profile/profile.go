package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start main server.
type Profile struct {
	// Unified LLM configuration for the reply strategies.
	// OpenAI-compatible providers share one client; "anthropic" uses the Messages API.
	LLMProvider          string // zai, deepseek, openai, siliconflow, dashscope, openrouter, ollama, anthropic
	LLMAPIKey            string
	LLMBaseURL           string // optional, has default per provider
	LLMModel             string
	LLMTimeout           int     // seconds (default: 120)
	LLMRequestsPerSecond float64 // 0 disables client-side pacing

	// Intent classifier. Empty provider/key/model fall back to the unified LLM.
	IntentEnabled  bool
	IntentProvider string
	IntentModel    string
	IntentAPIKey   string
	IntentBaseURL  string

	// Crisis risk scorer. Empty provider/key/model fall back to the unified LLM.
	RiskScorerEnabled  bool
	RiskScorerProvider string
	RiskScorerModel    string
	RiskScorerAPIKey   string
	RiskScorerBaseURL  string

	// Reply moderator. Empty provider/key/model fall back to the unified LLM.
	ModerationEnabled  bool
	ModerationProvider string
	ModerationModel    string
	ModerationAPIKey   string
	ModerationBaseURL  string

	// Embedding configuration
	EmbeddingProvider   string
	EmbeddingModel      string
	EmbeddingAPIKey     string
	EmbeddingBaseURL    string
	EmbeddingDimensions int

	// Long-term memory
	MemoryBackend       string // none, chromem, postgres
	MemoryTopK          int
	MemoryMinSimilarity float64

	// Session history cache in front of the chat log
	HistoryCapacity   int
	HistoryTTLSeconds int
	HistoryWindow     int

	// AuxiliaryTimeoutSeconds bounds risk scoring, memory and moderation calls.
	AuxiliaryTimeoutSeconds int

	// Other configurations
	Mode    string
	Addr    string
	Port    int
	Data    string
	Driver  string
	DSN     string
	Version string
}

// Memory backends.
const (
	MemoryBackendNone     = "none"
	MemoryBackendChromem  = "chromem"
	MemoryBackendPostgres = "postgres"
)

// Provider default configurations for LLM.
// Used when the base URL or model is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"zai": {
		BaseURL: "https://open.bigmodel.cn/api/paas/v4",
		Model:   "glm-4.7",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "Qwen/Qwen2.5-72B-Instruct",
	},
	"dashscope": {
		BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1",
		Model:   "qwen-max-latest",
	},
	"openrouter": {
		BaseURL: "https://openrouter.ai/api/v1",
		Model:   "deepseek/deepseek-chat",
	},
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "llama3.1",
	},
	"anthropic": {
		BaseURL: "https://api.anthropic.com",
		Model:   "claude-sonnet-4-5",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if the reply LLM can be called.
func (p *Profile) IsAIEnabled() bool {
	return p.LLMAPIKey != "" || p.LLMProvider == "ollama"
}

// IsEmbeddingEnabled returns true if embeddings can be generated.
func (p *Profile) IsEmbeddingEnabled() bool {
	return p.EmbeddingModel != "" && (p.EmbeddingAPIKey != "" || p.EmbeddingProvider == "ollama")
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvOrDefaultBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// FromEnv loads AI and memory configuration from VERDANT_* environment variables.
func (p *Profile) FromEnv() {
	// Unified LLM configuration
	p.LLMProvider = getEnvOrDefault("VERDANT_AI_LLM_PROVIDER", "deepseek")
	p.LLMAPIKey = getEnvOrDefault("VERDANT_AI_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("VERDANT_AI_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("VERDANT_AI_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("VERDANT_AI_LLM_TIMEOUT_SECONDS", 120)
	p.LLMRequestsPerSecond = getEnvOrDefaultFloat("VERDANT_AI_LLM_RPS", 0)

	if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
		slog.Warn("Unknown LLM provider, using default: deepseek", "provider", p.LLMProvider)
		p.LLMProvider = "deepseek"
	}
	p.LLMBaseURL, p.LLMModel = withProviderDefaults(p.LLMProvider, p.LLMBaseURL, p.LLMModel)

	// Auxiliary LLM callers
	p.IntentEnabled = getEnvOrDefaultBool("VERDANT_AI_INTENT_ENABLED", false)
	p.IntentProvider = getEnvOrDefault("VERDANT_AI_INTENT_PROVIDER", "")
	p.IntentModel = getEnvOrDefault("VERDANT_AI_INTENT_MODEL", "")
	p.IntentAPIKey = getEnvOrDefault("VERDANT_AI_INTENT_API_KEY", "")
	p.IntentBaseURL = getEnvOrDefault("VERDANT_AI_INTENT_BASE_URL", "")

	p.RiskScorerEnabled = getEnvOrDefaultBool("VERDANT_AI_RISK_ENABLED", false)
	p.RiskScorerProvider = getEnvOrDefault("VERDANT_AI_RISK_PROVIDER", "")
	p.RiskScorerModel = getEnvOrDefault("VERDANT_AI_RISK_MODEL", "")
	p.RiskScorerAPIKey = getEnvOrDefault("VERDANT_AI_RISK_API_KEY", "")
	p.RiskScorerBaseURL = getEnvOrDefault("VERDANT_AI_RISK_BASE_URL", "")

	p.ModerationEnabled = getEnvOrDefaultBool("VERDANT_AI_MODERATION_ENABLED", false)
	p.ModerationProvider = getEnvOrDefault("VERDANT_AI_MODERATION_PROVIDER", "")
	p.ModerationModel = getEnvOrDefault("VERDANT_AI_MODERATION_MODEL", "")
	p.ModerationAPIKey = getEnvOrDefault("VERDANT_AI_MODERATION_API_KEY", "")
	p.ModerationBaseURL = getEnvOrDefault("VERDANT_AI_MODERATION_BASE_URL", "")

	// Embedding configuration
	p.EmbeddingProvider = getEnvOrDefault("VERDANT_AI_EMBEDDING_PROVIDER", "siliconflow")
	p.EmbeddingModel = getEnvOrDefault("VERDANT_AI_EMBEDDING_MODEL", "BAAI/bge-m3")
	p.EmbeddingAPIKey = getEnvOrDefault("VERDANT_AI_EMBEDDING_API_KEY", "")
	p.EmbeddingBaseURL = getEnvOrDefault("VERDANT_AI_EMBEDDING_BASE_URL", "https://api.siliconflow.cn/v1")
	p.EmbeddingDimensions = getEnvOrDefaultInt("VERDANT_AI_EMBEDDING_DIMENSIONS", 1024)

	// Memory and history
	p.MemoryBackend = strings.ToLower(getEnvOrDefault("VERDANT_MEMORY_BACKEND", MemoryBackendNone))
	p.MemoryTopK = getEnvOrDefaultInt("VERDANT_MEMORY_TOP_K", 5)
	p.MemoryMinSimilarity = getEnvOrDefaultFloat("VERDANT_MEMORY_MIN_SIMILARITY", 0.7)

	p.HistoryCapacity = getEnvOrDefaultInt("VERDANT_HISTORY_CAPACITY", 1000)
	p.HistoryTTLSeconds = getEnvOrDefaultInt("VERDANT_HISTORY_TTL_SECONDS", 1800)
	p.HistoryWindow = getEnvOrDefaultInt("VERDANT_HISTORY_WINDOW", 10)

	p.AuxiliaryTimeoutSeconds = getEnvOrDefaultInt("VERDANT_AUX_TIMEOUT_SECONDS", 10)
}

func withProviderDefaults(provider, baseURL, model string) (string, string) {
	defaults, ok := llmProviderDefaults[provider]
	if !ok {
		return baseURL, model
	}
	if baseURL == "" {
		baseURL = defaults.BaseURL
	}
	if model == "" {
		model = defaults.Model
	}
	return baseURL, model
}

// AuxiliaryLLM resolves the connection settings of an auxiliary caller,
// inheriting unset fields from the unified LLM.
func (p *Profile) AuxiliaryLLM(provider, apiKey, baseURL, model string) (string, string, string, string) {
	if provider == "" || provider == p.LLMProvider {
		provider = p.LLMProvider
		if apiKey == "" {
			apiKey = p.LLMAPIKey
		}
		if baseURL == "" {
			baseURL = p.LLMBaseURL
		}
		if model == "" {
			model = p.LLMModel
		}
		return provider, apiKey, baseURL, model
	}
	baseURL, model = withProviderDefaults(provider, baseURL, model)
	return provider, apiKey, baseURL, model
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
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

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "verdant")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/verdant"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	switch p.Driver {
	case "sqlite":
		if p.DSN == "" {
			p.DSN = filepath.Join(dataDir, fmt.Sprintf("verdant_%s.db", p.Mode))
		}
	case "postgres":
		if p.DSN == "" {
			return errors.New("dsn required for postgres driver")
		}
	default:
		return errors.Errorf("unsupported driver: %s", p.Driver)
	}

	switch p.MemoryBackend {
	case "", MemoryBackendNone:
		p.MemoryBackend = MemoryBackendNone
	case MemoryBackendChromem:
	case MemoryBackendPostgres:
		if p.Driver != "postgres" {
			return errors.New("postgres memory backend requires the postgres driver")
		}
	default:
		return errors.Errorf("unsupported memory backend: %s", p.MemoryBackend)
	}

	if p.MemoryMinSimilarity < 0 || p.MemoryMinSimilarity > 1 {
		return errors.Errorf("memory min similarity must be within [0, 1]: %v", p.MemoryMinSimilarity)
	}

	return nil
}
