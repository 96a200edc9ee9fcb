// file: internals/configs/revision_config.go
package configs

import (
	"strings"
	"time"
)

/* =========================================================
   REVISION ENGINE CONFIG
   Built once at startup and injected into the services.
   Nothing in the engine reads env vars after this point.
========================================================= */

const (
	StoreDriverPostgres = "postgres"
	StoreDriverBadger   = "badger"

	LockDriverMemory   = "memory"
	LockDriverPostgres = "postgres"
	LockDriverBadger   = "badger"
)

type RevisionConfig struct {
	ThresholdPercent float64

	LockTTL  time.Duration
	LockWait time.Duration

	CollaboratorAttempts int
	CollaboratorBackoff  time.Duration
	CollaboratorTimeout  time.Duration

	ProgressTimeout time.Duration

	StoreDriver string
	LockDriver  string
	BadgerPath  string
}

func DefaultRevisionConfig() RevisionConfig {
	return RevisionConfig{
		ThresholdPercent:     50.0,
		LockTTL:              30 * time.Second,
		LockWait:             2 * time.Second,
		CollaboratorAttempts: 2,
		CollaboratorBackoff:  2 * time.Second,
		CollaboratorTimeout:  180 * time.Second,
		ProgressTimeout:      10 * time.Second,
		StoreDriver:          StoreDriverPostgres,
		LockDriver:           LockDriverMemory,
		BadgerPath:           "./data/badger",
	}
}

func LoadRevisionConfig() RevisionConfig {
	def := DefaultRevisionConfig()
	cfg := RevisionConfig{
		ThresholdPercent:     GetEnvFloat("REVISION_THRESHOLD_PERCENT", def.ThresholdPercent),
		LockTTL:              GetEnvDuration("ROUND_LOCK_TTL", def.LockTTL),
		LockWait:             GetEnvDuration("ROUND_LOCK_WAIT", def.LockWait),
		CollaboratorAttempts: GetEnvInt("AI_MAX_ATTEMPTS", def.CollaboratorAttempts),
		CollaboratorBackoff:  GetEnvDuration("AI_RETRY_BACKOFF", def.CollaboratorBackoff),
		CollaboratorTimeout:  GetEnvDuration("AI_TIMEOUT", def.CollaboratorTimeout),
		ProgressTimeout:      GetEnvDuration("PROGRESS_TIMEOUT", def.ProgressTimeout),
		StoreDriver:          strings.ToLower(GetEnv("REVISION_STORE_DRIVER", def.StoreDriver)),
		LockDriver:           strings.ToLower(GetEnv("ROUND_LOCK_DRIVER", def.LockDriver)),
		BadgerPath:           GetEnv("BADGER_PATH", def.BadgerPath),
	}
	return cfg.normalize()
}

func (c RevisionConfig) normalize() RevisionConfig {
	def := DefaultRevisionConfig()
	if c.ThresholdPercent < 0 || c.ThresholdPercent > 100 {
		c.ThresholdPercent = def.ThresholdPercent
	}
	if c.LockTTL <= 0 {
		c.LockTTL = def.LockTTL
	}
	if c.LockWait < 0 {
		c.LockWait = 0
	}
	// attempt budget is fixed at 1..2
	if c.CollaboratorAttempts < 1 {
		c.CollaboratorAttempts = 1
	}
	if c.CollaboratorAttempts > 2 {
		c.CollaboratorAttempts = 2
	}
	if c.CollaboratorBackoff < 0 {
		c.CollaboratorBackoff = 0
	}
	if c.CollaboratorTimeout <= 0 {
		c.CollaboratorTimeout = def.CollaboratorTimeout
	}
	if c.ProgressTimeout <= 0 {
		c.ProgressTimeout = def.ProgressTimeout
	}
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverBadger:
	default:
		c.StoreDriver = def.StoreDriver
	}
	switch c.LockDriver {
	case LockDriverMemory, LockDriverPostgres, LockDriverBadger:
	default:
		c.LockDriver = def.LockDriver
	}
	return c
}

/* =========================================================
   AI PROVIDER CONFIG
========================================================= */

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
)

type AIConfig struct {
	Provider string

	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string

	AnthropicKey     string
	AnthropicModel   string
	AnthropicBaseURL string

	GeminiKey     string
	GeminiModel   string
	GeminiBaseURL string

	MaxFeedbackTokens   int
	MaxValidationTokens int

	RequestsPerSecond float64
	Burst             int

	EnforceAUEnglish bool
}

func LoadAIConfig() AIConfig {
	provider := strings.ToLower(strings.TrimSpace(GetEnv("AI_PROVIDER", ProviderAnthropic)))
	switch provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderGemini:
	default:
		provider = ProviderAnthropic
	}

	return AIConfig{
		Provider: provider,

		OpenAIKey:     strings.Join(strings.Fields(GetEnv("OPENAI_API_KEY")), ""),
		OpenAIModel:   GetEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAIBaseURL: GetEnv("OPENAI_BASE_URL"),

		AnthropicKey:     strings.Join(strings.Fields(GetEnv("ANTHROPIC_API_KEY")), ""),
		AnthropicModel:   GetEnv("ANTHROPIC_MODEL", "claude-sonnet-4-6"),
		AnthropicBaseURL: GetEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com/v1/messages"),

		GeminiKey:     strings.Join(strings.Fields(GetEnv("GEMINI_API_KEY")), ""),
		GeminiModel:   GetEnv("GEMINI_MODEL", "gemini-2.5-pro"),
		GeminiBaseURL: GetEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),

		MaxFeedbackTokens:   GetEnvInt("AI_MAX_FEEDBACK_TOKENS", 4096),
		MaxValidationTokens: GetEnvInt("AI_MAX_VALIDATION_TOKENS", 2000),

		RequestsPerSecond: GetEnvFloat("AI_REQUESTS_PER_SECOND", 5),
		Burst:             GetEnvInt("AI_BURST", 10),

		EnforceAUEnglish: GetEnvBool("AI_ENFORCE_AU_ENGLISH", true),
	}
}
