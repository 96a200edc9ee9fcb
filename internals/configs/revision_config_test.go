package configs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadRevisionConfigDefaults(t *testing.T) {
	cfg := LoadRevisionConfig()

	assert.Equal(t, 50.0, cfg.ThresholdPercent)
	assert.Equal(t, 30*time.Second, cfg.LockTTL)
	assert.Equal(t, 2, cfg.CollaboratorAttempts)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, LockDriverMemory, cfg.LockDriver)
}

func TestLoadRevisionConfigFromEnv(t *testing.T) {
	t.Setenv("REVISION_THRESHOLD_PERCENT", "65.5")
	t.Setenv("ROUND_LOCK_TTL", "45")
	t.Setenv("ROUND_LOCK_WAIT", "500ms")
	t.Setenv("AI_MAX_ATTEMPTS", "7")
	t.Setenv("REVISION_STORE_DRIVER", "BADGER")
	t.Setenv("ROUND_LOCK_DRIVER", "redis")

	cfg := LoadRevisionConfig()

	assert.Equal(t, 65.5, cfg.ThresholdPercent)
	assert.Equal(t, 45*time.Second, cfg.LockTTL)
	assert.Equal(t, 500*time.Millisecond, cfg.LockWait)
	assert.Equal(t, 2, cfg.CollaboratorAttempts, "attempt budget is capped")
	assert.Equal(t, StoreDriverBadger, cfg.StoreDriver)
	assert.Equal(t, LockDriverMemory, cfg.LockDriver, "unknown driver falls back")
}

func TestLoadRevisionConfigRejectsOutOfRangeThreshold(t *testing.T) {
	t.Setenv("REVISION_THRESHOLD_PERCENT", "150")
	assert.Equal(t, 50.0, LoadRevisionConfig().ThresholdPercent)
}

func TestLoadAIConfig(t *testing.T) {
	t.Setenv("AI_PROVIDER", " OpenAI ")
	t.Setenv("OPENAI_API_KEY", " sk-abc \n def ")
	t.Setenv("AI_ENFORCE_AU_ENGLISH", "false")

	cfg := LoadAIConfig()

	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "sk-abcdef", cfg.OpenAIKey)
	assert.Equal(t, "gpt-4o", cfg.OpenAIModel)
	assert.False(t, cfg.EnforceAUEnglish)
}

func TestLoadAIConfigUnknownProvider(t *testing.T) {
	t.Setenv("AI_PROVIDER", "mystery")
	assert.Equal(t, ProviderAnthropic, LoadAIConfig().Provider)
}
