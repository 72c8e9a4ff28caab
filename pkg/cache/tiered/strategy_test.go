package tiered

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveStrategy_Defaults(t *testing.T) {
	cfg := DefaultGlobalConfig()
	s := effectiveStrategy(cfg, "unconfigured")

	assert.Equal(t, cfg.RemoteDefaultTTL, s.RemoteTTL)
	assert.Equal(t, cfg.RemoteNullValueTTL, s.RemoteNullTTL)
	assert.Equal(t, cfg.RemoteTTLRandomFactor, s.RemoteTTLRandom)
	assert.Equal(t, cfg.LocalExpireAfterWrite, s.LocalTTL)
	assert.Equal(t, cfg.LocalMaxSize, s.LocalMaxSize)
	assert.Equal(t, cfg.DefaultFallback, s.FallbackStrategy)
	assert.Equal(t, cfg.DefaultClearMode, s.ClearMode)
}

func TestEffectiveStrategy_PartialOverride(t *testing.T) {
	cfg := DefaultGlobalConfig()
	ttl := 2 * time.Hour
	fallback := FallbackRun
	cfg.Caches = map[string]CacheOverride{
		"hot": {
			RemoteTTL:        &ttl,
			FallbackStrategy: &fallback,
		},
	}

	s := effectiveStrategy(cfg, "hot")
	assert.Equal(t, ttl, s.RemoteTTL)
	assert.Equal(t, fallback, s.FallbackStrategy)
	// unset fields still fall back to global defaults
	assert.Equal(t, cfg.LocalExpireAfterWrite, s.LocalTTL)
	assert.Equal(t, cfg.DefaultClearMode, s.ClearMode)

	other := effectiveStrategy(cfg, "cold")
	assert.Equal(t, cfg.RemoteDefaultTTL, other.RemoteTTL)
	assert.Equal(t, cfg.DefaultFallback, other.FallbackStrategy)
}

func TestEffectiveStrategy_FullOverride(t *testing.T) {
	cfg := DefaultGlobalConfig()
	ttl := time.Minute
	localTTL := 30 * time.Second
	size := 5
	fallback := FallbackRun
	clear := ClearFull
	cfg.Caches = map[string]CacheOverride{
		"full": {
			RemoteTTL:        &ttl,
			LocalTTL:         &localTTL,
			LocalMaxSize:     &size,
			FallbackStrategy: &fallback,
			ClearMode:        &clear,
		},
	}

	s := effectiveStrategy(cfg, "full")
	assert.Equal(t, Strategy{
		RemoteTTL:        ttl,
		RemoteNullTTL:    cfg.RemoteNullValueTTL,
		RemoteTTLRandom:  cfg.RemoteTTLRandomFactor,
		LocalTTL:         localTTL,
		LocalMaxSize:     size,
		FallbackStrategy: fallback,
		ClearMode:        clear,
	}, s)
}
