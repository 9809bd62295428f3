package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_EconomyDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "CASHBACK_PROBABILITY_PCT")
	unsetEnvWithCleanup(t, "CASHBACK_MAX_SHARE")
	unsetEnvWithCleanup(t, "CASHBACK_WINDOW_SECONDS")
	unsetEnvWithCleanup(t, "GIFT_RATE_LIMIT_PER_MINUTE")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.CashbackProbabilityPct != 30 {
		t.Fatalf("expected default cashback probability 30, got %d", cfg.CashbackProbabilityPct)
	}
	if cfg.CashbackMaxShare != 0.1 {
		t.Fatalf("expected default cashback share 0.1, got %f", cfg.CashbackMaxShare)
	}
	if cfg.CashbackWindowSeconds != 300 {
		t.Fatalf("expected default cashback window 300s, got %d", cfg.CashbackWindowSeconds)
	}
	if cfg.GiftRateLimitPerMinute != 60 {
		t.Fatalf("expected default gift rate limit 60, got %d", cfg.GiftRateLimitPerMinute)
	}
	if cfg.RedisRateLimitPrefix != "usefuns:rate_limit" {
		t.Fatalf("expected default rate limit prefix, got %q", cfg.RedisRateLimitPrefix)
	}
	if cfg.RedisContributionPrefix != "usefuns:contribution" {
		t.Fatalf("expected default contribution prefix, got %q", cfg.RedisContributionPrefix)
	}
}

func TestLoadConfig_ClampsCashbackProbability(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "CASHBACK_PROBABILITY_PCT", "150")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.CashbackProbabilityPct != 100 {
		t.Fatalf("expected probability capped at 100, got %d", cfg.CashbackProbabilityPct)
	}
}

func TestLoadConfig_ClampsCashbackShare(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "CASHBACK_MAX_SHARE", "-0.5")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.CashbackMaxShare != 0 {
		t.Fatalf("expected negative share coerced to zero, got %f", cfg.CashbackMaxShare)
	}
}

func TestLoadConfig_PortEnvOverridesServerPort(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SERVER_PORT", "8080")
	setEnvWithCleanup(t, "PORT", "9090")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "9090" {
		t.Fatalf("expected PORT to take precedence, got %q", cfg.ServerPort)
	}
}

func TestLoadConfig_ThresholdDefaultsPresent(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "LEVEL_THRESHOLDS")
	unsetEnvWithCleanup(t, "TREASURE_BOX_THRESHOLDS")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if len(SplitList(cfg.LevelThresholds)) == 0 {
		t.Fatal("expected a default level threshold table")
	}
	if len(SplitList(cfg.TreasureBoxThresholds)) != 5 {
		t.Fatalf("expected five default treasure box thresholds, got %d", len(SplitList(cfg.TreasureBoxThresholds)))
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" 100, 200 ,,300 ")
	if len(got) != 3 || got[0] != "100" || got[1] != "200" || got[2] != "300" {
		t.Fatalf("unexpected split result %v", got)
	}
	if out := SplitList(""); len(out) != 0 {
		t.Fatalf("expected empty split for empty input, got %v", out)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}
