package configs

import (
	"os"
	"testing"
)

// setupTestEnv sets up required environment variables for config unmarshaling
func setupTestEnv() {
	os.Setenv("APP_DEBUG", "false")
	os.Setenv("APP_ENV", "test")
	os.Setenv("APP_PORT", "9089")
	os.Setenv("DATABASE_DRIVER", "sqlite")
	os.Setenv("DATABASE_PATH", "test.db")
	os.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
	os.Setenv("TELEGRAM_CACHE_CHANNEL_ID", "-1001234")
	os.Setenv("HOARDBOORU_URL", "http://hoard.lan:8390")
	os.Setenv("HOARDBOORU_USERNAME", "test")
	os.Setenv("HOARDBOORU_TOKEN", "test")
	// Cache values - set to 0 to simulate application layer applying defaults
	os.Setenv("CACHE_UPLOAD_STATE_TTL", "0")
	os.Setenv("CACHE_POPULARITY_TTL", "0")
	os.Setenv("CACHE_MAX_FRESH_MEDIA", "0")
}

// cleanupTestEnv cleans up environment variables after tests
func cleanupTestEnv() {
	os.Unsetenv("APP_DEBUG")
	os.Unsetenv("APP_ENV")
	os.Unsetenv("APP_PORT")
	os.Unsetenv("DATABASE_DRIVER")
	os.Unsetenv("DATABASE_PATH")
	os.Unsetenv("TELEGRAM_BOT_TOKEN")
	os.Unsetenv("TELEGRAM_CACHE_CHANNEL_ID")
	os.Unsetenv("HOARDBOORU_URL")
	os.Unsetenv("HOARDBOORU_USERNAME")
	os.Unsetenv("HOARDBOORU_TOKEN")
	os.Unsetenv("CACHE_UPLOAD_STATE_TTL")
	os.Unsetenv("CACHE_POPULARITY_TTL")
	os.Unsetenv("CACHE_MAX_FRESH_MEDIA")
}

// TestCacheStructFieldsUnmarshal tests that Cache struct fields are properly unmarshaled from config
func TestCacheStructFieldsUnmarshal(t *testing.T) {
	setupTestEnv()
	defer cleanupTestEnv()

	os.Setenv("CACHE_UPLOAD_STATE_TTL", "120")
	os.Setenv("CACHE_POPULARITY_TTL", "1800")
	os.Setenv("CACHE_MAX_FRESH_MEDIA", "2")

	InitViper(".", "test")

	cfg := GetViper()

	if cfg.Cache.UploadStateTTL != 120 {
		t.Errorf("Expected Cache.UploadStateTTL to be 120, got %d", cfg.Cache.UploadStateTTL)
	}

	if cfg.Cache.PopularityTTL != 1800 {
		t.Errorf("Expected Cache.PopularityTTL to be 1800, got %d", cfg.Cache.PopularityTTL)
	}

	if cfg.Cache.MaxFreshMedia != 2 {
		t.Errorf("Expected Cache.MaxFreshMedia to be 2, got %d", cfg.Cache.MaxFreshMedia)
	}
}

// TestCacheZeroValuesRequireApplicationDefaults tests that zero values signal the application
// layer to apply defaults (the wiring in protocal/bot.go substitutes defaults for zeroes)
func TestCacheZeroValuesRequireApplicationDefaults(t *testing.T) {
	setupTestEnv()
	defer cleanupTestEnv()

	os.Setenv("CACHE_UPLOAD_STATE_TTL", "0")
	os.Setenv("CACHE_POPULARITY_TTL", "0")

	InitViper(".", "test")

	cfg := GetViper()

	if cfg.Cache.UploadStateTTL != 0 {
		t.Errorf("Expected Cache.UploadStateTTL to be 0, got %d", cfg.Cache.UploadStateTTL)
	}

	if cfg.Cache.PopularityTTL != 0 {
		t.Errorf("Expected Cache.PopularityTTL to be 0, got %d", cfg.Cache.PopularityTTL)
	}
}

// TestTelegramConfigAccess tests config access via configs.GetViper().Telegram
func TestTelegramConfigAccess(t *testing.T) {
	setupTestEnv()
	defer cleanupTestEnv()

	os.Setenv("TELEGRAM_BOT_TOKEN", "123456:abcdef")
	os.Setenv("TELEGRAM_CACHE_CHANNEL_ID", "-1009876")

	InitViper(".", "test")

	cfg := GetViper()

	if cfg.Telegram.BotToken != "123456:abcdef" {
		t.Errorf("Expected Telegram.BotToken to be '123456:abcdef', got %s", cfg.Telegram.BotToken)
	}

	if cfg.Telegram.CacheChannelID != -1009876 {
		t.Errorf("Expected Telegram.CacheChannelID to be -1009876, got %d", cfg.Telegram.CacheChannelID)
	}
}
