// Package config содержит загрузку и валидацию конфигурации.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config представляет конфигурацию приложения
type Config struct {
	// Database
	DatabaseURL string

	// Telegram
	BotToken string
	AdminIDs []int64

	// Spotify
	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRequestDelay time.Duration

	// Logging
	LogLevel string

	// App Data Directory
	AppDataDir string

	// Acquisition
	AcquisitionConfig AcquisitionConfig

	// Delivery
	DeliveryConfig DeliveryConfig

	// Engine
	EngineConfig EngineConfig

	// Scheduler
	SchedulerConfig SchedulerConfig
}

// AcquisitionConfig представляет конфигурацию загрузки треков через deemix
type AcquisitionConfig struct {
	DeemixPath  string
	DeezerARL   string
	DownloadDir string
	MusicDir    string
	Bitrate     string
	Timeout     time.Duration
}

// DeliveryConfig представляет конфигурацию отправки аудио в каналы
type DeliveryConfig struct {
	MaxAttempts      int
	AttemptTimeout   time.Duration
	AttemptMargin    time.Duration
	TimeoutBackoff   time.Duration
	RateLimitBackoff time.Duration
	TransientBackoff time.Duration
}

// EngineConfig представляет конфигурацию движка сверки плейлистов
type EngineConfig struct {
	DeliveryPause time.Duration
	FailurePause  time.Duration
	PlaylistPause time.Duration
}

// SchedulerConfig представляет конфигурацию планировщика проверок
type SchedulerConfig struct {
	CheckInterval   time.Duration
	FailureCooldown time.Duration
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	// Загружаем .env файл если он существует
	if err := godotenv.Load(); err != nil {
		// Игнорируем ошибку если файл не найден
	}

	config := &Config{
		DatabaseURL:         getEnv("DB_DSN", ""),
		BotToken:            getEnv("BOT_TOKEN", ""),
		AdminIDs:            getEnvInt64List("ADMIN_IDS"),
		SpotifyClientID:     getEnv("SPOTIFY_CLIENT_ID", ""),
		SpotifyClientSecret: getEnv("SPOTIFY_CLIENT_SECRET", ""),
		SpotifyRequestDelay: getEnvDuration("SPOTIFY_REQUEST_DELAY", 500*time.Millisecond),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		AppDataDir:          getEnv("APP_DATA_DIR", "./data"),
		AcquisitionConfig: AcquisitionConfig{
			DeemixPath:  getEnv("DEEMIX_PATH", "deemix"),
			DeezerARL:   getEnv("DEEZER_ARL", ""),
			DownloadDir: getEnv("DOWNLOAD_DIR", "./downloads"),
			MusicDir:    getEnv("DEEMIX_MUSIC_DIR", ""),
			Bitrate:     getEnv("BITRATE", "128"),
			Timeout:     getEnvDuration("ACQUIRE_TIMEOUT", 300*time.Second),
		},
		DeliveryConfig: DeliveryConfig{
			MaxAttempts:      getEnvInt("DELIVERY_MAX_ATTEMPTS", 3),
			AttemptTimeout:   getEnvDuration("DELIVERY_TIMEOUT", 120*time.Second),
			AttemptMargin:    getEnvDuration("DELIVERY_MARGIN", 30*time.Second),
			TimeoutBackoff:   getEnvDuration("DELIVERY_TIMEOUT_BACKOFF", 5*time.Second),
			RateLimitBackoff: getEnvDuration("DELIVERY_RATE_LIMIT_BACKOFF", 60*time.Second),
			TransientBackoff: getEnvDuration("DELIVERY_TRANSIENT_BACKOFF", 10*time.Second),
		},
		EngineConfig: EngineConfig{
			DeliveryPause: getEnvDuration("DELIVERY_PAUSE", 3*time.Second),
			FailurePause:  getEnvDuration("FAILURE_PAUSE", 5*time.Second),
			PlaylistPause: getEnvDuration("PLAYLIST_PAUSE", 5*time.Second),
		},
		SchedulerConfig: SchedulerConfig{
			CheckInterval:   getEnvDuration("CHECK_INTERVAL", 6*time.Hour),
			FailureCooldown: getEnvDuration("FAILURE_COOLDOWN", time.Hour),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate проверяет конфигурацию
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DB_DSN is required")
	}

	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}

	if len(c.AdminIDs) == 0 {
		return fmt.Errorf("ADMIN_IDS is required")
	}

	if c.SpotifyClientID == "" {
		return fmt.Errorf("SPOTIFY_CLIENT_ID is required")
	}

	if c.SpotifyClientSecret == "" {
		return fmt.Errorf("SPOTIFY_CLIENT_SECRET is required")
	}

	if c.DeliveryConfig.MaxAttempts < 1 {
		return fmt.Errorf("DELIVERY_MAX_ATTEMPTS must be at least 1")
	}

	return nil
}

// IsAdmin проверяет, является ли пользователь администратором
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// getEnv получает переменную окружения с значением по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает переменную окружения как int
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration получает переменную окружения как time.Duration
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvInt64List получает переменную окружения как список int64 через запятую
func getEnvInt64List(key string) []int64 {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	var result []int64
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if id, err := strconv.ParseInt(part, 10, 64); err == nil {
			result = append(result, id)
		}
	}
	return result
}
