// Package app содержит фабрику компонентов приложения.
package app

import (
	"fmt"
	"net/http"
	"os"

	"trackcourier/internal/config"
	"trackcourier/internal/gateway/deemix"
	"trackcourier/internal/gateway/spotify"
	"trackcourier/internal/gateway/telegram/botapi"
	"trackcourier/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// ComponentFactory создает компоненты приложения
type ComponentFactory struct {
	config *config.Config
	logger *zap.Logger
}

// NewComponentFactory создает новую фабрику компонентов
func NewComponentFactory(config *config.Config, logger *zap.Logger) *ComponentFactory {
	if logger == nil {
		panic("Logger cannot be nil")
	}
	if config == nil {
		logger.Fatal("Config cannot be nil")
	}

	return &ComponentFactory{
		config: config,
		logger: logger,
	}
}

// CreateDatabase создает подключение к базе данных
func (f *ComponentFactory) CreateDatabase() (*storage.Postgres, error) {
	if f.config.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := storage.NewPostgres(f.config.DatabaseURL, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	f.logger.Info("Database connection created successfully")
	return db, nil
}

// CreateTelegramBot создает клиент Telegram Bot API.
// Таймаут HTTP-клиента ограничивает каждую попытку отправки аудио:
// сама библиотека не принимает контекст.
func (f *ComponentFactory) CreateTelegramBot() (*tgbotapi.BotAPI, error) {
	if f.config.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	httpClient := &http.Client{
		Timeout: f.config.DeliveryConfig.AttemptTimeout + f.config.DeliveryConfig.AttemptMargin,
	}

	bot, err := tgbotapi.NewBotAPIWithClient(f.config.BotToken, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	bot.Debug = false
	f.logger.Info("Telegram bot created", zap.String("username", bot.Self.UserName))
	return bot, nil
}

// CreateBotAPI создает обертку над клиентом Telegram
func (f *ComponentFactory) CreateBotAPI(bot *tgbotapi.BotAPI) botapi.BotAPI {
	return botapi.NewTelegramBotAPI(bot, f.logger)
}

// CreateSpotifyClient создает Spotify клиент
func (f *ComponentFactory) CreateSpotifyClient() (*spotify.Client, error) {
	if f.config.SpotifyClientID == "" || f.config.SpotifyClientSecret == "" {
		return nil, fmt.Errorf("spotify client ID and secret are required")
	}

	client, err := spotify.NewClient(
		f.config.SpotifyClientID,
		f.config.SpotifyClientSecret,
		f.config.SpotifyRequestDelay,
		f.logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create spotify client: %w", err)
	}

	f.logger.Info("Spotify client created successfully")
	return client, nil
}

// CreateAcquirer создает клиент загрузки треков
func (f *ComponentFactory) CreateAcquirer() *deemix.Client {
	client := deemix.NewClient(f.config.AcquisitionConfig, f.logger)
	if !client.Configured() {
		f.logger.Warn("Deezer ARL is not configured; set it with /setarl")
	}
	return client
}

// CreateDirectories создает рабочие директории приложения
func (f *ComponentFactory) CreateDirectories() error {
	dirs := []string{
		f.config.AppDataDir,
		f.config.AcquisitionConfig.DownloadDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	f.logger.Info("Application directories ready",
		zap.String("data_dir", f.config.AppDataDir),
		zap.String("download_dir", f.config.AcquisitionConfig.DownloadDir))
	return nil
}
