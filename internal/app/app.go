package app

import (
	"context"
	"fmt"

	"trackcourier/internal/bot"
	"trackcourier/internal/bot/types"
	"trackcourier/internal/config"
	"trackcourier/internal/engine"
	"trackcourier/internal/gateway/telegram"
	"trackcourier/internal/ledger"
	"trackcourier/internal/notify"
	"trackcourier/internal/scheduler"
	"trackcourier/internal/storage"

	"go.uber.org/zap"
)

// App представляет собранное приложение со всеми компонентами
type App struct {
	config    *config.Config
	logger    *zap.Logger
	db        *storage.Postgres
	bot       *bot.Bot
	scheduler *scheduler.Scheduler
}

// New собирает приложение через фабрику компонентов
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	factory := NewComponentFactory(cfg, logger)

	if err := factory.CreateDirectories(); err != nil {
		return nil, err
	}

	db, err := factory.CreateDatabase()
	if err != nil {
		return nil, err
	}

	tgBot, err := factory.CreateTelegramBot()
	if err != nil {
		return nil, err
	}
	botAPI := factory.CreateBotAPI(tgBot)

	spotifyClient, err := factory.CreateSpotifyClient()
	if err != nil {
		return nil, err
	}

	acquirer := factory.CreateAcquirer()
	delivery := telegram.NewDelivery(botAPI, cfg.DeliveryConfig, logger)

	trackLedger := ledger.New(db.GetTrackRecordRepository(), logger)
	if err := trackLedger.Load(); err != nil {
		return nil, fmt.Errorf("failed to load delivery ledger: %w", err)
	}

	playlists := db.GetPlaylistRepository()
	notifier := notify.NewAdminNotifier(botAPI, cfg.AdminIDs, logger)

	courierEngine := engine.New(
		spotifyClient,
		acquirer,
		delivery,
		trackLedger,
		playlists,
		notifier,
		cfg.EngineConfig,
		logger,
	)

	sched := scheduler.New(courierEngine, cfg.SchedulerConfig, logger)

	deps := &types.Dependencies{
		Config:    cfg,
		Logger:    logger,
		BotAPI:    botAPI,
		Playlists: playlists,
		Spotify:   spotifyClient,
		Acquirer:  acquirer,
		Engine:    courierEngine,
		Scheduler: sched,
		Ledger:    trackLedger,
	}

	return &App{
		config:    cfg,
		logger:    logger,
		db:        db,
		bot:       bot.New(tgBot, deps),
		scheduler: sched,
	}, nil
}

// Start запускает планировщик и цикл обработки команд.
// Блокируется до отмены контекста или фатальной ошибки бота.
func (a *App) Start(ctx context.Context) error {
	if err := a.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	err := a.bot.Start(ctx)

	a.shutdown()

	if err != nil && ctx.Err() != nil {
		// Штатная остановка по сигналу
		return nil
	}
	return err
}

// shutdown останавливает компоненты в обратном порядке
func (a *App) shutdown() {
	a.scheduler.Stop()

	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database", zap.Error(err))
	}

	a.logger.Info("Application stopped")
}
