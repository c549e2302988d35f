// Package telegram реализует доставку аудио в каналы через Bot API.
package telegram

import (
	"context"
	"fmt"
	"os"
	"time"

	"trackcourier/internal/config"
	"trackcourier/internal/gateway/telegram/botapi"
	"trackcourier/internal/media"
	"trackcourier/internal/model"

	"go.uber.org/zap"
)

// Deliverer определяет интерфейс доставки аудио в канал
type Deliverer interface {
	Deliver(ctx context.Context, asset *model.Asset, title, artist, channel string) error
}

// Delivery реализует доставку аудио с повторами.
// Лимит времени одной попытки обеспечивается HTTP клиентом бота
// (таймаут попытки плюс запас), backoff между попытками зависит
// от класса ошибки.
type Delivery struct {
	api    botapi.BotAPI
	cfg    config.DeliveryConfig
	logger *zap.Logger

	// sleep подменяется в тестах
	sleep func(ctx context.Context, d time.Duration) error
}

var _ Deliverer = (*Delivery)(nil)

// NewDelivery создает новый клиент доставки
func NewDelivery(api botapi.BotAPI, cfg config.DeliveryConfig, logger *zap.Logger) *Delivery {
	return &Delivery{
		api:    api,
		cfg:    cfg,
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Deliver отправляет аудиофайл в канал с ограниченным числом попыток.
// Файл должен существовать до вызова; удаление файла — забота вызывающего.
func (d *Delivery) Deliver(ctx context.Context, asset *model.Asset, title, artist, channel string) error {
	if _, err := os.Stat(asset.Path); err != nil {
		return fmt.Errorf("asset file is not accessible: %w", err)
	}

	payload := botapi.AudioPayload{
		Path:      asset.Path,
		Title:     title,
		Performer: artist,
		Caption:   fmt.Sprintf("🎵 <b>%s</b>\n🎤 %s", title, artist),
	}

	// Длительность из метаданных файла, если ее удалось прочитать
	if info := media.Probe(asset.Path); info.DurationSeconds > 0 {
		payload.Duration = info.DurationSeconds
	}

	var lastErr *DeliveryError
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		err := d.api.SendAudio(channel, payload)
		if err == nil {
			d.logger.Info("Audio delivered",
				zap.String("title", title),
				zap.String("artist", artist),
				zap.String("channel", channel),
				zap.Int("attempt", attempt))
			return nil
		}

		lastErr = classifyError(err)
		d.logger.Warn("Delivery attempt failed",
			zap.String("title", title),
			zap.String("channel", channel),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", d.cfg.MaxAttempts),
			zap.String("kind", lastErr.Kind.String()),
			zap.Error(err))

		if !lastErr.Retryable() {
			return lastErr
		}

		if attempt == d.cfg.MaxAttempts {
			break
		}

		if err := d.sleep(ctx, d.backoff(lastErr, attempt)); err != nil {
			return fmt.Errorf("delivery cancelled: %w", err)
		}
	}

	return lastErr
}

// backoff возвращает паузу перед следующей попыткой по классу ошибки
func (d *Delivery) backoff(derr *DeliveryError, attempt int) time.Duration {
	switch derr.Kind {
	case KindTimedOut:
		return time.Duration(attempt) * d.cfg.TimeoutBackoff
	case KindRateLimited:
		backoff := time.Duration(attempt) * d.cfg.RateLimitBackoff
		if derr.RetryAfter > backoff {
			return derr.RetryAfter
		}
		return backoff
	default:
		return time.Duration(attempt) * d.cfg.TransientBackoff
	}
}

// sleepCtx ждет заданное время или отмену контекста
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
