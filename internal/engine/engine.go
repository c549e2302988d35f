// Package engine содержит движок сверки плейлистов с журналом доставки.
//
// Для каждого плейлиста проход выполняется строго последовательно:
// листинг каталога, сверка с журналом, затем по одному треку —
// загрузка, доставка, отметка в журнале и удаление файла. Параллелизма
// внутри прохода нет намеренно: и каталог, и загрузчик чувствительны
// к частоте запросов.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"trackcourier/internal/config"
	"trackcourier/internal/gateway/deemix"
	"trackcourier/internal/gateway/telegram"
	"trackcourier/internal/ledger"
	"trackcourier/internal/model"

	"go.uber.org/zap"
)

// Engine выполняет сверку плейлистов и доставку новых треков
type Engine struct {
	lister    Lister
	acquirer  Acquirer
	deliverer Deliverer
	ledger    *ledger.Ledger
	playlists model.PlaylistRepository
	notifier  Notifier
	cfg       config.EngineConfig
	logger    *zap.Logger

	// Один проход на плейлист: повторный запуск той же сверки отклоняется
	locks sync.Map

	// sleep подменяется в тестах
	sleep func(ctx context.Context, d time.Duration) error
}

// New создает новый движок сверки
func New(
	lister Lister,
	acquirer Acquirer,
	deliverer Deliverer,
	trackLedger *ledger.Ledger,
	playlists model.PlaylistRepository,
	notifier Notifier,
	cfg config.EngineConfig,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		lister:    lister,
		acquirer:  acquirer,
		deliverer: deliverer,
		ledger:    trackLedger,
		playlists: playlists,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
		sleep:     sleepCtx,
	}
}

// RunPlaylist выполняет один проход сверки для плейлиста.
// Ошибки уровня прохода (листинг, конфигурация) возвращаются вызывающему
// и не затрагивают другие плейлисты; ошибки отдельных треков попадают
// только в итог прохода.
func (e *Engine) RunPlaylist(ctx context.Context, playlist *model.Playlist) (*RunSummary, error) {
	unlock, ok := e.tryLock(playlist.SpotifyID)
	if !ok {
		return nil, ErrRunInProgress
	}
	defer unlock()

	e.logger.Info("Checking playlist",
		zap.String("playlist", playlist.Name),
		zap.String("spotify_id", playlist.SpotifyID))

	summary := &RunSummary{PlaylistName: playlist.Name}

	listing, err := e.lister.ListTracks(ctx, playlist.SpotifyURL)
	if err != nil {
		e.logger.Error("Failed to list playlist tracks",
			zap.String("playlist", playlist.Name),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}

	if len(listing) == 0 {
		e.logger.Info("Playlist is empty, nothing to reconcile",
			zap.String("playlist", playlist.Name))
		return summary, nil
	}

	// Проверка предусловий до каких-либо изменений журнала
	if !e.acquirer.Configured() {
		e.notifier.NotifyConfigIssue(playlist.Name, "Deezer ARL не настроен, загрузка невозможна")
		return nil, ErrAcquirerNotConfigured
	}
	if !playlist.HasChannel() {
		e.notifier.NotifyConfigIssue(playlist.Name, "не привязан канал доставки")
		return nil, ErrNoChannelBound
	}

	bucket := e.ledger.GetOrCreateBucket(playlist.SpotifyID)
	fresh, pending := e.ledger.Classify(bucket, listing)

	// Новые треки идут перед повторными попытками
	actionable := make([]model.Track, 0, len(fresh)+len(pending))
	actionable = append(actionable, fresh...)
	actionable = append(actionable, pending...)

	e.logger.Info("Playlist classified",
		zap.String("playlist", playlist.Name),
		zap.Int("listing", len(listing)),
		zap.Int("new", len(fresh)),
		zap.Int("pending", len(pending)))

	for _, track := range actionable {
		summary.Attempted++
		e.processTrack(ctx, playlist, bucket, track, summary)
	}

	e.finalize(playlist, len(listing))

	if summary.Failed > 0 {
		e.notifier.NotifyRunFailures(playlist.Name, summary)
	}

	e.logger.Info("Playlist run complete",
		zap.String("playlist", playlist.Name),
		zap.Int("attempted", summary.Attempted),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed))

	return summary, nil
}

// processTrack выполняет загрузку и доставку одного трека.
// Любая ошибка записывается в итог и не прерывает проход.
func (e *Engine) processTrack(ctx context.Context, playlist *model.Playlist, bucket *ledger.Bucket, track model.Track, summary *RunSummary) {
	asset, err := e.acquirer.Fetch(ctx, track.Title, track.ArtistLine())
	if err != nil {
		e.logger.Warn("Failed to acquire track",
			zap.String("playlist", playlist.Name),
			zap.String("title", track.Title),
			zap.Error(err))
		summary.addFailure(track, failureReason(err))
		return
	}
	asset.TrackID = track.ID

	err = e.deliverer.Deliver(ctx, asset, track.Title, track.ArtistLine(), playlist.ChannelID)

	// Файл удаляется на каждом пути выхода, до перехода к следующему треку
	e.removeAsset(asset)

	if err != nil {
		e.logger.Warn("Failed to deliver track",
			zap.String("playlist", playlist.Name),
			zap.String("title", track.Title),
			zap.Error(err))
		summary.addFailure(track, failureReason(err))
		_ = e.sleep(ctx, e.cfg.FailurePause)
		return
	}

	e.ledger.MarkDelivered(bucket, track.ID)
	summary.Succeeded++
	_ = e.sleep(ctx, e.cfg.DeliveryPause)
}

// finalize сбрасывает журнал и обновляет метаданные проверки плейлиста
func (e *Engine) finalize(playlist *model.Playlist, trackCount int) {
	if err := e.ledger.Persist(); err != nil {
		// Изменения остаются накопленными, следующий Persist их заберет
		e.logger.Error("Failed to persist ledger",
			zap.String("playlist", playlist.Name),
			zap.Error(err))
	}

	if err := e.playlists.UpdateCheck(playlist.SpotifyURL, trackCount, time.Now()); err != nil {
		e.logger.Error("Failed to update playlist check metadata",
			zap.String("playlist", playlist.Name),
			zap.Error(err))
	}
}

// RunAll выполняет проход по всем зарегистрированным плейлистам.
// Ошибки отдельных плейлистов логируются и не прерывают обход.
func (e *Engine) RunAll(ctx context.Context) error {
	playlists, err := e.playlists.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load playlist registrations: %w", err)
	}

	if len(playlists) == 0 {
		e.logger.Info("No playlists registered")
		return nil
	}

	e.logger.Info("Checking all playlists", zap.Int("count", len(playlists)))

	for i := range playlists {
		playlist := playlists[i]

		if _, err := e.RunPlaylist(ctx, &playlist); err != nil {
			if errors.Is(err, ErrRunInProgress) {
				e.logger.Warn("Skipping playlist, run already in progress",
					zap.String("playlist", playlist.Name))
			}
			// Ошибка уровня прохода уже залогирована, продолжаем обход
		}

		if i < len(playlists)-1 {
			if err := e.sleep(ctx, e.cfg.PlaylistPause); err != nil {
				return fmt.Errorf("sweep cancelled: %w", err)
			}
		}
	}

	return nil
}

// tryLock захватывает блокировку прохода для плейлиста
func (e *Engine) tryLock(playlistID string) (func(), bool) {
	actual, _ := e.locks.LoadOrStore(playlistID, &sync.Mutex{})
	mu := actual.(*sync.Mutex)
	if !mu.TryLock() {
		return nil, false
	}
	return mu.Unlock, true
}

// removeAsset удаляет скачанный файл и директорию вызова загрузчика
func (e *Engine) removeAsset(asset *model.Asset) {
	if asset.Dir != "" {
		if err := os.RemoveAll(asset.Dir); err != nil {
			e.logger.Warn("Failed to remove asset dir",
				zap.String("dir", asset.Dir),
				zap.Error(err))
		}
		return
	}

	if err := os.Remove(asset.Path); err != nil && !os.IsNotExist(err) {
		e.logger.Warn("Failed to remove asset file",
			zap.String("path", asset.Path),
			zap.Error(err))
	}
}

// failureReason возвращает краткую причину сбоя для итога прохода
func failureReason(err error) string {
	var deliveryErr *telegram.DeliveryError
	if errors.As(err, &deliveryErr) {
		return deliveryErr.Kind.String()
	}

	var processErr *deemix.ProcessError
	if errors.As(err, &processErr) {
		return fmt.Sprintf("ProcessFailed(%d)", processErr.Code)
	}

	switch {
	case errors.Is(err, deemix.ErrTimeout):
		return "Timeout"
	case errors.Is(err, deemix.ErrNotFound):
		return "NotFound"
	}

	return err.Error()
}

// sleepCtx ждет заданное время или отмену контекста
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
