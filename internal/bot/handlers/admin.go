// Package handlers содержит обработчики команд бота.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"trackcourier/internal/bot/types"
	"trackcourier/internal/engine"
	"trackcourier/internal/model"

	"go.uber.org/zap"
)

// Таймаут внеочередной проверки, запущенной командой
const manualCheckTimeout = 2 * time.Hour

// HandleAddPlaylist обрабатывает команду /addplaylist <url> [канал]
func HandleAddPlaylist(ctx types.Context) error {
	args := strings.Fields(ctx.Message.CommandArguments())
	if len(args) < 1 {
		return ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID,
			"Использование: /addplaylist <ссылка на плейлист> [канал]")
	}

	playlistURL := args[0]

	spotifyID, err := ctx.Deps.Spotify.ExtractPlaylistID(playlistURL)
	if err != nil {
		return ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID,
			"Не удалось распознать ссылку на плейлист Spotify")
	}

	existing, err := ctx.Deps.Playlists.GetBySpotifyURL(playlistURL)
	if err != nil {
		return fmt.Errorf("failed to check playlist: %w", err)
	}
	if existing != nil {
		return ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID,
			fmt.Sprintf("Плейлист «%s» уже добавлен", existing.Name))
	}

	infoCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	info, err := ctx.Deps.Spotify.GetPlaylistInfo(infoCtx, playlistURL)
	if err != nil {
		ctx.Deps.Logger.Error("Failed to fetch playlist info",
			zap.String("url", playlistURL),
			zap.Error(err))
		return ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID,
			"Не удалось получить информацию о плейлисте, проверьте ссылку")
	}

	playlist := &model.Playlist{
		SpotifyURL: playlistURL,
		SpotifyID:  spotifyID,
		Name:       info.Name,
		AddedBy:    ctx.Message.From.ID,
		AddedAt:    time.Now(),
		TrackCount: info.TotalTracks,
	}
	if len(args) > 1 {
		playlist.ChannelID = args[1]
	}

	if err := ctx.Deps.Playlists.Create(playlist); err != nil {
		return fmt.Errorf("failed to create playlist: %w", err)
	}

	ctx.Deps.Logger.Info("Playlist added",
		zap.String("playlist", info.Name),
		zap.String("spotify_id", spotifyID),
		zap.Int64("added_by", ctx.Message.From.ID))

	reply := fmt.Sprintf("Плейлист «%s» добавлен (%d треков)", info.Name, info.TotalTracks)
	if playlist.ChannelID == "" {
		reply += "\nПривяжите канал доставки: /setchannel " + playlistURL + " <канал>"
	}
	return ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID, reply)
}

// HandleRemovePlaylist обрабатывает команду /removeplaylist <url>
func HandleRemovePlaylist(ctx types.Context) error {
	playlistURL := strings.TrimSpace(ctx.Message.CommandArguments())
	if playlistURL == "" {
		return ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID,
			"Использование: /removeplaylist <ссылка на плейлист>")
	}

	playlist, err := ctx.Deps.Playlists.GetBySpotifyURL(playlistURL)
	if err != nil {
		return fmt.Errorf("failed to find playlist: %w", err)
	}
	if playlist == nil {
		return ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID, "Плейлист не найден")
	}

	if err := ctx.Deps.Playlists.Delete(playlistURL); err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	ctx.Deps.Logger.Info("Playlist removed",
		zap.String("playlist", playlist.Name),
		zap.Int64("removed_by", ctx.Message.From.ID))

	return ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID,
		fmt.Sprintf("Плейлист «%s» удален", playlist.Name))
}

// HandleSetChannel обрабатывает команду /setchannel <url> <канал>
func HandleSetChannel(ctx types.Context) error {
	args := strings.Fields(ctx.Message.CommandArguments())
	if len(args) != 2 {
		return ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID,
			"Использование: /setchannel <ссылка на плейлист> <@канал или ID>")
	}

	playlistURL, channelID := args[0], args[1]

	if err := validateChannelID(channelID); err != nil {
		return ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID, err.Error())
	}

	if err := ctx.Deps.Playlists.SetChannel(playlistURL, channelID); err != nil {
		ctx.Deps.Logger.Error("Failed to set channel",
			zap.String("url", playlistURL),
			zap.Error(err))
		return ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID, "Плейлист не найден")
	}

	return ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID,
		fmt.Sprintf("Канал доставки обновлен: %s", channelID))
}

// validateChannelID проверяет формат канала: @username или числовой ID чата
func validateChannelID(channelID string) error {
	if strings.HasPrefix(channelID, "@") && len(channelID) > 1 {
		return nil
	}
	if _, err := strconv.ParseInt(channelID, 10, 64); err == nil {
		return nil
	}
	return errors.New("канал указывается как @username или числовой ID чата")
}

// HandleSetARL обрабатывает команду /setarl <токен>
func HandleSetARL(ctx types.Context) error {
	token := strings.TrimSpace(ctx.Message.CommandArguments())
	if token == "" {
		return ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID,
			"Использование: /setarl <ARL токен Deezer>")
	}

	if err := ctx.Deps.Acquirer.SetARL(token); err != nil {
		ctx.Deps.Logger.Error("Failed to save ARL token", zap.Error(err))
		return ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID,
			"Не удалось сохранить ARL токен")
	}

	return ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID, "ARL токен сохранен")
}

// HandleCheckPlaylists обрабатывает команду /checkplaylists.
// Обход выполняется в фоне, чтобы не блокировать обработку команд.
func HandleCheckPlaylists(ctx types.Context) error {
	if err := ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID,
		"Запускаю проверку всех плейлистов"); err != nil {
		return err
	}

	go func() {
		runCtx, cancel := context.WithTimeout(context.Background(), manualCheckTimeout)
		defer cancel()

		if err := ctx.Deps.Scheduler.TriggerSweep(runCtx); err != nil {
			ctx.Deps.Logger.Error("Manual sweep failed", zap.Error(err))
			_ = ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID,
				"Проверка завершилась с ошибкой, подробности в логах")
			return
		}
		_ = ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID, "Проверка всех плейлистов завершена")
	}()

	return nil
}

// HandleCheckPlaylist обрабатывает команду /checkplaylist <url>
func HandleCheckPlaylist(ctx types.Context) error {
	playlistURL := strings.TrimSpace(ctx.Message.CommandArguments())
	if playlistURL == "" {
		return ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID,
			"Использование: /checkplaylist <ссылка на плейлист>")
	}

	playlist, err := ctx.Deps.Playlists.GetBySpotifyURL(playlistURL)
	if err != nil {
		return fmt.Errorf("failed to find playlist: %w", err)
	}
	if playlist == nil {
		return ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID, "Плейлист не найден")
	}

	if err := ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID,
		fmt.Sprintf("Запускаю проверку плейлиста «%s»", playlist.Name)); err != nil {
		return err
	}

	go func() {
		runCtx, cancel := context.WithTimeout(context.Background(), manualCheckTimeout)
		defer cancel()

		summary, err := ctx.Deps.Engine.RunPlaylist(runCtx, playlist)
		if err != nil {
			reply := "Проверка завершилась с ошибкой, подробности в логах"
			switch {
			case errors.Is(err, engine.ErrRunInProgress):
				reply = "Проверка этого плейлиста уже идет"
			case errors.Is(err, engine.ErrNoChannelBound):
				reply = "У плейлиста не привязан канал доставки"
			case errors.Is(err, engine.ErrAcquirerNotConfigured):
				reply = "Deezer ARL не настроен: /setarl <токен>"
			default:
				ctx.Deps.Logger.Error("Manual playlist check failed",
					zap.String("playlist", playlist.Name),
					zap.Error(err))
			}
			_ = ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID, reply)
			return
		}

		_ = ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID, formatRunSummary(summary))
	}()

	return nil
}

// formatRunSummary собирает текстовый итог прохода для ответа в чат
func formatRunSummary(summary *engine.RunSummary) string {
	if summary.Attempted == 0 {
		return fmt.Sprintf("Плейлист «%s»: новых треков нет", summary.PlaylistName)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Плейлист «%s»: доставлено %d из %d",
		summary.PlaylistName, summary.Succeeded, summary.Attempted)

	for _, failure := range summary.Failures {
		fmt.Fprintf(&b, "\n• %s — %s (%s)", failure.Title, failure.Artist, failure.Reason)
	}

	return b.String()
}
