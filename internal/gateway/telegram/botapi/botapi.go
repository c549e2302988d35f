// Package botapi содержит обертку над Telegram Bot API.
package botapi

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// AudioPayload представляет аудиофайл для отправки в канал
type AudioPayload struct {
	Path      string
	Title     string
	Performer string
	Caption   string
	Duration  int // Секунды, 0 если неизвестно
}

// BotAPI определяет интерфейс для отправки сообщений и аудио
type BotAPI interface {
	// SendMessage отправляет текстовое сообщение в чат
	SendMessage(chatID int64, text string) error

	// SendAudio отправляет аудиофайл в канал.
	// Канал задается числовым ID или именем @channel.
	SendAudio(channel string, payload AudioPayload) error
}

// TelegramBotAPI реализует BotAPI поверх tgbotapi
type TelegramBotAPI struct {
	bot    *tgbotapi.BotAPI
	logger *zap.Logger
}

var _ BotAPI = (*TelegramBotAPI)(nil)

// NewTelegramBotAPI создает новую обертку над tgbotapi
func NewTelegramBotAPI(bot *tgbotapi.BotAPI, logger *zap.Logger) *TelegramBotAPI {
	return &TelegramBotAPI{
		bot:    bot,
		logger: logger,
	}
}

// SendMessage отправляет текстовое сообщение в чат
func (a *TelegramBotAPI) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)

	_, err := a.bot.Send(msg)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// SendAudio отправляет аудиофайл в канал
func (a *TelegramBotAPI) SendAudio(channel string, payload AudioPayload) error {
	audio := tgbotapi.NewAudio(0, tgbotapi.FilePath(payload.Path))
	applyChannel(&audio.BaseChat, channel)

	audio.Title = payload.Title
	audio.Performer = payload.Performer
	audio.Caption = payload.Caption
	audio.ParseMode = tgbotapi.ModeHTML
	audio.Duration = payload.Duration

	_, err := a.bot.Send(audio)
	if err != nil {
		return fmt.Errorf("failed to send audio: %w", err)
	}

	a.logger.Debug("Audio sent",
		zap.String("channel", channel),
		zap.String("title", payload.Title))
	return nil
}

// applyChannel проставляет назначение: числовой ID чата или @username
func applyChannel(chat *tgbotapi.BaseChat, channel string) {
	if id, err := strconv.ParseInt(channel, 10, 64); err == nil {
		chat.ChatID = id
		return
	}
	chat.ChannelUsername = "@" + strings.TrimPrefix(channel, "@")
}
