// Package bot содержит Telegram-бот управления доставкой треков.
package bot

import (
	"context"
	"fmt"
	"time"

	"trackcourier/internal/bot/handlers"
	"trackcourier/internal/bot/router"
	"trackcourier/internal/bot/types"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Задержка перед переподключением после закрытия канала обновлений
const reconnectDelay = 10 * time.Second

// Bot обрабатывает команды из Telegram через long polling
type Bot struct {
	bot    *tgbotapi.BotAPI
	router *router.Router
	deps   *types.Dependencies
	logger *zap.Logger
}

// New создает новый бот поверх готового клиента Telegram
func New(botClient *tgbotapi.BotAPI, deps *types.Dependencies) *Bot {
	r := router.NewRouter()
	handlers.RegisterRoutes(r)

	return &Bot{
		bot:    botClient,
		router: r,
		deps:   deps,
		logger: deps.Logger,
	}
}

// Start запускает обработку обновлений до отмены контекста
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Bot started", zap.String("username", b.bot.Self.UserName))

	// Удаляем webhook если есть
	if _, err := b.bot.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	if err := b.setBotCommands(); err != nil {
		return err
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message"}

	b.logger.Info("Starting to fetch updates")
	updatesChan := b.bot.GetUpdatesChan(u)
	if updatesChan == nil {
		return fmt.Errorf("failed to create updates channel")
	}

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Update loop cancelled by context")
			b.bot.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updatesChan:
			if !ok {
				b.logger.Warn("Update channel closed, will try to reconnect after delay")
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(reconnectDelay):
					return fmt.Errorf("update channel closed, reconnecting")
				}
			}

			b.processUpdate(update)
		}
	}
}

// setBotCommands настраивает меню команд бота
func (b *Bot) setBotCommands() error {
	descriptions := handlers.BotCommands()
	commands := make([]tgbotapi.BotCommand, 0, len(descriptions))
	for _, d := range descriptions {
		commands = append(commands, tgbotapi.BotCommand{
			Command:     d.Command,
			Description: d.Description,
		})
	}

	if _, err := b.bot.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}
	return nil
}

// processUpdate обрабатывает одно обновление
func (b *Bot) processUpdate(update tgbotapi.Update) {
	if update.Message == nil {
		return
	}

	b.logger.Debug("Received message",
		zap.String("text", update.Message.Text),
		zap.Int64("chat_id", update.Message.Chat.ID),
		zap.String("user", userIdentifier(update.Message.From)),
		zap.Int("update_id", update.UpdateID))

	// Обрабатываем только команды
	if !update.Message.IsCommand() {
		return
	}

	ctx := types.Context{
		Message:  update.Message,
		UpdateID: update.UpdateID,
		Deps:     b.deps,
	}

	if err := b.router.Dispatch(ctx); err != nil {
		b.logger.Error("Failed to handle command",
			zap.String("command", update.Message.Command()),
			zap.Int("update_id", update.UpdateID),
			zap.Error(err))
	}
}

// userIdentifier возвращает идентификатор пользователя для логов
func userIdentifier(user *tgbotapi.User) string {
	if user == nil {
		return "unknown"
	}
	if user.UserName != "" {
		return "@" + user.UserName
	}
	if user.FirstName != "" {
		return user.FirstName
	}
	return fmt.Sprintf("user_%d", user.ID)
}
