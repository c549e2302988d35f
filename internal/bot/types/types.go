// Package types содержит общие типы Telegram-бота.
package types

import (
	"trackcourier/internal/config"
	"trackcourier/internal/engine"
	"trackcourier/internal/gateway/deemix"
	"trackcourier/internal/gateway/spotify"
	"trackcourier/internal/gateway/telegram/botapi"
	"trackcourier/internal/ledger"
	"trackcourier/internal/model"
	"trackcourier/internal/scheduler"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Dependencies содержит зависимости обработчиков команд
type Dependencies struct {
	Config    *config.Config
	Logger    *zap.Logger
	BotAPI    botapi.BotAPI
	Playlists model.PlaylistRepository
	Spotify   spotify.Interface
	Acquirer  deemix.Interface
	Engine    *engine.Engine
	Scheduler *scheduler.Scheduler
	Ledger    *ledger.Ledger
}

// Context представляет контекст обработки одной команды
type Context struct {
	Message  *tgbotapi.Message
	UpdateID int
	Deps     *Dependencies
}

// CommandDescription описывает команду для меню Telegram
type CommandDescription struct {
	Command     string
	Description string
}

// HandlerFunc обрабатывает команду
type HandlerFunc func(ctx Context) error

// Middleware оборачивает обработчик команды
type Middleware func(next HandlerFunc) HandlerFunc
