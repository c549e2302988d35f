package handlers

import (
	"trackcourier/internal/bot/middleware"
	"trackcourier/internal/bot/router"
	"trackcourier/internal/bot/types"
)

// RegisterRoutes регистрирует все команды бота
func RegisterRoutes(r *router.Router) {
	r.Use(middleware.Recovery())
	r.Use(middleware.Logging())

	// Общие команды
	r.Handle("start", HandleStart)
	r.Handle("help", HandleHelp)
	r.Handle("listplaylists", HandleListPlaylists)
	r.Handle("stats", HandleStats)

	// Команды администратора
	admin := middleware.AdminOnly()
	r.Handle("addplaylist", admin(HandleAddPlaylist))
	r.Handle("removeplaylist", admin(HandleRemovePlaylist))
	r.Handle("setchannel", admin(HandleSetChannel))
	r.Handle("setarl", admin(HandleSetARL))
	r.Handle("checkplaylists", admin(HandleCheckPlaylists))
	r.Handle("checkplaylist", admin(HandleCheckPlaylist))
}

// BotCommands возвращает описания команд для меню Telegram
func BotCommands() []types.CommandDescription {
	return []types.CommandDescription{
		{Command: "start", Description: "Начало работы"},
		{Command: "help", Description: "Список команд"},
		{Command: "listplaylists", Description: "Отслеживаемые плейлисты"},
		{Command: "stats", Description: "Статистика доставки"},
		{Command: "checkplaylists", Description: "Проверить все плейлисты"},
	}
}
