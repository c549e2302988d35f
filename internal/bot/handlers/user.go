package handlers

import (
	"fmt"
	"strings"

	"trackcourier/internal/bot/types"
)

// HandleStart обрабатывает команду /start
func HandleStart(ctx types.Context) error {
	return ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID,
		"Привет! Я слежу за плейлистами Spotify и доставляю новые треки в каналы.\n"+
			"Список команд: /help")
}

// HandleHelp обрабатывает команду /help
func HandleHelp(ctx types.Context) error {
	help := strings.Join([]string{
		"Доступные команды:",
		"/listplaylists — список отслеживаемых плейлистов",
		"/stats — статистика доставки",
		"",
		"Команды администратора:",
		"/addplaylist <ссылка> [канал] — добавить плейлист",
		"/removeplaylist <ссылка> — удалить плейлист",
		"/setchannel <ссылка> <канал> — привязать канал доставки",
		"/setarl <токен> — сохранить ARL токен Deezer",
		"/checkplaylists — проверить все плейлисты",
		"/checkplaylist <ссылка> — проверить один плейлист",
	}, "\n")

	return ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID, help)
}

// HandleListPlaylists обрабатывает команду /listplaylists
func HandleListPlaylists(ctx types.Context) error {
	playlists, err := ctx.Deps.Playlists.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load playlists: %w", err)
	}

	if len(playlists) == 0 {
		return ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID,
			"Плейлисты еще не добавлены")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Отслеживаемые плейлисты (%d):\n", len(playlists))

	for i := range playlists {
		playlist := &playlists[i]

		channel := playlist.ChannelID
		if channel == "" {
			channel = "канал не привязан"
		}

		total, delivered := ctx.Deps.Ledger.BucketStats(playlist.SpotifyID)
		fmt.Fprintf(&b, "\n%d. %s — %s, доставлено %d из %d",
			i+1, playlist.Name, channel, delivered, total)

		if playlist.LastCheck != nil {
			fmt.Fprintf(&b, ", проверен %s", playlist.LastCheck.Format("02.01.2006 15:04"))
		}
	}

	return ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID, b.String())
}

// HandleStats обрабатывает команду /stats
func HandleStats(ctx types.Context) error {
	playlists, err := ctx.Deps.Playlists.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load playlists: %w", err)
	}

	total, delivered := ctx.Deps.Ledger.Stats()

	var b strings.Builder
	fmt.Fprintf(&b, "Плейлистов: %d\n", len(playlists))
	fmt.Fprintf(&b, "Треков в журнале: %d\n", total)
	fmt.Fprintf(&b, "Доставлено: %d\n", delivered)
	fmt.Fprintf(&b, "Ожидает доставки: %d", total-delivered)

	if lastSweep := ctx.Deps.Scheduler.LastSweep(); !lastSweep.IsZero() {
		fmt.Fprintf(&b, "\nПоследний обход: %s", lastSweep.Format("02.01.2006 15:04"))
	}

	return ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID, b.String())
}
