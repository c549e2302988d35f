// Package notify содержит уведомление администраторов.
package notify

import (
	"fmt"
	"strings"

	"trackcourier/internal/engine"
	"trackcourier/internal/gateway/telegram/botapi"

	"go.uber.org/zap"
)

// Сколько недоставленных треков показывать в уведомлении
const maxListedFailures = 5

// AdminNotifier отправляет уведомления администраторам бота.
// Ошибки отправки логируются и никогда не поднимаются выше:
// уведомление не должно ломать проход сверки.
type AdminNotifier struct {
	botAPI   botapi.BotAPI
	adminIDs []int64
	logger   *zap.Logger
}

var _ engine.Notifier = (*AdminNotifier)(nil)

// NewAdminNotifier создает новый уведомитель админов
func NewAdminNotifier(botAPI botapi.BotAPI, adminIDs []int64, logger *zap.Logger) *AdminNotifier {
	return &AdminNotifier{
		botAPI:   botAPI,
		adminIDs: adminIDs,
		logger:   logger,
	}
}

// NotifyConfigIssue уведомляет админов о проблеме конфигурации плейлиста
func (n *AdminNotifier) NotifyConfigIssue(playlistName, reason string) {
	message := fmt.Sprintf("⚠️ Плейлист «%s» пропущен: %s", playlistName, reason)
	n.broadcast(message)
}

// NotifyRunFailures уведомляет админов о недоставленных треках прохода.
// Показываются первые пять треков и счетчик остальных.
func (n *AdminNotifier) NotifyRunFailures(playlistName string, summary *engine.RunSummary) {
	var b strings.Builder

	fmt.Fprintf(&b, "❌ Плейлист «%s»: %d из %d треков не доставлено\n\n",
		playlistName, summary.Failed, summary.Attempted)

	listed := summary.Failures
	if len(listed) > maxListedFailures {
		listed = listed[:maxListedFailures]
	}

	for _, failure := range listed {
		fmt.Fprintf(&b, "• %s — %s (%s)\n", failure.Title, failure.Artist, failure.Reason)
	}

	if overflow := len(summary.Failures) - len(listed); overflow > 0 {
		fmt.Fprintf(&b, "… и еще %d", overflow)
	}

	n.broadcast(b.String())
}

// broadcast отправляет сообщение всем админам
func (n *AdminNotifier) broadcast(message string) {
	for _, adminID := range n.adminIDs {
		if err := n.botAPI.SendMessage(adminID, message); err != nil {
			n.logger.Error("Failed to notify admin",
				zap.Int64("admin_id", adminID),
				zap.Error(err))
		}
	}
}
