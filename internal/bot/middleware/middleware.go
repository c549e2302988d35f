// Package middleware содержит middleware для обработчиков команд бота.
package middleware

import (
	"fmt"
	"runtime/debug"

	"trackcourier/internal/bot/types"

	"go.uber.org/zap"
)

// Logging логирует каждую команду
func Logging() types.Middleware {
	return func(next types.HandlerFunc) types.HandlerFunc {
		return func(ctx types.Context) error {
			ctx.Deps.Logger.Info("Handling command",
				zap.String("command", ctx.Message.Command()),
				zap.Int64("user_id", ctx.Message.From.ID),
				zap.Int("update_id", ctx.UpdateID))

			err := next(ctx)
			if err != nil {
				ctx.Deps.Logger.Error("Command failed",
					zap.String("command", ctx.Message.Command()),
					zap.Int64("user_id", ctx.Message.From.ID),
					zap.Error(err))
			}
			return err
		}
	}
}

// Recovery перехватывает панику обработчика
func Recovery() types.Middleware {
	return func(next types.HandlerFunc) types.HandlerFunc {
		return func(ctx types.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					ctx.Deps.Logger.Error("Handler panic",
						zap.String("command", ctx.Message.Command()),
						zap.Any("panic", r),
						zap.ByteString("stack", debug.Stack()))
					err = fmt.Errorf("handler panic: %v", r)
				}
			}()
			return next(ctx)
		}
	}
}

// AdminOnly пропускает команду только от администраторов
func AdminOnly() types.Middleware {
	return func(next types.HandlerFunc) types.HandlerFunc {
		return func(ctx types.Context) error {
			if !ctx.Deps.Config.IsAdmin(ctx.Message.From.ID) {
				ctx.Deps.Logger.Warn("Admin command from non-admin",
					zap.String("command", ctx.Message.Command()),
					zap.Int64("user_id", ctx.Message.From.ID))
				return ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID,
					"Команда доступна только администраторам")
			}
			return next(ctx)
		}
	}
}
