// Package router содержит маршрутизацию команд бота.
package router

import (
	"sync"

	"trackcourier/internal/bot/types"

	"go.uber.org/zap"
)

// Router управляет маршрутами команд и middleware
type Router struct {
	routes      map[string]types.HandlerFunc
	middlewares []types.Middleware
	mu          sync.RWMutex
}

// NewRouter создает новый роутер
func NewRouter() *Router {
	return &Router{
		routes: make(map[string]types.HandlerFunc),
	}
}

// Use добавляет middleware, применяемый ко всем командам
func (r *Router) Use(middleware types.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if middleware == nil {
		return
	}

	r.middlewares = append(r.middlewares, middleware)
}

// Handle регистрирует обработчик команды
func (r *Router) Handle(command string, handler types.HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if command == "" || handler == nil {
		return
	}

	r.routes[command] = handler
}

// Dispatch передает команду ее обработчику через цепочку middleware
func (r *Router) Dispatch(ctx types.Context) error {
	command := ctx.Message.Command()

	r.mu.RLock()
	handler, ok := r.routes[command]
	middlewares := make([]types.Middleware, len(r.middlewares))
	copy(middlewares, r.middlewares)
	r.mu.RUnlock()

	if !ok {
		ctx.Deps.Logger.Warn("Unknown command",
			zap.String("command", command),
			zap.Int("update_id", ctx.UpdateID))
		return ctx.Deps.BotAPI.SendMessage(ctx.Message.Chat.ID,
			"Неизвестная команда. Используйте /help")
	}

	// Middleware применяются в порядке регистрации
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}

	return handler(ctx)
}
