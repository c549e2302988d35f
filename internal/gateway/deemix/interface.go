// Package deemix реализует интерфейсы загрузки треков.
package deemix

import (
	"context"

	"trackcourier/internal/model"
)

// Interface определяет интерфейс клиента загрузки треков
type Interface interface {
	// Configured проверяет, настроен ли ARL токен
	Configured() bool

	// SetARL сохраняет ARL токен в конфигурацию deemix
	SetARL(token string) error

	// Fetch скачивает трек и возвращает дескриптор файла
	Fetch(ctx context.Context, title, artist string) (*model.Asset, error)
}
