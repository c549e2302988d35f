// Package deemix содержит ошибки загрузки треков.
package deemix

import (
	"errors"
	"fmt"
)

// ErrTimeout возвращается при превышении лимита времени загрузки
var ErrTimeout = errors.New("download timed out")

// ErrNotFound возвращается, когда файл трека не удалось найти
// ни после загрузки, ни поиском по каталогам
var ErrNotFound = errors.New("track file not found")

// ErrNotConfigured возвращается при отсутствии ARL токена
var ErrNotConfigured = errors.New("deezer ARL is not configured")

// ProcessError представляет ненулевой код выхода deemix
type ProcessError struct {
	Code int
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("deemix exited with code %d", e.Code)
}
