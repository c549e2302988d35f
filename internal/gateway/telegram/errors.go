// Package telegram содержит классификацию ошибок доставки.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Kind представляет класс ошибки доставки
type Kind int

const (
	// KindTimedOut — попытка не уложилась в лимит времени
	KindTimedOut Kind = iota
	// KindTooLarge — файл превышает лимит Telegram, повтор бессмысленен
	KindTooLarge
	// KindDestinationInvalid — канал не найден или нет прав, повтор бессмысленен
	KindDestinationInvalid
	// KindRateLimited — превышен лимит запросов
	KindRateLimited
	// KindUnknown — прочие временные ошибки
	KindUnknown
)

// String возвращает имя класса ошибки
func (k Kind) String() string {
	switch k {
	case KindTimedOut:
		return "TimedOut"
	case KindTooLarge:
		return "TooLarge"
	case KindDestinationInvalid:
		return "DestinationInvalid"
	case KindRateLimited:
		return "RateLimited"
	default:
		return "Unknown"
	}
}

// DeliveryError представляет классифицированную ошибку доставки
type DeliveryError struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration // Подсказка сервера для KindRateLimited
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed (%s): %s", e.Kind, e.Message)
}

// Retryable сообщает, имеет ли смысл повторять попытку
func (e *DeliveryError) Retryable() bool {
	return e.Kind != KindTooLarge && e.Kind != KindDestinationInvalid
}

// classifyError определяет класс ошибки доставки.
// Bot API не дает формальной таксономии, поэтому классификация
// опирается на код ответа, RetryAfter и текст сообщения.
func classifyError(err error) *DeliveryError {
	msg := err.Error()
	lower := strings.ToLower(msg)

	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) {
		if tgErr.Code == 429 || tgErr.RetryAfter > 0 {
			return &DeliveryError{
				Kind:       KindRateLimited,
				Message:    msg,
				RetryAfter: time.Duration(tgErr.RetryAfter) * time.Second,
			}
		}
		if tgErr.Code == 413 {
			return &DeliveryError{Kind: KindTooLarge, Message: msg}
		}
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout(),
		strings.Contains(lower, "timeout"),
		strings.Contains(lower, "timed out"):
		return &DeliveryError{Kind: KindTimedOut, Message: msg}

	case strings.Contains(lower, "too many requests"),
		strings.Contains(lower, "retry after"):
		return &DeliveryError{Kind: KindRateLimited, Message: msg}

	case strings.Contains(lower, "request entity too large"),
		strings.Contains(lower, "file is too big"):
		return &DeliveryError{Kind: KindTooLarge, Message: msg}

	case strings.Contains(lower, "chat not found"),
		strings.Contains(lower, "channel_private"),
		strings.Contains(lower, "bot was kicked"),
		strings.Contains(lower, "not enough rights"),
		strings.Contains(lower, "have no rights"),
		strings.Contains(lower, "forbidden"):
		return &DeliveryError{Kind: KindDestinationInvalid, Message: msg}
	}

	return &DeliveryError{Kind: KindUnknown, Message: msg}
}
