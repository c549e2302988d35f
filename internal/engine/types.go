// Package engine содержит типы движка сверки плейлистов.
package engine

import (
	"context"
	"errors"

	"trackcourier/internal/model"
)

// ErrRunInProgress возвращается при попытке параллельной сверки одного плейлиста
var ErrRunInProgress = errors.New("playlist run is already in progress")

// ErrNoChannelBound возвращается, когда к плейлисту не привязан канал доставки
var ErrNoChannelBound = errors.New("no delivery channel bound to playlist")

// ErrAcquirerNotConfigured возвращается при отсутствии учетных данных загрузчика
var ErrAcquirerNotConfigured = errors.New("acquisition credentials are not configured")

// Lister определяет интерфейс получения листинга плейлиста из каталога
type Lister interface {
	ListTracks(ctx context.Context, playlistURL string) ([]model.Track, error)
}

// Acquirer определяет интерфейс загрузки аудио трека
type Acquirer interface {
	Configured() bool
	Fetch(ctx context.Context, title, artist string) (*model.Asset, error)
}

// Deliverer определяет интерфейс доставки аудио в канал
type Deliverer interface {
	Deliver(ctx context.Context, asset *model.Asset, title, artist, channel string) error
}

// Notifier определяет интерфейс уведомления администраторов.
// Движок передает структурированные данные, форматирование и
// усечение списков — забота получателя.
type Notifier interface {
	NotifyConfigIssue(playlistName, reason string)
	NotifyRunFailures(playlistName string, summary *RunSummary)
}

// TrackFailure представляет один недоставленный трек
type TrackFailure struct {
	Title  string
	Artist string
	Reason string
}

// RunSummary представляет результат одного прохода сверки плейлиста
type RunSummary struct {
	PlaylistName string
	Attempted    int
	Succeeded    int
	Failed       int
	Failures     []TrackFailure
}

// addFailure записывает недоставленный трек в итог прохода
func (s *RunSummary) addFailure(track model.Track, reason string) {
	s.Failed++
	s.Failures = append(s.Failures, TrackFailure{
		Title:  track.Title,
		Artist: track.ArtistLine(),
		Reason: reason,
	})
}
