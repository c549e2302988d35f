// Package spotify реализует интерфейсы для работы с Spotify Web API.
package spotify

import (
	"context"

	"trackcourier/internal/model"
)

// Interface определяет интерфейс для работы с Spotify API
type Interface interface {
	// ExtractPlaylistID извлекает ID плейлиста из URL
	ExtractPlaylistID(playlistURL string) (string, error)

	// ListTracks получает все треки плейлиста в порядке каталога
	ListTracks(ctx context.Context, playlistURL string) ([]model.Track, error)

	// GetPlaylistInfo получает информацию о плейлисте
	GetPlaylistInfo(ctx context.Context, playlistURL string) (*PlaylistInfo, error)
}
