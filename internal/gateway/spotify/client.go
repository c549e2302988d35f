// Package spotify реализует клиент для работы с Spotify Web API.
package spotify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"trackcourier/internal/model"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

// Client представляет клиент для работы с Spotify API
type Client struct {
	api     *spotify.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

var _ Interface = (*Client)(nil)

// NewClient создает новый Spotify клиент с использованием Client Credentials Flow
func NewClient(clientID, clientSecret string, requestDelay time.Duration, logger *zap.Logger) (*Client, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("spotify client ID and secret are required")
	}

	// oauth2 сам обновляет токен по мере истечения
	authConfig := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	httpClient := authConfig.Client(context.Background())

	logger.Info("Spotify client created successfully with client credentials flow")

	return &Client{
		api:     spotify.New(httpClient),
		limiter: rate.NewLimiter(rate.Every(requestDelay), 1),
		logger:  logger,
	}, nil
}

// ExtractPlaylistID извлекает ID плейлиста из URL
func (c *Client) ExtractPlaylistID(playlistURL string) (string, error) {
	// Поддерживаем разные форматы URL:
	// https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M
	// spotify:playlist:37i9dQZF1DXcBWIGoYBM5M

	if strings.HasPrefix(playlistURL, "spotify:playlist:") {
		return strings.TrimPrefix(playlistURL, "spotify:playlist:"), nil
	}

	if strings.Contains(playlistURL, "open.spotify.com/playlist/") {
		parts := strings.Split(playlistURL, "/playlist/")
		if len(parts) != 2 {
			return "", fmt.Errorf("invalid playlist URL format")
		}
		// Убираем возможные параметры после ID
		playlistID := strings.Split(parts[1], "?")[0]
		playlistID = strings.TrimSuffix(playlistID, "/")
		if playlistID == "" {
			return "", fmt.Errorf("invalid playlist URL format")
		}
		return playlistID, nil
	}

	return "", fmt.Errorf("unsupported playlist URL format")
}

// ListTracks получает все треки плейлиста в порядке каталога.
// Пустой плейлист — валидный пустой результат, а не ошибка.
func (c *Client) ListTracks(ctx context.Context, playlistURL string) ([]model.Track, error) {
	playlistID, err := c.ExtractPlaylistID(playlistURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract playlist ID: %w", err)
	}

	tracks := make([]model.Track, 0)
	offset := 0
	limit := 100 // Максимальный размер страницы для Spotify API

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait cancelled: %w", err)
		}

		c.logger.Debug("Requesting playlist items page",
			zap.String("playlist_id", playlistID),
			zap.Int("offset", offset),
			zap.Int("limit", limit))

		page, err := c.api.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(limit), spotify.Offset(offset))
		if err != nil {
			return nil, fmt.Errorf("failed to get playlist tracks at offset %d: %w", offset, err)
		}

		for _, item := range page.Items {
			// Пропускаем эпизоды и удаленные треки
			if item.Track.Track == nil {
				continue
			}

			artists := make([]string, 0, len(item.Track.Track.Artists))
			for _, artist := range item.Track.Track.Artists {
				artists = append(artists, artist.Name)
			}

			tracks = append(tracks, model.Track{
				ID:      string(item.Track.Track.ID),
				Title:   item.Track.Track.Name,
				Artists: artists,
			})
		}

		if offset+len(page.Items) >= int(page.Total) || len(page.Items) == 0 {
			break
		}

		offset += len(page.Items)
	}

	c.logger.Info("Retrieved all tracks from playlist",
		zap.String("playlist_id", playlistID),
		zap.Int("total_tracks", len(tracks)))

	return tracks, nil
}

// GetPlaylistInfo получает информацию о плейлисте
func (c *Client) GetPlaylistInfo(ctx context.Context, playlistURL string) (*PlaylistInfo, error) {
	playlistID, err := c.ExtractPlaylistID(playlistURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract playlist ID: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait cancelled: %w", err)
	}

	playlist, err := c.api.GetPlaylist(ctx, spotify.ID(playlistID))
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist: %w", err)
	}

	return &PlaylistInfo{
		ID:          string(playlist.ID),
		Name:        playlist.Name,
		Description: playlist.Description,
		TotalTracks: int(playlist.Tracks.Total),
		Owner:       playlist.Owner.DisplayName,
	}, nil
}
