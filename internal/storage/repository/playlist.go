// Package repository содержит репозитории для работы с базой данных.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"trackcourier/internal/model"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// PlaylistRepository реализует интерфейс для работы с плейлистами
type PlaylistRepository struct {
	db     *bun.DB
	logger *zap.Logger
}

var _ model.PlaylistRepository = (*PlaylistRepository)(nil)

// NewPlaylistRepository создает новый репозиторий плейлистов
func NewPlaylistRepository(db *bun.DB, logger *zap.Logger) *PlaylistRepository {
	return &PlaylistRepository{
		db:     db,
		logger: logger,
	}
}

// Create создает новый плейлист
func (r *PlaylistRepository) Create(playlist *model.Playlist) error {
	ctx := context.Background()

	_, err := r.db.NewInsert().
		Model(playlist).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to create playlist: %w", err)
	}

	return nil
}

// Delete удаляет плейлист по URL
func (r *PlaylistRepository) Delete(spotifyURL string) error {
	ctx := context.Background()

	_, err := r.db.NewDelete().
		Model((*model.Playlist)(nil)).
		Where("spotify_url = ?", spotifyURL).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	return nil
}

// GetAll возвращает все плейлисты в порядке добавления
func (r *PlaylistRepository) GetAll() ([]model.Playlist, error) {
	ctx := context.Background()
	var playlists []model.Playlist

	err := r.db.NewSelect().
		Model(&playlists).
		Order("added_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get playlists: %w", err)
	}

	return playlists, nil
}

// GetBySpotifyURL возвращает плейлист по URL, nil если не найден
func (r *PlaylistRepository) GetBySpotifyURL(spotifyURL string) (*model.Playlist, error) {
	ctx := context.Background()
	playlist := new(model.Playlist)

	err := r.db.NewSelect().
		Model(playlist).
		Where("spotify_url = ?", spotifyURL).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get playlist: %w", err)
	}

	return playlist, nil
}

// SetChannel привязывает канал доставки к плейлисту
func (r *PlaylistRepository) SetChannel(spotifyURL, channelID string) error {
	ctx := context.Background()

	res, err := r.db.NewUpdate().
		Model((*model.Playlist)(nil)).
		Set("channel_id = ?", channelID).
		Where("spotify_url = ?", spotifyURL).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to set playlist channel: %w", err)
	}

	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("playlist not found: %s", spotifyURL)
	}

	return nil
}

// UpdateCheck обновляет метаданные последней проверки плейлиста
func (r *PlaylistRepository) UpdateCheck(spotifyURL string, trackCount int, checkedAt time.Time) error {
	ctx := context.Background()

	_, err := r.db.NewUpdate().
		Model((*model.Playlist)(nil)).
		Set("last_check = ?", checkedAt).
		Set("track_count = ?", trackCount).
		Where("spotify_url = ?", spotifyURL).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update playlist check: %w", err)
	}

	return nil
}
