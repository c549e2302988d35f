// Package model содержит модели данных.
package model

import (
	"time"

	"github.com/uptrace/bun"
)

// Playlist представляет зарегистрированный плейлист
type Playlist struct {
	bun.BaseModel `bun:"table:trackcourier.playlists"`

	ID         int        `bun:"id,pk,autoincrement" json:"id"`
	SpotifyURL string     `bun:"spotify_url,notnull,unique" json:"spotify_url"`
	SpotifyID  string     `bun:"spotify_id,notnull" json:"spotify_id"`
	Name       string     `bun:"name,notnull" json:"name"`
	ChannelID  string     `bun:"channel_id" json:"channel_id"`
	AddedBy    int64      `bun:"added_by,notnull" json:"added_by"`
	AddedAt    time.Time  `bun:"added_at,notnull,default:current_timestamp" json:"added_at"`
	LastCheck  *time.Time `bun:"last_check" json:"last_check"`
	TrackCount int        `bun:"track_count,notnull,default:0" json:"track_count"`
}

// HasChannel проверяет, привязан ли канал доставки
func (p *Playlist) HasChannel() bool {
	return p.ChannelID != ""
}

// PlaylistRepository определяет интерфейс для работы с плейлистами
type PlaylistRepository interface {
	Create(playlist *Playlist) error
	Delete(spotifyURL string) error
	GetAll() ([]Playlist, error)
	GetBySpotifyURL(spotifyURL string) (*Playlist, error)
	SetChannel(spotifyURL, channelID string) error
	UpdateCheck(spotifyURL string, trackCount int, checkedAt time.Time) error
}
