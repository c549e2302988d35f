// Package model содержит модели данных.
package model

import (
	"time"

	"github.com/uptrace/bun"
)

// TrackRecord представляет запись о треке в журнале доставки.
// Записи только добавляются и никогда не удаляются, delivered
// переходит из false в true ровно один раз.
type TrackRecord struct {
	bun.BaseModel `bun:"table:trackcourier.track_records"`

	ID          int       `bun:"id,pk,autoincrement" json:"id"`
	PlaylistID  string    `bun:"playlist_id,notnull" json:"playlist_id"`
	TrackID     string    `bun:"track_id,notnull" json:"track_id"`
	Title       string    `bun:"title,notnull" json:"title"`
	Artists     []string  `bun:"artists,array" json:"artists"`
	FirstSeenAt time.Time `bun:"first_seen_at,notnull,default:current_timestamp" json:"first_seen_at"`
	Delivered   bool      `bun:"delivered,notnull,default:false" json:"delivered"`
}

// TrackRecordRepository определяет интерфейс для работы с журналом треков
type TrackRecordRepository interface {
	GetAll() ([]TrackRecord, error)
	UpsertBatch(records []*TrackRecord) error
}
