// Package repository содержит репозитории для работы с базой данных.
package repository

import (
	"context"
	"fmt"

	"trackcourier/internal/model"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// TrackRecordRepository реализует интерфейс для работы с журналом треков
type TrackRecordRepository struct {
	db     *bun.DB
	logger *zap.Logger
}

var _ model.TrackRecordRepository = (*TrackRecordRepository)(nil)

// NewTrackRecordRepository создает новый репозиторий журнала треков
func NewTrackRecordRepository(db *bun.DB, logger *zap.Logger) *TrackRecordRepository {
	return &TrackRecordRepository{
		db:     db,
		logger: logger,
	}
}

// GetAll возвращает все записи журнала
func (r *TrackRecordRepository) GetAll() ([]model.TrackRecord, error) {
	ctx := context.Background()
	var records []model.TrackRecord

	err := r.db.NewSelect().
		Model(&records).
		Order("first_seen_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get track records: %w", err)
	}

	return records, nil
}

// UpsertBatch записывает пакет изменений журнала одной транзакцией
func (r *TrackRecordRepository) UpsertBatch(records []*model.TrackRecord) error {
	if len(records) == 0 {
		return nil
	}

	ctx := context.Background()

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, record := range records {
			_, err := tx.NewInsert().
				Model(record).
				On("CONFLICT (playlist_id, track_id) DO UPDATE").
				Set("delivered = EXCLUDED.delivered").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to upsert track record %s/%s: %w",
					record.PlaylistID, record.TrackID, err)
			}
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("failed to persist track records: %w", err)
	}

	r.logger.Debug("Persisted track records", zap.Int("count", len(records)))
	return nil
}
