// Package ledger содержит журнал доставки треков по плейлистам.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"trackcourier/internal/model"

	"go.uber.org/zap"
)

// Bucket представляет журнал одного плейлиста
type Bucket struct {
	PlaylistID string
	Tracks     map[string]*model.TrackRecord
	Total      int
	Delivered  int
}

// Ledger хранит журнал доставки в памяти и сбрасывает изменения
// в репозиторий явным вызовом Persist. Журнал — единственный источник
// гарантии доставки: падение между доставкой и Persist приводит к
// повторной отправке на следующем проходе, но никогда к потере трека.
type Ledger struct {
	buckets map[string]*Bucket
	dirty   map[string]*model.TrackRecord
	repo    model.TrackRecordRepository
	logger  *zap.Logger
	mu      sync.Mutex
}

// New создает новый журнал поверх репозитория
func New(repo model.TrackRecordRepository, logger *zap.Logger) *Ledger {
	return &Ledger{
		buckets: make(map[string]*Bucket),
		dirty:   make(map[string]*model.TrackRecord),
		repo:    repo,
		logger:  logger,
	}
}

// Load загружает журнал из репозитория при старте
func (l *Ledger) Load() error {
	records, err := l.repo.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load ledger: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.buckets = make(map[string]*Bucket)
	for i := range records {
		record := records[i]
		bucket := l.bucketLocked(record.PlaylistID)
		bucket.Tracks[record.TrackID] = &record
		bucket.Total++
		if record.Delivered {
			bucket.Delivered++
		}
	}

	l.logger.Info("Ledger loaded",
		zap.Int("playlists", len(l.buckets)),
		zap.Int("records", len(records)))
	return nil
}

// GetOrCreateBucket возвращает журнал плейлиста, создавая пустой при необходимости
func (l *Ledger) GetOrCreateBucket(playlistID string) *Bucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bucketLocked(playlistID)
}

func (l *Ledger) bucketLocked(playlistID string) *Bucket {
	bucket, ok := l.buckets[playlistID]
	if !ok {
		bucket = &Bucket{
			PlaylistID: playlistID,
			Tracks:     make(map[string]*model.TrackRecord),
		}
		l.buckets[playlistID] = bucket
	}
	return bucket
}

// Classify сравнивает листинг каталога с журналом плейлиста.
// Неизвестные треки становятся новыми (запись создается с delivered=false),
// известные недоставленные — ожидающими, доставленные пропускаются.
// Порядок листинга сохраняется в обоих списках.
func (l *Ledger) Classify(bucket *Bucket, listing []model.Track) (fresh, pending []model.Track) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, track := range listing {
		record, ok := bucket.Tracks[track.ID]
		if !ok {
			record = &model.TrackRecord{
				PlaylistID:  bucket.PlaylistID,
				TrackID:     track.ID,
				Title:       track.Title,
				Artists:     track.Artists,
				FirstSeenAt: time.Now(),
				Delivered:   false,
			}
			bucket.Tracks[track.ID] = record
			bucket.Total++
			l.dirty[dirtyKey(bucket.PlaylistID, track.ID)] = record
			fresh = append(fresh, track)
			continue
		}

		if !record.Delivered {
			pending = append(pending, track)
		}
	}

	return fresh, pending
}

// MarkDelivered помечает трек доставленным. Возвращает false для
// неизвестного трека — вызывающий не должен считать это фатальным.
func (l *Ledger) MarkDelivered(bucket *Bucket, trackID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := bucket.Tracks[trackID]
	if !ok {
		l.logger.Warn("MarkDelivered for unknown track",
			zap.String("playlist_id", bucket.PlaylistID),
			zap.String("track_id", trackID))
		return false
	}

	if record.Delivered {
		return true
	}

	record.Delivered = true
	bucket.Delivered++
	l.dirty[dirtyKey(bucket.PlaylistID, trackID)] = record
	return true
}

// Persist сбрасывает накопленные изменения в репозиторий одной транзакцией.
// При ошибке изменения остаются накопленными до следующего вызова.
func (l *Ledger) Persist() error {
	l.mu.Lock()
	records := make([]*model.TrackRecord, 0, len(l.dirty))
	for _, record := range l.dirty {
		records = append(records, record)
	}
	l.mu.Unlock()

	if len(records) == 0 {
		return nil
	}

	if err := l.repo.UpsertBatch(records); err != nil {
		return fmt.Errorf("failed to persist ledger: %w", err)
	}

	l.mu.Lock()
	for _, record := range records {
		delete(l.dirty, dirtyKey(record.PlaylistID, record.TrackID))
	}
	l.mu.Unlock()

	return nil
}

// Stats возвращает суммарные счетчики журнала по всем плейлистам
func (l *Ledger) Stats() (total, delivered int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, bucket := range l.buckets {
		total += bucket.Total
		delivered += bucket.Delivered
	}
	return total, delivered
}

// BucketStats возвращает счетчики журнала одного плейлиста
func (l *Ledger) BucketStats(playlistID string) (total, delivered int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[playlistID]
	if !ok {
		return 0, 0
	}
	return bucket.Total, bucket.Delivered
}

func dirtyKey(playlistID, trackID string) string {
	return playlistID + "\x00" + trackID
}
