package ledger

import (
	"errors"
	"testing"

	"trackcourier/internal/model"

	"go.uber.org/zap"
)

// fakeRepo хранит записи в памяти и может имитировать ошибки
type fakeRepo struct {
	records    []model.TrackRecord
	upserted   [][]*model.TrackRecord
	failUpsert bool
}

func (r *fakeRepo) GetAll() ([]model.TrackRecord, error) {
	return r.records, nil
}

func (r *fakeRepo) UpsertBatch(records []*model.TrackRecord) error {
	if r.failUpsert {
		return errors.New("database unavailable")
	}
	r.upserted = append(r.upserted, records)
	return nil
}

func track(id, title string) model.Track {
	return model.Track{ID: id, Title: title, Artists: []string{"Artist"}}
}

func TestLedger_Load(t *testing.T) {
	repo := &fakeRepo{
		records: []model.TrackRecord{
			{PlaylistID: "pl1", TrackID: "t1", Title: "One", Delivered: true},
			{PlaylistID: "pl1", TrackID: "t2", Title: "Two", Delivered: false},
			{PlaylistID: "pl2", TrackID: "t3", Title: "Three", Delivered: true},
		},
	}

	l := New(repo, zap.NewNop())
	if err := l.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	total, delivered := l.Stats()
	if total != 3 || delivered != 2 {
		t.Errorf("Stats() = (%d, %d), want (3, 2)", total, delivered)
	}

	total, delivered = l.BucketStats("pl1")
	if total != 2 || delivered != 1 {
		t.Errorf("BucketStats(pl1) = (%d, %d), want (2, 1)", total, delivered)
	}
}

func TestLedger_Classify(t *testing.T) {
	repo := &fakeRepo{
		records: []model.TrackRecord{
			{PlaylistID: "pl1", TrackID: "done", Title: "Done", Delivered: true},
			{PlaylistID: "pl1", TrackID: "pending", Title: "Pending", Delivered: false},
		},
	}

	l := New(repo, zap.NewNop())
	if err := l.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	bucket := l.GetOrCreateBucket("pl1")
	listing := []model.Track{
		track("done", "Done"),
		track("new1", "New One"),
		track("pending", "Pending"),
		track("new2", "New Two"),
	}

	fresh, pending := l.Classify(bucket, listing)

	if len(fresh) != 2 || fresh[0].ID != "new1" || fresh[1].ID != "new2" {
		t.Errorf("fresh = %v, want [new1 new2] in listing order", fresh)
	}
	if len(pending) != 1 || pending[0].ID != "pending" {
		t.Errorf("pending = %v, want [pending]", pending)
	}

	// Новые треки попали в журнал как недоставленные
	total, delivered := l.BucketStats("pl1")
	if total != 4 || delivered != 1 {
		t.Errorf("BucketStats() = (%d, %d), want (4, 1)", total, delivered)
	}
}

func TestLedger_Classify_Deterministic(t *testing.T) {
	// Одинаковое состояние журнала дает одинаковую классификацию
	listing := []model.Track{track("a", "A"), track("b", "B")}
	records := []model.TrackRecord{
		{PlaylistID: "pl1", TrackID: "a", Title: "A", Delivered: true},
	}

	first := New(&fakeRepo{records: records}, zap.NewNop())
	second := New(&fakeRepo{records: records}, zap.NewNop())
	if err := first.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := second.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	fresh1, pending1 := first.Classify(first.GetOrCreateBucket("pl1"), listing)
	fresh2, pending2 := second.Classify(second.GetOrCreateBucket("pl1"), listing)

	if len(fresh1) != len(fresh2) || len(pending1) != len(pending2) {
		t.Fatalf("classification differs: (%v, %v) vs (%v, %v)", fresh1, pending1, fresh2, pending2)
	}
	for i := range fresh1 {
		if fresh1[i].ID != fresh2[i].ID {
			t.Errorf("fresh[%d] = %s, want %s", i, fresh2[i].ID, fresh1[i].ID)
		}
	}
}

func TestLedger_MarkDelivered(t *testing.T) {
	l := New(&fakeRepo{}, zap.NewNop())
	bucket := l.GetOrCreateBucket("pl1")
	l.Classify(bucket, []model.Track{track("t1", "One")})

	if !l.MarkDelivered(bucket, "t1") {
		t.Error("MarkDelivered(t1) = false, want true")
	}
	if _, delivered := l.BucketStats("pl1"); delivered != 1 {
		t.Errorf("delivered = %d, want 1", delivered)
	}

	// Повторная отметка не меняет счетчик
	if !l.MarkDelivered(bucket, "t1") {
		t.Error("repeated MarkDelivered(t1) = false, want true")
	}
	if _, delivered := l.BucketStats("pl1"); delivered != 1 {
		t.Errorf("delivered after repeat = %d, want 1", delivered)
	}

	// Неизвестный трек не фатален
	if l.MarkDelivered(bucket, "ghost") {
		t.Error("MarkDelivered(ghost) = true, want false")
	}
}

func TestLedger_Persist(t *testing.T) {
	repo := &fakeRepo{}
	l := New(repo, zap.NewNop())

	bucket := l.GetOrCreateBucket("pl1")
	l.Classify(bucket, []model.Track{track("t1", "One"), track("t2", "Two")})
	l.MarkDelivered(bucket, "t1")

	if err := l.Persist(); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if len(repo.upserted) != 1 || len(repo.upserted[0]) != 2 {
		t.Fatalf("upserted batches = %v, want one batch of 2 records", repo.upserted)
	}

	// Повторный Persist без изменений ничего не пишет
	if err := l.Persist(); err != nil {
		t.Fatalf("second Persist() error = %v", err)
	}
	if len(repo.upserted) != 1 {
		t.Errorf("upserted batches after clean persist = %d, want 1", len(repo.upserted))
	}
}

func TestLedger_Persist_KeepsDirtyOnFailure(t *testing.T) {
	repo := &fakeRepo{failUpsert: true}
	l := New(repo, zap.NewNop())

	bucket := l.GetOrCreateBucket("pl1")
	l.Classify(bucket, []model.Track{track("t1", "One")})

	if err := l.Persist(); err == nil {
		t.Fatal("Persist() should fail when repository is unavailable")
	}

	// После восстановления изменения уходят следующим вызовом
	repo.failUpsert = false
	if err := l.Persist(); err != nil {
		t.Fatalf("Persist() after recovery error = %v", err)
	}
	if len(repo.upserted) != 1 || len(repo.upserted[0]) != 1 {
		t.Fatalf("upserted = %v, want one batch of 1 record", repo.upserted)
	}
	if repo.upserted[0][0].TrackID != "t1" {
		t.Errorf("persisted track = %s, want t1", repo.upserted[0][0].TrackID)
	}
}
