package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"trackcourier/internal/config"
	"trackcourier/internal/gateway/deemix"
	"trackcourier/internal/gateway/telegram"
	"trackcourier/internal/ledger"
	"trackcourier/internal/model"

	"go.uber.org/zap"
)

// fakeLister возвращает фиксированный листинг плейлиста
type fakeLister struct {
	listing []model.Track
	err     error
}

func (f *fakeLister) ListTracks(ctx context.Context, playlistURL string) ([]model.Track, error) {
	return f.listing, f.err
}

// fakeAcquirer создает реальные файлы во временной директории,
// чтобы проверить их удаление после доставки
type fakeAcquirer struct {
	t          *testing.T
	baseDir    string
	configured bool
	errByTitle map[string]error
	fetched    []string
	assets     []*model.Asset
}

func (f *fakeAcquirer) Configured() bool {
	return f.configured
}

func (f *fakeAcquirer) Fetch(ctx context.Context, title, artist string) (*model.Asset, error) {
	f.fetched = append(f.fetched, title)

	if err, ok := f.errByTitle[title]; ok {
		return nil, err
	}

	dir := filepath.Join(f.baseDir, fmt.Sprintf("fetch-%d", len(f.fetched)))
	if err := os.MkdirAll(dir, 0755); err != nil {
		f.t.Fatalf("failed to create asset dir: %v", err)
	}
	path := filepath.Join(dir, "track.mp3")
	if err := os.WriteFile(path, []byte("audio"), 0644); err != nil {
		f.t.Fatalf("failed to write asset file: %v", err)
	}

	asset := &model.Asset{Path: path, Dir: dir, Size: 5}
	f.assets = append(f.assets, asset)
	return asset, nil
}

// fakeDeliverer доставляет в память и может падать по названию трека
type fakeDeliverer struct {
	errByTitle map[string]error
	delivered  []string
}

func (f *fakeDeliverer) Deliver(ctx context.Context, asset *model.Asset, title, artist, channel string) error {
	if err, ok := f.errByTitle[title]; ok {
		return err
	}
	f.delivered = append(f.delivered, title)
	return nil
}

// fakeNotifier записывает уведомления
type fakeNotifier struct {
	configIssues []string
	runFailures  []*RunSummary
}

func (f *fakeNotifier) NotifyConfigIssue(playlistName, reason string) {
	f.configIssues = append(f.configIssues, reason)
}

func (f *fakeNotifier) NotifyRunFailures(playlistName string, summary *RunSummary) {
	f.runFailures = append(f.runFailures, summary)
}

// fakePlaylistRepo реализует model.PlaylistRepository в памяти
type fakePlaylistRepo struct {
	playlists []model.Playlist
	checks    []string
}

func (r *fakePlaylistRepo) Create(playlist *model.Playlist) error { return nil }
func (r *fakePlaylistRepo) Delete(spotifyURL string) error        { return nil }
func (r *fakePlaylistRepo) GetAll() ([]model.Playlist, error)     { return r.playlists, nil }
func (r *fakePlaylistRepo) GetBySpotifyURL(spotifyURL string) (*model.Playlist, error) {
	return nil, nil
}
func (r *fakePlaylistRepo) SetChannel(spotifyURL, channelID string) error { return nil }
func (r *fakePlaylistRepo) UpdateCheck(spotifyURL string, trackCount int, checkedAt time.Time) error {
	r.checks = append(r.checks, spotifyURL)
	return nil
}

// fakeRecordRepo реализует model.TrackRecordRepository в памяти
type fakeRecordRepo struct {
	records  []model.TrackRecord
	upserted []*model.TrackRecord
}

func (r *fakeRecordRepo) GetAll() ([]model.TrackRecord, error) { return r.records, nil }
func (r *fakeRecordRepo) UpsertBatch(records []*model.TrackRecord) error {
	r.upserted = append(r.upserted, records...)
	return nil
}

type fixture struct {
	engine   *Engine
	lister   *fakeLister
	acquirer *fakeAcquirer
	delivery *fakeDeliverer
	notifier *fakeNotifier
	repo     *fakePlaylistRepo
	records  *fakeRecordRepo
	ledger   *ledger.Ledger
}

func newFixture(t *testing.T, listing []model.Track) *fixture {
	t.Helper()

	lister := &fakeLister{listing: listing}
	acquirer := &fakeAcquirer{
		t:          t,
		baseDir:    t.TempDir(),
		configured: true,
		errByTitle: map[string]error{},
	}
	delivery := &fakeDeliverer{errByTitle: map[string]error{}}
	notifier := &fakeNotifier{}
	repo := &fakePlaylistRepo{}
	records := &fakeRecordRepo{}

	trackLedger := ledger.New(records, zap.NewNop())

	e := New(lister, acquirer, delivery, trackLedger, repo, notifier, config.EngineConfig{}, zap.NewNop())
	e.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }

	return &fixture{
		engine:   e,
		lister:   lister,
		acquirer: acquirer,
		delivery: delivery,
		notifier: notifier,
		repo:     repo,
		records:  records,
		ledger:   trackLedger,
	}
}

func testPlaylist() *model.Playlist {
	return &model.Playlist{
		SpotifyURL: "https://open.spotify.com/playlist/abc123",
		SpotifyID:  "abc123",
		Name:       "Test Playlist",
		ChannelID:  "@channel",
	}
}

func listing(titles ...string) []model.Track {
	tracks := make([]model.Track, 0, len(titles))
	for i, title := range titles {
		tracks = append(tracks, model.Track{
			ID:      fmt.Sprintf("id-%d", i),
			Title:   title,
			Artists: []string{"Artist"},
		})
	}
	return tracks
}

func TestEngine_RunPlaylist_AllDelivered(t *testing.T) {
	f := newFixture(t, listing("One", "Two", "Three"))

	summary, err := f.engine.RunPlaylist(context.Background(), testPlaylist())
	if err != nil {
		t.Fatalf("RunPlaylist() error = %v", err)
	}

	if summary.Attempted != 3 || summary.Succeeded != 3 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want 3 attempted, 3 succeeded", summary)
	}
	if len(f.delivery.delivered) != 3 {
		t.Errorf("delivered = %v, want 3 tracks", f.delivery.delivered)
	}

	// Журнал сброшен, все треки доставлены
	total, delivered := f.ledger.BucketStats("abc123")
	if total != 3 || delivered != 3 {
		t.Errorf("BucketStats() = (%d, %d), want (3, 3)", total, delivered)
	}
	if len(f.records.upserted) != 3 {
		t.Errorf("persisted records = %d, want 3", len(f.records.upserted))
	}

	// Метаданные проверки обновлены
	if len(f.repo.checks) != 1 {
		t.Errorf("UpdateCheck calls = %d, want 1", len(f.repo.checks))
	}

	// Ни одного файла не осталось
	for _, asset := range f.acquirer.assets {
		if _, err := os.Stat(asset.Dir); !os.IsNotExist(err) {
			t.Errorf("asset dir %s still exists", asset.Dir)
		}
	}

	// Сбоев нет, уведомлений нет
	if len(f.notifier.runFailures) != 0 {
		t.Errorf("run failure notifications = %d, want 0", len(f.notifier.runFailures))
	}
}

func TestEngine_RunPlaylist_NewBeforePending(t *testing.T) {
	tracks := listing("Old Pending", "Brand New")
	f := newFixture(t, tracks)

	// id-0 уже известен журналу, но не доставлен
	f.records.records = []model.TrackRecord{
		{PlaylistID: "abc123", TrackID: "id-0", Title: "Old Pending", Delivered: false},
	}
	if err := f.ledger.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if _, err := f.engine.RunPlaylist(context.Background(), testPlaylist()); err != nil {
		t.Fatalf("RunPlaylist() error = %v", err)
	}

	// Новый трек обрабатывается раньше ожидающего
	want := []string{"Brand New", "Old Pending"}
	if len(f.acquirer.fetched) != 2 || f.acquirer.fetched[0] != want[0] || f.acquirer.fetched[1] != want[1] {
		t.Errorf("fetch order = %v, want %v", f.acquirer.fetched, want)
	}
}

func TestEngine_RunPlaylist_DeliveredSkipped(t *testing.T) {
	f := newFixture(t, listing("Already Done", "Fresh"))

	f.records.records = []model.TrackRecord{
		{PlaylistID: "abc123", TrackID: "id-0", Title: "Already Done", Delivered: true},
	}
	if err := f.ledger.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	summary, err := f.engine.RunPlaylist(context.Background(), testPlaylist())
	if err != nil {
		t.Fatalf("RunPlaylist() error = %v", err)
	}

	if summary.Attempted != 1 {
		t.Errorf("attempted = %d, want 1 (delivered track skipped)", summary.Attempted)
	}
	if len(f.acquirer.fetched) != 1 || f.acquirer.fetched[0] != "Fresh" {
		t.Errorf("fetched = %v, want [Fresh]", f.acquirer.fetched)
	}
}

func TestEngine_RunPlaylist_DeliveryFailure(t *testing.T) {
	f := newFixture(t, listing("Good", "Bad"))
	f.delivery.errByTitle["Bad"] = &telegram.DeliveryError{
		Kind:    telegram.KindRateLimited,
		Message: "too many requests",
	}

	summary, err := f.engine.RunPlaylist(context.Background(), testPlaylist())
	if err != nil {
		t.Fatalf("RunPlaylist() error = %v", err)
	}

	if summary.Succeeded != 1 || summary.Failed != 1 {
		t.Errorf("summary = %+v, want 1 succeeded, 1 failed", summary)
	}
	if len(summary.Failures) != 1 || summary.Failures[0].Reason != "RateLimited" {
		t.Errorf("failures = %+v, want one with reason RateLimited", summary.Failures)
	}

	// Недоставленный трек остается ожидающим
	total, delivered := f.ledger.BucketStats("abc123")
	if total != 2 || delivered != 1 {
		t.Errorf("BucketStats() = (%d, %d), want (2, 1)", total, delivered)
	}

	// Файл недоставленного трека тоже удален
	for _, asset := range f.acquirer.assets {
		if _, err := os.Stat(asset.Dir); !os.IsNotExist(err) {
			t.Errorf("asset dir %s still exists", asset.Dir)
		}
	}

	// Админы уведомлены об итоге прохода
	if len(f.notifier.runFailures) != 1 {
		t.Fatalf("run failure notifications = %d, want 1", len(f.notifier.runFailures))
	}
}

func TestEngine_RunPlaylist_AcquisitionFailureReasons(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason string
	}{
		{name: "таймаут загрузчика", err: deemix.ErrTimeout, reason: "Timeout"},
		{name: "трек не найден", err: deemix.ErrNotFound, reason: "NotFound"},
		{name: "ошибка процесса", err: &deemix.ProcessError{Code: 2}, reason: "ProcessFailed(2)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, listing("Track"))
			f.acquirer.errByTitle["Track"] = tt.err

			summary, err := f.engine.RunPlaylist(context.Background(), testPlaylist())
			if err != nil {
				t.Fatalf("RunPlaylist() error = %v", err)
			}

			if len(summary.Failures) != 1 || summary.Failures[0].Reason != tt.reason {
				t.Errorf("failures = %+v, want reason %s", summary.Failures, tt.reason)
			}
			if len(f.delivery.delivered) != 0 {
				t.Errorf("delivered = %v, want none", f.delivery.delivered)
			}
		})
	}
}

func TestEngine_RunPlaylist_NoChannel(t *testing.T) {
	f := newFixture(t, listing("One"))

	playlist := testPlaylist()
	playlist.ChannelID = ""

	_, err := f.engine.RunPlaylist(context.Background(), playlist)
	if !errors.Is(err, ErrNoChannelBound) {
		t.Fatalf("RunPlaylist() error = %v, want ErrNoChannelBound", err)
	}

	// Ровно одно уведомление, журнал не тронут
	if len(f.notifier.configIssues) != 1 {
		t.Errorf("config issue notifications = %d, want 1", len(f.notifier.configIssues))
	}
	if total, _ := f.ledger.BucketStats("abc123"); total != 0 {
		t.Errorf("ledger total = %d, want 0 (untouched)", total)
	}
	if len(f.acquirer.fetched) != 0 {
		t.Errorf("fetched = %v, want none", f.acquirer.fetched)
	}
}

func TestEngine_RunPlaylist_AcquirerNotConfigured(t *testing.T) {
	f := newFixture(t, listing("One"))
	f.acquirer.configured = false

	_, err := f.engine.RunPlaylist(context.Background(), testPlaylist())
	if !errors.Is(err, ErrAcquirerNotConfigured) {
		t.Fatalf("RunPlaylist() error = %v, want ErrAcquirerNotConfigured", err)
	}

	if len(f.notifier.configIssues) != 1 {
		t.Errorf("config issue notifications = %d, want 1", len(f.notifier.configIssues))
	}
	if total, _ := f.ledger.BucketStats("abc123"); total != 0 {
		t.Errorf("ledger total = %d, want 0 (untouched)", total)
	}
}

func TestEngine_RunPlaylist_EmptyListing(t *testing.T) {
	f := newFixture(t, nil)

	summary, err := f.engine.RunPlaylist(context.Background(), testPlaylist())
	if err != nil {
		t.Fatalf("RunPlaylist() error = %v", err)
	}
	if summary.Attempted != 0 {
		t.Errorf("attempted = %d, want 0", summary.Attempted)
	}
}

func TestEngine_RunPlaylist_ListingError(t *testing.T) {
	f := newFixture(t, nil)
	f.lister.err = errors.New("catalog unavailable")

	if _, err := f.engine.RunPlaylist(context.Background(), testPlaylist()); err == nil {
		t.Fatal("RunPlaylist() should propagate listing errors")
	}
	if len(f.acquirer.fetched) != 0 {
		t.Errorf("fetched = %v, want none", f.acquirer.fetched)
	}
}

func TestEngine_RunPlaylist_ConcurrentRunRejected(t *testing.T) {
	f := newFixture(t, listing("One"))

	started := make(chan struct{})
	release := make(chan struct{})
	f.lister.listing = nil
	f.lister.err = nil

	// Долгий листинг удерживает блокировку плейлиста
	slowLister := &blockingLister{started: started, release: release}
	f.engine.lister = slowLister

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = f.engine.RunPlaylist(context.Background(), testPlaylist())
	}()

	<-started
	_, err := f.engine.RunPlaylist(context.Background(), testPlaylist())
	if !errors.Is(err, ErrRunInProgress) {
		t.Errorf("concurrent RunPlaylist() error = %v, want ErrRunInProgress", err)
	}

	close(release)
	wg.Wait()
}

// blockingLister сигналит о старте и ждет освобождения
type blockingLister struct {
	started chan struct{}
	release chan struct{}
}

func (l *blockingLister) ListTracks(ctx context.Context, playlistURL string) ([]model.Track, error) {
	close(l.started)
	<-l.release
	return nil, nil
}

func TestEngine_RunAll(t *testing.T) {
	f := newFixture(t, listing("One"))
	f.repo.playlists = []model.Playlist{
		*testPlaylist(),
		{SpotifyURL: "https://open.spotify.com/playlist/def456", SpotifyID: "def456", Name: "Second", ChannelID: "@other"},
	}

	if err := f.engine.RunAll(context.Background()); err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}

	// Оба плейлиста проверены
	if len(f.repo.checks) != 2 {
		t.Errorf("UpdateCheck calls = %d, want 2", len(f.repo.checks))
	}
}

func TestEngine_RunAll_ContinuesAfterPlaylistError(t *testing.T) {
	f := newFixture(t, listing("One"))
	f.repo.playlists = []model.Playlist{
		// Первый плейлист без канала падает на предусловии
		{SpotifyURL: "https://open.spotify.com/playlist/broken", SpotifyID: "broken", Name: "Broken"},
		*testPlaylist(),
	}

	if err := f.engine.RunAll(context.Background()); err != nil {
		t.Fatalf("RunAll() error = %v", err)
	}

	// Второй плейлист обработан несмотря на сбой первого
	if len(f.repo.checks) != 1 || f.repo.checks[0] != testPlaylist().SpotifyURL {
		t.Errorf("checks = %v, want only the healthy playlist", f.repo.checks)
	}
}
