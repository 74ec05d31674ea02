package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guidarr/guidarr/internal/models"
)

// fakeSourceRepo implements repository.EpgSourceRepository with a canned
// enabled-source list; only the methods the scheduler touches matter.
type fakeSourceRepo struct {
	mu      sync.Mutex
	enabled []*models.EpgSource
	err     error
}

func (f *fakeSourceRepo) GetEnabled(ctx context.Context) ([]*models.EpgSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled, f.err
}

func (f *fakeSourceRepo) Create(ctx context.Context, source *models.EpgSource) error { return nil }
func (f *fakeSourceRepo) GetByID(ctx context.Context, id models.ULID) (*models.EpgSource, error) {
	return nil, nil
}
func (f *fakeSourceRepo) GetAll(ctx context.Context) ([]*models.EpgSource, error) { return nil, nil }
func (f *fakeSourceRepo) Update(ctx context.Context, source *models.EpgSource) error {
	return nil
}
func (f *fakeSourceRepo) Delete(ctx context.Context, id models.ULID) error { return nil }
func (f *fakeSourceRepo) GetByName(ctx context.Context, name string) (*models.EpgSource, error) {
	return nil, nil
}
func (f *fakeSourceRepo) GetByURL(ctx context.Context, url string) (*models.EpgSource, error) {
	return nil, nil
}
func (f *fakeSourceRepo) UpdateStatus(ctx context.Context, id models.ULID, status models.EpgSourceStatus) error {
	return nil
}
func (f *fakeSourceRepo) UpdateLastRefresh(ctx context.Context, id models.ULID, channelCount, programCount int) error {
	return nil
}
func (f *fakeSourceRepo) UpdateRefreshFailure(ctx context.Context, id models.ULID, message string) error {
	return nil
}

// fakeRefresher records refresh triggers.
type fakeRefresher struct {
	mu      sync.Mutex
	calls   []refreshCall
	fired   chan struct{}
	firedMu sync.Once
}

type refreshCall struct {
	id    models.ULID
	force bool
}

func newFakeRefresher() *fakeRefresher {
	return &fakeRefresher{fired: make(chan struct{})}
}

func (f *fakeRefresher) Refresh(ctx context.Context, id models.ULID, force bool) error {
	f.mu.Lock()
	f.calls = append(f.calls, refreshCall{id: id, force: force})
	f.mu.Unlock()
	f.firedMu.Do(func() { close(f.fired) })
	return nil
}

func (f *fakeRefresher) callsFor(id models.ULID) []refreshCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []refreshCall
	for _, c := range f.calls {
		if c.id == id {
			out = append(out, c)
		}
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func configuredSource(name string) *models.EpgSource {
	s := &models.EpgSource{
		Name:        name,
		Type:        models.EpgSourceTypeURL,
		URL:         "http://example.com/epg.xml",
		Enabled:     true,
		AutoRefresh: true,
	}
	s.ID = models.NewULID()
	return s
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(&fakeSourceRepo{}, newFakeRefresher()).WithLogger(testLogger())

	require.NoError(t, s.Start(context.Background()))
	assert.Error(t, s.Start(context.Background()), "double start should fail")

	s.Stop()

	// Restart after stop is allowed.
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
}

func TestScheduler_TriggersConfiguredSources(t *testing.T) {
	src := configuredSource("one")
	repo := &fakeSourceRepo{enabled: []*models.EpgSource{src}}
	refresher := newFakeRefresher()

	s := New(repo, refresher).
		WithLogger(testLogger()).
		WithConfig(Config{SyncInterval: 10 * time.Millisecond})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	select {
	case <-refresher.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh was not triggered")
	}

	calls := refresher.callsFor(src.ID)
	require.NotEmpty(t, calls)
	assert.False(t, calls[0].force, "interval-based trigger must not force")
}

func TestScheduler_SkipsUnconfiguredAndDisabled(t *testing.T) {
	unconfigured := &models.EpgSource{Name: "none", Type: models.EpgSourceTypeNone, Enabled: true, AutoRefresh: true}
	unconfigured.ID = models.NewULID()

	noAuto := configuredSource("manual")
	noAuto.AutoRefresh = false

	repo := &fakeSourceRepo{enabled: []*models.EpgSource{unconfigured, noAuto}}
	refresher := newFakeRefresher()

	s := New(repo, refresher).
		WithLogger(testLogger()).
		WithConfig(Config{SyncInterval: 10 * time.Millisecond})

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	assert.Empty(t, refresher.callsFor(unconfigured.ID))
	assert.Empty(t, refresher.callsFor(noAuto.ID))
}

func TestScheduler_CronSourceForcesWhenDue(t *testing.T) {
	src := configuredSource("cron")
	// Every minute: always due within a one-minute sync window, so the
	// immediate sync on Start fires it.
	src.CronSchedule = "* * * * *"

	repo := &fakeSourceRepo{enabled: []*models.EpgSource{src}}
	refresher := newFakeRefresher()

	s := New(repo, refresher).
		WithLogger(testLogger()).
		WithConfig(Config{SyncInterval: time.Minute})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	select {
	case <-refresher.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("cron refresh was not triggered")
	}

	calls := refresher.callsFor(src.ID)
	require.NotEmpty(t, calls)
	assert.True(t, calls[0].force, "cron-based trigger must force")
}

func TestScheduler_InvalidCronSkipped(t *testing.T) {
	src := configuredSource("broken")
	src.CronSchedule = "not a cron"

	repo := &fakeSourceRepo{enabled: []*models.EpgSource{src}}
	refresher := newFakeRefresher()

	s := New(repo, refresher).
		WithLogger(testLogger()).
		WithConfig(Config{SyncInterval: 10 * time.Millisecond})

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)
	s.Stop()

	assert.Empty(t, refresher.callsFor(src.ID))
}

func TestScheduler_ValidateCron(t *testing.T) {
	s := New(&fakeSourceRepo{}, newFakeRefresher()).WithLogger(testLogger())

	assert.NoError(t, s.ValidateCron("0 */6 * * *"))
	assert.Error(t, s.ValidateCron("nope"))

	next, err := s.ParseCron("* * * * *")
	require.NoError(t, err)
	assert.True(t, next.After(time.Now().Add(-time.Minute)))
}
