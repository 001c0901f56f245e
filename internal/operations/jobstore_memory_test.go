package operations

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pqmeta/internal/exporter"
	"pqmeta/pkg/contracts/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func completedJob(id string, at time.Time) *Job {
	return &Job{
		ID:          id,
		Status:      domain.JobStatusCompleted,
		Files:       []string{id + ".parquet"},
		CreatedAt:   at,
		StartedAt:   at,
		CompletedAt: at,
		Document:    &exporter.Document{},
	}
}

func newStoreWithClock(ttl time.Duration, maxJobs int) (*MemoryJobStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryJobStore(ttl, maxJobs)
	store.now = clock.Now
	return store, clock
}

func TestMemoryJobStore_SaveGet(t *testing.T) {
	store, clock := newStoreWithClock(time.Hour, 0)
	job := completedJob("a", clock.Now())
	require.NoError(t, store.Save(job))

	got, err := store.Get("a")
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)

	// stored copies are isolated from the caller
	got.Files[0] = "mutated"
	job.Status = domain.JobStatusCancelled
	again, err := store.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a.parquet", again.Files[0])
	assert.Equal(t, domain.JobStatusCompleted, again.Status)

	_, err = store.Get("missing")
	assert.True(t, IsNotFound(err))
}

func TestMemoryJobStore_TTL(t *testing.T) {
	store, clock := newStoreWithClock(time.Hour, 0)
	require.NoError(t, store.Save(completedJob("old", clock.Now())))
	require.NoError(t, store.Save(&Job{ID: "running", Status: domain.JobStatusProcessing, CreatedAt: clock.Now()}))

	clock.Advance(2 * time.Hour)
	require.NoError(t, store.Save(completedJob("new", clock.Now())))

	_, err := store.Get("old")
	assert.True(t, IsNotFound(err), "expired jobs are invisible")
	_, err = store.Get("running")
	assert.NoError(t, err, "unfinished jobs never expire")

	assert.Equal(t, 1, store.CleanupExpired())
	assert.Equal(t, 2, store.Stats()["total_jobs"])
}

func TestMemoryJobStore_CapacityEvictsOldestFinished(t *testing.T) {
	store, clock := newStoreWithClock(0, 2)
	require.NoError(t, store.Save(completedJob("first", clock.Now())))
	clock.Advance(time.Minute)
	require.NoError(t, store.Save(completedJob("second", clock.Now())))
	clock.Advance(time.Minute)
	require.NoError(t, store.Save(completedJob("third", clock.Now())))

	_, err := store.Get("first")
	assert.True(t, IsNotFound(err))
	_, err = store.Get("third")
	assert.NoError(t, err)

	// updating an existing job never evicts
	require.NoError(t, store.Save(completedJob("third", clock.Now())))
	assert.Len(t, store.List(), 2)
}

func TestMemoryJobStore_Latest(t *testing.T) {
	store, clock := newStoreWithClock(time.Hour, 0)
	_, err := store.Latest()
	assert.ErrorIs(t, err, ErrJobNotFound)

	require.NoError(t, store.Save(completedJob("a", clock.Now())))
	clock.Advance(time.Minute)
	require.NoError(t, store.Save(completedJob("b", clock.Now())))
	clock.Advance(time.Minute)
	require.NoError(t, store.Save(&Job{ID: "c", Status: domain.JobStatusCancelled, CompletedAt: clock.Now()}))

	latest, err := store.Latest()
	require.NoError(t, err)
	assert.Equal(t, "b", latest.ID)
}

func TestMemoryJobStore_ListDeleteStats(t *testing.T) {
	store, clock := newStoreWithClock(time.Hour, 0)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Save(completedJob(fmt.Sprintf("job-%d", i), clock.Now())))
		clock.Advance(time.Second)
	}

	list := store.List()
	require.Len(t, list, 3)
	assert.Equal(t, "job-2", list[0].ID, "newest first")

	require.NoError(t, store.Delete("job-1"))
	assert.True(t, IsNotFound(store.Delete("job-1")))

	stats := store.Stats()
	assert.Equal(t, 2, stats["total_jobs"])
	assert.Equal(t, 2, stats["completed"])
	assert.Equal(t, 0, stats["processing"])
}

func TestMemoryJobStore_Concurrent(t *testing.T) {
	store := NewMemoryJobStore(time.Hour, 50)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("job-%d", i)
			_ = store.Save(completedJob(id, time.Now()))
			_, _ = store.Get(id)
			_ = store.List()
		}(i)
	}
	wg.Wait()
	assert.Len(t, store.List(), 20)
}
