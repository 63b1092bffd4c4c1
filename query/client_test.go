package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fitdash/models"
	"github.com/fitdash/timespan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var january = timespan.DateRange{StartDate: "2024-01-01", EndDate: "2024-01-31"}

func TestKeyString(t *testing.T) {
	assert.Equal(t,
		`analytics.fitness{"input":{"startDate":"2024-01-01","endDate":"2024-01-31"}}`,
		FitnessAnalyticsKey(january).String())
	assert.Equal(t,
		`miscellaneous.dailyUserActivities{"startDate":"2024-01-01","endDate":"2024-01-31"}`,
		DailyUserActivitiesKey(january).String())
	assert.Equal(t, FitnessAnalyticsKey(january).String(), FitnessAnalyticsKey(january).String())
	assert.NotEqual(t,
		FitnessAnalyticsKey(january).String(),
		FitnessAnalyticsKey(timespan.DateRange{StartDate: "2024-01-01", EndDate: "2024-02-01"}).String())
}

func TestFetchInactiveIssuesNoRequest(t *testing.T) {
	c := NewClient(Options{})
	var calls int32

	res := Fetch(context.Background(), c, FitnessAnalyticsKey(january), Inactive,
		func(context.Context) (models.FitnessAnalytics, error) {
			atomic.AddInt32(&calls, 1)
			return models.FitnessAnalytics{}, nil
		})

	assert.Equal(t, Idle, res.Status)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestFetchCachesSuccess(t *testing.T) {
	c := NewClient(Options{})
	var calls int32
	fn := func(context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}

	first := Fetch(context.Background(), c, FitnessAnalyticsKey(january), Active, fn)
	second := Fetch(context.Background(), c, FitnessAnalyticsKey(january), Active, fn)

	require.Equal(t, Ready, first.Status)
	assert.Equal(t, 1, first.Data)
	assert.Equal(t, 1, second.Data)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestFetchDedupesConcurrentCalls(t *testing.T) {
	c := NewClient(Options{})
	key := DailyUserActivitiesKey(january)
	release := make(chan struct{})
	var calls int32

	fn := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "done", nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]Result[string], callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Fetch(context.Background(), c, key, Active, fn)
		}(i)
	}

	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.inflight[key.String()] == callers
	}, time.Second, time.Millisecond)

	assert.Equal(t, Loading, Peek[string](c, key).Status)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	for _, res := range results {
		assert.Equal(t, Ready, res.Status)
		assert.Equal(t, "done", res.Data)
	}
	assert.Equal(t, Ready, Peek[string](c, key).Status)
}

func TestFetchLeaderCancelDoesNotFailFollowers(t *testing.T) {
	c := NewClient(Options{})
	key := FitnessAnalyticsKey(january)
	release := make(chan struct{})
	var calls int32

	fn := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		select {
		case <-release:
			return "done", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	leaderCtx, cancel := context.WithCancel(context.Background())
	leader := make(chan Result[string], 1)
	go func() { leader <- Fetch(leaderCtx, c, key, Active, fn) }()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)

	follower := make(chan Result[string], 1)
	go func() { follower <- Fetch(context.Background(), c, key, Active, fn) }()
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.inflight[key.String()] == 2
	}, time.Second, time.Millisecond)

	cancel()
	res := <-leader
	assert.Equal(t, Error, res.Status)
	assert.ErrorIs(t, res.Err, context.Canceled)

	close(release)
	res = <-follower
	require.Equal(t, Ready, res.Status)
	assert.Equal(t, "done", res.Data)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.Equal(t, Ready, Peek[string](c, key).Status)
}

func TestFetchErrorIsExplicitAndNotCached(t *testing.T) {
	c := NewClient(Options{})
	key := FitnessAnalyticsKey(january)
	boom := errors.New("backend unavailable")

	res := Fetch(context.Background(), c, key, Active, func(context.Context) (int, error) {
		return 7, boom
	})
	assert.Equal(t, Error, res.Status)
	assert.ErrorIs(t, res.Err, boom)
	assert.Zero(t, res.Data)
	assert.Equal(t, Idle, Peek[int](c, key).Status)

	res = Fetch(context.Background(), c, key, Active, func(context.Context) (int, error) {
		return 7, nil
	})
	assert.Equal(t, Ready, res.Status)
	assert.Equal(t, 7, res.Data)
}

func TestFetchRefetchesAfterTTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewClient(Options{TTL: time.Hour})
	c.now = func() time.Time { return now }

	var calls int32
	fn := func(context.Context) (int32, error) { return atomic.AddInt32(&calls, 1), nil }
	key := FitnessAnalyticsKey(january)

	Fetch(context.Background(), c, key, Active, fn)
	now = now.Add(59 * time.Minute)
	assert.EqualValues(t, 1, Fetch(context.Background(), c, key, Active, fn).Data)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, Idle, Peek[int32](c, key).Status)
	assert.EqualValues(t, 2, Fetch(context.Background(), c, key, Active, fn).Data)
}

func TestPurgeExpired(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewClient(Options{})
	c.now = func() time.Time { return now }

	ok := func(context.Context) (int, error) { return 1, nil }
	Fetch(context.Background(), c, FitnessAnalyticsKey(january), Active, ok)
	now = now.Add(DefaultTTL / 2)
	Fetch(context.Background(), c, DailyUserActivitiesKey(january), Active, ok)

	now = now.Add(DefaultTTL / 2)
	assert.Equal(t, 1, c.PurgeExpired())
	assert.Len(t, c.entries, 1)
}

type memoryPersistence struct {
	mu     sync.Mutex
	values map[string][]byte
	ttls   map[string]time.Duration
}

func newMemoryPersistence() *memoryPersistence {
	return &memoryPersistence{values: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryPersistence) Load(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memoryPersistence) Save(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	m.ttls[key] = ttl
	return nil
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (r *countingRecorder) CacheResult(_, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string]int{}
	}
	r.outcomes[outcome]++
}

func TestFetchUsesPersistence(t *testing.T) {
	persistence := newMemoryPersistence()
	key := FitnessAnalyticsKey(january)
	payload := models.FitnessAnalytics{
		WorkoutMuscles: []models.WorkoutMuscle{{Muscle: "quadriceps", Count: 3}},
	}

	first := NewClient(Options{Persistence: persistence})
	res := Fetch(context.Background(), first, key, Active, func(context.Context) (models.FitnessAnalytics, error) {
		return payload, nil
	})
	require.Equal(t, Ready, res.Status)
	assert.Equal(t, DefaultTTL, persistence.ttls[key.String()])

	recorder := &countingRecorder{}
	second := NewClient(Options{Persistence: persistence, Recorder: recorder})
	res = Fetch(context.Background(), second, key, Active, func(context.Context) (models.FitnessAnalytics, error) {
		t.Fatal("persisted value should be used")
		return models.FitnessAnalytics{}, nil
	})
	require.Equal(t, Ready, res.Status)
	assert.Equal(t, payload, res.Data)
	assert.Equal(t, 1, recorder.outcomes["persisted"])

	Fetch(context.Background(), second, key, Active, func(context.Context) (models.FitnessAnalytics, error) {
		return models.FitnessAnalytics{}, nil
	})
	assert.Equal(t, 1, recorder.outcomes["hit"])
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "loading", Loading.String())
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "error", Error.String())
}
