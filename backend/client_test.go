package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fitdash/apperrors"
	"github.com/fitdash/timespan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRange = timespan.DateRange{StartDate: "2024-01-01", EndDate: "2024-01-31"}

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{Endpoint: srv.URL, Token: "secret", Retry: fastRetry()}, nil)
}

func decodeRequest(t *testing.T, r *http.Request) graphQLRequest {
	t.Helper()
	var req graphQLRequest
	require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
	return req
}

func TestFitnessAnalytics(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		req := decodeRequest(t, r)
		assert.Contains(t, req.Query, "fitnessAnalytics(input: $input)")
		input := req.Variables["input"].(map[string]any)
		assert.Equal(t, "2024-01-01", input["startDate"])
		assert.Equal(t, "2024-01-31", input["endDate"])

		w.Write([]byte(`{"data":{"fitnessAnalytics":{
			"workoutMuscles":[{"muscle":"chest","count":5}],
			"workoutExercises":[{"exercise":"Bench Press","count":5}],
			"hours":[{"hour":6,"count":2}]}}}`))
	})

	got, err := client.FitnessAnalytics(context.Background(), testRange)
	require.NoError(t, err)
	require.Len(t, got.WorkoutMuscles, 1)
	assert.Equal(t, "chest", got.WorkoutMuscles[0].Muscle)
	assert.Equal(t, 6, got.Hours[0].Hour)
}

func TestDailyUserActivitiesSendsDateRangeInput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		input := req.Variables["input"].(map[string]any)
		dateRange := input["dateRange"].(map[string]any)
		assert.Equal(t, "2024-01-01", dateRange["startDate"])

		w.Write([]byte(`{"data":{"dailyUserActivities":{
			"groupedBy":"DAY","totalCount":4,"totalDuration":120,
			"items":[{"day":"2024-01-02","workoutCount":4,"bookCount":0}]}}}`))
	})

	got, err := client.DailyUserActivities(context.Background(), testRange)
	require.NoError(t, err)
	assert.EqualValues(t, 4, got.TotalCount)
	assert.Equal(t, float64(4), got.Items[0].Fields["workoutCount"])
}

func TestUserPreferences(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		assert.Nil(t, req.Variables)
		w.Write([]byte(`{"data":{"userPreferences":{"featuresEnabled":{"fitness":{"enabled":true}}}}}`))
	})

	prefs, err := client.UserPreferences(context.Background())
	require.NoError(t, err)
	assert.True(t, prefs.FitnessEnabled())
}

func TestServerErrorsAreRetried(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"data":{"userPreferences":{"featuresEnabled":{"fitness":{"enabled":false}}}}}`))
	})

	_, err := client.UserPreferences(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestServerErrorsGiveUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.FitnessAnalytics(context.Background(), testRange)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeExternal, apperrors.TypeOf(err))
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.FitnessAnalytics(context.Background(), testRange)
	require.Error(t, err)
	var perm *permanentError
	assert.False(t, errors.As(err, &perm), "permanent wrapper is removed before returning")
	assert.Equal(t, apperrors.ErrorTypeExternal, apperrors.TypeOf(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestGraphQLErrorsAreSurfaced(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":null,"errors":[{"message":"NO_USER_ID"}]}`))
	})

	_, err := client.UserPreferences(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NO_USER_ID")
}

func TestRateLimitCarriesRetryAfter(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("slow down"))
	})

	_, err := client.FitnessAnalytics(context.Background(), testRange)
	require.Error(t, err)

	var rateLimited *RateLimitError
	require.True(t, errors.As(err, &rateLimited))
	assert.Equal(t, 30, rateLimited.RetryAfterSeconds)
	assert.Equal(t, "slow down", rateLimited.Message)
	assert.Equal(t, apperrors.ErrorTypeRateLimit, apperrors.TypeOf(err))
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, parseRetryAfter("", now))
	assert.Equal(t, 120, parseRetryAfter("120", now))
	assert.Equal(t, 90, parseRetryAfter(now.Add(90*time.Second).Format(http.TimeFormat), now))
	assert.Equal(t, 0, parseRetryAfter("soon", now))
}

func TestRetryStopsOnPermanent(t *testing.T) {
	calls := 0
	res := retry(context.Background(), fastRetry(), func() error {
		calls++
		return permanent(errors.New("bad request"))
	})
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, res.attempts)
	var perm *permanentError
	assert.True(t, errors.As(res.err, &perm))
}

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	calls := 0
	res := retry(context.Background(), fastRetry(), func() error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, res.err)
	assert.Equal(t, 2, res.attempts)
}

func TestRetryRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	res := retry(ctx, fastRetry(), func() error { calls++; return nil })
	assert.ErrorIs(t, res.err, context.Canceled)
	assert.Zero(t, calls)
}

func TestRetryWait(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 5, InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	for attempt, want := range map[int]time.Duration{1: 100 * time.Millisecond, 2: 200 * time.Millisecond, 3: 400 * time.Millisecond, 8: time.Second} {
		got := cfg.wait(attempt, errors.New("transient"))
		assert.GreaterOrEqual(t, got, want/2, "attempt %d", attempt)
		assert.LessOrEqual(t, got, want, "attempt %d", attempt)
	}

	limited := &RateLimitError{RetryAfterSeconds: 30}
	assert.Equal(t, time.Second, cfg.wait(1, limited), "Retry-After is capped")
	cfg.MaxDelay = time.Minute
	assert.Equal(t, 30*time.Second, cfg.wait(1, limited))
}
