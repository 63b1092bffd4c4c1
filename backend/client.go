package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fitdash/apperrors"
	"github.com/fitdash/models"
	"github.com/fitdash/timespan"
)

const fitnessAnalyticsQuery = `query FitnessAnalytics($input: UserAnalyticsInput!) {
  fitnessAnalytics(input: $input) {
    workoutMuscles { muscle count }
    workoutExercises { exercise count }
    hours { hour count }
  }
}`

const dailyUserActivitiesQuery = `query DailyUserActivities($input: DailyUserActivitiesInput!) {
  dailyUserActivities(input: $input) {
    groupedBy
    totalCount
    totalDuration
    items {
      day
      totalCount
      totalDuration
      workoutCount
      measurementCount
      bookCount
      movieCount
      showCount
      videoGameCount
      audioBookCount
      podcastCount
      mangaCount
      animeCount
      visualNovelCount
    }
  }
}`

const userPreferencesQuery = `query UserPreferences {
  userPreferences {
    featuresEnabled { fitness { enabled } }
  }
}`

// Recorder observes backend calls
type Recorder interface {
	ObserveBackend(operation, outcome string, elapsed time.Duration)
}

// Config holds backend connection settings
type Config struct {
	Endpoint   string
	Token      string
	Timeout    time.Duration
	Retry      RetryConfig
	HTTPClient *http.Client
	Recorder   Recorder
}

// Client talks GraphQL over HTTP to the query service
type Client struct {
	endpoint string
	token    string
	timeout  time.Duration
	retry    RetryConfig
	http     *http.Client
	recorder Recorder
	logger   *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint: cfg.Endpoint,
		token:    cfg.Token,
		timeout:  timeout,
		retry:    retry,
		http:     httpClient,
		recorder: cfg.Recorder,
		logger:   logger,
	}
}

// RateLimitError is returned when the service answers 429
type RateLimitError struct {
	RetryAfterSeconds int    // Seconds until next request is allowed
	Message           string // Error message from the service
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("Rate limit exceeded: %s. Try again in %d seconds", e.Message, e.RetryAfterSeconds)
}

func (e *RateLimitError) RetryAfter() time.Duration {
	return time.Duration(e.RetryAfterSeconds) * time.Second
}

func (e *RateLimitError) Unwrap() error {
	return apperrors.NewRateLimitError(e.RetryAfterSeconds, e.Message)
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// FitnessAnalytics fetches workout aggregates for a date range
func (c *Client) FitnessAnalytics(ctx context.Context, dr timespan.DateRange) (models.FitnessAnalytics, error) {
	var out struct {
		FitnessAnalytics models.FitnessAnalytics `json:"fitnessAnalytics"`
	}
	vars := map[string]any{"input": dr}
	if err := c.query(ctx, "fitnessAnalytics", fitnessAnalyticsQuery, vars, &out); err != nil {
		return models.FitnessAnalytics{}, err
	}
	return out.FitnessAnalytics, nil
}

// DailyUserActivities fetches activity buckets for a date range
func (c *Client) DailyUserActivities(ctx context.Context, dr timespan.DateRange) (models.DailyUserActivities, error) {
	var out struct {
		DailyUserActivities models.DailyUserActivities `json:"dailyUserActivities"`
	}
	vars := map[string]any{"input": map[string]any{"dateRange": dr}}
	if err := c.query(ctx, "dailyUserActivities", dailyUserActivitiesQuery, vars, &out); err != nil {
		return models.DailyUserActivities{}, err
	}
	return out.DailyUserActivities, nil
}

// UserPreferences fetches the preferences of the token's user
func (c *Client) UserPreferences(ctx context.Context) (models.UserPreferences, error) {
	var out struct {
		UserPreferences models.UserPreferences `json:"userPreferences"`
	}
	if err := c.query(ctx, "userPreferences", userPreferencesQuery, nil, &out); err != nil {
		return models.UserPreferences{}, err
	}
	return out.UserPreferences, nil
}

func (c *Client) query(ctx context.Context, operation, query string, vars map[string]any, out any) error {
	start := time.Now()
	result := retry(ctx, c.retry, func() error {
		return c.post(ctx, operation, graphQLRequest{Query: query, Variables: vars}, out)
	})

	outcome := "ok"
	if result.err != nil {
		outcome = string(apperrors.TypeOf(result.err))
	}
	if c.recorder != nil {
		c.recorder.ObserveBackend(operation, outcome, time.Since(start))
	}

	if result.err != nil {
		c.logger.WarnContext(ctx, "Backend query failed",
			"operation", operation,
			"attempts", result.attempts,
			"duration", result.elapsed,
			"error", result.err)
		var perm *permanentError
		if errors.As(result.err, &perm) {
			return perm.err
		}
		return result.err
	}
	c.logger.DebugContext(ctx, "Backend query completed",
		"operation", operation,
		"attempts", result.attempts,
		"duration", result.elapsed)
	return nil
}

func (c *Client) post(ctx context.Context, operation string, body graphQLRequest, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return permanent(apperrors.NewInternalError(fmt.Errorf("failed to encode %s request: %w", operation, err)))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return permanent(apperrors.NewInternalError(fmt.Errorf("failed to create request for %s: %w", operation, err)))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return apperrors.NewTimeoutError(err, operation)
		}
		if errors.Is(err, context.Canceled) {
			return permanent(err)
		}
		return apperrors.NewExternalAPIError(fmt.Errorf("request for %s failed: %w", operation, err), "backend")
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewExternalAPIError(fmt.Errorf("failed to read response for %s: %w", operation, err), "backend")
	}
	c.logger.DebugContext(ctx, "Backend response",
		"operation", operation,
		"status", resp.StatusCode,
		"size", humanize.Bytes(uint64(len(bodyBytes))))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{
			RetryAfterSeconds: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
			Message:           strings.TrimSpace(string(bodyBytes)),
		}
	case resp.StatusCode >= 500:
		return apperrors.NewExternalAPIError(fmt.Errorf("%s returned status %d", operation, resp.StatusCode), "backend").
			WithContext("status", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return permanent(apperrors.NewExternalAPIError(fmt.Errorf("%s returned status %d", operation, resp.StatusCode), "backend").
			WithContext("status", resp.StatusCode))
	}

	var envelope graphQLResponse
	if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
		return permanent(apperrors.NewExternalAPIError(fmt.Errorf("failed to parse %s response JSON: %w", operation, err), "backend"))
	}
	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			messages = append(messages, e.Message)
		}
		return permanent(apperrors.NewExternalAPIError(errors.New(strings.Join(messages, "; ")), "backend").
			WithContext("operation", operation))
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return permanent(apperrors.NewExternalAPIError(fmt.Errorf("%s response has no data", operation), "backend"))
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return permanent(apperrors.NewExternalAPIError(fmt.Errorf("failed to parse %s data: %w", operation, err), "backend"))
	}
	return nil
}

// parseRetryAfter reads either delay-seconds or an HTTP date
func parseRetryAfter(value string, now time.Time) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return seconds
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return int(d.Round(time.Second) / time.Second)
		}
	}
	return 0
}
