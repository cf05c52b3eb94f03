package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"klinesight/internal/llm"
)

func noSleep(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		if waits != nil {
			*waits = append(*waits, d)
		}
		return nil
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	var waits []time.Duration
	calls := 0
	result, err := Do(context.Background(), Policy{
		Name:     "test",
		Attempts: 5,
		Wait:     time.Second,
		Sleep:    noSleep(&waits),
	}, func(context.Context) (string, error) {
		calls++
		if calls <= 2 {
			return "", fmt.Errorf("temporary failure #%d", calls)
		}
		return "ok", nil
	}, nil)

	assert.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
	// 失败 k 次恰好等待 k 次
	assert.Len(t, waits, 2)
}

func TestRetryRateLimitHonorsRetryAfter(t *testing.T) {
	var waits []time.Duration
	calls := 0
	_, err := Do(context.Background(), Policy{
		Name:     "test",
		Attempts: 2,
		Wait:     time.Second,
		Sleep:    noSleep(&waits),
	}, func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, &llm.RateLimitError{StatusCode: 429, RetryAfter: 7 * time.Second}
		}
		return 42, nil
	}, nil)

	assert.NoError(t, err)
	assert.Equal(t, []time.Duration{7 * time.Second}, waits)
}

func TestRetryExhaustion(t *testing.T) {
	var waits []time.Duration
	calls := 0
	_, err := Do(context.Background(), Policy{
		Name:     "test",
		Attempts: 3,
		Wait:     time.Second,
		Sleep:    noSleep(&waits),
	}, func(context.Context) (string, error) {
		calls++
		return "", errors.New("boom")
	}, nil)

	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 3, calls)
	// 最后一次失败不再等待
	assert.Len(t, waits, 2)
}

func TestRetryMissingArtifactIsRetried(t *testing.T) {
	var waits []time.Duration
	calls := 0
	result, err := Do(context.Background(), Policy{
		Name:     "test",
		Attempts: 3,
		Wait:     4 * time.Second,
		Sleep:    noSleep(&waits),
	}, func(context.Context) (map[string]string, error) {
		calls++
		if calls < 3 {
			return map[string]string{}, nil
		}
		return map[string]string{"image": "abc"}, nil
	}, func(r map[string]string) error {
		if r["image"] == "" {
			return errors.New("结果缺少图像")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "abc", result["image"])
	assert.Equal(t, 3, calls)
	assert.Len(t, waits, 2)
}

func TestRetryContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := Do(ctx, Policy{Name: "test", Attempts: 3}, func(context.Context) (string, error) {
		calls++
		return "", errors.New("never")
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}
