package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"klinesight/internal/llm"
	"klinesight/internal/logger"
)

// 中文说明：
// 统一重试封装。区分三类失败：
//   1. 限流（HTTP 429/5xx）——按 Retry-After 或策略间隔等待后重试；
//   2. 一般异常——记录后按策略间隔重试；
//   3. 产物缺失——调用本身成功但 Check 判定结果不可用，同样消耗一次尝试。
// 每次失败后等待一次，最后一次失败不再等待。策略可注入，便于测试与按场景调参。

// ErrMaxRetries 重试耗尽时包裹在返回错误中。
var ErrMaxRetries = fmt.Errorf("超过最大重试次数")

// Policy 重试策略。
type Policy struct {
	Name     string
	Attempts int
	Wait     time.Duration

	// Sleep 为空时使用 context 感知的默认等待，测试可注入计数钩子。
	Sleep func(ctx context.Context, d time.Duration) error
}

func (p Policy) attempts() int {
	if p.Attempts <= 0 {
		return 1
	}
	return p.Attempts
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do 执行 op 直至成功或尝试耗尽。check 为 nil 时仅按 error 判定；
// check 返回非 nil 表示结果不可用（如图像缺失），按失败重试。
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error), check func(T) error) (T, error) {
	var zero T
	var lastErr error
	total := p.attempts()
	for attempt := 1; attempt <= total; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := op(ctx)
		if err == nil && check != nil {
			err = check(result)
		}
		if err == nil {
			return result, nil
		}
		lastErr = err
		if attempt == total {
			break
		}
		wait := p.Wait
		var rl *llm.RateLimitError
		if errors.As(err, &rl) {
			if rl.RetryAfter > 0 {
				wait = rl.RetryAfter
			}
			logger.Warnf("[%s] 触发限流，%d秒后重试 (attempt %d/%d)...", p.Name, int(wait.Seconds()), attempt, total)
		} else {
			logger.Warnf("[%s] 调用异常: %v，%d秒后重试 (attempt %d/%d)...", p.Name, err, int(wait.Seconds()), attempt, total)
		}
		if err := p.sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
	return zero, fmt.Errorf("[%s] %w: %v", p.Name, ErrMaxRetries, lastErr)
}
