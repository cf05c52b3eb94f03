package agent

import (
	"context"
	"time"
)

// Agent 流水线中的一个分析节点：读取共享状态，产出状态增量。
type Agent interface {
	Name() string
	Run(ctx context.Context, state *State) (Update, error)
}

// 默认重试参数，与各节点的容量失败特征匹配。
const (
	defaultRetryAttempts = 3
	defaultRetryWait     = 4 * time.Second
	patternGroundedWait  = 8 * time.Second
)

// Budget 配置驱动的轮次与重试预算。零值字段保留构造时的默认。
type Budget struct {
	MaxRounds int
	Attempts  int
	LLMWait   time.Duration
	ToolWait  time.Duration
}

// ApplyBudget 覆盖循环轮次与模型重试预算。
func (a *IndicatorAgent) ApplyBudget(b Budget) {
	if b.MaxRounds > 0 {
		a.MaxRounds = b.MaxRounds
	}
	if b.Attempts > 0 {
		a.LLMRetry.Attempts = b.Attempts
	}
	if b.LLMWait > 0 {
		a.LLMRetry.Wait = b.LLMWait
	}
}

// ApplyBudget 覆盖两阶段的全部预算：循环轮次、模型重试与工具级图像重试。
func (a *GroundedAgent) ApplyBudget(b Budget) {
	if b.MaxRounds > 0 {
		a.MaxRounds = b.MaxRounds
	}
	if b.Attempts > 0 {
		a.LLMRetry.Attempts = b.Attempts
		a.GroundedRetry.Attempts = b.Attempts
		if a.ToolRetry != nil {
			a.ToolRetry.Attempts = b.Attempts
		}
	}
	if b.LLMWait > 0 {
		a.LLMRetry.Wait = b.LLMWait
		a.GroundedRetry.Wait = b.LLMWait
	}
	if b.ToolWait > 0 && a.ToolRetry != nil {
		a.ToolRetry.Wait = b.ToolWait
	}
}

// ApplyBudget 覆盖单次合成调用的重试预算。
func (a *DecisionAgent) ApplyBudget(b Budget) {
	if b.Attempts > 0 {
		a.LLMRetry.Attempts = b.Attempts
	}
	if b.LLMWait > 0 {
		a.LLMRetry.Wait = b.LLMWait
	}
}
