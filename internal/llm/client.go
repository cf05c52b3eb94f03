package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ToolSchema 向模型公布的可调用工具描述（JSON Schema 参数）。
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request 一次对话补全请求：消息序列 + 可选绑定的工具集。
type Request struct {
	Messages []Message
	Tools    []ToolSchema
}

// Response 模型响应：自由文本，或一组工具调用请求（也可能两者皆有）。
type Response struct {
	Content   string
	ToolCalls []ToolCall
}

// ChatModel 推理后端的最小接口。实现方不做重试，
// 重试策略由上层按调用场景决定。
type ChatModel interface {
	ID() string
	Invoke(ctx context.Context, req Request) (Response, error)
}

// RateLimitError 后端限流/过载信号，重试层据此区分等待策略。
type RateLimitError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("rate limited (status=%d)", e.StatusCode)
	}
	return fmt.Sprintf("rate limited (status=%d): %s", e.StatusCode, e.Message)
}

// IsRateLimit 判断错误是否为限流类失败。
func IsRateLimit(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}
