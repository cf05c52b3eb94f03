package tools

import (
	"context"
	"errors"
	"fmt"

	"klinesight/internal/llm"
	"klinesight/internal/market"
)

// ErrToolNotFound 模型请求了未注册的工具名。不可重试。
var ErrToolNotFound = errors.New("未找到请求的工具")

// Invoke 统一执行一次模型发起的工具调用。
// kline_data 参数无条件以权威数据集的独立副本覆盖——不论模型传了什么，
// 工具永远不会拿到模型幻觉出的或过期的数据集，工具内部的修改也不会
// 泄漏回共享状态。网关本身不做重试，重试策略由调用方按需叠加。
func Invoke(ctx context.Context, reg *Registry, call llm.ToolCall, klines market.Candles) (Result, error) {
	if reg == nil {
		return nil, fmt.Errorf("%w: %s（注册表为空）", ErrToolNotFound, call.Name)
	}
	tool, ok := reg.Lookup(call.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, call.Name)
	}
	args := make(map[string]any, len(call.Args)+1)
	for k, v := range call.Args {
		args[k] = v
	}
	args["kline_data"] = klines.Clone()
	return tool.Invoke(ctx, args)
}
