package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"klinesight/internal/llm"
	"klinesight/internal/logger"
	"klinesight/internal/market"
	"klinesight/internal/tools"
)

// 中文说明：
// 工具调用循环：模型 ↔ 工具多轮交互，直到模型给出纯文本结论或轮次耗尽。
// 轮次耗尽时回退策略：倒序扫描对话，取最后一条无工具调用的非空文本；
// 仍无可用文本时返回 DefaultReport。图像类产物按 CaptureKeys 从工具结果
// 中截取，写入 Update.Artifacts，对话里只保留占位符，避免 base64 撑爆上下文。

const defaultMaxRounds = 5

const imagePlaceholder = "(图像已生成，base64 载荷另行保存)"

// ToolRetryPolicy 针对单次工具调用的重试：结果缺失 RequiredKey 视为失败。
type ToolRetryPolicy struct {
	Attempts    int
	Wait        time.Duration
	RequiredKey string

	Sleep func(ctx context.Context, d time.Duration) error
}

// ToolLoop 将模型与工具注册表装配成一个可执行的分析回合。
type ToolLoop struct {
	Model    llm.ChatModel
	Registry *tools.Registry
	Stage    string

	MaxRounds     int
	LLMRetry      Policy
	ToolRetry     *ToolRetryPolicy
	CaptureKeys   []string
	DefaultReport string
}

func (l *ToolLoop) maxRounds() int {
	if l.MaxRounds <= 0 {
		return defaultMaxRounds
	}
	return l.MaxRounds
}

// Run 从 seed 消息出发执行循环，返回报告文本与状态增量。
func (l *ToolLoop) Run(ctx context.Context, klines market.Candles, seed []llm.Message) (string, Update, error) {
	var upd Update
	transcript := append([]llm.Message(nil), seed...)
	schemas := l.Registry.Schemas()

	var final string
	for round := 1; round <= l.maxRounds(); round++ {
		resp, err := l.invokeModel(ctx, transcript, schemas)
		if err != nil {
			return "", upd, err
		}
		assistant := llm.Message{Role: llm.RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls}
		transcript = append(transcript, assistant)
		upd.AddMessage(assistant)

		if !assistant.HasToolCalls() {
			final = resp.Content
			break
		}
		if round == l.maxRounds() {
			// 轮次耗尽：不再执行挂起的工具请求，以最后一次响应为准
			logger.Warnf("[%s] 工具调用轮次耗尽（%d 轮），以最后响应收尾", l.Stage, l.maxRounds())
			final = resp.Content
			break
		}

		for _, call := range resp.ToolCalls {
			toolMsg, err := l.executeCall(ctx, call, klines, &upd)
			if err != nil {
				return "", upd, err
			}
			transcript = append(transcript, toolMsg)
			upd.AddMessage(toolMsg)
		}
	}

	if text := strings.TrimSpace(final); text != "" {
		return text, upd, nil
	}
	if text := lastPlainText(transcript); text != "" {
		return text, upd, nil
	}
	return l.DefaultReport, upd, nil
}

func (l *ToolLoop) invokeModel(ctx context.Context, messages []llm.Message, schemas []llm.ToolSchema) (llm.Response, error) {
	req := llm.Request{Messages: messages, Tools: schemas}
	policy := l.LLMRetry
	if policy.Name == "" {
		policy.Name = l.Stage
	}
	return Do(ctx, policy, func(ctx context.Context) (llm.Response, error) {
		return l.Model.Invoke(ctx, req)
	}, nil)
}

func (l *ToolLoop) executeCall(ctx context.Context, call llm.ToolCall, klines market.Candles, upd *Update) (llm.Message, error) {
	logger.Debugf("[%s] 执行工具 %s", l.Stage, call.Name)
	var result tools.Result
	var err error
	if l.ToolRetry != nil {
		policy := Policy{Name: l.Stage + "/" + call.Name, Attempts: l.ToolRetry.Attempts, Wait: l.ToolRetry.Wait, Sleep: l.ToolRetry.Sleep}
		required := l.ToolRetry.RequiredKey
		result, err = Do(ctx, policy, func(ctx context.Context) (tools.Result, error) {
			return tools.Invoke(ctx, l.Registry, call, klines)
		}, func(r tools.Result) error {
			if required == "" {
				return nil
			}
			if payload, _ := r[required].(string); strings.TrimSpace(payload) == "" {
				return fmt.Errorf("工具结果缺少 %s", required)
			}
			return nil
		})
		if err != nil {
			return llm.Message{}, fmt.Errorf("[%s] 多次重试后仍未生成图像: %w", l.Stage, err)
		}
	} else {
		result, err = tools.Invoke(ctx, l.Registry, call, klines)
		if err != nil {
			// 工具失败作为结果回传，让模型自行修正
			logger.Warnf("[%s] 工具 %s 执行失败: %v", l.Stage, call.Name, err)
			return llm.ToolResultMessage(call.ID, fmt.Sprintf("工具执行失败: %v", err)), nil
		}
	}

	content := l.renderResult(call, result, upd)
	logger.LogLLMToolCall(l.Stage, call.Name, call.RawArgs, content)
	return llm.ToolResultMessage(call.ID, content), nil
}

// renderResult 序列化工具结果。命中 CaptureKeys 的 base64 载荷转存为产物，
// 对话内容中以占位符替代。
func (l *ToolLoop) renderResult(call llm.ToolCall, result tools.Result, upd *Update) string {
	trimmed := make(map[string]any, len(result))
	for k, v := range result {
		trimmed[k] = v
	}
	for _, key := range l.CaptureKeys {
		payload, ok := result[key].(string)
		if !ok || payload == "" {
			continue
		}
		upd.SetArtifact(key, payload)
		trimmed[key] = imagePlaceholder
	}
	raw, err := json.Marshal(trimmed)
	if err != nil {
		return fmt.Sprintf("%v", trimmed)
	}
	return string(raw)
}

// lastPlainText 倒序取最后一条无工具调用请求的非空文本消息。
func lastPlainText(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		msg := messages[i]
		if msg.HasToolCalls() {
			continue
		}
		if text := strings.TrimSpace(msg.Text()); text != "" {
			return text
		}
	}
	return ""
}
