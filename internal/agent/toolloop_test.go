package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"klinesight/internal/llm"
	"klinesight/internal/market"
	"klinesight/internal/tools"
)

// scriptModel 按脚本顺序回放响应，记录每次请求。
type scriptModel struct {
	id       string
	steps    []scriptStep
	requests []llm.Request
}

type scriptStep struct {
	resp llm.Response
	err  error
}

func (m *scriptModel) ID() string {
	if m.id == "" {
		return "script"
	}
	return m.id
}

func (m *scriptModel) Invoke(_ context.Context, req llm.Request) (llm.Response, error) {
	m.requests = append(m.requests, req)
	idx := len(m.requests) - 1
	if idx >= len(m.steps) {
		last := m.steps[len(m.steps)-1]
		return last.resp, last.err
	}
	return m.steps[idx].resp, m.steps[idx].err
}

func respondText(text string) scriptStep {
	return scriptStep{resp: llm.Response{Content: text}}
}

func respondToolCall(id, name string, args map[string]any) scriptStep {
	return scriptStep{resp: llm.Response{ToolCalls: []llm.ToolCall{{ID: id, Name: name, Args: args}}}}
}

// recordingTool 记录收到的参数并回放固定结果。
type recordingTool struct {
	name    string
	result  tools.Result
	err     error
	calls   int
	gotArgs []map[string]any
}

func (t *recordingTool) Name() string               { return t.name }
func (t *recordingTool) Description() string        { return "test tool" }
func (t *recordingTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (t *recordingTool) Invoke(_ context.Context, args map[string]any) (tools.Result, error) {
	t.calls++
	t.gotArgs = append(t.gotArgs, args)
	return t.result, t.err
}

func testKlines() market.Candles {
	out := make(market.Candles, 0, 40)
	for i := 0; i < 40; i++ {
		price := 100 + float64(i)
		out = append(out, market.Candle{
			OpenTime:  int64(i) * 60_000,
			CloseTime: int64(i+1) * 60_000,
			Open:      price,
			High:      price + 2,
			Low:       price - 2,
			Close:     price + 1,
			Volume:    1000,
		})
	}
	return out
}

func quickPolicy(name string) Policy {
	return Policy{Name: name, Attempts: 1, Sleep: noSleep(nil)}
}

func TestToolLoopFinalText(t *testing.T) {
	tool := &recordingTool{name: "noop", result: tools.Result{"ok": true}}
	model := &scriptModel{steps: []scriptStep{
		respondToolCall("call-1", "noop", nil),
		respondText("分析完成：动量偏多"),
	}}
	loop := &ToolLoop{
		Model:    model,
		Registry: tools.NewRegistry(tool),
		Stage:    "test",
		LLMRetry: quickPolicy("test"),
	}

	report, upd, err := loop.Run(context.Background(), testKlines(), []llm.Message{llm.HumanMessage("开始")})
	require.NoError(t, err)
	assert.Equal(t, "分析完成：动量偏多", report)
	assert.Equal(t, 1, tool.calls)
	assert.Len(t, model.requests, 2)
	// 转写顺序：assistant(tool_calls) → tool → assistant(text)
	require.Len(t, upd.Messages, 3)
	assert.True(t, upd.Messages[0].HasToolCalls())
	assert.Equal(t, llm.RoleTool, upd.Messages[1].Role)
	assert.Equal(t, "call-1", upd.Messages[1].ToolCallID)
	assert.Equal(t, llm.RoleAssistant, upd.Messages[2].Role)
}

func TestToolLoopRoundBudgetTerminates(t *testing.T) {
	tool := &recordingTool{name: "noop", result: tools.Result{"ok": true}}
	model := &scriptModel{steps: []scriptStep{
		respondToolCall("c", "noop", nil), // 模型永远要求工具
	}}
	loop := &ToolLoop{
		Model:    model,
		Registry: tools.NewRegistry(tool),
		Stage:    "test",
		LLMRetry: quickPolicy("test"),
	}

	report, _, err := loop.Run(context.Background(), testKlines(), nil)
	require.NoError(t, err)
	// 预算 5 轮：第 5 轮的挂起工具请求不再执行
	assert.Len(t, model.requests, 5)
	assert.Equal(t, 4, tool.calls)
	assert.NotEmpty(t, report)
}

func TestToolLoopFallbackScanUsesLastPlainText(t *testing.T) {
	tool := &recordingTool{name: "noop", result: tools.Result{"signal": "bullish"}}
	model := &scriptModel{steps: []scriptStep{
		respondToolCall("c1", "noop", nil),
		respondText("   "), // 最终响应空白
	}}
	loop := &ToolLoop{
		Model:    model,
		Registry: tools.NewRegistry(tool),
		Stage:    "test",
		LLMRetry: quickPolicy("test"),
	}

	report, _, err := loop.Run(context.Background(), testKlines(), nil)
	require.NoError(t, err)
	// 回退到最近一条无工具调用请求的非空消息（工具结果）
	assert.Contains(t, report, "bullish")
}

func TestToolLoopDefaultReport(t *testing.T) {
	model := &scriptModel{steps: []scriptStep{respondText("")}}
	loop := &ToolLoop{
		Model:         model,
		Registry:      tools.NewRegistry(),
		Stage:         "test",
		LLMRetry:      quickPolicy("test"),
		DefaultReport: "分析完成，但未生成详细报告。",
	}

	report, _, err := loop.Run(context.Background(), testKlines(), nil)
	require.NoError(t, err)
	assert.Equal(t, "分析完成，但未生成详细报告。", report)
}

func TestToolLoopInjectsAuthoritativeKlines(t *testing.T) {
	tool := &recordingTool{name: "noop", result: tools.Result{"ok": true}}
	model := &scriptModel{steps: []scriptStep{
		respondToolCall("c1", "noop", map[string]any{"kline_data": "幻觉数据", "period": 14}),
		respondText("done"),
	}}
	loop := &ToolLoop{
		Model:    model,
		Registry: tools.NewRegistry(tool),
		Stage:    "test",
		LLMRetry: quickPolicy("test"),
	}
	authoritative := testKlines()

	_, _, err := loop.Run(context.Background(), authoritative, nil)
	require.NoError(t, err)
	require.Len(t, tool.gotArgs, 1)
	got, ok := tool.gotArgs[0]["kline_data"].(market.Candles)
	require.True(t, ok, "kline_data 必须被权威数据覆盖")
	require.Len(t, got, len(authoritative))
	assert.Equal(t, authoritative[0], got[0])
	assert.Equal(t, 14, tool.gotArgs[0]["period"])

	// 工具侧修改不得泄漏回权威数据
	got[0].Close = -1
	assert.NotEqual(t, got[0].Close, authoritative[0].Close)
}

func TestToolLoopCapturesArtifact(t *testing.T) {
	tool := &recordingTool{name: "gen", result: tools.Result{"pattern_image": "aGVsbG8=", "filename": "k.png"}}
	model := &scriptModel{steps: []scriptStep{
		respondToolCall("c1", "gen", nil),
		respondText("已生成图像"),
	}}
	loop := &ToolLoop{
		Model:       model,
		Registry:    tools.NewRegistry(tool),
		Stage:       "test",
		LLMRetry:    quickPolicy("test"),
		CaptureKeys: []string{"pattern_image"},
	}

	_, upd, err := loop.Run(context.Background(), testKlines(), nil)
	require.NoError(t, err)
	assert.Equal(t, "aGVsbG8=", upd.Artifacts["pattern_image"])
	// 对话中只保留占位符，base64 不进入上下文
	assert.NotContains(t, upd.Messages[1].Content, "aGVsbG8=")
}

func TestToolLoopToolRetryExhaustedOnMissingKey(t *testing.T) {
	tool := &recordingTool{name: "gen", result: tools.Result{"filename": "k.png"}} // 永远缺图
	model := &scriptModel{steps: []scriptStep{respondToolCall("c1", "gen", nil)}}
	loop := &ToolLoop{
		Model:    model,
		Registry: tools.NewRegistry(tool),
		Stage:    "test",
		LLMRetry: quickPolicy("test"),
		ToolRetry: &ToolRetryPolicy{
			Attempts:    3,
			RequiredKey: "pattern_image",
			Sleep:       noSleep(nil),
		},
	}

	_, _, err := loop.Run(context.Background(), testKlines(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "多次重试后仍未生成图像")
	assert.Equal(t, 3, tool.calls)
}

func TestToolLoopUnknownToolReportedToModel(t *testing.T) {
	model := &scriptModel{steps: []scriptStep{
		respondToolCall("c1", "no_such_tool", nil),
		respondText("好的，改用其他方式分析"),
	}}
	loop := &ToolLoop{
		Model:    model,
		Registry: tools.NewRegistry(),
		Stage:    "test",
		LLMRetry: quickPolicy("test"),
	}

	report, upd, err := loop.Run(context.Background(), testKlines(), nil)
	require.NoError(t, err)
	assert.Equal(t, "好的，改用其他方式分析", report)
	require.Len(t, upd.Messages, 3)
	assert.Contains(t, upd.Messages[1].Content, fmt.Sprintf("%v", tools.ErrToolNotFound))
}
