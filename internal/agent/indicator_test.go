package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"klinesight/internal/llm"
)

func TestIndicatorAgentSeedsConversation(t *testing.T) {
	model := &scriptModel{steps: []scriptStep{
		respondText("RSI 68，动量偏多但接近超买区"),
	}}
	a := NewIndicatorAgent(model, testPrompts(t))
	a.LLMRetry = quickPolicy("indicator")

	state := NewState("BTCUSDT", "15m", testKlines())
	upd, err := a.Run(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, "RSI 68，动量偏多但接近超买区", upd.Reports[ReportIndicator])
	require.Len(t, model.requests, 1)
	msgs := model.requests[0].Messages
	require.Len(t, msgs, 2)
	// system 提示词注入周期与权威K线数据
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "15m")
	assert.Contains(t, msgs[0].Content, "open_time")
	assert.Equal(t, indicatorSeedText, msgs[1].Content)
	// 全套指标工具随请求下发
	assert.NotEmpty(t, model.requests[0].Tools)

	assert.Equal(t, "script", upd.Audit.ModelID)
	assert.Contains(t, upd.Audit.System, "15m")
	assert.Equal(t, indicatorSeedText, upd.Audit.User)
}

func TestIndicatorAgentReusesExistingTranscript(t *testing.T) {
	model := &scriptModel{steps: []scriptStep{respondText("延续此前结论")}}
	a := NewIndicatorAgent(model, testPrompts(t))
	a.LLMRetry = quickPolicy("indicator")

	state := NewState("BTCUSDT", "15m", testKlines())
	state.Messages = append(state.Messages, llm.HumanMessage("请重点关注MACD背离"))

	_, err := a.Run(context.Background(), state)
	require.NoError(t, err)
	msgs := model.requests[0].Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, "请重点关注MACD背离", msgs[1].Content)
}

func TestIndicatorAgentRunsToolRound(t *testing.T) {
	model := &scriptModel{steps: []scriptStep{
		respondToolCall("c1", "compute_rsi", map[string]any{"period": 14}),
		respondText("RSI 为 100，严重超买"),
	}}
	a := NewIndicatorAgent(model, testPrompts(t))
	a.LLMRetry = quickPolicy("indicator")

	state := NewState("BTCUSDT", "15m", testKlines())
	upd, err := a.Run(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, "RSI 为 100，严重超买", upd.Reports[ReportIndicator])
	// 转写含工具往返：assistant(tool_calls) → tool → assistant(text)
	require.Len(t, upd.Messages, 3)
	assert.Equal(t, llm.RoleTool, upd.Messages[1].Role)
	assert.Contains(t, upd.Messages[1].Content, "rsi")
}
