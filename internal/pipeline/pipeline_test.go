package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"klinesight/internal/agent"
	"klinesight/internal/decision"
	"klinesight/internal/llm"
	"klinesight/internal/market"
	"klinesight/internal/prompt"
	"klinesight/internal/store/decisionlog"
)

// stubAnalyst 固定产出一份报告的分析节点。
type stubAnalyst struct {
	name      string
	reportKey string
	report    string
	err       error
}

func (s *stubAnalyst) Name() string { return s.name }

func (s *stubAnalyst) Run(context.Context, *agent.State) (agent.Update, error) {
	var upd agent.Update
	if s.err != nil {
		return upd, s.err
	}
	upd.SetReport(s.reportKey, s.report)
	upd.Audit = agent.Audit{ModelID: "model-" + s.name, System: "system-" + s.name}
	return upd, nil
}

// stubModel 固定回复的聊天模型。
type stubModel struct {
	content string
	calls   int
}

func (m *stubModel) ID() string { return "stub" }

func (m *stubModel) Invoke(context.Context, llm.Request) (llm.Response, error) {
	m.calls++
	return llm.Response{Content: m.content}, nil
}

func testPipeline(t *testing.T, decisionRaw string) (*Pipeline, *stubModel) {
	t.Helper()
	prompts, err := prompt.NewRegistry("")
	require.NoError(t, err)
	model := &stubModel{content: decisionRaw}
	decider := agent.NewDecisionAgent(model, prompts)
	decider.LLMRetry = agent.Policy{Name: "decision", Attempts: 1}
	return &Pipeline{
		Indicator: &stubAnalyst{name: "indicator", reportKey: agent.ReportIndicator, report: "RSI 72，动量强劲"},
		Pattern:   &stubAnalyst{name: "pattern", reportKey: agent.ReportPattern, report: "上升三角形突破"},
		Trend:     &stubAnalyst{name: "trend", reportKey: agent.ReportTrend, report: "沿上升趋势线运行"},
		Decision:  decider,
	}, model
}

func pipelineKlines() market.Candles {
	out := make(market.Candles, 0, 30)
	for i := 0; i < 30; i++ {
		price := 100 + float64(i)
		out = append(out, market.Candle{
			OpenTime: int64(i) * 60_000,
			Open:     price, High: price + 2, Low: price - 2, Close: price + 1,
			Volume: 1000,
		})
	}
	return out
}

func TestPipelineProducesLongDecision(t *testing.T) {
	raw := `{"forecast_horizon":"4小时","decision":"LONG","justification":"三份报告共振看多","risk_reward_ratio":1.5}`
	p, model := testPipeline(t, raw)

	result, err := p.Run(context.Background(), "BTCUSDT", "15m", pipelineKlines())
	require.NoError(t, err)

	assert.NotEmpty(t, result.TraceID)
	assert.Equal(t, decision.DirectionLong, result.Decision.Decision)
	assert.Equal(t, "1.5", result.Decision.RiskRewardRatio.String())
	assert.Equal(t, raw, result.RawOutput)
	assert.Equal(t, 1, model.calls)
	// 汇合后的状态携带全部四份报告
	assert.Equal(t, "RSI 72，动量强劲", result.State.Report(agent.ReportIndicator))
	assert.Equal(t, "上升三角形突破", result.State.Report(agent.ReportPattern))
	assert.Equal(t, "沿上升趋势线运行", result.State.Report(agent.ReportTrend))
	assert.NotEmpty(t, result.State.Report(agent.ReportDecisionPrompt))
}

func TestPipelineProducesShortDecision(t *testing.T) {
	raw := `{"forecast_horizon":"1小时","decision":"SHORT","justification":"跌破关键支撑","risk_reward_ratio":"1.8"}`
	p, _ := testPipeline(t, raw)

	result, err := p.Run(context.Background(), "ETHUSDT", "5m", pipelineKlines())
	require.NoError(t, err)
	assert.Equal(t, decision.DirectionShort, result.Decision.Decision)
	assert.Equal(t, "1.8", result.Decision.RiskRewardRatio.String())
}

func TestPipelineAnalystFailureAborts(t *testing.T) {
	p, model := testPipeline(t, `{}`)
	p.Pattern = &stubAnalyst{name: "pattern", err: errors.New("图像生成失败")}

	_, err := p.Run(context.Background(), "BTCUSDT", "15m", pipelineKlines())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent pattern")
	assert.Contains(t, err.Error(), "图像生成失败")
	// 汇合点不得运行
	assert.Equal(t, 0, model.calls)
}

func TestPipelineDecisionParseFailureAborts(t *testing.T) {
	p, _ := testPipeline(t, "抱歉，我无法给出结构化决策。")

	_, err := p.Run(context.Background(), "BTCUSDT", "15m", pipelineKlines())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "决策解析失败")
}

func TestPipelineLogsAuditSteps(t *testing.T) {
	steps, err := decisionlog.New(filepath.Join(t.TempDir(), "steps.db"))
	require.NoError(t, err)
	defer steps.Close()

	raw := `{"forecast_horizon":"4小时","decision":"LONG","justification":"共振看多","risk_reward_ratio":1.5}`
	p, _ := testPipeline(t, raw)
	p.Steps = steps

	result, err := p.Run(context.Background(), "BTCUSDT", "15m", pipelineKlines())
	require.NoError(t, err)

	records, err := steps.Trace(context.Background(), result.TraceID)
	require.NoError(t, err)
	require.Len(t, records, 4)

	byStage := make(map[string]decisionlog.StepRecord, len(records))
	for _, rec := range records {
		byStage[rec.Stage] = rec
	}
	// 各阶段记录自己的模型与 system 提示词
	assert.Equal(t, "model-indicator", byStage["indicator"].ModelID)
	assert.Equal(t, "system-pattern", byStage["pattern"].System)
	assert.Equal(t, "RSI 72，动量强劲", byStage["indicator"].RawOutput)
	// 决策阶段：完整提示词 + 原始输出 + 校验通过的 JSON
	dec := byStage["decision"]
	assert.Equal(t, "stub", dec.ModelID)
	assert.Contains(t, dec.User, "BTCUSDT")
	assert.Equal(t, raw, dec.RawOutput)
	assert.Contains(t, dec.RawJSON, `"decision"`)
	assert.Empty(t, dec.Error)
}

func TestPipelineRejectsHoldDecision(t *testing.T) {
	raw := `{"forecast_horizon":"4小时","decision":"HOLD","justification":"观望","risk_reward_ratio":1.5}`
	p, _ := testPipeline(t, raw)

	_, err := p.Run(context.Background(), "BTCUSDT", "15m", pipelineKlines())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HOLD")
}
