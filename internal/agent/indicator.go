package agent

import (
	"context"

	"klinesight/internal/llm"
	"klinesight/internal/logger"
	"klinesight/internal/prompt"
	"klinesight/internal/tools"
)

// 中文说明：
// 指标分析 agent：纯工具调用循环，无图像阶段。
// 模型按需调用 MACD/RSI/ROC/Stochastic/Williams %R 工具，
// 循环收敛后产出 indicator_report。

const (
	indicatorSeedText      = "开始技术指标分析。"
	indicatorDefaultReport = "技术指标分析完成，但未生成详细报告。"
	indicatorEmptyReport   = "技术指标分析完成。"
)

// IndicatorAgent 技术指标分析节点。
type IndicatorAgent struct {
	Model    llm.ChatModel
	Prompts  *prompt.Registry
	Registry *tools.Registry

	MaxRounds int
	LLMRetry  Policy
}

// NewIndicatorAgent 绑定全套指标工具。
func NewIndicatorAgent(model llm.ChatModel, prompts *prompt.Registry) *IndicatorAgent {
	return &IndicatorAgent{
		Model:    model,
		Prompts:  prompts,
		Registry: tools.NewRegistry(tools.IndicatorTools()...),
		LLMRetry: Policy{Name: "indicator", Attempts: defaultRetryAttempts, Wait: defaultRetryWait},
	}
}

func (a *IndicatorAgent) Name() string { return "indicator" }

func (a *IndicatorAgent) Run(ctx context.Context, state *State) (Update, error) {
	system := a.Prompts.Render(prompt.KeyIndicatorSystem, map[string]string{
		"time_frame": state.TimeFrame,
		"kline_data": state.Klines.JSONDump(),
	})
	seed := []llm.Message{llm.SystemMessage(system)}
	if len(state.Messages) > 0 {
		seed = append(seed, state.Messages...)
	} else {
		seedHuman := a.Prompts.Text(prompt.KeyIndicatorSeed)
		if seedHuman == "" {
			seedHuman = indicatorSeedText
		}
		seed = append(seed, llm.HumanMessage(seedHuman))
	}
	logger.LogLLMRequest(a.Name(), "indicator-analysis", system, lastHumanText(seed), nil)

	loop := &ToolLoop{
		Model:         a.Model,
		Registry:      a.Registry,
		Stage:         a.Name(),
		MaxRounds:     a.MaxRounds,
		LLMRetry:      a.LLMRetry,
		DefaultReport: indicatorDefaultReport,
	}
	report, upd, err := loop.Run(ctx, state.Klines, seed)
	if err != nil {
		return upd, err
	}
	if report == "" {
		report = indicatorEmptyReport
	}
	logger.LogLLMResponse(a.Name(), "indicator-analysis", report)
	upd.SetReport(ReportIndicator, report)
	upd.Audit = Audit{ModelID: a.Model.ID(), System: system, User: lastHumanText(seed)}
	return upd, nil
}

func lastHumanText(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleHuman {
			return messages[i].Text()
		}
	}
	return ""
}
