package agent

import (
	"context"
	"fmt"

	"klinesight/internal/llm"
	"klinesight/internal/logger"
	"klinesight/internal/prompt"
)

// 中文说明：
// 决策合成 agent：单次调用，无工具。只读三份上游报告与标的上下文，
// 产出严格 JSON 的 LONG/SHORT 决策文本；解析与校验在下游 decision 包完成。
// 完整提示词一并写回状态，供审计回放。

// DecisionAgent 最终交易决策节点。
type DecisionAgent struct {
	Model   llm.ChatModel
	Prompts *prompt.Registry

	LLMRetry Policy
}

func NewDecisionAgent(model llm.ChatModel, prompts *prompt.Registry) *DecisionAgent {
	return &DecisionAgent{
		Model:    model,
		Prompts:  prompts,
		LLMRetry: Policy{Name: "decision", Attempts: defaultRetryAttempts, Wait: defaultRetryWait},
	}
}

func (a *DecisionAgent) Name() string { return "decision" }

func (a *DecisionAgent) Run(ctx context.Context, state *State) (Update, error) {
	var upd Update
	for _, key := range []string{ReportIndicator, ReportPattern, ReportTrend} {
		if state.Report(key) == "" {
			return upd, fmt.Errorf("决策合成缺少上游报告: %s", key)
		}
	}

	policyPrompt := a.Prompts.Render(prompt.KeyDecisionPolicy, map[string]string{
		"stock_name":       state.Symbol,
		"time_frame":       state.TimeFrame,
		"indicator_report": state.Report(ReportIndicator),
		"pattern_report":   state.Report(ReportPattern),
		"trend_report":     state.Report(ReportTrend),
	})

	logger.LogLLMRequest(a.Name(), "trade-decision", "", policyPrompt, nil)
	resp, err := Do(ctx, a.LLMRetry, func(ctx context.Context) (llm.Response, error) {
		return a.Model.Invoke(ctx, llm.Request{Messages: []llm.Message{llm.HumanMessage(policyPrompt)}})
	}, nil)
	if err != nil {
		return upd, err
	}
	logger.LogLLMResponse(a.Name(), "trade-decision", resp.Content)

	upd.AddMessage(llm.Message{Role: llm.RoleAssistant, Content: resp.Content})
	upd.SetReport(ReportDecision, resp.Content)
	upd.SetReport(ReportDecisionPrompt, policyPrompt)
	upd.Audit = Audit{ModelID: a.Model.ID(), User: policyPrompt}
	return upd, nil
}
