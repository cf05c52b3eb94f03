package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"klinesight/internal/agent"
	"klinesight/internal/decision"
	"klinesight/internal/logger"
	"klinesight/internal/market"
	"klinesight/internal/store/decisionlog"
	"klinesight/internal/store/runstore"
)

// 中文说明：
// 分析流水线：指标/形态/趋势三个 agent 无数据依赖，errgroup 并行执行，
// 各自持有状态深拷贝，完成后按固定顺序合并增量（消息追加、报告写一次）。
// 决策合成是硬汇合点，必须看到三份报告后才运行。解析校验失败即整次失败，
// 不产出降级决策。

// Pipeline 将四个 agent 与持久化装配为一次可执行的分析。
type Pipeline struct {
	Indicator agent.Agent
	Pattern   agent.Agent
	Trend     agent.Agent
	Decision  agent.Agent

	Runs  *runstore.Store
	Steps *decisionlog.Store
}

// Result 一次流水线运行的产出。
type Result struct {
	TraceID   string
	State     *agent.State
	Decision  decision.TradeDecision
	RawOutput string
	Elapsed   time.Duration
}

// Run 对一组K线执行完整分析。
func (p *Pipeline) Run(ctx context.Context, symbol, timeFrame string, klines market.Candles) (Result, error) {
	start := time.Now()
	traceID := uuid.NewString()
	state := agent.NewState(symbol, timeFrame, klines)
	logger.Infof("[pipeline] trace=%s 开始分析 %s %s（%d 根K线）", traceID, symbol, timeFrame, len(klines))

	analysts := []agent.Agent{p.Indicator, p.Pattern, p.Trend}
	updates := make([]agent.Update, len(analysts))

	g, gctx := errgroup.WithContext(ctx)
	for i, a := range analysts {
		i, a := i, a
		g.Go(func() error {
			upd, err := a.Run(gctx, state.Clone())
			if err != nil {
				return fmt.Errorf("agent %s: %w", a.Name(), err)
			}
			updates[i] = upd
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{TraceID: traceID}, err
	}

	audits := make(map[string]agent.Audit, len(analysts)+1)
	for i, upd := range updates {
		if err := state.Apply(upd); err != nil {
			return Result{TraceID: traceID}, fmt.Errorf("agent %s 状态合并失败: %w", analysts[i].Name(), err)
		}
		audits[analysts[i].Name()] = upd.Audit
	}

	decisionUpd, err := p.Decision.Run(ctx, state)
	if err != nil {
		return Result{TraceID: traceID}, fmt.Errorf("agent %s: %w", p.Decision.Name(), err)
	}
	if err := state.Apply(decisionUpd); err != nil {
		return Result{TraceID: traceID}, fmt.Errorf("决策状态合并失败: %w", err)
	}
	audits[p.Decision.Name()] = decisionUpd.Audit

	raw := state.Report(agent.ReportDecision)
	parsed, err := decision.Parse(raw)
	if err != nil {
		p.logSteps(ctx, traceID, state, audits, parsed.RawJSON, err)
		return Result{TraceID: traceID}, fmt.Errorf("决策解析失败: %w", err)
	}

	result := Result{
		TraceID:   traceID,
		State:     state,
		Decision:  parsed.Decision,
		RawOutput: raw,
		Elapsed:   time.Since(start),
	}
	p.persist(ctx, result, parsed, audits)
	logger.Infof("[pipeline] trace=%s 完成: %s rr=%s 用时=%s",
		traceID, parsed.Decision.Decision, parsed.Decision.RiskRewardRatio.String(), result.Elapsed)
	return result, nil
}

// persist 持久化失败不影响本次分析结果，只记日志。
func (p *Pipeline) persist(ctx context.Context, result Result, parsed decision.ParseResult, audits map[string]agent.Audit) {
	if p.Runs != nil {
		run := runstore.Run{
			TraceID:         result.TraceID,
			Symbol:          result.State.Symbol,
			TimeFrame:       result.State.TimeFrame,
			IndicatorReport: result.State.Report(agent.ReportIndicator),
			PatternReport:   result.State.Report(agent.ReportPattern),
			TrendReport:     result.State.Report(agent.ReportTrend),
			DecisionRaw:     result.RawOutput,
			Decision:        parsed.Decision,
		}
		if err := p.Runs.Save(ctx, run); err != nil {
			logger.Warnf("[pipeline] trace=%s 运行记录保存失败: %v", result.TraceID, err)
		}
	}
	p.logSteps(ctx, result.TraceID, result.State, audits, parsed.RawJSON, nil)
}

func (p *Pipeline) logSteps(ctx context.Context, traceID string, state *agent.State, audits map[string]agent.Audit, rawJSON string, runErr error) {
	if p.Steps == nil {
		return
	}
	stages := []struct {
		name   string
		report string
	}{
		{"indicator", state.Report(agent.ReportIndicator)},
		{"pattern", state.Report(agent.ReportPattern)},
		{"trend", state.Report(agent.ReportTrend)},
		{"decision", state.Report(agent.ReportDecision)},
	}
	steps := make([]decisionlog.StepRecord, 0, len(stages))
	for _, stage := range stages {
		audit := audits[stage.name]
		steps = append(steps, decisionlog.StepRecord{
			Stage:      stage.name,
			ModelID:    audit.ModelID,
			System:     audit.System,
			User:       audit.User,
			RawOutput:  stage.report,
			ImageCount: audit.Images,
		})
	}
	steps[len(steps)-1].RawJSON = rawJSON
	if runErr != nil {
		steps[len(steps)-1].Error = runErr.Error()
	}
	for _, step := range steps {
		step.TraceID = traceID
		if err := p.Steps.Append(ctx, step); err != nil {
			logger.Warnf("[pipeline] trace=%s 阶段日志写入失败 stage=%s: %v", traceID, step.Stage, err)
		}
	}
}
