package app

import (
	"context"
	"fmt"
	"time"

	"klinesight/internal/agent"
	"klinesight/internal/config"
	"klinesight/internal/llm"
	"klinesight/internal/logger"
	"klinesight/internal/market"
	"klinesight/internal/pipeline"
	"klinesight/internal/prompt"
	"klinesight/internal/store/decisionlog"
	"klinesight/internal/store/runstore"
	apihttp "klinesight/internal/transport/http"
)

// AppBuilder 按配置逐层装配依赖。
type AppBuilder struct {
	cfg *config.Config
}

func NewAppBuilder(cfg *config.Config) *AppBuilder {
	return &AppBuilder{cfg: cfg}
}

func secs(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Build 装配完整应用：模型 → 提示词 → 存储 → 流水线 → HTTP。
func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	cfg := b.cfg

	models := llm.BuildModels(cfg.AI.ModelCfgs(), cfg.AI.Timeout())
	toolModel, err := llm.Pick(models, cfg.AI.ToolModel)
	if err != nil {
		return nil, fmt.Errorf("ai.tool_model: %w", err)
	}
	visionModel, err := llm.Pick(models, cfg.AI.VisionModel)
	if err != nil {
		return nil, fmt.Errorf("ai.vision_model: %w", err)
	}
	decisionModel, err := llm.Pick(models, cfg.AI.DecisionModel)
	if err != nil {
		return nil, fmt.Errorf("ai.decision_model: %w", err)
	}

	prompts, err := prompt.NewRegistry(cfg.Prompt.Path)
	if err != nil {
		return nil, fmt.Errorf("prompt registry: %w", err)
	}

	runs, err := runstore.New(cfg.Store.RunDBPath)
	if err != nil {
		return nil, fmt.Errorf("run store: %w", err)
	}
	steps, err := decisionlog.New(cfg.Store.DecisionLogPath)
	if err != nil {
		runs.Close()
		return nil, fmt.Errorf("decision log: %w", err)
	}

	source := market.NewBinanceSource(market.BinanceConfig{
		RESTBaseURL:    cfg.Market.RESTBaseURL,
		TimeoutSeconds: cfg.Market.TimeoutSeconds,
	})

	budget := cfg.AI.Budget
	indicator := agent.NewIndicatorAgent(toolModel, prompts)
	indicator.ApplyBudget(agent.Budget{
		MaxRounds: budget.MaxToolRounds,
		Attempts:  budget.RetryAttempts,
	})
	pattern := agent.NewPatternAgent(toolModel, visionModel, prompts)
	pattern.ApplyBudget(agent.Budget{
		MaxRounds: budget.MaxToolRounds,
		Attempts:  budget.RetryAttempts,
		LLMWait:   secs(budget.PatternWaitSeconds),
		ToolWait:  secs(budget.ToolWaitSeconds),
	})
	trend := agent.NewTrendAgent(toolModel, visionModel, prompts)
	trend.ApplyBudget(agent.Budget{
		MaxRounds: budget.MaxToolRounds,
		Attempts:  budget.RetryAttempts,
		LLMWait:   secs(budget.TrendWaitSeconds),
	})
	decider := agent.NewDecisionAgent(decisionModel, prompts)
	decider.ApplyBudget(agent.Budget{Attempts: budget.RetryAttempts})

	pipe := &pipeline.Pipeline{
		Indicator: indicator,
		Pattern:   pattern,
		Trend:     trend,
		Decision:  decider,
		Runs:      runs,
		Steps:     steps,
	}

	service := &AnalysisService{
		cfg:    cfg,
		source: source,
		pipe:   pipe,
		runs:   runs,
		steps:  steps,
	}

	server, err := apihttp.NewServer(apihttp.ServerConfig{
		Addr:     cfg.App.HTTPAddr,
		Analyzer: service,
		Runs:     runs,
		Steps:    steps,
	})
	if err != nil {
		service.Close()
		return nil, fmt.Errorf("http server: %w", err)
	}

	logger.Infof("装配完成：models=%d tool=%s vision=%s decision=%s http=%s",
		len(models), toolModel.ID(), visionModel.ID(), decisionModel.ID(), server.Addr())
	return &App{cfg: cfg, service: service, httpSrv: server}, nil
}
