package config

import "strings"

// 默认值常量
const (
	defaultAppEnv            = "dev"
	defaultAppLogLevel       = "info"
	defaultAppHTTPAddr       = ":9992"
	defaultMarketName        = "binance"
	defaultAnalysisSymbol    = "BTCUSDT"
	defaultAnalysisTimeFrame = "15m"
	defaultAnalysisLimit     = 120
	defaultAITimeout         = 300
	defaultMaxToolRounds     = 5
	defaultRetryAttempts     = 3
	defaultToolWaitSecs      = 4
	defaultPatternWaitSecs   = 8
	defaultTrendWaitSecs     = 4
	defaultRunDBPath         = "data/db/analysis_runs.db"
	defaultDecisionLogPath   = "data/db/decision_steps.db"
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.App.Env) == "" {
		c.App.Env = defaultAppEnv
	}
	if strings.TrimSpace(c.App.LogLevel) == "" {
		c.App.LogLevel = defaultAppLogLevel
	}
	if strings.TrimSpace(c.App.HTTPAddr) == "" {
		c.App.HTTPAddr = defaultAppHTTPAddr
	}
	if strings.TrimSpace(c.Market.Name) == "" {
		c.Market.Name = defaultMarketName
	}
	if strings.TrimSpace(c.Analysis.Symbol) == "" {
		c.Analysis.Symbol = defaultAnalysisSymbol
	}
	if strings.TrimSpace(c.Analysis.TimeFrame) == "" {
		c.Analysis.TimeFrame = defaultAnalysisTimeFrame
	}
	if c.Analysis.KlineLimit <= 0 {
		c.Analysis.KlineLimit = defaultAnalysisLimit
	}
	if c.AI.TimeoutSeconds <= 0 {
		c.AI.TimeoutSeconds = defaultAITimeout
	}
	if c.AI.Budget.MaxToolRounds <= 0 {
		c.AI.Budget.MaxToolRounds = defaultMaxToolRounds
	}
	if c.AI.Budget.RetryAttempts <= 0 {
		c.AI.Budget.RetryAttempts = defaultRetryAttempts
	}
	if c.AI.Budget.ToolWaitSeconds <= 0 {
		c.AI.Budget.ToolWaitSeconds = defaultToolWaitSecs
	}
	if c.AI.Budget.PatternWaitSeconds <= 0 {
		c.AI.Budget.PatternWaitSeconds = defaultPatternWaitSecs
	}
	if c.AI.Budget.TrendWaitSeconds <= 0 {
		c.AI.Budget.TrendWaitSeconds = defaultTrendWaitSecs
	}
	if strings.TrimSpace(c.Store.RunDBPath) == "" {
		c.Store.RunDBPath = defaultRunDBPath
	}
	if strings.TrimSpace(c.Store.DecisionLogPath) == "" {
		c.Store.DecisionLogPath = defaultDecisionLogPath
	}
}
