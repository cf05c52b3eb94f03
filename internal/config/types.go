package config

import (
	"time"

	"klinesight/internal/llm"
)

// Config 是 KlineSight 的主配置载体。
type Config struct {
	App      AppConfig      `toml:"app"`
	Market   MarketConfig   `toml:"market"`
	Analysis AnalysisConfig `toml:"analysis"`
	AI       AIConfig       `toml:"ai"`
	Prompt   PromptConfig   `toml:"prompt"`
	Store    StoreConfig    `toml:"store"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
	LLMLog   string `toml:"llm_log_path"`
	LLMDump  bool   `toml:"llm_dump_payload"`
}

type MarketConfig struct {
	Name           string `toml:"name"`
	RESTBaseURL    string `toml:"rest_base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// AnalysisConfig 控制分析标的与节奏。
type AnalysisConfig struct {
	Symbol          string `toml:"symbol"`
	TimeFrame       string `toml:"time_frame"`
	KlineLimit      int    `toml:"kline_limit"`
	IntervalSeconds int    `toml:"interval_seconds"` // 0 表示只接受手动触发
}

// AIConfig 模型连接与各 agent 的模型分配。
type AIConfig struct {
	TimeoutSeconds int             `toml:"timeout_seconds"`
	ToolModel      string          `toml:"tool_model"`
	VisionModel    string          `toml:"vision_model"`
	DecisionModel  string          `toml:"decision_model"`
	Budget         AIBudgetConfig  `toml:"budget"`
	Models         []AIModelConfig `toml:"models"`
}

// AIBudgetConfig 各 agent 的轮次与重试预算。
type AIBudgetConfig struct {
	MaxToolRounds      int `toml:"max_tool_rounds"`      // 工具调用循环硬预算
	RetryAttempts      int `toml:"retry_attempts"`       // 模型/工具调用重试次数
	ToolWaitSeconds    int `toml:"tool_wait_seconds"`    // 图像工具缺产物重试间隔
	PatternWaitSeconds int `toml:"pattern_wait_seconds"` // 形态 agent 模型重试间隔
	TrendWaitSeconds   int `toml:"trend_wait_seconds"`   // 趋势 agent 模型重试间隔
}

// AIModelConfig 单个模型条目。
type AIModelConfig struct {
	ID          string            `toml:"id"`
	APIURL      string            `toml:"api_url"`
	APIKey      string            `toml:"api_key"`
	Model       string            `toml:"model"`
	Temperature float64           `toml:"temperature"`
	Headers     map[string]string `toml:"headers"`
	Enabled     *bool             `toml:"enabled"`
}

type PromptConfig struct {
	Path string `toml:"path"`
}

type StoreConfig struct {
	RunDBPath       string `toml:"run_db_path"`
	DecisionLogPath string `toml:"decision_log_path"`
}

// Timeout 返回模型调用超时时间。
func (a AIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// ModelCfgs 转换为 llm 层的模型配置（enabled 缺省视为启用）。
func (a AIConfig) ModelCfgs() []llm.ModelCfg {
	out := make([]llm.ModelCfg, 0, len(a.Models))
	for _, m := range a.Models {
		enabled := true
		if m.Enabled != nil {
			enabled = *m.Enabled
		}
		out = append(out, llm.ModelCfg{
			ID:          m.ID,
			APIURL:      m.APIURL,
			APIKey:      m.APIKey,
			Model:       m.Model,
			Temperature: m.Temperature,
			Headers:     m.Headers,
			Enabled:     enabled,
		})
	}
	return out
}
