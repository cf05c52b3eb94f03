package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
ai:
  tool_model: "gpt-tools"
  vision_model: "gpt-vision"
  decision_model: "gpt-tools"
  models:
    - id: "gpt-tools"
      api_url: "https://api.example.com/v1"
      api_key: "sk-test"
      model: "gpt-4.1"
    - id: "gpt-vision"
      api_url: "https://api.example.com/v1"
      api_key: "sk-test"
      model: "gpt-4.1"
      temperature: 0.2
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.App.Env)
	assert.Equal(t, ":9992", cfg.App.HTTPAddr)
	assert.Equal(t, "binance", cfg.Market.Name)
	assert.Equal(t, "BTCUSDT", cfg.Analysis.Symbol)
	assert.Equal(t, "15m", cfg.Analysis.TimeFrame)
	assert.Equal(t, 120, cfg.Analysis.KlineLimit)
	assert.Equal(t, 300*time.Second, cfg.AI.Timeout())
	assert.Equal(t, "data/db/analysis_runs.db", cfg.Store.RunDBPath)

	assert.Equal(t, 5, cfg.AI.Budget.MaxToolRounds)
	assert.Equal(t, 3, cfg.AI.Budget.RetryAttempts)
	assert.Equal(t, 4, cfg.AI.Budget.ToolWaitSeconds)
	assert.Equal(t, 8, cfg.AI.Budget.PatternWaitSeconds)
	assert.Equal(t, 4, cfg.AI.Budget.TrendWaitSeconds)
}

func TestLoadBudgetOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
  budget:
    max_tool_rounds: 8
    retry_attempts: 2
    tool_wait_seconds: 1
    pattern_wait_seconds: 16
    trend_wait_seconds: 6
`))
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.AI.Budget.MaxToolRounds)
	assert.Equal(t, 2, cfg.AI.Budget.RetryAttempts)
	assert.Equal(t, 1, cfg.AI.Budget.ToolWaitSeconds)
	assert.Equal(t, 16, cfg.AI.Budget.PatternWaitSeconds)
	assert.Equal(t, 6, cfg.AI.Budget.TrendWaitSeconds)
}

func TestLoadExplicitValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
app:
  env: "prod"
  log_level: "debug"
  http_addr: ":8080"
analysis:
  symbol: "ETHUSDT"
  time_frame: "5m"
  kline_limit: 200
  interval_seconds: 900
`))
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.App.Env)
	assert.Equal(t, ":8080", cfg.App.HTTPAddr)
	assert.Equal(t, "ETHUSDT", cfg.Analysis.Symbol)
	assert.Equal(t, 900, cfg.Analysis.IntervalSeconds)

	models := cfg.AI.ModelCfgs()
	require.Len(t, models, 2)
	assert.True(t, models[0].Enabled, "enabled 缺省视为启用")
	assert.Equal(t, 0.2, models[1].Temperature)
}

func TestLoadRejectsMissingModels(t *testing.T) {
	_, err := Load(writeConfig(t, `
ai:
  tool_model: "a"
  vision_model: "a"
  decision_model: "a"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one model")
}

func TestLoadRejectsUnknownModelReference(t *testing.T) {
	_, err := Load(writeConfig(t, `
ai:
  tool_model: "missing"
  vision_model: "gpt-vision"
  decision_model: "gpt-vision"
  models:
    - id: "gpt-vision"
      api_url: "https://api.example.com/v1"
      model: "gpt-4.1"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "未配置的模型 id")
}

func TestLoadRejectsDuplicateModelID(t *testing.T) {
	_, err := Load(writeConfig(t, `
ai:
  tool_model: "m"
  vision_model: "m"
  decision_model: "m"
  models:
    - id: "m"
      api_url: "https://api.example.com/v1"
      model: "gpt-4.1"
    - id: "m"
      api_url: "https://api.example.com/v1"
      model: "gpt-4.1-mini"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "重复 id")
}

func TestLoadRejectsOversizedKlineLimit(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
analysis:
  kline_limit: 2000
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kline_limit")
}

func TestLoadRejectsUnsupportedMarket(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
market:
  name: "okx"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "binance")
}
