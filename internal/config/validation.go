package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.AI.validate(); err != nil {
		return err
	}
	if err := c.Analysis.validate(); err != nil {
		return err
	}
	if c.Market.Name != "binance" {
		return fmt.Errorf("market.name 目前仅支持 binance，收到: %s", c.Market.Name)
	}
	return nil
}

func (a *AIConfig) validate() error {
	models := a.ModelCfgs()
	if len(models) == 0 {
		return fmt.Errorf("ai.models requires at least one model")
	}
	ids := make(map[string]struct{}, len(models))
	for _, m := range models {
		if strings.TrimSpace(m.Model) == "" {
			return fmt.Errorf("ai.models contains entry without model (id=%s)", m.ID)
		}
		if strings.TrimSpace(m.APIURL) == "" {
			return fmt.Errorf("ai.models.%s missing api_url", m.ID)
		}
		id := strings.TrimSpace(m.ID)
		if id == "" {
			id = strings.TrimSpace(m.Model)
		}
		if _, dup := ids[id]; dup {
			return fmt.Errorf("ai.models 存在重复 id: %s", id)
		}
		ids[id] = struct{}{}
	}
	for _, ref := range []struct {
		key string
		id  string
	}{
		{"ai.tool_model", a.ToolModel},
		{"ai.vision_model", a.VisionModel},
		{"ai.decision_model", a.DecisionModel},
	} {
		id := strings.TrimSpace(ref.id)
		if id == "" {
			return fmt.Errorf("%s 不能为空", ref.key)
		}
		if _, ok := ids[id]; !ok {
			return fmt.Errorf("%s 引用了未配置的模型 id: %s", ref.key, id)
		}
	}
	return nil
}

func (a *AnalysisConfig) validate() error {
	if a.KlineLimit > 1500 {
		return fmt.Errorf("analysis.kline_limit 不可超过 1500")
	}
	if a.IntervalSeconds < 0 {
		return fmt.Errorf("analysis.interval_seconds must be >= 0")
	}
	return nil
}
