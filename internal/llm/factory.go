package llm

import (
	"fmt"
	"strings"
	"time"

	"klinesight/internal/logger"
)

// ModelCfg 单个模型条目的连接配置。
type ModelCfg struct {
	ID          string
	APIURL      string
	APIKey      string
	Model       string
	Temperature float64
	Headers     map[string]string
	Enabled     bool
}

// BuildModels 按配置构建模型客户端，键为模型 ID。
func BuildModels(models []ModelCfg, timeout time.Duration) map[string]ChatModel {
	out := make(map[string]ChatModel, len(models))
	for _, m := range models {
		if !m.Enabled {
			continue
		}
		id := strings.TrimSpace(m.ID)
		if id == "" {
			id = strings.TrimSpace(m.Model)
			if id == "" {
				logger.Warnf("模型条目缺少 id 与 model，已跳过")
				continue
			}
			logger.Warnf("未配置 ai.models.id，已用模型名作为 ID: %s", id)
		}
		client := &OpenAIChatClient{
			ClientID:     id,
			BaseURL:      m.APIURL,
			APIKey:       m.APIKey,
			Model:        m.Model,
			Temperature:  m.Temperature,
			ExtraHeaders: m.Headers,
		}
		if timeout > 0 {
			client.Timeout = timeout
		}
		out[id] = client
	}
	return out
}

// Pick 取指定 ID 的模型；id 为空时报错，缺失时报错。
func Pick(models map[string]ChatModel, id string) (ChatModel, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("未配置模型 ID")
	}
	m, ok := models[id]
	if !ok {
		return nil, fmt.Errorf("未找到模型 %s", id)
	}
	return m, nil
}
