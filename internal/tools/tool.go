package tools

import (
	"context"
	"sort"

	"klinesight/internal/llm"
)

// 中文说明：
// 工具注册表：名称到带参数 Schema 的可调用工具的映射。
// 模型只能请求注册表内的工具，未注册名称由网关显式报错，绝不猜测替代工具。

// Result 工具的结构化输出。
type Result map[string]any

// Tool 单个辅助能力。每个工具都接受 kline_data 参数
// （由网关统一注入权威数据副本），外加自身的专有参数。
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Invoke(ctx context.Context, args map[string]any) (Result, error)
}

// Registry 名称到工具的只读映射。
type Registry struct {
	tools map[string]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	m := make(map[string]Tool, len(tools))
	for _, t := range tools {
		if t == nil || t.Name() == "" {
			continue
		}
		m[t.Name()] = t
	}
	return &Registry{tools: m}
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.tools))
	for name := range r.tools {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Schemas 输出绑定给模型的工具描述。
func (r *Registry) Schemas() []llm.ToolSchema {
	out := make([]llm.ToolSchema, 0, len(r.tools))
	for _, name := range r.Names() {
		t := r.tools[name]
		out = append(out, llm.ToolSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return out
}
