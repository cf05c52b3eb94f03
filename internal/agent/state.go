package agent

import (
	"fmt"

	"klinesight/internal/llm"
	"klinesight/internal/market"
)

// 中文说明：
// State 是流水线上各 agent 共享的分析状态。agent 不直接改写 State，
// 而是返回 Update 增量，由调用方 Apply 合并：消息只追加，报告与产物只写一次。

// 报告槽位键。
const (
	ReportIndicator      = "indicator_report"
	ReportPattern        = "pattern_report"
	ReportTrend          = "trend_report"
	ReportDecision       = "final_trade_decision"
	ReportDecisionPrompt = "decision_prompt"
)

// State 单轮分析的完整上下文。
type State struct {
	Symbol    string
	TimeFrame string
	Klines    market.Candles

	Messages  []llm.Message
	Artifacts map[string]string // 图像等产物，base64
	Reports   map[string]string
}

// NewState 创建初始状态。
func NewState(symbol, timeFrame string, klines market.Candles) *State {
	return &State{
		Symbol:    symbol,
		TimeFrame: timeFrame,
		Klines:    klines,
		Artifacts: make(map[string]string),
		Reports:   make(map[string]string),
	}
}

// Clone 深拷贝，供并行 agent 各自独立演进。
func (s *State) Clone() *State {
	dst := &State{
		Symbol:    s.Symbol,
		TimeFrame: s.TimeFrame,
		Klines:    s.Klines.Clone(),
		Messages:  append([]llm.Message(nil), s.Messages...),
		Artifacts: make(map[string]string, len(s.Artifacts)),
		Reports:   make(map[string]string, len(s.Reports)),
	}
	for k, v := range s.Artifacts {
		dst.Artifacts[k] = v
	}
	for k, v := range s.Reports {
		dst.Reports[k] = v
	}
	return dst
}

// Artifact 返回产物载荷，不存在时返回空串。
func (s *State) Artifact(key string) string {
	if s == nil || s.Artifacts == nil {
		return ""
	}
	return s.Artifacts[key]
}

// Report 返回报告内容，不存在时返回空串。
func (s *State) Report(key string) string {
	if s == nil || s.Reports == nil {
		return ""
	}
	return s.Reports[key]
}

// Audit 单个阶段产出报告那次模型调用的审计信息。
// 随 Update 返回给编排方写入决策日志，不并入共享状态。
type Audit struct {
	ModelID string
	System  string
	User    string
	Images  int
}

// Update agent 产出的状态增量。
type Update struct {
	Messages  []llm.Message
	Artifacts map[string]string
	Reports   map[string]string
	Audit     Audit
}

// AddMessage 追加消息。
func (u *Update) AddMessage(msg llm.Message) {
	u.Messages = append(u.Messages, msg)
}

// SetArtifact 记录产物。
func (u *Update) SetArtifact(key, value string) {
	if u.Artifacts == nil {
		u.Artifacts = make(map[string]string)
	}
	u.Artifacts[key] = value
}

// SetReport 记录报告。
func (u *Update) SetReport(key, value string) {
	if u.Reports == nil {
		u.Reports = make(map[string]string)
	}
	u.Reports[key] = value
}

// Apply 合并增量：消息追加；报告与产物写一次，重复写视为编排缺陷。
func (s *State) Apply(u Update) error {
	for key := range u.Reports {
		if existing := s.Reports[key]; existing != "" {
			return fmt.Errorf("报告槽位 %s 已有内容，拒绝覆盖", key)
		}
	}
	s.Messages = append(s.Messages, u.Messages...)
	if s.Artifacts == nil {
		s.Artifacts = make(map[string]string)
	}
	for k, v := range u.Artifacts {
		if v == "" {
			continue
		}
		s.Artifacts[k] = v
	}
	if s.Reports == nil {
		s.Reports = make(map[string]string)
	}
	for k, v := range u.Reports {
		s.Reports[k] = v
	}
	return nil
}
