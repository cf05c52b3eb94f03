package decision

import (
	"github.com/shopspring/decimal"
)

// 中文说明：
// 最终交易决策的结构化契约。方向只允许 LONG/SHORT（HFT 禁止 HOLD），
// 风险收益比限定在 [1.2, 1.8] 闭区间。

// Direction 交易方向。
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// 风险收益比允许区间。
var (
	RiskRewardMin = decimal.NewFromFloat(1.2)
	RiskRewardMax = decimal.NewFromFloat(1.8)
)

// TradeDecision 决策合成器输出的最终记录。
type TradeDecision struct {
	ForecastHorizon string          `json:"forecast_horizon"`
	Decision        Direction       `json:"decision"`
	Justification   string          `json:"justification"`
	RiskRewardRatio decimal.Decimal `json:"risk_reward_ratio"`
}

// ParseResult 解析结果：成功时携带结构化决策，失败时保留原始文本便于排查。
type ParseResult struct {
	RawOutput string
	RawJSON   string
	Decision  TradeDecision
}
