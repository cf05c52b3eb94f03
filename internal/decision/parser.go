package decision

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"klinesight/internal/pkg/jsonutil"
)

// 中文说明：
// 决策解析器：从模型自由文本中提取 JSON 对象，经 Schema 校验后做语义检查。
// 任何契约违背（HOLD、方向非法、风险收益比越界或不可解析）都是确定性错误，
// 不做任何猜测性修复。

// Parse 解析并校验一段模型输出。
func Parse(raw string) (ParseResult, error) {
	result := ParseResult{RawOutput: raw}

	block, ok := jsonutil.ExtractJSONObject(raw)
	if !ok {
		return result, fmt.Errorf("未找到 JSON 决策对象")
	}
	result.RawJSON = strings.TrimSpace(block)

	if !gjson.Valid(result.RawJSON) {
		return result, fmt.Errorf("json 格式无效")
	}
	if err := validateSchema(result.RawJSON); err != nil {
		return result, err
	}

	parsed := gjson.Parse(result.RawJSON)

	direction, err := parseDirection(parsed.Get("decision").String())
	if err != nil {
		return result, err
	}
	ratio, err := parseRiskReward(parsed.Get("risk_reward_ratio"))
	if err != nil {
		return result, err
	}

	result.Decision = TradeDecision{
		ForecastHorizon: strings.TrimSpace(parsed.Get("forecast_horizon").String()),
		Decision:        direction,
		Justification:   strings.TrimSpace(parsed.Get("justification").String()),
		RiskRewardRatio: ratio,
	}
	return result, nil
}

func parseDirection(raw string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(DirectionLong):
		return DirectionLong, nil
	case string(DirectionShort):
		return DirectionShort, nil
	case "HOLD":
		return "", fmt.Errorf("decision 不允许 HOLD，必须给出 LONG 或 SHORT")
	default:
		return "", fmt.Errorf("decision 值非法: %q", raw)
	}
}

func parseRiskReward(res gjson.Result) (decimal.Decimal, error) {
	text := strings.TrimSpace(res.String())
	ratio, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("risk_reward_ratio 不可解析: %q", text)
	}
	if ratio.LessThan(RiskRewardMin) || ratio.GreaterThan(RiskRewardMax) {
		return decimal.Decimal{}, fmt.Errorf("risk_reward_ratio 超出 [%s, %s]: %s",
			RiskRewardMin.String(), RiskRewardMax.String(), ratio.String())
	}
	return ratio, nil
}
