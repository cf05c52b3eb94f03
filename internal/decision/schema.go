package decision

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// 决策对象的 JSON Schema。risk_reward_ratio 兼容模型返回字符串数字的情况，
// 区间与 HOLD 排除在解析层做语义校验。
const tradeDecisionSchema = `{
  "type": "object",
  "required": ["forecast_horizon", "decision", "justification", "risk_reward_ratio"],
  "additionalProperties": false,
  "properties": {
    "forecast_horizon": {"type": "string", "minLength": 1},
    "decision": {"type": "string", "minLength": 1},
    "justification": {"type": "string", "minLength": 1},
    "risk_reward_ratio": {
      "anyOf": [
        {"type": "number"},
        {"type": "string", "minLength": 1}
      ]
    }
  }
}`

var decisionSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("trade_decision.json", strings.NewReader(tradeDecisionSchema)); err != nil {
		panic(fmt.Sprintf("decision schema resource: %v", err))
	}
	return compiler.MustCompile("trade_decision.json")
}

func validateSchema(raw string) error {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("json 解析失败: %w", err)
	}
	if err := decisionSchema.Validate(doc); err != nil {
		return fmt.Errorf("决策结构不符合契约: %w", err)
	}
	return nil
}
