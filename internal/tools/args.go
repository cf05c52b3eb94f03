package tools

import (
	"encoding/json"
	"fmt"

	"klinesight/internal/market"
)

// candlesArg 解出 kline_data 参数。网关注入后是 market.Candles；
// 测试或旁路调用可能传 JSON 解码出的 []any，做一次兜底转换。
func candlesArg(args map[string]any) (market.Candles, error) {
	raw, ok := args["kline_data"]
	if !ok || raw == nil {
		return nil, fmt.Errorf("缺少 kline_data 参数")
	}
	switch v := raw.(type) {
	case market.Candles:
		return v, nil
	case []market.Candle:
		return market.Candles(v), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("kline_data 参数无法解析: %w", err)
		}
		var out market.Candles
		if err := json.Unmarshal(b, &out); err != nil {
			return nil, fmt.Errorf("kline_data 参数无法解析: %w", err)
		}
		return out, nil
	}
}

func intArg(args map[string]any, key string, def int) int {
	raw, ok := args[key]
	if !ok {
		return def
	}
	switch v := raw.(type) {
	case int:
		if v > 0 {
			return v
		}
	case float64:
		if v > 0 {
			return int(v)
		}
	case json.Number:
		if n, err := v.Int64(); err == nil && n > 0 {
			return int(n)
		}
	}
	return def
}
