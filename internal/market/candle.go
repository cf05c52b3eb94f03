package market

import (
	"encoding/json"
	"time"
)

// Candle 单根 OHLCV K线。
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

type Candles []Candle

// Clone 返回独立副本。工具参数注入与各 agent 的并行分析都必须使用副本，
// 避免别名修改泄漏回权威数据集。
func (cs Candles) Clone() Candles {
	if cs == nil {
		return nil
	}
	out := make(Candles, len(cs))
	copy(out, cs)
	return out
}

// JSONDump 输出缩进 JSON，用于提示词中嵌入K线数据。
func (cs Candles) JSONDump() string {
	if len(cs) == 0 {
		return "[]"
	}
	b, err := json.MarshalIndent(cs, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(b)
}

func (c Candle) TimeString() string {
	ts := c.CloseTime
	if ts == 0 {
		ts = c.OpenTime
	}
	if ts <= 0 {
		return "-"
	}
	return time.UnixMilli(ts).UTC().Format("01-02 15:04") + "Z"
}

// Closes 返回收盘价序列。
func (cs Candles) Closes() []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Close
	}
	return out
}

func (cs Candles) Highs() []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.High
	}
	return out
}

func (cs Candles) Lows() []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Low
	}
	return out
}
