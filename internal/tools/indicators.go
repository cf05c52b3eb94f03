package tools

import (
	"context"
	"fmt"

	talib "github.com/markcheno/go-talib"
)

// 中文说明：
// 技术指标工具集：MACD / RSI / ROC / Stochastic / Williams %R。
// 每个工具从注入的 kline_data 计算衍生序列，返回末段数值与信号摘要。
// 指标数值本身只作为模型推理素材，此处不做交易判断。

const seriesTail = 10

type funcTool struct {
	name   string
	desc   string
	params map[string]any
	fn     func(ctx context.Context, args map[string]any) (Result, error)
}

func (t *funcTool) Name() string               { return t.name }
func (t *funcTool) Description() string        { return t.desc }
func (t *funcTool) Parameters() map[string]any { return t.params }
func (t *funcTool) Invoke(ctx context.Context, args map[string]any) (Result, error) {
	return t.fn(ctx, args)
}

func klineParam() map[string]any {
	return map[string]any{
		"type":        "array",
		"description": "OHLCV K线序列，由系统注入，模型无需填写",
		"items":       map[string]any{"type": "object"},
	}
}

func periodParam(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc}
}

func objectSchema(props map[string]any) map[string]any {
	return map[string]any{"type": "object", "properties": props}
}

func tail(series []float64) []float64 {
	if len(series) <= seriesTail {
		return series
	}
	return series[len(series)-seriesTail:]
}

func last(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

// NewMACDTool 计算 MACD（DIF/DEA/柱），并给出金叉/死叉状态。
func NewMACDTool() Tool {
	return &funcTool{
		name: "compute_macd",
		desc: "计算 MACD 指标（快慢 EMA 差离值与信号线），返回末段序列与交叉状态",
		params: objectSchema(map[string]any{
			"kline_data":    klineParam(),
			"fast_period":   periodParam("快线周期，默认 12"),
			"slow_period":   periodParam("慢线周期，默认 26"),
			"signal_period": periodParam("信号线周期，默认 9"),
		}),
		fn: func(_ context.Context, args map[string]any) (Result, error) {
			candles, err := candlesArg(args)
			if err != nil {
				return nil, err
			}
			fast := intArg(args, "fast_period", 12)
			slow := intArg(args, "slow_period", 26)
			signal := intArg(args, "signal_period", 9)
			if len(candles) < slow+signal {
				return nil, fmt.Errorf("K线数量不足以计算 MACD（需要至少 %d 根）", slow+signal)
			}
			dif, dea, hist := talib.Macd(candles.Closes(), fast, slow, signal)
			state := "neutral"
			if n := len(hist); n >= 2 {
				switch {
				case hist[n-2] <= 0 && hist[n-1] > 0:
					state = "golden_cross"
				case hist[n-2] >= 0 && hist[n-1] < 0:
					state = "dead_cross"
				case hist[n-1] > 0:
					state = "above_zero"
				case hist[n-1] < 0:
					state = "below_zero"
				}
			}
			return Result{
				"macd":       tail(dif),
				"signal":     tail(dea),
				"histogram":  tail(hist),
				"latest":     last(dif),
				"state":      state,
				"parameters": map[string]int{"fast": fast, "slow": slow, "signal": signal},
			}, nil
		},
	}
}

// NewRSITool 计算 RSI 并标注超买/超卖。
func NewRSITool() Tool {
	return &funcTool{
		name: "compute_rsi",
		desc: "计算相对强弱指数 RSI，返回末段序列与超买超卖状态",
		params: objectSchema(map[string]any{
			"kline_data": klineParam(),
			"period":     periodParam("RSI 周期，默认 14"),
		}),
		fn: func(_ context.Context, args map[string]any) (Result, error) {
			candles, err := candlesArg(args)
			if err != nil {
				return nil, err
			}
			period := intArg(args, "period", 14)
			if len(candles) <= period {
				return nil, fmt.Errorf("K线数量不足以计算 RSI（需要多于 %d 根）", period)
			}
			series := talib.Rsi(candles.Closes(), period)
			latest := last(series)
			state := "neutral"
			switch {
			case latest >= 70:
				state = "overbought"
			case latest <= 30:
				state = "oversold"
			}
			return Result{
				"rsi":    tail(series),
				"latest": latest,
				"state":  state,
				"period": period,
			}, nil
		},
	}
}

// NewROCTool 计算变动率 ROC。
func NewROCTool() Tool {
	return &funcTool{
		name: "compute_roc",
		desc: "计算价格变动率 ROC，返回末段序列与动量方向",
		params: objectSchema(map[string]any{
			"kline_data": klineParam(),
			"period":     periodParam("ROC 周期，默认 10"),
		}),
		fn: func(_ context.Context, args map[string]any) (Result, error) {
			candles, err := candlesArg(args)
			if err != nil {
				return nil, err
			}
			period := intArg(args, "period", 10)
			if len(candles) <= period {
				return nil, fmt.Errorf("K线数量不足以计算 ROC（需要多于 %d 根）", period)
			}
			series := talib.Roc(candles.Closes(), period)
			latest := last(series)
			state := "flat"
			switch {
			case latest > 0:
				state = "rising"
			case latest < 0:
				state = "falling"
			}
			return Result{
				"roc":    tail(series),
				"latest": latest,
				"state":  state,
				"period": period,
			}, nil
		},
	}
}

// NewStochTool 计算随机指标 KD。
func NewStochTool() Tool {
	return &funcTool{
		name: "compute_stoch",
		desc: "计算随机指标 Stochastic（慢速 K/D），返回末段序列与区间状态",
		params: objectSchema(map[string]any{
			"kline_data":   klineParam(),
			"fastk_period": periodParam("FastK 周期，默认 14"),
			"slowk_period": periodParam("SlowK 平滑周期，默认 3"),
			"slowd_period": periodParam("SlowD 平滑周期，默认 3"),
		}),
		fn: func(_ context.Context, args map[string]any) (Result, error) {
			candles, err := candlesArg(args)
			if err != nil {
				return nil, err
			}
			fastK := intArg(args, "fastk_period", 14)
			slowK := intArg(args, "slowk_period", 3)
			slowD := intArg(args, "slowd_period", 3)
			need := fastK + slowK + slowD
			if len(candles) < need {
				return nil, fmt.Errorf("K线数量不足以计算 Stochastic（需要至少 %d 根）", need)
			}
			k, d := talib.Stoch(candles.Highs(), candles.Lows(), candles.Closes(),
				fastK, slowK, talib.SMA, slowD, talib.SMA)
			latestK := last(k)
			state := "neutral"
			switch {
			case latestK >= 80:
				state = "overbought"
			case latestK <= 20:
				state = "oversold"
			}
			return Result{
				"slow_k": tail(k),
				"slow_d": tail(d),
				"latest": latestK,
				"state":  state,
			}, nil
		},
	}
}

// NewWillRTool 计算威廉指标 %R。
func NewWillRTool() Tool {
	return &funcTool{
		name: "compute_willr",
		desc: "计算威廉指标 Williams %R，返回末段序列与区间状态",
		params: objectSchema(map[string]any{
			"kline_data": klineParam(),
			"period":     periodParam("回溯周期，默认 14"),
		}),
		fn: func(_ context.Context, args map[string]any) (Result, error) {
			candles, err := candlesArg(args)
			if err != nil {
				return nil, err
			}
			period := intArg(args, "period", 14)
			if len(candles) < period {
				return nil, fmt.Errorf("K线数量不足以计算 Williams %%R（需要至少 %d 根）", period)
			}
			series := talib.WillR(candles.Highs(), candles.Lows(), candles.Closes(), period)
			latest := last(series)
			state := "neutral"
			switch {
			case latest >= -20:
				state = "overbought"
			case latest <= -80:
				state = "oversold"
			}
			return Result{
				"willr":  tail(series),
				"latest": latest,
				"state":  state,
				"period": period,
			}, nil
		},
	}
}

// IndicatorTools 指标 agent 绑定的全套工具。
func IndicatorTools() []Tool {
	return []Tool{
		NewMACDTool(),
		NewRSITool(),
		NewROCTool(),
		NewStochTool(),
		NewWillRTool(),
	}
}
