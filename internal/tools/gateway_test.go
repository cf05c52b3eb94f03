package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"klinesight/internal/llm"
	"klinesight/internal/market"
)

// captureTool 记录网关注入后的参数。
type captureTool struct {
	name string
	got  map[string]any
}

func (t *captureTool) Name() string               { return t.name }
func (t *captureTool) Description() string        { return "capture" }
func (t *captureTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (t *captureTool) Invoke(_ context.Context, args map[string]any) (Result, error) {
	t.got = args
	return Result{"ok": true}, nil
}

func risingCandles(n int) market.Candles {
	out := make(market.Candles, 0, n)
	for i := 0; i < n; i++ {
		price := 100 + float64(i)
		out = append(out, market.Candle{
			OpenTime:  int64(i) * 60_000,
			CloseTime: int64(i+1) * 60_000,
			Open:      price,
			High:      price + 2,
			Low:       price - 2,
			Close:     price + 1,
			Volume:    1000,
		})
	}
	return out
}

func TestInvokeUnknownTool(t *testing.T) {
	reg := NewRegistry(&captureTool{name: "known"})
	_, err := Invoke(context.Background(), reg, llm.ToolCall{Name: "unknown"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolNotFound)
	assert.Contains(t, err.Error(), "unknown")
}

func TestInvokeNilRegistry(t *testing.T) {
	_, err := Invoke(context.Background(), nil, llm.ToolCall{Name: "any"}, nil)
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestInvokeOverridesKlineData(t *testing.T) {
	tool := &captureTool{name: "cap"}
	reg := NewRegistry(tool)
	authoritative := risingCandles(5)

	call := llm.ToolCall{
		Name: "cap",
		Args: map[string]any{"kline_data": "模型幻觉出的数据", "period": 7},
	}
	_, err := Invoke(context.Background(), reg, call, authoritative)
	require.NoError(t, err)

	got, ok := tool.got["kline_data"].(market.Candles)
	require.True(t, ok, "kline_data 必须被权威数据副本覆盖")
	require.Len(t, got, 5)
	assert.Equal(t, authoritative[0], got[0])
	// 其余参数原样透传
	assert.Equal(t, 7, tool.got["period"])

	// 工具侧修改不得影响权威数据
	got[0].Close = -1
	assert.NotEqual(t, got[0].Close, authoritative[0].Close)

	// 调用方的原始 Args 也不被改写
	assert.Equal(t, "模型幻觉出的数据", call.Args["kline_data"])
}

func TestRegistrySchemasSorted(t *testing.T) {
	reg := NewRegistry(&captureTool{name: "beta"}, &captureTool{name: "alpha"}, nil)
	schemas := reg.Schemas()
	require.Len(t, schemas, 2)
	assert.Equal(t, "alpha", schemas[0].Name)
	assert.Equal(t, "beta", schemas[1].Name)
}
