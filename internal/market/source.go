package market

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/futures"
)

const maxHistoryLimit = 1500

// Source 提供分析流水线的K线输入。
type Source interface {
	FetchKlines(ctx context.Context, symbol, interval string, limit int) (Candles, error)
}

// BinanceSource 基于 go-binance SDK 的 USDT 合约K线来源。
type BinanceSource struct {
	client *futures.Client
}

// BinanceConfig 描述 REST 访问方式。
type BinanceConfig struct {
	RESTBaseURL    string
	TimeoutSeconds int
}

func NewBinanceSource(cfg BinanceConfig) *BinanceSource {
	client := futures.NewClient("", "")
	if base := strings.TrimSpace(cfg.RESTBaseURL); base != "" {
		client.BaseURL = base
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client.HTTPClient = &http.Client{Timeout: timeout}
	return &BinanceSource{client: client}
}

func (s *BinanceSource) FetchKlines(ctx context.Context, symbol, interval string, limit int) (Candles, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	interval = strings.TrimSpace(interval)
	if symbol == "" || interval == "" {
		return nil, fmt.Errorf("symbol/interval 不能为空")
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	rows, err := s.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance K线拉取失败 %s@%s: %w", symbol, interval, err)
	}
	out := make(Candles, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		out = append(out, Candle{
			OpenTime:  row.OpenTime,
			CloseTime: row.CloseTime,
			Open:      parsePrice(row.Open),
			High:      parsePrice(row.High),
			Low:       parsePrice(row.Low),
			Close:     parsePrice(row.Close),
			Volume:    parsePrice(row.Volume),
		})
	}
	return out, nil
}

func parsePrice(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}
