package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"klinesight/internal/config"
	"klinesight/internal/logger"
	"klinesight/internal/market"
	"klinesight/internal/pipeline"
	"klinesight/internal/store/decisionlog"
	"klinesight/internal/store/runstore"
)

// 中文说明：
// 分析服务：拉取K线 → 执行流水线。支持定时自动分析与 HTTP 手动触发，
// 请求未指定的参数回落到配置默认值。

// AnalysisService 应用层的分析入口。
type AnalysisService struct {
	cfg    *config.Config
	source market.Source
	pipe   *pipeline.Pipeline

	runs  *runstore.Store
	steps *decisionlog.Store
}

// Analyze 执行一次完整分析。symbol/timeFrame/limit 为空时使用配置默认。
func (s *AnalysisService) Analyze(ctx context.Context, symbol, timeFrame string, limit int) (pipeline.Result, error) {
	if symbol = strings.TrimSpace(symbol); symbol == "" {
		symbol = s.cfg.Analysis.Symbol
	}
	if timeFrame = strings.TrimSpace(timeFrame); timeFrame == "" {
		timeFrame = s.cfg.Analysis.TimeFrame
	}
	if limit <= 0 {
		limit = s.cfg.Analysis.KlineLimit
	}
	klines, err := s.source.FetchKlines(ctx, symbol, timeFrame, limit)
	if err != nil {
		return pipeline.Result{}, err
	}
	if len(klines) == 0 {
		return pipeline.Result{}, fmt.Errorf("未获取到K线数据: %s@%s", symbol, timeFrame)
	}
	return s.pipe.Run(ctx, symbol, timeFrame, klines)
}

// Run 按配置节奏周期性分析；interval_seconds=0 时只等待手动触发。
func (s *AnalysisService) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.Analysis.IntervalSeconds) * time.Second
	if interval <= 0 {
		logger.Infof("定时分析未启用，仅接受手动触发")
		<-ctx.Done()
		return nil
	}
	logger.Infof("定时分析已启用：%s %s 每 %s 一次",
		s.cfg.Analysis.Symbol, s.cfg.Analysis.TimeFrame, interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Analyze(ctx, "", "", 0); err != nil {
				logger.Errorf("定时分析失败: %v", err)
			}
		}
	}
}

// Close 释放持久化资源。
func (s *AnalysisService) Close() {
	if s == nil {
		return
	}
	if s.runs != nil {
		if err := s.runs.Close(); err != nil {
			logger.Warnf("关闭运行存储失败: %v", err)
		}
	}
	if s.steps != nil {
		if err := s.steps.Close(); err != nil {
			logger.Warnf("关闭决策日志失败: %v", err)
		}
	}
}
