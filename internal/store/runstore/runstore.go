package runstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"klinesight/internal/decision"
)

// 中文说明：
// 分析运行存储：每次流水线运行落一条记录（三份报告 + 结构化决策），
// Gorm + SQLite，WAL 模式下允许少量并发读。

// RunModel 运行记录表。
type RunModel struct {
	ID        uint   `gorm:"primaryKey"`
	TraceID   string `gorm:"uniqueIndex;size:64"`
	Symbol    string `gorm:"index;size:32"`
	TimeFrame string `gorm:"size:16"`

	IndicatorReport string `gorm:"type:text"`
	PatternReport   string `gorm:"type:text"`
	TrendReport     string `gorm:"type:text"`

	DecisionRaw string         `gorm:"type:text"`
	Decision    datatypes.JSON `gorm:"type:json"`

	CreatedAt time.Time `gorm:"index"`
}

func (RunModel) TableName() string { return "analysis_runs" }

// Run 对外暴露的运行记录。
type Run struct {
	TraceID   string `json:"trace_id"`
	Symbol    string `json:"symbol"`
	TimeFrame string `json:"time_frame"`

	IndicatorReport string `json:"indicator_report"`
	PatternReport   string `json:"pattern_report"`
	TrendReport     string `json:"trend_report"`

	DecisionRaw string                 `json:"decision_raw"`
	Decision    decision.TradeDecision `json:"decision"`

	CreatedAt time.Time `json:"created_at"`
}

// Store 运行记录存储。
type Store struct {
	db *gorm.DB
}

// New 打开（或创建）SQLite 运行库并迁移表结构。
func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("run store: 存储路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&RunModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

// Close 关闭底层连接。
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save 写入一次运行。
func (s *Store) Save(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.TraceID) == "" {
		return fmt.Errorf("run store: trace_id 不能为空")
	}
	decisionJSON, err := json.Marshal(run.Decision)
	if err != nil {
		return fmt.Errorf("run store: 决策序列化失败: %w", err)
	}
	model := RunModel{
		TraceID:         run.TraceID,
		Symbol:          run.Symbol,
		TimeFrame:       run.TimeFrame,
		IndicatorReport: run.IndicatorReport,
		PatternReport:   run.PatternReport,
		TrendReport:     run.TrendReport,
		DecisionRaw:     run.DecisionRaw,
		Decision:        datatypes.JSON(decisionJSON),
		CreatedAt:       run.CreatedAt,
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now()
	}
	return s.db.WithContext(ctx).Create(&model).Error
}

// Latest 返回指定标的最近一次运行；symbol 为空时返回全局最近一次。
func (s *Store) Latest(ctx context.Context, symbol string) (Run, bool, error) {
	q := s.db.WithContext(ctx).Model(&RunModel{}).Order("created_at DESC")
	if symbol = strings.TrimSpace(symbol); symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}
	var model RunModel
	if err := q.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Run{}, false, nil
		}
		return Run{}, false, err
	}
	run, err := toRun(model)
	return run, err == nil, err
}

// List 倒序返回最近 limit 条运行。
func (s *Store) List(ctx context.Context, symbol string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	q := s.db.WithContext(ctx).Model(&RunModel{}).Order("created_at DESC").Limit(limit)
	if symbol = strings.TrimSpace(symbol); symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}
	var models []RunModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	runs := make([]Run, 0, len(models))
	for _, m := range models {
		run, err := toRun(m)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func toRun(m RunModel) (Run, error) {
	run := Run{
		TraceID:         m.TraceID,
		Symbol:          m.Symbol,
		TimeFrame:       m.TimeFrame,
		IndicatorReport: m.IndicatorReport,
		PatternReport:   m.PatternReport,
		TrendReport:     m.TrendReport,
		DecisionRaw:     m.DecisionRaw,
		CreatedAt:       m.CreatedAt,
	}
	if len(m.Decision) > 0 {
		if err := json.Unmarshal(m.Decision, &run.Decision); err != nil {
			return run, fmt.Errorf("run store: 决策反序列化失败: %w", err)
		}
	}
	return run, nil
}
