package decisionlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// 中文说明：
// 决策过程日志：按 trace 记录每个 agent 阶段的模型输入/输出摘要，
// 供事后排查提示词与模型行为。与运行结果存储分离，纯 database/sql 实现。

// StepRecord 单个阶段的模型调用记录。
type StepRecord struct {
	ID         int64  `json:"id"`
	TraceID    string `json:"trace_id"`
	Timestamp  int64  `json:"ts"`
	Stage      string `json:"stage"`
	ModelID    string `json:"model_id"`
	System     string `json:"system_prompt"`
	User       string `json:"user_prompt"`
	RawOutput  string `json:"raw_output"`
	RawJSON    string `json:"raw_json,omitempty"`
	ImageCount int    `json:"image_count"`
	Error      string `json:"error,omitempty"`
}

// Store SQLite 决策过程日志存储。
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// New 初始化 SQLite 存储。
func New(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("decision log path 不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func ensureSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS decision_steps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			trace_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			stage TEXT NOT NULL,
			model_id TEXT,
			system_prompt TEXT,
			user_prompt TEXT,
			raw_output TEXT,
			raw_json TEXT,
			image_count INTEGER DEFAULT 0,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decision_steps_trace ON decision_steps(trace_id)`,
		`CREATE INDEX IF NOT EXISTS idx_decision_steps_ts ON decision_steps(ts)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("decision log schema: %w", err)
		}
	}
	return nil
}

// Close 关闭底层连接。
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Append 追加一条阶段记录。
func (s *Store) Append(ctx context.Context, rec StepRecord) error {
	if strings.TrimSpace(rec.TraceID) == "" {
		return fmt.Errorf("decision log: trace_id 不能为空")
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = time.Now().UnixMilli()
	}
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return fmt.Errorf("decision log 已关闭")
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO decision_steps
			(trace_id, ts, stage, model_id, system_prompt, user_prompt, raw_output, raw_json, image_count, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TraceID, rec.Timestamp, rec.Stage, rec.ModelID,
		rec.System, rec.User, rec.RawOutput, rec.RawJSON, rec.ImageCount, rec.Error)
	return err
}

// Trace 返回一次运行的全部阶段记录（按时间升序）。
func (s *Store) Trace(ctx context.Context, traceID string) ([]StepRecord, error) {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return nil, fmt.Errorf("decision log 已关闭")
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, trace_id, ts, stage, model_id, system_prompt, user_prompt, raw_output, raw_json, image_count, error
		 FROM decision_steps WHERE trace_id = ? ORDER BY ts ASC, id ASC`, traceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSteps(rows)
}

// Recent 倒序返回最近 limit 条阶段记录。
func (s *Store) Recent(ctx context.Context, limit int) ([]StepRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return nil, fmt.Errorf("decision log 已关闭")
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, trace_id, ts, stage, model_id, system_prompt, user_prompt, raw_output, raw_json, image_count, error
		 FROM decision_steps ORDER BY ts DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSteps(rows)
}

func scanSteps(rows *sql.Rows) ([]StepRecord, error) {
	var out []StepRecord
	for rows.Next() {
		var rec StepRecord
		var modelID, system, user, rawOutput, rawJSON, errText sql.NullString
		var imageCount sql.NullInt64
		if err := rows.Scan(&rec.ID, &rec.TraceID, &rec.Timestamp, &rec.Stage,
			&modelID, &system, &user, &rawOutput, &rawJSON, &imageCount, &errText); err != nil {
			return nil, err
		}
		rec.ModelID = modelID.String
		rec.System = system.String
		rec.User = user.String
		rec.RawOutput = rawOutput.String
		rec.RawJSON = rawJSON.String
		rec.ImageCount = int(imageCount.Int64)
		rec.Error = errText.String
		out = append(out, rec)
	}
	return out, rows.Err()
}
