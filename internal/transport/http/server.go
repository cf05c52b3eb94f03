package apihttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"klinesight/internal/logger"
	"klinesight/internal/pipeline"
	"klinesight/internal/store/decisionlog"
	"klinesight/internal/store/runstore"
)

// 中文说明：
// HTTP 服务：手动触发分析 + 查询历史运行与决策过程日志。

// Analyzer 由应用层实现，执行一次完整分析。
type Analyzer interface {
	Analyze(ctx context.Context, symbol, timeFrame string, limit int) (pipeline.Result, error)
}

// Server 提供 /api/analysis HTTP 服务。
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig 描述 HTTP 服务依赖。
type ServerConfig struct {
	Addr     string
	Analyzer Analyzer
	Runs     *runstore.Store
	Steps    *decisionlog.Store
}

// NewServer 构建 HTTP server。
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Analyzer == nil {
		return nil, errors.New("http server requires analyzer")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9992"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := &handlers{analyzer: cfg.Analyzer, runs: cfg.Runs, steps: cfg.Steps}
	api := router.Group("/api/analysis")
	api.POST("/run", h.handleRun)
	api.GET("/latest", h.handleLatest)
	api.GET("/runs", h.handleList)
	api.GET("/traces/:trace_id", h.handleTrace)

	return &Server{addr: cfg.Addr, router: router}, nil
}

// Addr 返回监听地址。
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start 启动 HTTP 服务，直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

type handlers struct {
	analyzer Analyzer
	runs     *runstore.Store
	steps    *decisionlog.Store
}

type runRequest struct {
	Symbol     string `json:"symbol"`
	TimeFrame  string `json:"time_frame"`
	KlineLimit int    `json:"kline_limit"`
}

func (h *handlers) handleRun(c *gin.Context) {
	var req runRequest
	// 空请求体允许，使用配置默认
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	result, err := h.analyzer.Analyze(c.Request.Context(), req.Symbol, req.TimeFrame, req.KlineLimit)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "trace_id": result.TraceID})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"trace_id":   result.TraceID,
		"symbol":     result.State.Symbol,
		"time_frame": result.State.TimeFrame,
		"decision":   result.Decision,
		"raw_output": result.RawOutput,
		"elapsed_ms": result.Elapsed.Milliseconds(),
	})
}

func (h *handlers) handleLatest(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "运行存储未启用"})
		return
	}
	run, ok, err := h.runs.Latest(c.Request.Context(), c.Query("symbol"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "暂无运行记录"})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *handlers) handleList(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "运行存储未启用"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit > 200 {
		limit = 200
	}
	runs, err := h.runs.List(c.Request.Context(), c.Query("symbol"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

func (h *handlers) handleTrace(c *gin.Context) {
	if h.steps == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "决策过程日志未启用"})
		return
	}
	traceID := strings.TrimSpace(c.Param("trace_id"))
	if traceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "trace_id 不能为空"})
		return
	}
	steps, err := h.steps.Trace(c.Request.Context(), traceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(steps) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "trace 不存在"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trace_id": traceID, "steps": steps})
}

// requestLogger 记录接口调用，便于追踪手动触发。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, fullPath, status, client, dur)
	}
}
