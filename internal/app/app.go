package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"klinesight/internal/config"
	"klinesight/internal/logger"
	apihttp "klinesight/internal/transport/http"
)

// App 负责应用级编排：加载配置→初始化依赖→启动分析服务与 HTTP。
type App struct {
	cfg     *config.Config
	service *AnalysisService
	httpSrv *apihttp.Server
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run 启动 HTTP 与定时分析，直到 ctx 取消或出错。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.service == nil {
		return fmt.Errorf("analysis service not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)

	if a.httpSrv != nil {
		group.Go(func() error {
			if err := a.httpSrv.Start(ctx); err != nil {
				return fmt.Errorf("http server error: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		defer a.service.Close()
		return a.service.Run(ctx)
	})

	return group.Wait()
}

// Service 暴露底层分析服务实例（测试/回放用）。
func (a *App) Service() *AnalysisService {
	if a == nil {
		return nil
	}
	return a.service
}
