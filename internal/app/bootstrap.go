package app

import (
	"errors"

	"github.com/nftlevel-next/internal/config"
	"github.com/nftlevel-next/internal/provider"
	"github.com/nftlevel-next/internal/router"
	"github.com/nftlevel-next/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if !validMode(mode) {
		return nil, errors.New("unknown mode: " + mode)
	}

	container := provider.NewContainer(cfg)
	return buildRunner(cfg, container, mode)
}

func buildRunner(cfg *config.Config, container *provider.Container, mode string) (*Runner, error) {
	var services []Service

	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		services = append(services, NewHTTPService(addr, engine))
	}

	// 未启用队列时 worker 在进程内按间隔执行日结与停用巡检
	if mode == ModeAll || mode == ModeWorker {
		consumer := worker.NewConsumer(container)
		workerService, err := worker.NewService(&cfg.Queue, cfg.Worker, consumer)
		if err != nil {
			return nil, err
		}
		services = append(services, workerService)
	}

	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}
	return NewRunner(services...), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode, "queue_enabled", opts.Config.Queue.Enabled)
	return RunWithOptions(runner, opts)
}
