package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"time"

	"go.uber.org/zap"
)

// Service 长驻服务
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Step 启动前或停止后执行的一次性步骤
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Runner 按 启动步骤 -> 服务 -> 收尾步骤 的顺序管理进程生命周期
// 启动步骤全部成功后才开始对外服务，收尾步骤在所有服务停止后执行
type Runner struct {
	services []Service
	startup  []Step
	shutdown []Step
}

// NewRunner 创建服务运行器
func NewRunner(services ...Service) *Runner {
	return &Runner{services: services}
}

// BeforeStart 追加启动步骤，按追加顺序执行，任一失败则不启动服务
func (r *Runner) BeforeStart(name string, run func(ctx context.Context) error) *Runner {
	r.startup = append(r.startup, Step{Name: name, Run: run})
	return r
}

// AfterStop 追加收尾步骤，失败只记录日志
func (r *Runner) AfterStop(name string, run func(ctx context.Context) error) *Runner {
	r.shutdown = append(r.shutdown, Step{Name: name, Run: run})
	return r
}

// RunWithOptions 运行服务并处理系统信号
func RunWithOptions(runner *Runner, opts Options) error {
	if runner == nil {
		return errors.New("runner is nil")
	}
	opts = normalizeOptions(opts)
	ctx := context.Background()
	if len(opts.Signals) > 0 {
		var cancel context.CancelFunc
		ctx, cancel = signal.NotifyContext(ctx, opts.Signals...)
		defer cancel()
	}
	return runner.Run(ctx, opts.ShutdownTimeout, opts.Logger)
}

// Run 执行启动步骤、运行服务直到 ctx 结束或任一服务退出，然后逆序停止服务并执行收尾步骤
func (r *Runner) Run(ctx context.Context, stopTimeout time.Duration, log *zap.SugaredLogger) error {
	if r == nil || len(r.services) == 0 {
		return errors.New("no services to run")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	for _, step := range r.startup {
		started := time.Now()
		if err := step.Run(ctx); err != nil {
			return fmt.Errorf("startup step %s: %w", step.Name, err)
		}
		log.Infow("app_startup_step_done", "step", step.Name, "elapsed_ms", time.Since(started).Milliseconds())
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	exited := make(chan error, len(r.services))
	for _, svc := range r.services {
		if svc == nil {
			exited <- errors.New("service is nil")
			continue
		}
		go func(svc Service) {
			log.Infow("service_start", "service", svc.Name())
			err := svc.Start(runCtx)
			log.Infow("service_exit", "service", svc.Name(), "error", err)
			exited <- err
		}(svc)
	}

	var runErr error
	select {
	case <-runCtx.Done():
		runErr = ctx.Err()
	case runErr = <-exited:
	}
	cancel()

	if stopTimeout <= 0 {
		stopTimeout = 10 * time.Second
	}
	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()

	// 先停后加入的服务（巡检），最后停 HTTP
	for i := len(r.services) - 1; i >= 0; i-- {
		svc := r.services[i]
		if svc == nil {
			continue
		}
		if err := svc.Stop(stopCtx); err != nil {
			log.Errorw("service_stop_failed", "service", svc.Name(), "error", err)
		}
	}
	for _, step := range r.shutdown {
		if err := step.Run(stopCtx); err != nil {
			log.Warnw("app_shutdown_step_failed", "step", step.Name, "error", err)
		}
	}

	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}
