package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/programme-lv/judge/internal/config"
	"github.com/programme-lv/judge/internal/health"
	"github.com/programme-lv/judge/internal/isolate"
	"github.com/programme-lv/judge/internal/judge"
	"github.com/programme-lv/judge/internal/logging"
	"github.com/programme-lv/judge/internal/metrics"
	"github.com/programme-lv/judge/internal/notify"
	"github.com/programme-lv/judge/internal/recorder"
	"github.com/programme-lv/judge/internal/sandbox"
	"github.com/programme-lv/judge/internal/toolchain"
	"github.com/programme-lv/judge/internal/workspace"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
)

const recordTimeout = 10 * time.Second

// app holds everything a command needs. Close releases it in reverse
// order of creation.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *toolchain.Registry
	spaces   *workspace.Manager
	runtime  sandbox.Runtime
	probe    health.Probe
	prom     *prometheus.Registry
	judge    *judge.Judge
	nc       *nats.Conn

	closers []func()
}

type appOptions struct {
	// record submissions and publish events
	services bool
	// extra toolchains, e.g. from behaviour files
	languages []toolchain.Spec
}

func loadConfig(cmd *cli.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, nil, err
	}
	if rt := cmd.String("runtime"); rt != "" {
		cfg.Sandbox.Runtime = rt
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func loadRegistry(cfg *config.Config, extra []toolchain.Spec) (*toolchain.Registry, error) {
	reg, err := toolchain.Default()
	if err != nil {
		return nil, err
	}
	if cfg.LanguagesFile != "" {
		f, err := os.Open(cfg.LanguagesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open languages file: %w", err)
		}
		specs, err := toolchain.Parse(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.LanguagesFile, err)
		}
		if reg, err = reg.Merge(specs...); err != nil {
			return nil, err
		}
	}
	if len(extra) > 0 {
		return reg.Merge(extra...)
	}
	return reg, nil
}

func newApp(ctx context.Context, cmd *cli.Command, opts appOptions) (*app, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	if a.registry, err = loadRegistry(cfg, opts.languages); err != nil {
		return nil, err
	}

	wsOpts := []workspace.Option{workspace.WithLogger(logger)}
	if cfg.Sandbox.Runtime != config.RuntimeProcess {
		// sandbox users differ from ours
		wsOpts = append(wsOpts, workspace.WithDirMode(0o777))
	}
	wm, err := workspace.NewManager(cfg.Storage.WorkspaceRoot, wsOpts...)
	if err != nil {
		return nil, err
	}
	a.spaces = wm
	if n, err := wm.Sweep(); err != nil {
		logger.Warn("failed to sweep stale workspaces", "error", err)
	} else if n > 0 {
		logger.Info("removed stale workspaces", "count", n)
	}

	if err := a.initRuntime(ctx); err != nil {
		return nil, err
	}

	a.prom = prometheus.NewRegistry()
	a.prom.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	compileLimits := sandbox.DefaultCompileLimits
	compileLimits.WallTime = cfg.Judge.CompileTimeLimit()
	compileLimits.CpuTime = cfg.Judge.CompileTimeLimit()
	runner := sandbox.NewRunner(a.runtime,
		sandbox.WithCompileLimits(compileLimits),
		sandbox.WithOutputLimit(cfg.Sandbox.OutputLimitKiB*1024),
		sandbox.WithRunnerLogger(logger),
	)

	deps := judge.Deps{
		Registry:   a.registry,
		Workspaces: wm,
		Runner:     runner,
		Metrics:    metrics.New(a.prom),
		Logger:     logger,
	}
	if opts.services {
		if deps.Recorder, err = a.initRecorder(ctx); err != nil {
			return nil, err
		}
		if deps.Publisher, err = a.initPublisher(); err != nil {
			return nil, err
		}
	}

	a.judge = judge.New(deps, judge.Options{
		DefaultTimeLimit:  cfg.Judge.DefaultTimeLimit(),
		MaxTimeLimit:      cfg.Judge.MaxTimeLimit(),
		DefaultMemoryKiB:  cfg.Judge.DefaultMemoryKiB,
		MaxMemoryKiB:      cfg.Judge.MaxMemoryKiB,
		MaxProcesses:      cfg.Judge.MaxProcesses,
		TestParallelism:   cfg.Judge.TestParallelism,
		MaxConcurrentJobs: cfg.Judge.MaxConcurrentJobs,
	})
	a.closers = append(a.closers, a.judge.Wait)
	ok = true
	return a, nil
}

func (a *app) initRuntime(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger
	switch cfg.Sandbox.Runtime {
	case config.RuntimeDocker:
		dc, err := sandbox.NewDockerClient()
		if err != nil {
			return fmt.Errorf("failed to create docker client: %w", err)
		}
		a.closers = append(a.closers, func() { dc.Close() })
		rt := sandbox.NewDockerRuntime(dc, logger,
			sandbox.WithUser(cfg.Sandbox.DockerUser),
			sandbox.WithCPUs(cfg.Sandbox.DockerCPUs),
		)
		if cfg.Sandbox.PullImages {
			if err := rt.EnsureImages(ctx, a.registry.Images()); err != nil {
				return err
			}
		}
		a.runtime, a.probe = rt, rt.Version
	case config.RuntimeIsolate:
		iso := isolate.New(
			isolate.WithBinary(cfg.Sandbox.IsolateBinary),
			isolate.WithCgroups(cfg.Sandbox.IsolateCgroups),
			isolate.WithLogger(logger),
		)
		rt := sandbox.NewIsolateRuntime(iso)
		a.runtime, a.probe = rt, rt.Version
	case config.RuntimeProcess:
		logger.Warn("process runtime does not isolate submissions; use it for development only")
		a.runtime = sandbox.NewProcessRuntime(logger)
		a.probe = func(context.Context) (string, error) { return "no isolation", nil }
	default:
		return fmt.Errorf("unknown sandbox runtime %q", cfg.Sandbox.Runtime)
	}
	return nil
}

func (a *app) initRecorder(ctx context.Context) (*recorder.Async, error) {
	var sinks []recorder.Sink
	if dir := a.cfg.Storage.RecordDir; dir != "" {
		fs, err := recorder.NewFileSink(dir)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, fs)
	}
	if dsn := a.cfg.Storage.DatabaseURL; dsn != "" {
		pg, err := recorder.NewPgSink(ctx, dsn)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pg.Close)
		sinks = append(sinks, pg)
	}
	if len(sinks) == 0 {
		return nil, nil
	}
	return recorder.NewAsync(recorder.Multi(sinks...), recordTimeout, a.logger), nil
}

func (a *app) initPublisher() (notify.Publisher, error) {
	var pubs []notify.Publisher
	if a.cfg.NATS.URL != "" {
		nc, err := a.natsConn()
		if err != nil {
			return nil, err
		}
		if a.cfg.NATS.EventSubject != "" {
			pubs = append(pubs, notify.NewNATS(nc, a.cfg.NATS.EventSubject))
		}
	}
	if len(a.cfg.Kafka.Brokers) > 0 {
		k := notify.NewKafka(a.cfg.Kafka.Brokers, a.cfg.Kafka.Topic)
		a.closers = append(a.closers, func() { k.Close() })
		pubs = append(pubs, k)
	}
	if a.cfg.Redis.Addr != "" {
		r := notify.NewRedis(a.cfg.Redis.Addr, a.cfg.Redis.Channel)
		a.closers = append(a.closers, func() { r.Close() })
		pubs = append(pubs, r)
	}
	switch len(pubs) {
	case 0:
		return nil, nil
	case 1:
		return pubs[0], nil
	}
	return notify.Multi(pubs...), nil
}

func (a *app) natsConn() (*nats.Conn, error) {
	if a.nc != nil {
		return a.nc, nil
	}
	nc, err := nats.Connect(a.cfg.NATS.URL, nats.Name("judge"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	a.closers = append(a.closers, func() {
		if err := nc.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			a.logger.Warn("failed to drain NATS connection", "error", err)
		}
	})
	a.nc = nc
	return nc, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
