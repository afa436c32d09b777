package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/programme-lv/judge/internal/transport/httpapi"
	"github.com/programme-lv/judge/internal/transport/natsapi"
	"github.com/programme-lv/judge/internal/transport/sqsapi"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 30 * time.Second
	limiterIdle     = 10 * time.Minute
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "judge submissions received over HTTP, NATS and SQS",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "HTTP listen address; empty keeps the configured one",
			},
			&cli.BoolFlag{
				Name:  "no-http",
				Usage: "only consume queues",
			},
		},
		Action: serve,
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd, appOptions{services: true})
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, logger := a.cfg, a.logger

	natsRequests := cfg.NATS.URL != "" && cfg.NATS.RequestSubject != ""
	if cmd.Bool("no-http") && !natsRequests && cfg.SQS.RequestQueueURL == "" {
		return cli.Exit("nothing to serve: HTTP is disabled and no request queue is configured", 2)
	}

	eg, ctx := errgroup.WithContext(ctx)

	if !cmd.Bool("no-http") {
		addr := cfg.HTTP.Addr
		if v := cmd.String("addr"); v != "" {
			addr = v
		}
		limiter := httpapi.NewLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateBurst)
		srv := &http.Server{
			Addr: addr,
			Handler: httpapi.NewRouter(httpapi.Options{
				Judge:     a.judge,
				Languages: a.registry.List(),
				Metrics:   a.prom,
				Limiter:   limiter,
				Logger:    logger,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		eg.Go(func() error {
			logger.Info("listening", "addr", addr, "runtime", a.runtime.Name(), "workspaces", a.spaces.Root())
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		eg.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
		if limiter != nil {
			eg.Go(func() error {
				ticker := time.NewTicker(time.Minute)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return nil
					case <-ticker.C:
						if n := limiter.Forget(limiterIdle); n > 0 {
							logger.Debug("forgot idle clients", "count", n)
						}
					}
				}
			})
		}
	}

	if natsRequests {
		nc, err := a.natsConn()
		if err != nil {
			return err
		}
		ns := natsapi.New(nc, a.judge, cfg.NATS.RequestSubject, cfg.NATS.QueueGroup, logger)
		if err := ns.Start(); err != nil {
			return err
		}
		eg.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return ns.Stop(sctx)
		})
	}

	if cfg.SQS.RequestQueueURL != "" {
		client, err := sqsapi.NewClient(ctx, cfg.SQS.Region)
		if err != nil {
			return err
		}
		poller := sqsapi.New(client, a.judge, cfg.SQS.RequestQueueURL, 1, logger)
		eg.Go(func() error { return poller.Run(ctx) })
	}

	err = eg.Wait()
	logger.Info("shutting down")
	return err
}
