package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"posevault/config"
	"posevault/internal/app"
	"posevault/internal/logger"
	"posevault/internal/mq"
	"posevault/internal/task"
	"posevault/internal/worker"

	"github.com/sirupsen/logrus"
)

func main() {
	config.InitConfig()
	cfg := config.AppConfig
	logger.Init(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("worker startup failed")
	}
	defer a.Close()

	go task.RunSweepLoop(ctx, cfg.SweepInterval, a.SweepLock(), a.Sweeper)

	if !cfg.NotifyAsync {
		logrus.Info("NOTIFY_ASYNC is off; worker only runs the expiry sweep")
		<-ctx.Done()
		return
	}

	client, err := mq.Dial(cfg.RabbitMQURL)
	if err != nil {
		logrus.WithError(err).Fatal("rabbitmq dial failed")
	}
	defer client.Close()

	logrus.Info("notify worker started")
	if err := worker.RunNotifyWorker(ctx, client, a.Dispatcher, worker.Options{
		Prefetch:    cfg.RabbitMQPrefetch,
		Concurrency: cfg.NotifyWorkers,
		Rate:        cfg.NotifyRate,
		Burst:       cfg.NotifyBurst,
	}); err != nil {
		logrus.WithError(err).Fatal("notify worker stopped")
	}
}
