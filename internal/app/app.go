// Package app wires configuration into the share-core services.
package app

import (
	"context"
	"fmt"
	"time"

	"posevault/config"
	"posevault/internal/mq"
	"posevault/internal/repo"
	"posevault/internal/service"
	"posevault/internal/storage"
	"posevault/internal/task"
	"posevault/utils"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type App struct {
	Config config.Config
	DB     *gorm.DB
	Redis  *redis.Client
	Store  storage.Store
	Repos  repo.Repos

	Validator  *service.TokenValidator
	Dispatcher *service.Dispatcher
	Uploads    *service.UploadGate
	Proxy      *service.ObjectProxy
	Shares     *service.ShareService
	Manager    *service.ShareManager
	Galleries  *service.GalleryService
	Aggregator *service.Aggregator
	Sweeper    *service.Sweeper

	publisher *mq.Publisher
}

// Build opens every backend named in cfg and assembles the services.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := repo.OpenDB(cfg)
	if err != nil {
		return nil, err
	}
	rdb, err := repo.NewRedis(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	store, err := storage.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		Store:  store,
		Repos:  repo.NewGormRepos(db),
	}

	var cache service.ShareCache
	if rdb != nil {
		cache = utils.NewShareCache(utils.NewRedisCache(rdb), cfg.ShareCacheTTL)
	}
	a.Validator = service.NewTokenValidator(a.Repos.Shares, cache)
	a.Dispatcher = service.NewDispatcher(a.Repos)

	var events service.EventPublisher = service.DirectPublisher{Dispatcher: a.Dispatcher}
	if cfg.NotifyAsync {
		a.publisher = mq.NewPublisher(cfg.RabbitMQURL)
		events = task.NewQueuePublisher(a.publisher)
		logrus.Info("notifications are queued for the worker")
	}

	a.Uploads = service.NewUploadGate(a.Validator, a.Repos, store, events)
	a.Proxy = service.NewObjectProxy(store, a.Validator)
	a.Shares = service.NewShareService(a.Validator, a.Repos, events)
	a.Manager = service.NewShareManager(a.Repos, a.Validator).WithMaxUploadSizeMB(cfg.MaxShareUploadMB)
	a.Galleries = service.NewGalleryService(a.Repos.Galleries)
	a.Aggregator = service.NewAggregator(a.Repos)
	a.Sweeper = service.NewSweeper(a.Repos.Shares, a.Validator, a.Dispatcher)
	return a, nil
}

// SweepLock returns the Redis sweep lock, or nil without Redis.
func (a *App) SweepLock() task.Locker {
	if a.Redis == nil {
		return nil
	}
	ttl := a.Config.SweepLockTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return repo.NewRedisLock(a.Redis, task.SweepLockKey, ttl)
}

func (a *App) Close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
