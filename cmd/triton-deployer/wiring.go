package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"triton-deployer/internal/adapters/secondary/kserve"
	"triton-deployer/internal/adapters/secondary/postgres"
	"triton-deployer/internal/adapters/secondary/s3store"
	"triton-deployer/internal/adapters/secondary/triton"
	"triton-deployer/internal/adapters/secondary/wandb"
	"triton-deployer/internal/config"
	output "triton-deployer/internal/core/ports/output"
	"triton-deployer/internal/core/services"
)

type deps struct {
	pool          *pgxpool.Pool
	deploySvc     *services.DeployService
	deploymentSvc *services.DeploymentService
}

func (d *deps) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
}

// ============================================================================
// Hexagonal Architecture Wiring
// ============================================================================

func buildDeps(ctx context.Context, cfg *config.Config) (*deps, error) {
	d := &deps{}

	// Secondary Adapters
	store, err := s3store.NewObjectStore(ctx, &cfg.S3)
	if err != nil {
		return nil, err
	}
	downloader := wandb.NewClient(&cfg.Wandb, cfg.Deploy.HTTPTimeout, cfg.Deploy.UploadConcurrency)
	dialer := triton.NewDialer(cfg.Deploy.HTTPTimeout)

	// Deployment history (Optional - based on config)
	var history output.DeploymentRepository
	if cfg.Database.Enabled {
		pool, err := openPool(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		d.pool = pool
		history = postgres.NewDeploymentRepository(pool)
		log.Info("deployment history enabled")
	} else {
		log.Info("deployment history disabled")
	}

	// KServe Client (Optional - based on config)
	var publisher output.ServingPublisher
	if cfg.Kubernetes.Enabled {
		client, err := kserve.NewKServeClient(&cfg.Kubernetes)
		if err != nil {
			log.Warnf("KServe client init failed (continuing without K8s integration): %v", err)
		} else {
			publisher = client
			log.Info("KServe client initialized")
		}
	} else {
		log.Info("KServe integration disabled")
	}

	// Core Services (Application Layer)
	d.deploySvc = services.NewDeployService(downloader, store, dialer, history, publisher, services.DeployOptions{
		UploadConcurrency: cfg.Deploy.UploadConcurrency,
		OutputConfigPath:  cfg.Deploy.OutputConfigPath,
		Namespace:         cfg.Kubernetes.DefaultNS,
	})
	d.deploymentSvc = services.NewDeploymentService(history)

	return d, nil
}

func openPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create db pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info("database connection established")
	return pool, nil
}
