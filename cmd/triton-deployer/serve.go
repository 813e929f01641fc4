package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"triton-deployer/internal/adapters/primary/http/handlers"
	"triton-deployer/internal/adapters/primary/http/middleware"
)

func newServeCmd(load configLoader) *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the deployment HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}

			deps, err := buildDeps(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer deps.Close()

			// Primary Adapter (HTTP Handlers)
			h := handlers.New(deps.deploySvc, deps.deploymentSvc, handlers.DeployDefaults{
				TritonURL:    cfg.Deploy.TritonURL,
				Bucket:       cfg.Deploy.TritonBucket,
				RepoPath:     cfg.Deploy.TritonModelRepoPath,
				Overrides:    cfg.Deploy.TritonModelConfigOverrides,
				UploadConfig: cfg.Deploy.TritonUploadConfig,
			})

			// Setup router
			router := gin.New()
			router.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())

			api := router.Group("/api/v1")
			h.RegisterRoutes(api)

			// Health check with DB ping when history is enabled
			router.GET("/healthz", func(c *gin.Context) {
				if deps.pool != nil {
					if err := deps.pool.Ping(c.Request.Context()); err != nil {
						c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
						return
					}
				}
				c.JSON(http.StatusOK, gin.H{"status": "ok"})
			})

			addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
			srv := &http.Server{
				Addr:    addr,
				Handler: router,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Infof("starting server on %s", addr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			// Graceful shutdown
			select {
			case <-cmd.Context().Done():
			case err := <-errCh:
				return fmt.Errorf("server error: %w", err)
			}
			log.Info("shutting down server...")

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				return fmt.Errorf("server forced shutdown: %w", err)
			}

			log.Info("waiting for in-flight deployments")
			deps.deploySvc.Wait()
			log.Info("server stopped")
			return nil
		},
	}

	f := c.Flags()
	f.String("server-host", "0.0.0.0", "Listen host")
	f.Int("server-port", 8080, "Listen port")
	f.String("triton-url", "", "Default Triton HTTP endpoint")
	f.String("triton-bucket", "", "Default S3 bucket holding the Triton model repository")
	f.Bool("database-enabled", false, "Record deployments in PostgreSQL")
	f.Bool("kubernetes-enabled", false, "Publish a KServe InferenceService after loading")
	return c
}
