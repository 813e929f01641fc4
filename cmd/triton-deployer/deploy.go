package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"triton-deployer/internal/core/services"
)

func newDeployCmd(load configLoader) *cobra.Command {
	c := &cobra.Command{
		Use:   "deploy",
		Short: "Download an artifact, upload it to the model repository and load it into Triton",
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

			result, err := deps.deploySvc.Deploy(cmd.Context(), services.DeployRequest{
				Artifact:     cfg.Deploy.Artifact,
				Framework:    cfg.Deploy.Framework,
				TritonURL:    cfg.Deploy.TritonURL,
				Bucket:       cfg.Deploy.TritonBucket,
				RepoPath:     cfg.Deploy.TritonModelRepoPath,
				Overrides:    cfg.Deploy.TritonModelConfigOverrides,
				UploadConfig: cfg.Deploy.TritonUploadConfig,
			})
			if err != nil {
				return fmt.Errorf("deploy %s: %w", cfg.Deploy.Artifact, err)
			}

			log.WithFields(log.Fields{
				"deployment_id": result.Deployment.ID,
				"model":         result.Deployment.ModelName,
				"version":       result.Deployment.ModelVersion,
				"remote_path":   result.Deployment.RemotePath,
				"config":        result.ConfigPath,
			}).Info("Model is ready")
			return nil
		},
	}

	f := c.Flags()
	f.String("artifact", "", "Artifact to deploy, e.g. wandb-artifact://entity/project/name:v3")
	f.String("framework", "", "Model framework (pytorch or tensorflow)")
	f.String("triton-url", "", "Triton HTTP endpoint, e.g. localhost:8000")
	f.String("triton-bucket", "", "S3 bucket holding the Triton model repository")
	f.String("triton-model-repo-path", "models", "Model repository prefix inside the bucket")
	f.String("triton-model-config-overrides", "", "JSON object merged over the model config")
	f.Bool("triton-upload-config", false, "Upload the generated config.pbtxt to the model directory")
	f.String("output-config-path", "overloaded_config.pbtxt", "Where to write the generated config")
	f.Int("upload-concurrency", 4, "Parallel uploads to the bucket")
	f.String("download-dir", "artifacts", "Local directory for downloaded artifacts")
	f.String("s3-endpoint", "", "Custom S3 endpoint, e.g. for MinIO")
	f.String("s3-region", "", "S3 region")
	f.Bool("kubernetes-enabled", false, "Publish a KServe InferenceService after loading")
	return c
}
