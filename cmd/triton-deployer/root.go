package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"triton-deployer/internal/config"
)

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:          "triton-deployer",
		Short:        "Deploy W&B model artifacts to an NVIDIA Triton model repository",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML or JSON config file")
	root.PersistentFlags().String("logger-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("logger-format", "text", "Log format (text or json)")

	load := func(cmd *cobra.Command) (*config.Config, error) {
		cfg, err := config.Load(configFile, cmd.Flags())
		if err != nil {
			return nil, err
		}
		initLogger(cfg)
		return cfg, nil
	}

	root.AddCommand(
		newDeployCmd(load),
		newServeCmd(load),
	)
	return root
}

type configLoader func(cmd *cobra.Command) (*config.Config, error)

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
