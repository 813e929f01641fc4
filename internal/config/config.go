package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Deploy     DeployConfig
	Wandb      WandbConfig
	S3         S3Config
	Database   DatabaseConfig
	Kubernetes KubernetesConfig
	Server     ServerConfig
	Logger     LoggerConfig
}

// DeployConfig holds the per-run pipeline settings
type DeployConfig struct {
	Artifact                   string
	Framework                  string
	TritonURL                  string
	TritonBucket               string
	TritonModelRepoPath        string
	TritonModelConfigOverrides map[string]any
	TritonUploadConfig         bool
	OutputConfigPath           string
	UploadConcurrency          int
	HTTPTimeout                time.Duration
}

type WandbConfig struct {
	BaseURL     string
	APIKey      string
	DownloadDir string
}

type S3Config struct {
	Region       string
	Endpoint     string
	UsePathStyle bool
}

type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type KubernetesConfig struct {
	Enabled        bool
	InCluster      bool
	KubeConfigPath string
	DefaultNS      string
}

type ServerConfig struct {
	Host string
	Port int
}

type LoggerConfig struct {
	Level  string
	Format string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("artifact", "")
	v.SetDefault("framework", "")
	v.SetDefault("triton_url", "")
	v.SetDefault("triton_bucket", "")
	v.SetDefault("triton_model_repo_path", "models")
	v.SetDefault("triton_model_config_overrides", map[string]any{})
	v.SetDefault("triton_upload_config", false)
	v.SetDefault("output_config_path", "overloaded_config.pbtxt")
	v.SetDefault("upload_concurrency", 4)
	v.SetDefault("http_timeout", "5m")

	v.SetDefault("wandb_base_url", "https://api.wandb.ai")
	v.SetDefault("wandb_api_key", "")
	v.SetDefault("download_dir", "artifacts")

	v.SetDefault("s3_region", "")
	v.SetDefault("s3_endpoint", "")
	v.SetDefault("s3_use_path_style", false)

	v.SetDefault("database_enabled", false)
	v.SetDefault("database_host", "localhost")
	v.SetDefault("database_port", 5432)
	v.SetDefault("database_user", "postgres")
	v.SetDefault("database_password", "")
	v.SetDefault("database_name", "triton_deployer")
	v.SetDefault("database_sslmode", "disable")
	v.SetDefault("database_max_open_conns", 10)
	v.SetDefault("database_max_idle_conns", 2)
	v.SetDefault("database_conn_max_lifetime", "30m")

	v.SetDefault("kubernetes_enabled", false)
	v.SetDefault("kubernetes_in_cluster", false)
	v.SetDefault("kubernetes_kubeconfig", "")
	v.SetDefault("kubernetes_namespace", "model-serving")

	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("server_port", 8080)

	v.SetDefault("logger_level", "info")
	v.SetDefault("logger_format", "text")
}

// Load resolves configuration from defaults, an optional config file,
// the environment and command-line flags, in increasing precedence.
// Flag names map to keys by replacing '-' with '_'.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	// Env
	v.AutomaticEnv()

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if f.Name == "config" || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
		})
		if bindErr != nil {
			return nil, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	httpTimeout, err := time.ParseDuration(v.GetString("http_timeout"))
	if err != nil {
		httpTimeout = 5 * time.Minute
	}
	connLifetime, err := time.ParseDuration(v.GetString("database_conn_max_lifetime"))
	if err != nil {
		connLifetime = 30 * time.Minute
	}

	overrides, err := loadOverrides(v)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Deploy: DeployConfig{
			Artifact:                   v.GetString("artifact"),
			Framework:                  v.GetString("framework"),
			TritonURL:                  v.GetString("triton_url"),
			TritonBucket:               v.GetString("triton_bucket"),
			TritonModelRepoPath:        v.GetString("triton_model_repo_path"),
			TritonModelConfigOverrides: overrides,
			TritonUploadConfig:         v.GetBool("triton_upload_config"),
			OutputConfigPath:           v.GetString("output_config_path"),
			UploadConcurrency:          v.GetInt("upload_concurrency"),
			HTTPTimeout:                httpTimeout,
		},
		Wandb: WandbConfig{
			BaseURL:     v.GetString("wandb_base_url"),
			APIKey:      v.GetString("wandb_api_key"),
			DownloadDir: v.GetString("download_dir"),
		},
		S3: S3Config{
			Region:       v.GetString("s3_region"),
			Endpoint:     v.GetString("s3_endpoint"),
			UsePathStyle: v.GetBool("s3_use_path_style"),
		},
		Database: DatabaseConfig{
			Enabled:         v.GetBool("database_enabled"),
			Host:            v.GetString("database_host"),
			Port:            v.GetInt("database_port"),
			User:            v.GetString("database_user"),
			Password:        v.GetString("database_password"),
			Name:            v.GetString("database_name"),
			SSLMode:         v.GetString("database_sslmode"),
			MaxOpenConns:    v.GetInt("database_max_open_conns"),
			MaxIdleConns:    v.GetInt("database_max_idle_conns"),
			ConnMaxLifetime: connLifetime,
		},
		Kubernetes: KubernetesConfig{
			Enabled:        v.GetBool("kubernetes_enabled"),
			InCluster:      v.GetBool("kubernetes_in_cluster"),
			KubeConfigPath: v.GetString("kubernetes_kubeconfig"),
			DefaultNS:      v.GetString("kubernetes_namespace"),
		},
		Server: ServerConfig{
			Host: v.GetString("server_host"),
			Port: v.GetInt("server_port"),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("logger_level"),
			Format: v.GetString("logger_format"),
		},
	}

	return cfg, nil
}

// loadOverrides accepts a nested map from a config file or a JSON object
// from the environment or flags.
func loadOverrides(v *viper.Viper) (map[string]any, error) {
	raw := v.Get("triton_model_config_overrides")
	if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" {
		return map[string]any{}, nil
	}
	overrides, err := cast.ToStringMapE(raw)
	if err != nil {
		return nil, fmt.Errorf("parse triton_model_config_overrides: %w", err)
	}
	return overrides, nil
}
