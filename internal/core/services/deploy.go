package services

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/docker/go-units"
	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"triton-deployer/internal/core/domain"
	output "triton-deployer/internal/core/ports/output"
	"triton-deployer/internal/pbtxt"
)

const defaultUploadConcurrency = 4

type DeployService struct {
	downloader output.ArtifactDownloader
	store      output.ObjectStore
	dial       output.InferenceServerDialer
	history    output.DeploymentRepository
	publisher  output.ServingPublisher
	opts       DeployOptions

	inflight sync.WaitGroup
}

// DeployOptions carries the process-wide pipeline settings
type DeployOptions struct {
	UploadConcurrency int
	OutputConfigPath  string
	Namespace         string
}

// NewDeployService wires the pipeline. history and publisher may be nil.
func NewDeployService(
	downloader output.ArtifactDownloader,
	store output.ObjectStore,
	dial output.InferenceServerDialer,
	history output.DeploymentRepository,
	publisher output.ServingPublisher,
	opts DeployOptions,
) *DeployService {
	if opts.UploadConcurrency <= 0 {
		opts.UploadConcurrency = defaultUploadConcurrency
	}
	if opts.OutputConfigPath == "" {
		opts.OutputConfigPath = "overloaded_config.pbtxt"
	}
	return &DeployService{
		downloader: downloader,
		store:      store,
		dial:       dial,
		history:    history,
		publisher:  publisher,
		opts:       opts,
	}
}

type DeployRequest struct {
	Artifact     string
	Framework    string
	TritonURL    string
	Bucket       string
	RepoPath     string
	Overrides    map[string]any
	UploadConfig bool
}

type DeployResult struct {
	Deployment  *domain.Deployment
	ConfigPath  string
	Publication *output.ServingPublication
}

type deployPlan struct {
	ref        domain.ArtifactRef
	framework  domain.Framework
	tritonURL  string
	bucket     string
	repoPath   string
	overrides  domain.ModelConfig
	uploadCfg  bool
	outputPath string
}

func heading(text string) {
	log.Info(color.GreenString("triton job: ") + text)
}

// validate checks everything that can be checked before touching a remote system
func (s *DeployService) validate(req DeployRequest) (*deployPlan, error) {
	ref, err := domain.ParseArtifactRef(req.Artifact)
	if err != nil {
		return nil, err
	}
	if req.TritonURL == "" {
		return nil, domain.ErrMissingTritonURL
	}
	if req.Bucket == "" {
		return nil, domain.ErrMissingBucket
	}
	if err := domain.ValidateFramework(req.Framework); err != nil {
		return nil, err
	}

	return &deployPlan{
		ref:        ref,
		framework:  domain.Framework(req.Framework),
		tritonURL:  req.TritonURL,
		bucket:     req.Bucket,
		repoPath:   req.RepoPath,
		overrides:  domain.ModelConfig(req.Overrides),
		uploadCfg:  req.UploadConfig,
		outputPath: s.opts.OutputConfigPath,
	}, nil
}

// Deploy runs the whole pipeline and blocks until the model is loaded.
// The result is non-nil whenever a deployment was started, including
// when the model failed to become ready.
func (s *DeployService) Deploy(ctx context.Context, req DeployRequest) (*DeployResult, error) {
	plan, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	d := domain.NewDeployment(plan.ref, plan.framework, plan.tritonURL, plan.bucket)
	if err := s.record(ctx, d, true); err != nil {
		return nil, err
	}

	return s.run(ctx, plan, d)
}

// Submit validates the request, records it and runs the pipeline in the
// background. Wait blocks until submitted runs finish.
func (s *DeployService) Submit(ctx context.Context, req DeployRequest) (*domain.Deployment, error) {
	plan, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	d := domain.NewDeployment(plan.ref, plan.framework, plan.tritonURL, plan.bucket)
	if err := s.record(ctx, d, true); err != nil {
		return nil, err
	}

	// concurrent runs must not share the generated config file
	dir, base := filepath.Split(plan.outputPath)
	plan.outputPath = filepath.Join(dir, d.ID.String()+"-"+base)

	snapshot := *d
	runCtx := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if _, err := s.run(runCtx, plan, d); err != nil {
			log.WithFields(log.Fields{
				"deployment_id": d.ID,
				"artifact":      d.Artifact,
			}).WithError(err).Error("Deployment failed")
		}
	}()

	return &snapshot, nil
}

// Wait blocks until every submitted deployment has finished
func (s *DeployService) Wait() {
	s.inflight.Wait()
}

func (s *DeployService) run(ctx context.Context, plan *deployPlan, d *domain.Deployment) (*DeployResult, error) {
	result := &DeployResult{Deployment: d}
	fail := func(err error) (*DeployResult, error) {
		d.MarkFailed(err.Error())
		_ = s.record(ctx, d, false)
		return result, err
	}

	heading("Downloading wandb artifact")
	localDir, err := s.downloader.Download(ctx, plan.ref)
	if err != nil {
		return fail(fmt.Errorf("download artifact: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(localDir); err != nil {
			log.WithError(err).Warnf("Unable to remove downloaded artifact at %s", localDir)
		}
	}()

	heading("Uploading model to Triton model repo (this may take a while...)")
	remotePath := plan.framework.RemoteModelPath(plan.repoPath, plan.ref.ModelName(), plan.ref.Version)
	if err := s.uploadTree(ctx, localDir, plan.bucket, remotePath); err != nil {
		return fail(err)
	}
	d.MarkUploaded(remotePath)
	_ = s.record(ctx, d, false)

	heading("Loading model into Triton")
	cfg, err := s.loadModel(ctx, plan)
	result.ConfigPath = plan.outputPath
	if err != nil {
		s.withdraw(ctx, d)
		return fail(err)
	}
	d.MarkReady(cfg)
	_ = s.record(ctx, d, false)

	if s.publisher != nil && s.publisher.IsAvailable() {
		pub, err := s.publisher.Publish(ctx, s.opts.Namespace, d)
		if err != nil {
			log.WithError(err).Warn("Unable to publish KServe InferenceService")
		} else {
			result.Publication = pub
			log.WithFields(log.Fields{
				"name":        pub.Name,
				"namespace":   pub.Namespace,
				"storage_uri": pub.StorageURI,
			}).Info("Published KServe InferenceService")
		}
	}

	heading("Finished deploying to Triton")
	return result, nil
}

func (s *DeployService) uploadTree(ctx context.Context, localDir, bucket, remotePath string) error {
	type upload struct {
		local, key, rel string
		size            int64
	}

	var uploads []upload
	var total int64
	err := filepath.WalkDir(localDir, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		uploads = append(uploads, upload{local: p, key: path.Join(remotePath, rel), rel: rel, size: info.Size()})
		total += info.Size()
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk artifact dir: %w", err)
	}

	log.WithFields(log.Fields{
		"files":  len(uploads),
		"size":   units.HumanSize(float64(total)),
		"bucket": bucket,
	}).Info("Uploading artifact files")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.UploadConcurrency)
	for _, u := range uploads {
		g.Go(func() error {
			log.Infof("Uploading %s to %s", u.rel, u.key)
			if err := s.store.Upload(gctx, bucket, u.key, u.local); err != nil {
				return fmt.Errorf("upload %s: %w", u.rel, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *DeployService) loadModel(ctx context.Context, plan *deployPlan) (domain.ModelConfig, error) {
	name := plan.ref.ModelName()
	version := plan.ref.Version

	client, err := s.dial(plan.tritonURL)
	if err != nil {
		return nil, fmt.Errorf("connect to triton: %w", err)
	}
	defer client.Close()

	live, err := client.IsServerLive(ctx)
	if err != nil {
		return nil, err
	}
	if !live {
		return nil, fmt.Errorf("%w: %s is not live", domain.ErrServerUnavailable, plan.tritonURL)
	}

	base, err := s.baseConfig(ctx, plan.bucket, plan.repoPath, name)
	if err != nil {
		return nil, err
	}

	if len(base) == 0 && plan.framework.SupportsAutogen() {
		log.Warnf("Did not find config.pbtxt for %s/%d.  Trying to autogenerate config...", name, version)
		base, err = autogenConfig(ctx, client, name, version)
		if err != nil {
			return nil, err
		}
	}

	merged := domain.MergeModelConfigs(base, domain.VersionPolicyConfig(version), plan.overrides)

	if err := pbtxt.WriteFile(plan.outputPath, merged); err != nil {
		return nil, fmt.Errorf("write generated config: %w", err)
	}
	log.Infof("Generated config at: %s", plan.outputPath)

	if plan.uploadCfg {
		key := domain.ConfigObjectKey(plan.repoPath, name)
		log.Infof("Uploading %s to %s", plan.outputPath, key)
		if err := s.store.Upload(ctx, plan.bucket, key, plan.outputPath); err != nil {
			return nil, fmt.Errorf("upload generated config: %w", err)
		}
	}

	if err := client.LoadModel(ctx, name, merged); err != nil {
		return nil, err
	}

	ready, err := client.IsModelReady(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ready {
		log.Errorf("Failed to load model %s", name)
		return nil, fmt.Errorf("%w: %s", domain.ErrModelNotReady, name)
	}

	return merged, nil
}

// baseConfig reads <repo>/<model>/config.pbtxt; a missing file is an empty base
func (s *DeployService) baseConfig(ctx context.Context, bucket, repoPath, name string) (domain.ModelConfig, error) {
	key := domain.ConfigObjectKey(repoPath, name)

	keys, err := s.store.List(ctx, bucket, path.Dir(key)+"/")
	if err != nil {
		return nil, fmt.Errorf("list model repo: %w", err)
	}
	found := false
	for _, k := range keys {
		if k == key {
			found = true
			break
		}
	}
	if !found {
		return domain.ModelConfig{}, nil
	}

	data, err := s.store.Get(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("read base config: %w", err)
	}
	cfg, err := pbtxt.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidModelConfig, key, err)
	}
	return domain.NormalizeKeys(cfg), nil
}

// autogenConfig asks Triton to derive a config by loading the model
// without one, then unloads it again. Only a failed load falls back to an
// empty base; a model that loaded but whose config cannot be read is an error.
func autogenConfig(ctx context.Context, client output.InferenceServer, name string, version int) (domain.ModelConfig, error) {
	if err := client.LoadModel(ctx, name, nil); err != nil {
		log.Warnf("Unable to autogenerate config: %v.  Continuing with empty base config.", err)
		return domain.ModelConfig{}, nil
	}

	log.Infof("Using autogenerated config for %s/%d", name, version)
	cfg, err := client.GetModelConfig(ctx, name)
	if uerr := client.UnloadModel(ctx, name); uerr != nil {
		log.WithError(uerr).Warnf("Unable to unload %s after autogenerating config", name)
	}
	if err != nil {
		return nil, fmt.Errorf("read autogenerated config: %w", err)
	}
	return domain.NormalizeKeys(cfg), nil
}

// withdraw removes the InferenceService of a model Triton failed to load.
func (s *DeployService) withdraw(ctx context.Context, d *domain.Deployment) {
	if s.publisher == nil || !s.publisher.IsAvailable() {
		return
	}
	if err := s.publisher.Withdraw(ctx, s.opts.Namespace, d); err != nil {
		log.WithError(err).Warn("Unable to withdraw KServe InferenceService")
		return
	}
	log.WithField("model", d.ModelName).Info("Withdrew KServe InferenceService")
}

// record stores the deployment when history is enabled. Only the initial
// insert is fatal; later updates are logged.
func (s *DeployService) record(ctx context.Context, d *domain.Deployment, create bool) error {
	if s.history == nil {
		return nil
	}
	if create {
		if err := s.history.Create(ctx, d); err != nil {
			return fmt.Errorf("record deployment: %w", err)
		}
		return nil
	}
	if err := s.history.Update(ctx, d); err != nil {
		log.WithFields(log.Fields{
			"deployment_id": d.ID,
			"status":        d.Status,
		}).WithError(err).Warn("Unable to update deployment record")
		return err
	}
	return nil
}
