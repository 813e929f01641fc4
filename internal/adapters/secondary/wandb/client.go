package wandb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/go-units"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"triton-deployer/internal/config"
	"triton-deployer/internal/core/domain"
	ports "triton-deployer/internal/core/ports/output"
)

const (
	defaultBaseURL     = "https://api.wandb.ai"
	defaultConcurrency = 4
	filesPageSize      = 100
)

const artifactFilesQuery = `
query ArtifactFiles($entityName: String!, $projectName: String!, $artifactName: String!, $cursor: String, $first: Int) {
  project(name: $projectName, entityName: $entityName) {
    artifact(name: $artifactName) {
      id
      files(after: $cursor, first: $first) {
        edges {
          node {
            name
            directUrl
            sizeBytes
          }
        }
        pageInfo {
          endCursor
          hasNextPage
        }
      }
    }
  }
}`

type wandbClient struct {
	baseURL     string
	apiKey      string
	downloadDir string
	concurrency int
	client      *http.Client
}

// NewClient creates an artifact downloader backed by the W&B GraphQL API
func NewClient(cfg *config.WandbConfig, timeout time.Duration, concurrency int) ports.ArtifactDownloader {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	downloadDir := cfg.DownloadDir
	if downloadDir == "" {
		downloadDir = "artifacts"
	}

	return &wandbClient{
		baseURL:     baseURL,
		apiKey:      cfg.APIKey,
		downloadDir: downloadDir,
		concurrency: concurrency,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// GraphQL request/response structures
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type filesResponse struct {
	Data struct {
		Project *struct {
			Artifact *struct {
				ID    string `json:"id"`
				Files struct {
					Edges []struct {
						Node artifactFile `json:"node"`
					} `json:"edges"`
					PageInfo struct {
						EndCursor   string `json:"endCursor"`
						HasNextPage bool   `json:"hasNextPage"`
					} `json:"pageInfo"`
				} `json:"files"`
			} `json:"artifact"`
		} `json:"project"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

type artifactFile struct {
	Name      string `json:"name"`
	DirectURL string `json:"directUrl"`
	SizeBytes int64  `json:"sizeBytes"`
}

func (c *wandbClient) Download(ctx context.Context, ref domain.ArtifactRef) (string, error) {
	files, err := c.listFiles(ctx, ref)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%w: %s", domain.ErrArtifactEmpty, ref.String())
	}

	// each run gets its own directory so concurrent or same-named
	// artifacts never share files
	if err := os.MkdirAll(c.downloadDir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	root, err := os.MkdirTemp(c.downloadDir, ref.QualifiedName()+"-")
	if err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	var total int64
	for _, f := range files {
		total += f.SizeBytes
	}
	log.WithFields(log.Fields{
		"artifact": ref.String(),
		"files":    len(files),
		"size":     units.HumanSize(float64(total)),
		"dir":      root,
	}).Info("Downloading artifact files")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, f := range files {
		g.Go(func() error {
			return c.downloadFile(gctx, root, f)
		})
	}
	if err := g.Wait(); err != nil {
		_ = os.RemoveAll(root)
		return "", err
	}

	return root, nil
}

func (c *wandbClient) listFiles(ctx context.Context, ref domain.ArtifactRef) ([]artifactFile, error) {
	var (
		files  []artifactFile
		cursor string
	)
	for {
		vars := map[string]any{
			"entityName":   ref.Entity,
			"projectName":  ref.Project,
			"artifactName": ref.QualifiedName(),
			"first":        filesPageSize,
		}
		if cursor != "" {
			vars["cursor"] = cursor
		}

		var resp filesResponse
		if err := c.graphql(ctx, graphqlRequest{Query: artifactFilesQuery, Variables: vars}, &resp); err != nil {
			return nil, fmt.Errorf("list artifact files: %w", err)
		}
		if len(resp.Errors) > 0 {
			return nil, fmt.Errorf("list artifact files: %s", resp.Errors[0].Message)
		}
		if resp.Data.Project == nil || resp.Data.Project.Artifact == nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, ref.String())
		}

		page := resp.Data.Project.Artifact.Files
		for _, e := range page.Edges {
			files = append(files, e.Node)
		}
		if !page.PageInfo.HasNextPage || page.PageInfo.EndCursor == "" {
			return files, nil
		}
		cursor = page.PageInfo.EndCursor
	}
}

func (c *wandbClient) graphql(ctx context.Context, body graphqlRequest, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/graphql", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("wandb returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *wandbClient) downloadFile(ctx context.Context, root string, f artifactFile) error {
	dest, err := safeJoin(root, f.Name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", f.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.DirectURL, nil)
	if err != nil {
		return fmt.Errorf("download %s: %w", f.Name, err)
	}
	if c.sameHost(f.DirectURL) {
		c.authorize(req)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", f.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %d", f.Name, resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	n, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}

	log.WithFields(log.Fields{
		"file": f.Name,
		"size": units.HumanSize(float64(n)),
	}).Debug("Downloaded artifact file")
	return nil
}

func (c *wandbClient) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.SetBasicAuth("api", c.apiKey)
	}
}

// sameHost keeps the API key off presigned bucket URLs.
func (c *wandbClient) sameHost(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return false
	}
	return u.Host == base.Host
}

func safeJoin(root, name string) (string, error) {
	dest := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, dest)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("artifact file %q escapes download dir", name)
	}
	return dest, nil
}

// Ensure interface compliance
var _ ports.ArtifactDownloader = (*wandbClient)(nil)
