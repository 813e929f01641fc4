package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"triton-deployer/internal/core/domain"
	output "triton-deployer/internal/core/ports/output"
)

const schema = `
CREATE TABLE IF NOT EXISTS triton_deployment (
	id            UUID PRIMARY KEY,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL,
	artifact      TEXT NOT NULL,
	model_name    TEXT NOT NULL,
	model_version INTEGER NOT NULL,
	framework     TEXT NOT NULL,
	triton_url    TEXT NOT NULL,
	bucket        TEXT NOT NULL,
	remote_path   TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	config        JSONB,
	error         TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_triton_deployment_model ON triton_deployment (model_name, created_at DESC);
`

const deploymentColumns = `id, created_at, updated_at, artifact, model_name, model_version,
			framework, triton_url, bucket, remote_path, status, config, error`

type deploymentRepo struct {
	pool *pgxpool.Pool
}

// NewDeploymentRepository creates a new DeploymentRepository
func NewDeploymentRepository(pool *pgxpool.Pool) output.DeploymentRepository {
	return &deploymentRepo{pool: pool}
}

// EnsureSchema creates the deployment history table when it does not exist
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure deployment schema: %w", err)
	}
	return nil
}

func (r *deploymentRepo) Create(ctx context.Context, d *domain.Deployment) error {
	cfg, err := encodeConfig(d.Config)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO triton_deployment
			(` + deploymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = r.pool.Exec(ctx, query,
		d.ID, d.CreatedAt, d.UpdatedAt, d.Artifact, d.ModelName, d.ModelVersion,
		string(d.Framework), d.TritonURL, d.Bucket, d.RemotePath, string(d.Status), cfg, d.Error,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDeploymentConflict
		}
		return fmt.Errorf("create deployment: %w", err)
	}
	return nil
}

func (r *deploymentRepo) Update(ctx context.Context, d *domain.Deployment) error {
	cfg, err := encodeConfig(d.Config)
	if err != nil {
		return err
	}

	query := `
		UPDATE triton_deployment
		SET remote_path = $1, status = $2, config = $3, error = $4, updated_at = $5
		WHERE id = $6
	`

	result, err := r.pool.Exec(ctx, query,
		d.RemotePath, string(d.Status), cfg, d.Error, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return fmt.Errorf("update deployment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrDeploymentNotFound
	}
	return nil
}

func (r *deploymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deployment, error) {
	query := `SELECT ` + deploymentColumns + ` FROM triton_deployment WHERE id = $1`

	d, err := scanDeployment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDeploymentNotFound
		}
		return nil, fmt.Errorf("get deployment by id: %w", err)
	}
	return d, nil
}

func (r *deploymentRepo) List(ctx context.Context, filter output.DeploymentFilter) ([]*domain.Deployment, int, error) {
	whereClause, args := buildWhere(filter)

	// Count
	countQuery := "SELECT COUNT(*) FROM triton_deployment" + whereClause
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count deployments: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM triton_deployment%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, deploymentColumns, whereClause, len(args)+1, len(args)+2)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list deployments: %w", err)
	}
	defer rows.Close()

	var deployments []*domain.Deployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan deployment row: %w", err)
		}
		deployments = append(deployments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate deployment rows: %w", err)
	}

	return deployments, total, nil
}

func buildWhere(filter output.DeploymentFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.ModelName != "" {
		args = append(args, filter.ModelName)
		conditions = append(conditions, fmt.Sprintf("model_name = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanDeployment(row pgx.Row) (*domain.Deployment, error) {
	d := &domain.Deployment{}
	var framework, status string
	var cfg []byte

	err := row.Scan(
		&d.ID, &d.CreatedAt, &d.UpdatedAt, &d.Artifact, &d.ModelName, &d.ModelVersion,
		&framework, &d.TritonURL, &d.Bucket, &d.RemotePath, &status, &cfg, &d.Error,
	)
	if err != nil {
		return nil, err
	}
	d.Framework = domain.Framework(framework)
	d.Status = domain.DeploymentStatus(status)

	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &d.Config); err != nil {
			return nil, fmt.Errorf("decode deployment config: %w", err)
		}
	}
	return d, nil
}

// encodeConfig returns nil for an empty config so the column stays NULL.
func encodeConfig(cfg domain.ModelConfig) ([]byte, error) {
	if cfg == nil {
		return nil, nil
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode deployment config: %w", err)
	}
	return data, nil
}
