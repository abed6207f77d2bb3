package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mathtutor/videolab/internal/models"
)

func (s *Store) CreateRender(ctx context.Context, r *models.Render) error {
	query := `
		INSERT INTO renders (
			id, output_name, scene_name, question, status
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	return s.QueryRowContext(
		ctx, query,
		r.ID, r.OutputName, r.SceneName, r.Question, r.Status,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
}

func (s *Store) GetRender(ctx context.Context, id uuid.UUID) (*models.Render, error) {
	query := `
		SELECT
			id, output_name, scene_name, question, status, video_path,
			byte_size, segment_count, error_kind, error_message,
			created_at, updated_at
		FROM renders
		WHERE id = $1
	`

	r := &models.Render{}
	err := s.QueryRowContext(ctx, query, id).Scan(
		&r.ID, &r.OutputName, &r.SceneName, &r.Question, &r.Status,
		&r.VideoPath, &r.ByteSize, &r.SegmentCount, &r.ErrorKind,
		&r.ErrorMessage, &r.CreatedAt, &r.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("render not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get render: %w", err)
	}

	return r, nil
}

func (s *Store) UpdateRenderStatus(ctx context.Context, id uuid.UUID, status models.RenderStatus) error {
	query := `UPDATE renders SET status = $1, updated_at = $2 WHERE id = $3`

	if _, err := s.ExecContext(ctx, query, status, time.Now(), id); err != nil {
		return fmt.Errorf("failed to update render status: %w", err)
	}
	return nil
}

// CompleteRender records a successful render and its artifact.
func (s *Store) CompleteRender(ctx context.Context, id uuid.UUID, artifact *models.Artifact) error {
	query := `
		UPDATE renders
		SET status = $1, video_path = $2, byte_size = $3,
			segment_count = $4, updated_at = $5
		WHERE id = $6
	`

	_, err := s.ExecContext(
		ctx, query,
		models.RenderStatusSucceeded, artifact.VideoPath, artifact.ByteSize,
		artifact.SegmentCount, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete render: %w", err)
	}
	return nil
}

// FailRender records a terminal failure with its taxonomy kind.
func (s *Store) FailRender(ctx context.Context, id uuid.UUID, status models.RenderStatus, kind, message string) error {
	query := `
		UPDATE renders
		SET status = $1, error_kind = $2, error_message = $3, updated_at = $4
		WHERE id = $5
	`

	if _, err := s.ExecContext(ctx, query, status, kind, message, time.Now(), id); err != nil {
		return fmt.Errorf("failed to record render failure: %w", err)
	}
	return nil
}

func (s *Store) ListRecentRenders(ctx context.Context, limit int) ([]models.Render, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT
			id, output_name, scene_name, question, status, video_path,
			byte_size, segment_count, error_kind, error_message,
			created_at, updated_at
		FROM renders
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query renders: %w", err)
	}
	defer rows.Close()

	var renders []models.Render
	for rows.Next() {
		var r models.Render
		err := rows.Scan(
			&r.ID, &r.OutputName, &r.SceneName, &r.Question, &r.Status,
			&r.VideoPath, &r.ByteSize, &r.SegmentCount, &r.ErrorKind,
			&r.ErrorMessage, &r.CreatedAt, &r.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan render: %w", err)
		}
		renders = append(renders, r)
	}

	return renders, rows.Err()
}
