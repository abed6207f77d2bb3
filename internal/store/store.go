// Package store keeps the render manifest: one row per render attempt,
// tying an output name to its question, status, and artifact.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
)

type Store struct {
	*sql.DB
}

// New opens the manifest database. Callers pass an empty URL to run without
// a manifest; that decision belongs to main, not here.
func New(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{DB: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[Store] connected to render manifest database")
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS renders (
			id            UUID PRIMARY KEY,
			output_name   TEXT NOT NULL,
			scene_name    TEXT NOT NULL,
			question      TEXT,
			status        TEXT NOT NULL,
			video_path    TEXT,
			byte_size     BIGINT,
			segment_count INTEGER,
			error_kind    TEXT,
			error_message TEXT,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS renders_output_name_idx ON renders (output_name);
	`
	if _, err := s.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure renders schema: %w", err)
	}
	return nil
}
