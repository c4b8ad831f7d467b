package store

import (
	"context"
	"fmt"
	"time"

	"github.com/andresmejia3/mixres/internal/types"
	"github.com/jackc/pgx/v5"
)

// Store manages the PostgreSQL connection backing the run ledger.
type Store struct {
	conn *pgx.Conn
}

// Run is one generation run as recorded in the ledger.
type Run struct {
	ID          string
	DatasetID   string
	SourceDir   string
	OutputDir   string
	BaseFactor  float64
	ExtraFactor float64
	HighResPct  float64
	Seed        int64
	Images      []types.PlannedImage
}

// RunSummary is a ledger row without its images.
type RunSummary struct {
	ID          string
	DatasetID   string
	SourceDir   string
	OutputDir   string
	BaseFactor  float64
	ExtraFactor float64
	HighResPct  float64
	Seed        int64
	NumHighRes  int
	NumLowRes   int
	CreatedAt   time.Time
}

// RunImage is the per-image row of a run.
type RunImage struct {
	Position int
	Name     string
	Tier     string
	Width    int
	Height   int
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

// initSchema creates the ledger tables if they don't exist (Auto-Migration).
func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS generation_runs (
			id TEXT PRIMARY KEY,
			dataset_id TEXT NOT NULL,
			source_dir TEXT NOT NULL,
			output_dir TEXT NOT NULL,
			base_factor DOUBLE PRECISION NOT NULL,
			extra_factor DOUBLE PRECISION NOT NULL,
			high_res_pct DOUBLE PRECISION NOT NULL,
			seed BIGINT NOT NULL,
			num_high_res INT NOT NULL,
			num_low_res INT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS run_images (
			run_id TEXT REFERENCES generation_runs(id) ON DELETE CASCADE,
			position INT NOT NULL,
			filename TEXT NOT NULL,
			tier TEXT NOT NULL,
			width INT NOT NULL,
			height INT NOT NULL,
			PRIMARY KEY (run_id, position)
		);
		CREATE INDEX IF NOT EXISTS generation_runs_dataset_id_idx ON generation_runs (dataset_id);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// RecordRun saves a run and all of its images in a single transaction.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	var numHigh, numLow int
	for _, img := range run.Images {
		if img.Tier == types.HighRes {
			numHigh++
		} else {
			numLow++
		}
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO generation_runs
			(id, dataset_id, source_dir, output_dir, base_factor, extra_factor, high_res_pct, seed, num_high_res, num_low_res)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, run.ID, run.DatasetID, run.SourceDir, run.OutputDir, run.BaseFactor, run.ExtraFactor, run.HighResPct, run.Seed, numHigh, numLow)
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, img := range run.Images {
		batch.Queue(`
			INSERT INTO run_images (run_id, position, filename, tier, width, height)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, run.ID, img.Index, img.Record.Name, img.Tier.String(), img.Output.Width, img.Output.Height)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert run images: %w", err)
	}

	return tx.Commit(ctx)
}

// ListRuns returns every recorded run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, dataset_id, source_dir, output_dir, base_factor, extra_factor, high_res_pct, seed,
			num_high_res, num_low_res, created_at
		FROM generation_runs
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.DatasetID, &r.SourceDir, &r.OutputDir, &r.BaseFactor, &r.ExtraFactor,
			&r.HighResPct, &r.Seed, &r.NumHighRes, &r.NumLowRes, &r.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRunImages returns the images of one run in enumeration order.
func (s *Store) GetRunImages(ctx context.Context, runID string) ([]RunImage, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT position, filename, tier, width, height
		FROM run_images
		WHERE run_id = $1
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []RunImage
	for rows.Next() {
		var img RunImage
		if err := rows.Scan(&img.Position, &img.Name, &img.Tier, &img.Width, &img.Height); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// FindRunsByDataset returns the IDs of earlier runs over the same source image set.
func (s *Store) FindRunsByDataset(ctx context.Context, datasetID string) ([]string, error) {
	rows, err := s.conn.Query(ctx, "SELECT id FROM generation_runs WHERE dataset_id = $1 ORDER BY created_at", datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Reset drops all application tables to clear the database state.
// This is useful for development to force a schema refresh without migrations.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `
		DROP TABLE IF EXISTS run_images CASCADE;
		DROP TABLE IF EXISTS generation_runs CASCADE;
	`)
	return err
}
