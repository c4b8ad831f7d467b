package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/andresmejia3/mixres/internal/types"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestStoreIntegration runs a full integration test against a real Postgres container.
// It requires Docker to be running.
func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	// Explicitly check for Docker availability and fail hard if missing
	// We wrap this in a function to recover from panics inside testcontainers (e.g. socket not found)
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("testcontainers panicked: %v", r)
			}
		}()
		_, err = testcontainers.NewDockerClientWithOpts(ctx)
		return
	}()
	if err != nil {
		t.Fatalf("Docker not available, cannot run integration test: %v", err)
	}

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("mixres_test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
		testcontainers.WithLogger(noopLogger{}),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("Failed to terminate container: %v", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	// Initialize Store (runs migrations)
	s, err := New(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to connect to store: %v", err)
	}
	defer s.Close(ctx)

	// --- Test Scenarios ---

	run := Run{
		ID:          "run-1",
		DatasetID:   "dataset-abc",
		SourceDir:   "/data/fern/images",
		OutputDir:   "/data/fern_mixed",
		BaseFactor:  5,
		ExtraFactor: 2,
		HighResPct:  0.3,
		Seed:        42,
		Images: []types.PlannedImage{
			{Index: 0, Record: types.ImageRecord{Name: "img00.png", Width: 1000, Height: 500}, Tier: types.LowRes,
				Base: types.Size{Width: 200, Height: 100}, Output: types.Size{Width: 100, Height: 50}},
			{Index: 1, Record: types.ImageRecord{Name: "img01.png", Width: 1000, Height: 500}, Tier: types.HighRes,
				Base: types.Size{Width: 200, Height: 100}, Output: types.Size{Width: 200, Height: 100}},
			{Index: 2, Record: types.ImageRecord{Name: "img02.png", Width: 1000, Height: 500}, Tier: types.LowRes,
				Base: types.Size{Width: 200, Height: 100}, Output: types.Size{Width: 100, Height: 50}},
		},
	}
	if err := s.RecordRun(ctx, run); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	// Duplicate run IDs must be rejected and leave no partial rows behind
	if err := s.RecordRun(ctx, run); err == nil {
		t.Error("Expected duplicate run ID to fail")
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(runs))
	}
	if runs[0].NumHighRes != 1 || runs[0].NumLowRes != 2 {
		t.Errorf("Expected 1 high-res / 2 low-res, got %d / %d", runs[0].NumHighRes, runs[0].NumLowRes)
	}
	if runs[0].Seed != 42 || runs[0].BaseFactor != 5 {
		t.Errorf("Parameters not persisted: %+v", runs[0])
	}

	images, err := s.GetRunImages(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRunImages failed: %v", err)
	}
	if len(images) != 3 {
		t.Fatalf("Expected 3 images, got %d", len(images))
	}
	if images[1].Name != "img01.png" || images[1].Tier != "high_res" || images[1].Width != 200 {
		t.Errorf("Unexpected image row %+v", images[1])
	}
	if images[2].Tier != "low_res" || images[2].Height != 50 {
		t.Errorf("Unexpected image row %+v", images[2])
	}

	ids, err := s.FindRunsByDataset(ctx, "dataset-abc")
	if err != nil {
		t.Fatalf("FindRunsByDataset failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "run-1" {
		t.Errorf("Expected [run-1], got %v", ids)
	}

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if _, err := s.ListRuns(ctx); err == nil {
		t.Error("Expected ListRuns to fail after tables were dropped")
	}
}

type noopLogger struct{}

func (n noopLogger) Printf(format string, v ...interface{}) {}
