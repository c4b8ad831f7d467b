// Package colmap drives the external COLMAP binary over a generated dataset and
// relocates reconstruction artifacts between dataset roots.
package colmap

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/andresmejia3/mixres/internal/utils"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const (
	DatabaseFileName    = "database.db"
	SparseDirName       = "sparse"
	ImagesDirName       = "images"
	PosesBoundsFileName = "poses_bounds.npy"

	DefaultBinary       = "colmap"
	DefaultMaxImageSize = 5000
)

// Options configures the reconstruction steps.
type Options struct {
	Binary       string
	UseGPU       bool
	MaxImageSize int
	SingleCamera bool
}

// DefaultOptions mirrors the CPU-only settings used for the mixed-resolution datasets.
// Images of different sizes come from different cameras as far as COLMAP is concerned,
// so single-camera mode stays off.
func DefaultOptions() Options {
	return Options{
		Binary:       DefaultBinary,
		MaxImageSize: DefaultMaxImageSize,
	}
}

// Step is one COLMAP subcommand invocation.
type Step struct {
	Name string
	Args []string
}

// Executor runs a prepared command. Tests replace it.
type Executor func(ctx context.Context, name string, args ...string) error

// Runner executes the feature extraction, matching and mapping pipeline.
type Runner struct {
	opts Options
	exec Executor
}

// NewRunner returns a Runner that shells out through utils.SafeCommand.
func NewRunner(opts Options) *Runner {
	if opts.Binary == "" {
		opts.Binary = DefaultBinary
	}
	if opts.MaxImageSize <= 0 {
		opts.MaxImageSize = DefaultMaxImageSize
	}
	return &Runner{opts: opts, exec: runSafe}
}

// WithExecutor swaps the command executor.
func (r *Runner) WithExecutor(e Executor) *Runner {
	r.exec = e
	return r
}

func runSafe(ctx context.Context, name string, args ...string) error {
	cmd := utils.NewSafeCommand(ctx, name, args...)
	cmd.Stdout = os.Stderr
	klog.V(1).Infof("running %s", cmd)
	if err := cmd.Run(); err != nil {
		return &StepError{Command: cmd.String(), Stderr: cmd.Stderr.String(), Err: err}
	}
	return nil
}

// StepError carries the captured stderr of a failed COLMAP invocation.
type StepError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *StepError) Error() string {
	return e.Command + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error { return e.Err }

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// CheckBinary verifies that the COLMAP executable can be found on PATH.
func (r *Runner) CheckBinary() (string, error) {
	path, err := exec.LookPath(r.opts.Binary)
	if err != nil {
		return "", errors.Wrapf(err, "%s not found", r.opts.Binary)
	}
	return path, nil
}

// Steps builds the three invocations for datasetDir without running them.
func (r *Runner) Steps(datasetDir string) []Step {
	images := filepath.Join(datasetDir, ImagesDirName)
	database := filepath.Join(datasetDir, DatabaseFileName)
	sparse := filepath.Join(datasetDir, SparseDirName)
	gpu := boolFlag(r.opts.UseGPU)

	return []Step{
		{Name: "feature_extractor", Args: []string{
			"feature_extractor",
			"--database_path", database,
			"--image_path", images,
			"--ImageReader.single_camera", boolFlag(r.opts.SingleCamera),
			"--SiftExtraction.max_image_size", strconv.Itoa(r.opts.MaxImageSize),
			"--SiftExtraction.use_gpu", gpu,
		}},
		{Name: "exhaustive_matcher", Args: []string{
			"exhaustive_matcher",
			"--database_path", database,
			"--SiftMatching.use_gpu", gpu,
		}},
		{Name: "mapper", Args: []string{
			"mapper",
			"--database_path", database,
			"--image_path", images,
			"--output_path", sparse,
		}},
	}
}

// Reconstruct removes stale outputs and runs every step in order, stopping at the first failure.
// onStep, if not nil, is called before each step.
func (r *Runner) Reconstruct(ctx context.Context, datasetDir string, onStep func(Step)) error {
	images := filepath.Join(datasetDir, ImagesDirName)
	if info, err := os.Stat(images); err != nil || !info.IsDir() {
		return errors.Errorf("images directory not found: %s", images)
	}
	database := filepath.Join(datasetDir, DatabaseFileName)
	if err := os.Remove(database); err == nil {
		klog.Infof("removed old %s", database)
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to remove %s", database)
	}
	sparse := filepath.Join(datasetDir, SparseDirName)
	if err := os.RemoveAll(sparse); err != nil {
		return errors.Wrapf(err, "failed to remove %s", sparse)
	}
	if err := os.MkdirAll(sparse, 0755); err != nil {
		return errors.Wrapf(err, "failed to create %s", sparse)
	}

	for _, step := range r.Steps(datasetDir) {
		if onStep != nil {
			onStep(step)
		}
		if err := r.exec(ctx, r.opts.Binary, step.Args...); err != nil {
			return errors.Wrapf(err, "colmap %s failed", step.Name)
		}
	}
	return nil
}
