package colmap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

func recordingExecutor(calls *[]call, failOn string) Executor {
	return func(ctx context.Context, name string, args ...string) error {
		*calls = append(*calls, call{name: name, args: args})
		if len(args) > 0 && args[0] == failOn {
			return errors.New("exit status 1")
		}
		return nil
	}
}

func newDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ImagesDirName), 0755))
	return dir
}

func argValue(args []string, flag string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func TestSteps(t *testing.T) {
	dir := "/data/scene"
	steps := NewRunner(DefaultOptions()).Steps(dir)
	require.Len(t, steps, 3)

	names := []string{steps[0].Name, steps[1].Name, steps[2].Name}
	assert.Equal(t, []string{"feature_extractor", "exhaustive_matcher", "mapper"}, names)
	for _, s := range steps {
		assert.Equal(t, s.Name, s.Args[0])
		assert.Equal(t, filepath.Join(dir, DatabaseFileName), argValue(s.Args, "--database_path"))
	}

	fe := steps[0].Args
	assert.Equal(t, filepath.Join(dir, ImagesDirName), argValue(fe, "--image_path"))
	assert.Equal(t, "0", argValue(fe, "--ImageReader.single_camera"))
	assert.Equal(t, "5000", argValue(fe, "--SiftExtraction.max_image_size"))
	assert.Equal(t, "0", argValue(fe, "--SiftExtraction.use_gpu"))
	assert.Equal(t, "0", argValue(steps[1].Args, "--SiftMatching.use_gpu"))
	assert.Equal(t, filepath.Join(dir, SparseDirName), argValue(steps[2].Args, "--output_path"))

	gpu := NewRunner(Options{UseGPU: true, SingleCamera: true, MaxImageSize: 3200}).Steps(dir)
	assert.Equal(t, "1", argValue(gpu[0].Args, "--SiftExtraction.use_gpu"))
	assert.Equal(t, "1", argValue(gpu[0].Args, "--ImageReader.single_camera"))
	assert.Equal(t, "3200", argValue(gpu[0].Args, "--SiftExtraction.max_image_size"))
	assert.Equal(t, "1", argValue(gpu[1].Args, "--SiftMatching.use_gpu"))
}

func TestReconstruct(t *testing.T) {
	dir := newDataset(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DatabaseFileName), []byte("stale"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, SparseDirName, "0"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, SparseDirName, "0", "points3D.bin"), []byte("old"), 0644))

	var calls []call
	var announced []string
	r := NewRunner(Options{Binary: "/opt/colmap/bin/colmap"}).WithExecutor(recordingExecutor(&calls, ""))
	require.NoError(t, r.Reconstruct(context.Background(), dir, func(s Step) {
		announced = append(announced, s.Name)
	}))

	assert.Equal(t, []string{"feature_extractor", "exhaustive_matcher", "mapper"}, announced)
	require.Len(t, calls, 3)
	for _, c := range calls {
		assert.Equal(t, "/opt/colmap/bin/colmap", c.name)
	}

	// Stale outputs are cleared before the first step; sparse/ exists for the mapper.
	_, err := os.Stat(filepath.Join(dir, DatabaseFileName))
	assert.True(t, os.IsNotExist(err))
	entries, err := os.ReadDir(filepath.Join(dir, SparseDirName))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReconstruct_StepFailureStops(t *testing.T) {
	dir := newDataset(t)

	var calls []call
	r := NewRunner(DefaultOptions()).WithExecutor(recordingExecutor(&calls, "exhaustive_matcher"))
	err := r.Reconstruct(context.Background(), dir, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colmap exhaustive_matcher failed")
	assert.Len(t, calls, 2)
}

func TestReconstruct_MissingImages(t *testing.T) {
	var calls []call
	r := NewRunner(DefaultOptions()).WithExecutor(recordingExecutor(&calls, ""))
	err := r.Reconstruct(context.Background(), t.TempDir(), nil)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "images directory not found"))
	assert.Empty(t, calls)
}

func TestRunSafeCapturesStderr(t *testing.T) {
	err := runSafe(context.Background(), "sh", "-c", "echo 'no images registered' >&2; exit 3")
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Contains(t, stepErr.Stderr, "no images registered")
	assert.Contains(t, stepErr.Command, "sh -c")
}

func TestCheckBinary(t *testing.T) {
	_, err := NewRunner(Options{Binary: "definitely-not-colmap-xyz"}).CheckBinary()
	assert.ErrorContains(t, err, "definitely-not-colmap-xyz not found")

	path, err := NewRunner(Options{Binary: "sh"}).CheckBinary()
	require.NoError(t, err)
	assert.NotEmpty(t, path)
}
