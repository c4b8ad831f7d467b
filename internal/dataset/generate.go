package dataset

import (
	"context"
	"os"
	"path/filepath"

	"github.com/andresmejia3/mixres/internal/types"
	"github.com/andresmejia3/mixres/internal/worker"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Progress receives one increment per written image. *progressbar.ProgressBar satisfies it.
type Progress interface {
	Add(num int) error
}

// Generator turns a folder of photographs into a mixed-resolution dataset.
type Generator struct {
	Config      Config
	Workers     int
	JPEGQuality int
	Progress    Progress

	// BeforeManifest, if set, runs after every image is written and before the manifest.
	// An error aborts the run with no manifest on disk.
	BeforeManifest func(ctx context.Context, res *Result) error
}

// Result describes a completed generation run.
type Result struct {
	Records      []types.ImageRecord
	Plan         []types.PlannedImage
	Manifest     *Manifest
	ManifestPath string
	ImagesDir    string
	BytesWritten int64
}

// Generate enumerates srcDir, partitions the images, writes the resized images to
// <outDir>/images and finally writes the manifest. Any failure aborts the whole run;
// a manifest from an earlier run is removed before the first write and the new one is
// only written after every image (and BeforeManifest) succeeded.
func (g *Generator) Generate(ctx context.Context, srcDir, outDir string) (*Result, error) {
	if err := g.Config.Validate(); err != nil {
		return nil, err
	}
	imagesDir := filepath.Join(outDir, ImagesDirName)
	if err := checkDistinct(srcDir, imagesDir); err != nil {
		return nil, err
	}

	records, err := Enumerate(srcDir)
	if err != nil {
		return nil, err
	}
	tiers := Partition(records, g.Config.HighResPct, g.Config.Seed)
	plan, err := Plan(records, tiers, g.Config)
	if err != nil {
		return nil, err
	}
	manifest := NewManifest(plan, g.Config)
	klog.V(1).Infof("partition: %d high-res, %d low-res (seed %d)", len(manifest.HighRes), len(manifest.LowRes), g.Config.Seed)

	// A manifest left by an earlier run would describe images this run is about to overwrite.
	manifestPath := filepath.Join(outDir, ManifestFileName)
	if err := os.Remove(manifestPath); err != nil && !os.IsNotExist(err) {
		return nil, ioErr("remove", manifestPath, err)
	}

	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		return nil, ioErr("create directory", imagesDir, err)
	}

	resizer := &Resizer{SrcDir: srcDir, DstDir: imagesDir, JPEGQuality: g.JPEGQuality}
	job := func(ctx context.Context, _ int, p types.PlannedImage) (types.ResizeResult, error) {
		return resizer.Resize(p)
	}

	var written int64
	_, err = worker.Run(ctx, worker.New(g.Workers), plan, job, func(_ int, r types.ResizeResult) {
		written += r.BytesWritten
		if g.Progress != nil {
			_ = g.Progress.Add(1)
		}
	})
	if err != nil {
		return nil, err
	}

	res := &Result{
		Records:      records,
		Plan:         plan,
		Manifest:     manifest,
		ManifestPath: manifestPath,
		ImagesDir:    imagesDir,
		BytesWritten: written,
	}
	if g.BeforeManifest != nil {
		if err := g.BeforeManifest(ctx, res); err != nil {
			return nil, err
		}
	}
	if err := WriteManifest(manifestPath, manifest); err != nil {
		return nil, err
	}
	return res, nil
}

// checkDistinct prevents overwriting the originals in place.
func checkDistinct(srcDir, imagesDir string) error {
	srcAbs, err := filepath.Abs(srcDir)
	if err != nil {
		return ioErr("resolve", srcDir, err)
	}
	dstAbs, err := filepath.Abs(imagesDir)
	if err != nil {
		return ioErr("resolve", imagesDir, err)
	}
	if srcAbs == dstAbs {
		return errors.Errorf("source directory %q is the output images directory; refusing to overwrite originals", srcDir)
	}
	return nil
}
