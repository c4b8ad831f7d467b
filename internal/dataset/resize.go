package dataset

import (
	"os"
	"path/filepath"

	"github.com/andresmejia3/mixres/internal/types"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Resizer decodes a source image, runs the cascade with a Lanczos filter and saves the
// result in the format implied by the file extension.
type Resizer struct {
	SrcDir      string
	DstDir      string
	JPEGQuality int
}

// Resize writes one planned image to DstDir under its original filename, overwriting any
// existing file.
func (r *Resizer) Resize(p types.PlannedImage) (types.ResizeResult, error) {
	srcPath := filepath.Join(r.SrcDir, p.Record.Name)
	dstPath := filepath.Join(r.DstDir, p.Record.Name)

	img, err := imaging.Open(srcPath)
	if err != nil {
		return types.ResizeResult{}, ioErr("decode", srcPath, err)
	}
	if b := img.Bounds(); b.Dx() != p.Record.Width || b.Dy() != p.Record.Height {
		return types.ResizeResult{}, ioErr("decode", srcPath,
			errors.Errorf("decoded size %dx%d differs from probed size %dx%d", b.Dx(), b.Dy(), p.Record.Width, p.Record.Height))
	}

	img = imaging.Resize(img, p.Base.Width, p.Base.Height, imaging.Lanczos)
	if p.Tier == types.LowRes {
		img = imaging.Resize(img, p.Output.Width, p.Output.Height, imaging.Lanczos)
	}

	quality := r.JPEGQuality
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}
	if err := imaging.Save(img, dstPath, imaging.JPEGQuality(quality)); err != nil {
		return types.ResizeResult{}, ioErr("write", dstPath, err)
	}

	info, err := os.Stat(dstPath)
	if err != nil {
		return types.ResizeResult{}, ioErr("stat", dstPath, err)
	}
	klog.V(2).Infof("%s: %dx%d -> %dx%d (%s)", p.Record.Name, p.Record.Width, p.Record.Height,
		p.Output.Width, p.Output.Height, p.Tier)

	return types.ResizeResult{
		Index:        p.Index,
		Name:         p.Record.Name,
		Output:       p.Output,
		BytesWritten: info.Size(),
	}, nil
}
