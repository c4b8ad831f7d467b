package dataset

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/andresmejia3/mixres/internal/types"
	"k8s.io/klog/v2"
)

var allowedExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

const allowedExtList = ".png, .jpg, .jpeg"

// IsImageFile reports whether name carries one of the accepted extensions (case-insensitive).
func IsImageFile(name string) bool {
	return allowedExts[strings.ToLower(filepath.Ext(name))]
}

// Enumerate lists the eligible images of dir sorted by filename (byte order) and
// probes each one's original dimensions from its header.
//
// It returns an *EmptyInputError if nothing matches.
func Enumerate(dir string) ([]types.ImageRecord, error) {
	names, err := imageNames(dir)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, &EmptyInputError{Dir: dir}
	}
	sort.Strings(names)

	records := make([]types.ImageRecord, 0, len(names))
	for _, name := range names {
		w, h, err := Probe(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		records = append(records, types.ImageRecord{Name: name, Width: w, Height: h})
	}
	klog.V(1).Infof("enumerated %d images in %q", len(records), dir)
	return records, nil
}

// CountImages returns how many entries of dir Enumerate would pick up, without probing them.
func CountImages(dir string) (int, error) {
	names, err := imageNames(dir)
	return len(names), err
}

func imageNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, ioErr("read directory", dir, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !IsImageFile(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// Probe reads the pixel dimensions of an image without decoding it.
func Probe(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, ioErr("open", path, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, ioErr("probe", path, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, &DegenerateResizeError{File: filepath.Base(path), Stage: "source", Factor: 1, Width: cfg.Width, Height: cfg.Height}
	}
	return cfg.Width, cfg.Height, nil
}
