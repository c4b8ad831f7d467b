package colmap

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// CopyReport lists which artifacts were found and copied.
type CopyReport struct {
	Sparse      bool
	Database    bool
	PosesBounds bool
}

// CopyArtifacts relocates an existing reconstruction (sparse/, database.db and, for
// LLFF scenes, poses_bounds.npy) from origRoot into outDir. A missing sparse/ or
// database.db is reported as a warning, not an error; an existing sparse/ in outDir is replaced.
func CopyArtifacts(origRoot, outDir string) (CopyReport, error) {
	var report CopyReport

	sparseSrc := filepath.Join(origRoot, SparseDirName)
	sparseDst := filepath.Join(outDir, SparseDirName)
	if isDir(sparseSrc) {
		if err := os.RemoveAll(sparseDst); err != nil {
			return report, errors.Wrapf(err, "failed to remove %s", sparseDst)
		}
		if err := copyTree(sparseSrc, sparseDst); err != nil {
			return report, err
		}
		report.Sparse = true
	} else {
		klog.Warningf("%s/ not found in %s", SparseDirName, origRoot)
	}

	for _, f := range []struct {
		name     string
		found    *bool
		optional bool
	}{
		{DatabaseFileName, &report.Database, false},
		{PosesBoundsFileName, &report.PosesBounds, true},
	} {
		src := filepath.Join(origRoot, f.name)
		if !isFile(src) {
			if !f.optional {
				klog.Warningf("%s not found in %s", f.name, origRoot)
			}
			continue
		}
		if err := copyFile(src, filepath.Join(outDir, f.name)); err != nil {
			return report, err
		}
		*f.found = true
	}
	return report, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return copyFile(path, target)
	})
}

// copyFile copies contents, permission bits and modification time.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", src)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return errors.Wrapf(err, "failed to stat %s", src)
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "failed to copy %s to %s", src, dst)
	}
	if err := out.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %s", dst)
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
