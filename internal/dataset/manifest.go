package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/andresmejia3/mixres/internal/types"
	"github.com/pkg/errors"
)

// Manifest is the persisted record of one generation run. Field order is the JSON key order.
type Manifest struct {
	HighRes     []string `json:"high_res"`
	LowRes      []string `json:"low_res"`
	BaseFactor  float64  `json:"base_factor"`
	ExtraFactor float64  `json:"extra_factor"`
	HighResPct  float64  `json:"high_res_pct"`
	Seed        int64    `json:"seed"`
}

// NewManifest builds the manifest from a plan. Both lists keep enumeration order.
func NewManifest(plan []types.PlannedImage, cfg Config) *Manifest {
	m := &Manifest{
		HighRes:     []string{},
		LowRes:      []string{},
		BaseFactor:  cfg.BaseFactor,
		ExtraFactor: cfg.ExtraFactor,
		HighResPct:  cfg.HighResPct,
		Seed:        cfg.Seed,
	}
	for _, p := range plan {
		if p.Tier == types.HighRes {
			m.HighRes = append(m.HighRes, p.Record.Name)
		} else {
			m.LowRes = append(m.LowRes, p.Record.Name)
		}
	}
	return m
}

// Config returns the parameters recorded in the manifest.
func (m *Manifest) Config() Config {
	return Config{BaseFactor: m.BaseFactor, ExtraFactor: m.ExtraFactor, HighResPct: m.HighResPct, Seed: m.Seed}
}

// Tier reports which subset name belongs to.
func (m *Manifest) Tier(name string) (types.Tier, bool) {
	for _, n := range m.HighRes {
		if n == name {
			return types.HighRes, true
		}
	}
	for _, n := range m.LowRes {
		if n == name {
			return types.LowRes, true
		}
	}
	return 0, false
}

// Validate checks parameter ranges, that the subsets are disjoint and free of duplicates,
// and that the high-res count matches floor(N * high_res_pct).
func (m *Manifest) Validate() error {
	if err := m.Config().Validate(); err != nil {
		return err
	}
	seen := make(map[string]types.Tier, len(m.HighRes)+len(m.LowRes))
	for tier, names := range [][]string{m.HighRes, m.LowRes} {
		for _, n := range names {
			if prev, dup := seen[n]; dup {
				return errors.Errorf("manifest lists %q twice (%s and %s)", n, prev, types.Tier(tier))
			}
			seen[n] = types.Tier(tier)
		}
	}
	total := len(m.HighRes) + len(m.LowRes)
	if want := HighResCount(total, m.HighResPct); len(m.HighRes) != want {
		return errors.Errorf("manifest has %d high-res images, expected floor(%d * %g) = %d",
			len(m.HighRes), total, m.HighResPct, want)
	}
	return nil
}

// CheckImages verifies that imagesDir holds exactly the images the manifest lists.
func (m *Manifest) CheckImages(imagesDir string) error {
	entries, err := os.ReadDir(imagesDir)
	if err != nil {
		return ioErr("read directory", imagesDir, err)
	}
	present := make(map[string]bool)
	for _, e := range entries {
		if !e.IsDir() && IsImageFile(e.Name()) {
			present[e.Name()] = true
		}
	}

	var missing, stray []string
	for _, names := range [][]string{m.HighRes, m.LowRes} {
		for _, n := range names {
			if !present[n] {
				missing = append(missing, n)
			}
			delete(present, n)
		}
	}
	for n := range present {
		stray = append(stray, n)
	}
	sort.Strings(stray)

	if len(missing) > 0 || len(stray) > 0 {
		return errors.Errorf("%s does not match manifest: missing %v, not listed %v", imagesDir, missing, stray)
	}
	return nil
}

// WriteManifest serializes m to path through a temporary file in the same directory
// followed by a rename, so readers never observe a truncated manifest.
func WriteManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return errors.Wrap(err, "failed to encode manifest")
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return ioErr("create", dir, err)
	}
	tmpName := tmp.Name()
	// Removing after a successful rename is a no-op error we ignore.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return ioErr("write", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return ioErr("sync", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return ioErr("close", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return ioErr("chmod", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return ioErr("rename", path, err)
	}
	return nil
}

// ReadManifest loads a manifest previously written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ioErr("read", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "failed to parse manifest %q", path)
	}
	if m.HighRes == nil {
		m.HighRes = []string{}
	}
	if m.LowRes == nil {
		m.LowRes = []string{}
	}
	return &m, nil
}
