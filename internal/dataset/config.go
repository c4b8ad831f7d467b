package dataset

import (
	"math"

	"github.com/pkg/errors"
)

const (
	// ManifestFileName is the manifest written at the root of every output directory.
	ManifestFileName = "mixed_res_metadata.json"
	// ImagesDirName holds the resized images inside an output directory.
	ImagesDirName = "images"

	DefaultBaseFactor  = 5.0
	DefaultExtraFactor = 2.0
	DefaultHighResPct  = 0.3
	DefaultSeed        = 42
	DefaultJPEGQuality = 95
)

// Config holds the generation parameters recorded in the manifest.
type Config struct {
	BaseFactor  float64
	ExtraFactor float64
	HighResPct  float64
	Seed        int64
}

// DefaultConfig returns the parameters used by the reference datasets
// (5x for every image, a further 2x for 70% of them).
func DefaultConfig() Config {
	return Config{
		BaseFactor:  DefaultBaseFactor,
		ExtraFactor: DefaultExtraFactor,
		HighResPct:  DefaultHighResPct,
		Seed:        DefaultSeed,
	}
}

// Validate rejects factors that would upscale and fractions outside [0,1].
func (c Config) Validate() error {
	if err := validateFactor("base_factor", c.BaseFactor); err != nil {
		return err
	}
	if err := validateFactor("extra_factor", c.ExtraFactor); err != nil {
		return err
	}
	if math.IsNaN(c.HighResPct) || c.HighResPct < 0 || c.HighResPct > 1 {
		return errors.Wrapf(ErrInvalidConfig, "high_res_pct must be within [0, 1], got %g", c.HighResPct)
	}
	return nil
}

func validateFactor(name string, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 1 {
		return errors.Wrapf(ErrInvalidConfig, "%s must be a finite number >= 1, got %g", name, f)
	}
	return nil
}
