package dataset

import (
	"math"

	"github.com/andresmejia3/mixres/internal/types"
	"github.com/pkg/errors"
)

// ScaleDim divides a dimension by factor and floors the result.
func ScaleDim(dim int, factor float64) int {
	return int(math.Floor(float64(dim) / factor))
}

// TargetSizes computes the two cascade stages for one image. The extra stage divides
// the already floored base size, it is never floor(dim / (base*extra)).
// For high-res images the output equals the base size.
func TargetSizes(rec types.ImageRecord, tier types.Tier, cfg Config) (base, output types.Size, err error) {
	base = types.Size{Width: ScaleDim(rec.Width, cfg.BaseFactor), Height: ScaleDim(rec.Height, cfg.BaseFactor)}
	if base.Width == 0 || base.Height == 0 {
		return base, base, &DegenerateResizeError{
			File: rec.Name, Stage: "base", Factor: cfg.BaseFactor,
			Width: base.Width, Height: base.Height,
		}
	}
	if tier == types.HighRes {
		return base, base, nil
	}

	output = types.Size{Width: ScaleDim(base.Width, cfg.ExtraFactor), Height: ScaleDim(base.Height, cfg.ExtraFactor)}
	if output.Width == 0 || output.Height == 0 {
		return base, output, &DegenerateResizeError{
			File: rec.Name, Stage: "extra", Factor: cfg.ExtraFactor,
			Width: output.Width, Height: output.Height,
		}
	}
	return base, output, nil
}

// Plan computes every target size before any output is written, so a degenerate
// image aborts the run with nothing on disk.
func Plan(records []types.ImageRecord, tiers []types.Tier, cfg Config) ([]types.PlannedImage, error) {
	if len(records) != len(tiers) {
		return nil, errors.Errorf("plan: %d records but %d tiers", len(records), len(tiers))
	}
	plan := make([]types.PlannedImage, len(records))
	for i, rec := range records {
		base, output, err := TargetSizes(rec, tiers[i], cfg)
		if err != nil {
			return nil, err
		}
		plan[i] = types.PlannedImage{Index: i, Record: rec, Tier: tiers[i], Base: base, Output: output}
	}
	return plan, nil
}
