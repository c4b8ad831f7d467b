package types

// ImageRecord is a candidate source image and its original pixel size
type ImageRecord struct {
	Name   string
	Width  int
	Height int
}

// Size is a width/height pair in pixels
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Tier identifies which resolution subset an image belongs to
type Tier int

const (
	HighRes Tier = iota
	LowRes
)

// String returns the manifest key for the tier.
func (t Tier) String() string {
	switch t {
	case HighRes:
		return "high_res"
	case LowRes:
		return "low_res"
	}
	return "unknown"
}

// PlannedImage is a single image with its tier and target sizes, sent to a worker for resizing.
// Base is the size after the base factor, Output the final size written to disk
// (equal to Base for high-res images).
type PlannedImage struct {
	Index  int
	Record ImageRecord
	Tier   Tier
	Base   Size
	Output Size
}

// ResizeResult is what a worker reports back after writing one image
type ResizeResult struct {
	Index        int
	Name         string
	Output       Size
	BytesWritten int64
}
