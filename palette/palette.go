// Package palette reduces images to small color palettes
// so they can be stored as compact paletted PNGs.
package palette

import (
	"image"

	"github.com/unixpickle/essentials"
)

// DefaultMaxKMeansIters is the default maximum number of
// iterations of the k-means algorithm for clustering.
const DefaultMaxKMeansIters = 5

// MaxSize is the largest palette a paletted PNG can hold.
const MaxSize = 256

// MinSize is the smallest palette OptionsForQuality will
// produce.
const MinSize = 2

type Options struct {
	// Size is the maximum number of palette entries.
	// Zero means MaxSize.
	Size int

	// MaxIters limits the number of k-means iterations.
	// Zero means DefaultMaxKMeansIters.
	MaxIters int

	ColorSpace ColorSpace
}

// OptionsForQuality maps a 0-100 quality level to palette
// options, scaling the palette size with quality.
//
// The second return value is false for quality 100 or
// above, where an image should keep its full color.
func OptionsForQuality(quality int) (*Options, bool) {
	if quality >= 100 {
		return nil, false
	}
	size := essentials.MaxInt(MinSize, essentials.MinInt(MaxSize, quality*MaxSize/100))
	return &Options{Size: size, ColorSpace: CIELAB}, true
}

// Reduce creates a paletted version of img.
// If opts is nil, a full 256-color CIELAB palette is used.
func Reduce(img image.Image, opts *Options) *image.Paletted {
	if opts == nil {
		opts = &Options{}
	}
	size := opts.Size
	if size <= 0 || size > MaxSize {
		size = MaxSize
	}
	return Quantize(img, size, opts.MaxIters, opts.ColorSpace)
}
