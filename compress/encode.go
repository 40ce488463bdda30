package compress

import (
	"fmt"
	"image/png"
	"io"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/unixpickle/compressimages/palette"
)

// EncodeLibrary re-encodes the image read from r into w at
// the given quality without external tools.
//
// PNGs are reduced to a palette sized by quality (full
// color at 100) and written with maximum deflate effort.
// JPEGs have their EXIF orientation applied, since the
// re-encoded file carries no EXIF data.
func EncodeLibrary(format Format, quality int, r io.Reader, w io.Writer) error {
	switch format {
	case PNG:
		img, err := imaging.Decode(r)
		if err != nil {
			return fmt.Errorf("decode png: %w", err)
		}
		if opts, ok := palette.OptionsForQuality(quality); ok {
			img = palette.Reduce(img, opts)
		}
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		return enc.Encode(w, img)
	case JPEG:
		img, err := imaging.Decode(r, imaging.AutoOrientation(true))
		if err != nil {
			return fmt.Errorf("decode jpeg: %w", err)
		}
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case WebP:
		img, err := webp.Decode(r)
		if err != nil {
			return fmt.Errorf("decode webp: %w", err)
		}
		return webp.Encode(w, img, &webp.Options{Quality: float32(quality)})
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

