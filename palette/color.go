package palette

import (
	"image/color"
	"math"
)

// A ColorSpace determines which coordinates colors are
// clustered in.
type ColorSpace int

const (
	// CIELAB clusters in L*a*b*, which tracks perceived
	// color difference closely.
	CIELAB ColorSpace = iota

	// SRGB clusters directly on gamma-encoded sRGB values.
	SRGB
)

// labAlphaScale puts alpha on roughly the same scale as
// the L* axis so transparency differences are not ignored.
const labAlphaScale = 100

// D65 reference white, with Y normalized to 1.
var whiteD65 = [3]float32{0.95047, 1.0, 1.08883}

// colorVector is a color in some ColorSpace, with alpha
// stored as the fourth component.
type colorVector [4]float32

func (c colorVector) Add(c1 colorVector) colorVector {
	return colorVector{c[0] + c1[0], c[1] + c1[1], c[2] + c1[2], c[3] + c1[3]}
}

func (c colorVector) Scale(s float32) colorVector {
	return colorVector{c[0] * s, c[1] * s, c[2] * s, c[3] * s}
}

func (c colorVector) DistSquared(c1 colorVector) float32 {
	var res float32
	for i, x := range c {
		d := x - c1[i]
		res += d * d
	}
	return res
}

func (cs ColorSpace) toVector(c color.Color) colorVector {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	srgb := [3]float32{float32(n.R) / 255, float32(n.G) / 255, float32(n.B) / 255}
	alpha := float32(n.A) / 255
	if cs == SRGB {
		return colorVector{srgb[0], srgb[1], srgb[2], alpha}
	}
	lab := convertXYZToLab(convertLinearRGBToXYZ(convertSRGBToLinearRGB(srgb)))
	return colorVector{lab[0], lab[1], lab[2], alpha * labAlphaScale}
}

func (cs ColorSpace) toColor(v colorVector) color.NRGBA {
	var srgb [3]float32
	var alpha float32
	if cs == SRGB {
		srgb = [3]float32{v[0], v[1], v[2]}
		alpha = v[3]
	} else {
		xyz := convertLabToXYZ([3]float32{v[0], v[1], v[2]})
		srgb = convertLinearRGBToSRGB(convertXYZToLinearRGB(xyz))
		alpha = v[3] / labAlphaScale
	}
	return color.NRGBA{
		R: unitToByte(srgb[0]),
		G: unitToByte(srgb[1]),
		B: unitToByte(srgb[2]),
		A: unitToByte(alpha),
	}
}

func unitToByte(x float32) uint8 {
	if !(x > 0) {
		return 0
	} else if x >= 1 {
		return 255
	}
	return uint8(x*255 + 0.5)
}

// convertLinearRGBToXYZ converts a linear RGB color to an
// XYZ color.
func convertLinearRGBToXYZ(rgb [3]float32) [3]float32 {
	return [3]float32{
		0.41239080*rgb[0] + 0.35758434*rgb[1] + 0.18048079*rgb[2],
		0.21263901*rgb[0] + 0.71516868*rgb[1] + 0.07219232*rgb[2],
		0.01933082*rgb[0] + 0.11919478*rgb[1] + 0.95053215*rgb[2],
	}
}

// convertXYZToLinearRGB converts an XYZ color to a linear
// RGB color.
func convertXYZToLinearRGB(xyz [3]float32) [3]float32 {
	return [3]float32{
		3.24096994*xyz[0] - 1.53738318*xyz[1] - 0.49861076*xyz[2],
		-0.96924364*xyz[0] + 1.8759675*xyz[1] + 0.04155506*xyz[2],
		0.05563008*xyz[0] - 0.20397696*xyz[1] + 1.05697151*xyz[2],
	}
}

// convertXYZToLab converts an XYZ color to CIELAB under
// the D65 white point.
func convertXYZToLab(xyz [3]float32) [3]float32 {
	fx := labF(xyz[0] / whiteD65[0])
	fy := labF(xyz[1] / whiteD65[1])
	fz := labF(xyz[2] / whiteD65[2])
	return [3]float32{116*fy - 16, 500 * (fx - fy), 200 * (fy - fz)}
}

// convertLabToXYZ inverts convertXYZToLab.
func convertLabToXYZ(lab [3]float32) [3]float32 {
	fy := (lab[0] + 16) / 116
	fx := fy + lab[1]/500
	fz := fy - lab[2]/200
	return [3]float32{
		whiteD65[0] * labFInv(fx),
		whiteD65[1] * labFInv(fy),
		whiteD65[2] * labFInv(fz),
	}
}

const labDelta = 6.0 / 29.0

func labF(t float32) float32 {
	if t > labDelta*labDelta*labDelta {
		return float32(math.Cbrt(float64(t)))
	}
	return t/(3*labDelta*labDelta) + 4.0/29.0
}

func labFInv(t float32) float32 {
	if t > labDelta {
		return t * t * t
	}
	return 3 * labDelta * labDelta * (t - 4.0/29.0)
}

// convertSRGBToLinearRGB converts an sRGB color to a
// linear RGB color.
func convertSRGBToLinearRGB(srgb [3]float32) [3]float32 {
	res := [3]float32{}
	for i, x := range srgb {
		res[i] = gammaExpand(x)
	}
	return res
}

// convertLinearRGBToSRGB converts a linear RGB color to
// an sRGB color.
func convertLinearRGBToSRGB(rgb [3]float32) [3]float32 {
	res := [3]float32{}
	for i, x := range rgb {
		res[i] = gammaCompress(x)
	}
	return res
}

func gammaCompress(u float32) float32 {
	if u <= 0.0031308 {
		return 12.92 * u
	} else {
		return 1.055*float32(math.Pow(float64(u), 1/2.4)) - 0.055
	}
}

func gammaExpand(u float32) float32 {
	if u <= 0.04045 {
		return u / 12.92
	} else {
		return float32(math.Pow((float64(u)+0.055)/1.055, 2.4))
	}
}
