package canvas

import "image"

// Filter is a per-pixel color effect applied to an object's content before
// compositing.
type Filter int

const (
	FilterNone Filter = iota
	FilterGrayscale
	FilterSepia
	FilterInvert
	FilterSaturate
)

func (f Filter) String() string {
	switch f {
	case FilterGrayscale:
		return "grayscale"
	case FilterSepia:
		return "sepia"
	case FilterInvert:
		return "invert"
	case FilterSaturate:
		return "saturate"
	default:
		return "none"
	}
}

const saturateBoost = 1.5

// applyFilter returns a filtered copy of img. Pixels are alpha-premultiplied,
// so results are clamped against the alpha channel rather than 255.
func applyFilter(img *image.RGBA, f Filter) *image.RGBA {
	if f == FilterNone {
		return img
	}
	out := cloneRGBA(img)
	pix := out.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		r := uint32(pix[i])
		g := uint32(pix[i+1])
		b := uint32(pix[i+2])
		a := uint32(pix[i+3])

		switch f {
		case FilterGrayscale:
			luma := (299*r + 587*g + 114*b) / 1000
			pix[i] = uint8(luma)
			pix[i+1] = uint8(luma)
			pix[i+2] = uint8(luma)
		case FilterSepia:
			pix[i] = clampChan((393*r+769*g+189*b)/1000, a)
			pix[i+1] = clampChan((349*r+686*g+168*b)/1000, a)
			pix[i+2] = clampChan((272*r+534*g+131*b)/1000, a)
		case FilterInvert:
			pix[i] = uint8(a - r)
			pix[i+1] = uint8(a - g)
			pix[i+2] = uint8(a - b)
		case FilterSaturate:
			luma := float64(299*r+587*g+114*b) / 1000
			pix[i] = clampChanF(luma+(float64(r)-luma)*saturateBoost, a)
			pix[i+1] = clampChanF(luma+(float64(g)-luma)*saturateBoost, a)
			pix[i+2] = clampChanF(luma+(float64(b)-luma)*saturateBoost, a)
		}
	}
	return out
}

func clampChan(v, a uint32) uint8 {
	if v > a {
		v = a
	}
	return uint8(v)
}

func clampChanF(v float64, a uint32) uint8 {
	if v < 0 {
		return 0
	}
	if v > float64(a) {
		return uint8(a)
	}
	return uint8(v)
}
