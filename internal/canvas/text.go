package canvas

import (
	"image"
	"math"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

type faceKey struct {
	size float64
	bold bool
}

var text struct {
	mu      sync.Mutex
	regular *sfnt.Font
	bold    *sfnt.Font
	faces   map[faceKey]font.Face
}

// faceFor returns a cached face for the size/weight pair. Face instances are
// not safe for concurrent use, so all glyph work happens under text.mu.
func faceFor(size float64, bold bool) (font.Face, error) {
	if size <= 0 {
		size = 12
	}
	key := faceKey{size: size, bold: bold}
	if f, ok := text.faces[key]; ok {
		return f, nil
	}
	if text.faces == nil {
		text.faces = make(map[faceKey]font.Face)
		var err error
		if text.regular, err = opentype.Parse(goregular.TTF); err != nil {
			return nil, err
		}
		if text.bold, err = opentype.Parse(gobold.TTF); err != nil {
			return nil, err
		}
	}
	src := text.regular
	if bold {
		src = text.bold
	}
	face, err := opentype.NewFace(src, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	text.faces[key] = face
	return face, nil
}

// renderText rasterizes the object's visible text at its natural size.
// Staged reveals draw only the first floor(Reveal) segments.
func renderText(o *Object) *image.RGBA {
	s := visibleText(o)
	if s == "" {
		return nil
	}
	text.mu.Lock()
	defer text.mu.Unlock()

	face, err := faceFor(o.FontSize, o.FontBold)
	if err != nil {
		return nil
	}
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	height := (metrics.Ascent + metrics.Descent).Ceil()
	width := font.MeasureString(face, s).Ceil()
	if width <= 0 || height <= 0 {
		return nil
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(o.Fill),
		Face: face,
		Dot:  fixed.P(0, ascent),
	}
	d.DrawString(s)
	return img
}

func visibleText(o *Object) string {
	if len(o.SplitTexts) == 0 {
		return o.Text
	}
	n := int(math.Floor(o.Reveal))
	if n >= len(o.SplitTexts) {
		return o.Text
	}
	if n <= 0 {
		return ""
	}
	return strings.Join(o.SplitTexts[:n], "")
}

// MeasureText returns the natural pixel size of a single text line, used to
// size freshly added text objects.
func MeasureText(s string, size float64, bold bool) (w, h float64) {
	text.mu.Lock()
	defer text.mu.Unlock()
	face, err := faceFor(size, bold)
	if err != nil {
		return 0, 0
	}
	metrics := face.Metrics()
	return float64(font.MeasureString(face, s).Ceil()),
		float64((metrics.Ascent + metrics.Descent).Ceil())
}
