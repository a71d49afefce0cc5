package canvas

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

var selectionColor = mustHex("#00a8ff")

// compose paints the background and every visible object into dst in
// z-order. Callers hold c.mu.
func (c *Canvas) compose(dst *image.RGBA) {
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(c.background), image.Point{}, xdraw.Src)
	for _, o := range c.objects {
		c.drawObject(dst, o)
	}
	if c.active != nil && c.active.Visible {
		drawOutline(dst, c.active.Bounds(), 2)
	}
}

func (c *Canvas) drawObject(dst *image.RGBA, o *Object) {
	if !o.Visible || o.Opacity <= 0 {
		return
	}
	content := contentImage(o)
	if content == nil {
		return
	}
	cb := content.Bounds()
	if cb.Dx() == 0 || cb.Dy() == 0 {
		return
	}

	dispW := o.Width * o.ScaleX
	dispH := o.Height * o.ScaleY
	if dispW <= 0 || dispH <= 0 {
		return
	}

	if o.Filter != FilterNone {
		content = applyFilter(content, o.Filter)
	}
	if o.Opacity < 1 {
		content = applyOpacity(content, o.Opacity)
	}

	target := xdraw.Image(dst)
	if o.Clip != nil {
		r := image.Rect(
			int(math.Floor(o.Clip.X)),
			int(math.Floor(o.Clip.Y)),
			int(math.Ceil(o.Clip.X+o.Clip.W)),
			int(math.Ceil(o.Clip.Y+o.Clip.H)),
		)
		sub, ok := dst.SubImage(r.Intersect(dst.Bounds())).(*image.RGBA)
		if !ok || sub.Bounds().Empty() {
			return
		}
		target = sub
	}

	// Scale content to display size, rotate around the object center, then
	// translate into place. The matrix maps content space to canvas space.
	rad := o.Angle * math.Pi / 180
	sin, cos := math.Sincos(rad)
	sx := dispW / float64(cb.Dx())
	sy := dispH / float64(cb.Dy())
	cx := o.Left + dispW/2
	cy := o.Top + dispH/2
	m := f64.Aff3{
		cos * sx, -sin * sy, cx - cos*dispW/2 + sin*dispH/2,
		sin * sx, cos * sy, cy - sin*dispW/2 - cos*dispH/2,
	}
	xdraw.ApproxBiLinear.Transform(target, m, content, cb, xdraw.Over, nil)
}

// contentImage produces the object's unscaled pixel content, or nil when
// there is nothing to draw yet.
func contentImage(o *Object) *image.RGBA {
	switch o.Kind {
	case KindText:
		return renderText(o)
	default:
		if o.Image == nil {
			return nil
		}
		return toRGBA(o.Image)
	}
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(out, out.Bounds(), img, b.Min, xdraw.Src)
	return out
}

func cloneRGBA(img *image.RGBA) *image.RGBA {
	out := image.NewRGBA(img.Bounds())
	copy(out.Pix, img.Pix)
	out.Stride = img.Stride
	return out
}

// applyOpacity returns a copy of img with all channels scaled, keeping the
// alpha-premultiplied invariant intact.
func applyOpacity(img *image.RGBA, opacity float64) *image.RGBA {
	out := cloneRGBA(img)
	a := uint32(opacity*255 + 0.5)
	for i := range out.Pix {
		out.Pix[i] = uint8(uint32(out.Pix[i]) * a / 255)
	}
	return out
}

func drawOutline(dst *image.RGBA, b Rect, thickness int) {
	x0 := int(math.Round(b.X))
	y0 := int(math.Round(b.Y))
	x1 := int(math.Round(b.X + b.W))
	y1 := int(math.Round(b.Y + b.H))
	t := thickness
	edges := []image.Rectangle{
		image.Rect(x0-t, y0-t, x1+t, y0), // top
		image.Rect(x0-t, y1, x1+t, y1+t), // bottom
		image.Rect(x0-t, y0, x0, y1),     // left
		image.Rect(x1, y0, x1+t, y1),     // right
	}
	src := image.NewUniform(selectionColor)
	for _, e := range edges {
		r := e.Intersect(dst.Bounds())
		if !r.Empty() {
			xdraw.Draw(dst, r, src, image.Point{}, xdraw.Over)
		}
	}
}

func mustHex(s string) color.RGBA {
	v, err := ParseHexColor(s)
	if err != nil {
		panic(err)
	}
	return v
}
