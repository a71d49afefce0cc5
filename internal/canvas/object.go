package canvas

import (
	"image"
	"image/color"
	"math"
)

// Kind tells the rasterizer how to produce an object's content pixels.
type Kind int

const (
	KindImage Kind = iota // still image or current video frame
	KindText
)

// Prop identifies an animatable object property. Tweens address properties
// by id so a timeline can be rebuilt and seeked without closures.
type Prop int

const (
	PropLeft Prop = iota
	PropTop
	PropOpacity
	PropClipX
	PropClipY
	PropClipWidth
	PropClipHeight
	PropReveal
)

// Rect is an axis-aligned rectangle in canvas space.
type Rect struct {
	X, Y, W, H float64
}

// Object is a retained scene-graph node. Position, scale and rotation follow
// the usual 2D canvas conventions: Left/Top is the unrotated top-left corner,
// Width/Height is the content size, ScaleX/ScaleY multiply it, and Angle
// rotates the object around its center in degrees.
type Object struct {
	Name    string // owner-assigned label, used to map back to timeline entities
	Kind    Kind
	Visible bool

	Left, Top      float64
	Width, Height  float64
	ScaleX, ScaleY float64
	Angle          float64
	Opacity        float64

	// Content for KindImage. A nil image draws nothing but the object still
	// occupies its bounds for hit-testing (video frames arrive lazily).
	Image image.Image

	// Content for KindText.
	Text       string
	SplitTexts []string // staged-reveal segments; concatenation equals Text
	Reveal     float64  // number of SplitTexts segments currently shown
	FontSize   float64
	FontBold   bool
	Fill       color.RGBA

	Filter Filter
	Clip   *Rect // optional reveal mask in canvas space; nil means no clip
}

// NewObject returns an object with neutral transform values.
func NewObject(kind Kind) *Object {
	return &Object{
		Kind:    kind,
		Visible: true,
		ScaleX:  1,
		ScaleY:  1,
		Opacity: 1,
		Fill:    color.RGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

// Bounds returns the object's unrotated canvas-space rectangle. Hit-testing
// and clip sizing use this; rotation is intentionally ignored there.
func (o *Object) Bounds() Rect {
	return Rect{X: o.Left, Y: o.Top, W: o.Width * o.ScaleX, H: o.Height * o.ScaleY}
}

// ClipRectFor returns a clip mask covering the object's full bounds, the
// starting point for clip-path reveal animations.
func ClipRectFor(o *Object) Rect {
	return o.Bounds()
}

// SetProp applies an animated property value. Clip properties lazily create
// the clip mask so a timeline can animate it without prior setup.
func (o *Object) SetProp(p Prop, v float64) {
	switch p {
	case PropLeft:
		o.Left = v
	case PropTop:
		o.Top = v
	case PropOpacity:
		o.Opacity = clamp01(v)
	case PropClipX:
		o.ensureClip()
		o.Clip.X = v
	case PropClipY:
		o.ensureClip()
		o.Clip.Y = v
	case PropClipWidth:
		o.ensureClip()
		o.Clip.W = math.Max(0, v)
	case PropClipHeight:
		o.ensureClip()
		o.Clip.H = math.Max(0, v)
	case PropReveal:
		o.Reveal = math.Max(0, v)
	}
}

func (o *Object) ensureClip() {
	if o.Clip == nil {
		b := ClipRectFor(o)
		o.Clip = &b
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
