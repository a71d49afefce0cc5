package canvas

import (
	"fmt"
	"image"
	"image/color"
	"sync"
)

// Surface is the drawing target the editor renders into. The bundled
// software implementation rasterizes in memory; interactive hosts can
// substitute a GPU or DOM-backed surface as long as object identity is
// preserved across calls.
type Surface interface {
	AddObject(o *Object)
	RemoveObject(o *Object)
	SetActiveObject(o *Object)
	DiscardActiveObject()
	SetBackground(hex string) error
	// OnMouseDown registers a pointer handler. The handler receives the
	// topmost visible object under the pointer, or nil for empty canvas.
	OnMouseDown(fn func(target *Object))
	// RenderAll recomposes the scene into the surface's own buffer.
	RenderAll()
	// Rasterize composes the scene into dst, which must match Size.
	Rasterize(dst *image.RGBA) error
	Size() (w, h int)
}

// Canvas is the software Surface: a mutex-guarded object list composited
// with CPU blitting. It is the export target and the test double at once.
type Canvas struct {
	mu         sync.Mutex
	width      int
	height     int
	background color.RGBA
	objects    []*Object
	active     *Object
	handlers   []func(*Object)
	buf        *image.RGBA
}

// New creates a software canvas of the given pixel size and background
// color in #RGB or #RRGGBB notation.
func New(width, height int, background string) (*Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas size %dx%d is not positive", width, height)
	}
	bg, err := ParseHexColor(background)
	if err != nil {
		return nil, err
	}
	return &Canvas{
		width:      width,
		height:     height,
		background: bg,
		buf:        image.NewRGBA(image.Rect(0, 0, width, height)),
	}, nil
}

func (c *Canvas) Size() (int, int) {
	return c.width, c.height
}

// SetBackground replaces the background fill color.
func (c *Canvas) SetBackground(hex string) error {
	bg, err := ParseHexColor(hex)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.background = bg
	c.mu.Unlock()
	return nil
}

func (c *Canvas) AddObject(o *Object) {
	if o == nil {
		return
	}
	c.mu.Lock()
	c.objects = append(c.objects, o)
	c.mu.Unlock()
}

func (c *Canvas) RemoveObject(o *Object) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, cur := range c.objects {
		if cur == o {
			c.objects = append(c.objects[:i], c.objects[i+1:]...)
			break
		}
	}
	if c.active == o {
		c.active = nil
	}
}

// Clear removes every object and drops the selection.
func (c *Canvas) Clear() {
	c.mu.Lock()
	c.objects = nil
	c.active = nil
	c.mu.Unlock()
}

func (c *Canvas) SetActiveObject(o *Object) {
	c.mu.Lock()
	c.active = o
	c.mu.Unlock()
}

func (c *Canvas) DiscardActiveObject() {
	c.mu.Lock()
	c.active = nil
	c.mu.Unlock()
}

// ActiveObject returns the current selection, nil if none.
func (c *Canvas) ActiveObject() *Object {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Objects returns a snapshot of the scene in z-order.
func (c *Canvas) Objects() []*Object {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Object, len(c.objects))
	copy(out, c.objects)
	return out
}

func (c *Canvas) OnMouseDown(fn func(*Object)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.handlers = append(c.handlers, fn)
	c.mu.Unlock()
}

// MouseDown injects a pointer press at canvas coordinates and dispatches
// the hit target (topmost visible object containing the point) to every
// registered handler. A miss dispatches nil.
func (c *Canvas) MouseDown(x, y float64) {
	c.mu.Lock()
	var target *Object
	for i := len(c.objects) - 1; i >= 0; i-- {
		o := c.objects[i]
		if !o.Visible {
			continue
		}
		b := o.Bounds()
		if x >= b.X && x < b.X+b.W && y >= b.Y && y < b.Y+b.H {
			target = o
			break
		}
	}
	handlers := make([]func(*Object), len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	for _, fn := range handlers {
		fn(target)
	}
}

// RenderAll recomposes the scene into the canvas's internal buffer.
func (c *Canvas) RenderAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.compose(c.buf)
}

// Rasterize composes the scene into dst. dst bounds must match Size.
func (c *Canvas) Rasterize(dst *image.RGBA) error {
	if dst == nil {
		return fmt.Errorf("rasterize: nil destination")
	}
	b := dst.Bounds()
	if b.Dx() != c.width || b.Dy() != c.height {
		return fmt.Errorf("rasterize: destination %dx%d does not match canvas %dx%d",
			b.Dx(), b.Dy(), c.width, c.height)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.compose(dst)
	return nil
}

// Buffer exposes the last RenderAll composition.
func (c *Canvas) Buffer() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf
}

// ParseHexColor decodes #RGB or #RRGGBB into an opaque color.
func ParseHexColor(s string) (color.RGBA, error) {
	c := color.RGBA{A: 255}
	hexVal := func(b byte) (uint8, bool) {
		switch {
		case b >= '0' && b <= '9':
			return b - '0', true
		case b >= 'a' && b <= 'f':
			return b - 'a' + 10, true
		case b >= 'A' && b <= 'F':
			return b - 'A' + 10, true
		}
		return 0, false
	}
	if len(s) == 0 || s[0] != '#' {
		return c, fmt.Errorf("color %q: expected leading #", s)
	}
	switch len(s) {
	case 4:
		for i, dst := range []*uint8{&c.R, &c.G, &c.B} {
			v, ok := hexVal(s[1+i])
			if !ok {
				return c, fmt.Errorf("color %q: bad hex digit", s)
			}
			*dst = v * 17
		}
	case 7:
		for i, dst := range []*uint8{&c.R, &c.G, &c.B} {
			hi, ok1 := hexVal(s[1+2*i])
			lo, ok2 := hexVal(s[2+2*i])
			if !ok1 || !ok2 {
				return c, fmt.Errorf("color %q: bad hex digit", s)
			}
			*dst = hi*16 + lo
		}
	default:
		return c, fmt.Errorf("color %q: expected #RGB or #RRGGBB", s)
	}
	return c, nil
}
