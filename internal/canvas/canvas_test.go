package canvas

import (
	"image"
	"image/color"
	"testing"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

func TestNewValidation(t *testing.T) {
	if _, err := New(0, 10, "#000000"); err == nil {
		t.Fatal("expected error for zero width")
	}
	if _, err := New(10, 10, "purple"); err == nil {
		t.Fatal("expected error for bad color")
	}
	c, err := New(10, 10, "#111")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w, h := c.Size(); w != 10 || h != 10 {
		t.Fatalf("size = %dx%d, want 10x10", w, h)
	}
}

func TestParseHexColor(t *testing.T) {
	cases := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{in: "#fff", want: color.RGBA{255, 255, 255, 255}},
		{in: "#000000", want: color.RGBA{0, 0, 0, 255}},
		{in: "#1A2b3C", want: color.RGBA{26, 43, 60, 255}},
		{in: "112233", wantErr: true},
		{in: "#12", wantErr: true},
		{in: "#GGHHII", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseHexColor(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseHexColor(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseHexColor(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseHexColor(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestObjectBookkeeping(t *testing.T) {
	c, _ := New(20, 20, "#000")
	a := NewObject(KindImage)
	b := NewObject(KindImage)

	c.AddObject(a)
	c.AddObject(b)
	if got := len(c.Objects()); got != 2 {
		t.Fatalf("object count = %d, want 2", got)
	}

	c.SetActiveObject(b)
	if c.ActiveObject() != b {
		t.Fatal("active object not set")
	}

	c.RemoveObject(b)
	if got := len(c.Objects()); got != 1 {
		t.Fatalf("object count after remove = %d, want 1", got)
	}
	if c.ActiveObject() != nil {
		t.Fatal("removing the active object must clear the selection")
	}

	c.Clear()
	if got := len(c.Objects()); got != 0 {
		t.Fatalf("object count after clear = %d, want 0", got)
	}
}

func TestMouseDownHitTest(t *testing.T) {
	c, _ := New(100, 100, "#000")

	bottom := NewObject(KindImage)
	bottom.Left, bottom.Top, bottom.Width, bottom.Height = 10, 10, 40, 40
	top := NewObject(KindImage)
	top.Left, top.Top, top.Width, top.Height = 30, 30, 40, 40
	c.AddObject(bottom)
	c.AddObject(top)

	var got *Object
	c.OnMouseDown(func(target *Object) { got = target })

	c.MouseDown(35, 35) // inside both, topmost wins
	if got != top {
		t.Fatalf("hit = %v, want topmost object", got)
	}

	top.Visible = false
	c.MouseDown(35, 35)
	if got != bottom {
		t.Fatal("invisible objects must not be hit")
	}

	c.MouseDown(90, 90)
	if got != nil {
		t.Fatal("miss must dispatch nil target")
	}
}

func TestRasterizeBackgroundAndObject(t *testing.T) {
	c, _ := New(10, 8, "#102030")
	red := color.RGBA{255, 0, 0, 255}

	o := NewObject(KindImage)
	o.Image = solidImage(2, 2, red)
	o.Left, o.Top, o.Width, o.Height = 2, 2, 4, 4
	c.AddObject(o)

	dst := image.NewRGBA(image.Rect(0, 0, 10, 8))
	if err := c.Rasterize(dst); err != nil {
		t.Fatalf("rasterize: %v", err)
	}

	if got := dst.RGBAAt(0, 0); got != (color.RGBA{16, 32, 48, 255}) {
		t.Fatalf("background pixel = %v", got)
	}
	if got := dst.RGBAAt(4, 4); got.R < 200 || got.G > 50 {
		t.Fatalf("object pixel = %v, want red", got)
	}

	o.Visible = false
	c.Rasterize(dst)
	if got := dst.RGBAAt(4, 4); got != (color.RGBA{16, 32, 48, 255}) {
		t.Fatalf("invisible object still drawn: %v", got)
	}

	wrong := image.NewRGBA(image.Rect(0, 0, 3, 3))
	if err := c.Rasterize(wrong); err == nil {
		t.Fatal("expected size mismatch error")
	}
}

func TestRasterizeClip(t *testing.T) {
	c, _ := New(10, 10, "#000")
	o := NewObject(KindImage)
	o.Image = solidImage(4, 4, color.RGBA{0, 255, 0, 255})
	o.Left, o.Top, o.Width, o.Height = 0, 0, 4, 4
	o.Clip = &Rect{X: 0, Y: 0, W: 2, H: 4}
	c.AddObject(o)

	dst := image.NewRGBA(image.Rect(0, 0, 10, 10))
	c.Rasterize(dst)

	if got := dst.RGBAAt(1, 1); got.G < 200 {
		t.Fatalf("pixel inside clip = %v, want green", got)
	}
	if got := dst.RGBAAt(3, 1); got.G > 50 {
		t.Fatalf("pixel outside clip = %v, want background", got)
	}
}

func TestSelectionOutline(t *testing.T) {
	c, _ := New(20, 20, "#000")
	o := NewObject(KindImage)
	o.Image = solidImage(2, 2, color.RGBA{255, 255, 255, 255})
	o.Left, o.Top, o.Width, o.Height = 8, 8, 4, 4
	c.AddObject(o)
	c.SetActiveObject(o)

	dst := image.NewRGBA(image.Rect(0, 0, 20, 20))
	c.Rasterize(dst)
	if got := dst.RGBAAt(7, 7); got != selectionColor {
		t.Fatalf("outline pixel = %v, want %v", got, selectionColor)
	}

	c.DiscardActiveObject()
	c.Rasterize(dst)
	if got := dst.RGBAAt(7, 7); got == selectionColor {
		t.Fatal("outline still drawn after discard")
	}
}

func TestSetProp(t *testing.T) {
	o := NewObject(KindImage)
	o.Left, o.Top, o.Width, o.Height = 5, 5, 10, 10

	o.SetProp(PropOpacity, 1.5)
	if o.Opacity != 1 {
		t.Fatalf("opacity = %v, want clamped to 1", o.Opacity)
	}
	o.SetProp(PropOpacity, -0.5)
	if o.Opacity != 0 {
		t.Fatalf("opacity = %v, want clamped to 0", o.Opacity)
	}

	o.SetProp(PropClipWidth, 6)
	if o.Clip == nil {
		t.Fatal("clip must be created on first clip prop write")
	}
	if o.Clip.W != 6 || o.Clip.X != 5 {
		t.Fatalf("clip = %+v, want W=6 seeded from bounds", o.Clip)
	}

	o.SetProp(PropLeft, 42)
	if o.Left != 42 {
		t.Fatalf("left = %v, want 42", o.Left)
	}
}

func TestVisibleTextReveal(t *testing.T) {
	o := NewObject(KindText)
	o.Text = "abc"
	o.SplitTexts = []string{"a", "b", "c"}

	cases := []struct {
		reveal float64
		want   string
	}{
		{0, ""},
		{1, "a"},
		{2.7, "ab"},
		{3, "abc"},
		{10, "abc"},
	}
	for _, tc := range cases {
		o.Reveal = tc.reveal
		if got := visibleText(o); got != tc.want {
			t.Errorf("reveal %.1f: got %q, want %q", tc.reveal, got, tc.want)
		}
	}

	o.SplitTexts = nil
	o.Reveal = 0
	if got := visibleText(o); got != "abc" {
		t.Fatalf("unsplit text: got %q, want full text", got)
	}
}

func TestRenderTextProducesPixels(t *testing.T) {
	o := NewObject(KindText)
	o.Text = "Hi"
	o.FontSize = 16
	img := renderText(o)
	if img == nil {
		t.Fatal("renderText returned nil for non-empty text")
	}
	if img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		t.Fatalf("text image has empty bounds %v", img.Bounds())
	}

	w, h := MeasureText("Hi", 16, true)
	if w <= 0 || h <= 0 {
		t.Fatalf("MeasureText = %vx%v, want positive", w, h)
	}
}

func TestFilters(t *testing.T) {
	src := solidImage(1, 1, color.RGBA{200, 100, 50, 255})

	t.Run("invert", func(t *testing.T) {
		got := applyFilter(src, FilterInvert).RGBAAt(0, 0)
		want := color.RGBA{55, 155, 205, 255}
		if got != want {
			t.Fatalf("invert = %v, want %v", got, want)
		}
	})

	t.Run("grayscale", func(t *testing.T) {
		got := applyFilter(src, FilterGrayscale).RGBAAt(0, 0)
		if got.R != got.G || got.G != got.B {
			t.Fatalf("grayscale channels differ: %v", got)
		}
	})

	t.Run("sepia clamps to alpha", func(t *testing.T) {
		bright := solidImage(1, 1, color.RGBA{120, 120, 120, 120})
		got := applyFilter(bright, FilterSepia).RGBAAt(0, 0)
		if got.R > 120 || got.G > 120 || got.B > 120 {
			t.Fatalf("sepia exceeded alpha bound: %v", got)
		}
	})

	t.Run("source untouched", func(t *testing.T) {
		applyFilter(src, FilterInvert)
		if got := src.RGBAAt(0, 0); got != (color.RGBA{200, 100, 50, 255}) {
			t.Fatalf("filter mutated source: %v", got)
		}
	})
}
