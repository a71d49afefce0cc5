package editor

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func addTestText(t *testing.T, s *Store, id string, start, end int) *Element {
	t.Helper()
	el := textElement(id, start, end)
	if err := s.AddElement(el); err != nil {
		t.Fatalf("add element %s: %v", id, err)
	}
	return el
}

func TestFadeInAnchorsAtStart(t *testing.T) {
	s, _ := newTestStore()
	addTestText(t, s, "a", 1000, 5000)
	if err := s.AddAnimation(&Animation{TargetID: "a", Type: AnimationFadeIn, Duration: 500}); err != nil {
		t.Fatalf("add animation: %v", err)
	}
	obj, _ := s.Object("a")

	cases := []struct {
		at   float64
		want float64
	}{
		{0, 0},
		{1000, 0},
		{1250, 0.5},
		{1500, 1},
		{4000, 1},
	}
	for _, tc := range cases {
		s.Seek(tc.at)
		if math.Abs(obj.Opacity-tc.want) > 1e-9 {
			t.Errorf("seek %.0f: opacity = %v, want %v", tc.at, obj.Opacity, tc.want)
		}
	}
}

func TestFadeOutAnchorsAtEnd(t *testing.T) {
	s, _ := newTestStore()
	addTestText(t, s, "a", 1000, 5000)
	s.AddAnimation(&Animation{TargetID: "a", Type: AnimationFadeOut, Duration: 500})
	obj, _ := s.Object("a")

	s.Seek(4500)
	if obj.Opacity != 1 {
		t.Fatalf("opacity at window start = %v, want 1", obj.Opacity)
	}
	s.Seek(4750)
	if math.Abs(obj.Opacity-0.5) > 1e-9 {
		t.Fatalf("opacity mid-window = %v, want 0.5", obj.Opacity)
	}
	s.Seek(5000)
	if obj.Opacity != 0 {
		t.Fatalf("opacity at end = %v, want 0", obj.Opacity)
	}
}

func TestSlideInMovesFromOffscreen(t *testing.T) {
	s, _ := newTestStore()
	addTestText(t, s, "a", 0, 5000) // placement X=100, W=50
	s.AddAnimation(&Animation{
		TargetID: "a",
		Type:     AnimationSlideIn,
		Duration: 1000,
		Props:    AnimationProps{Direction: DirectionLeft},
	})
	obj, _ := s.Object("a")

	s.Seek(0)
	if obj.Left != -50 {
		t.Fatalf("left at start = %v, want just offscreen (-width)", obj.Left)
	}
	s.Seek(500)
	if math.Abs(obj.Left-25) > 1e-9 { // ease midpoint is exactly halfway
		t.Fatalf("left mid-slide = %v, want 25", obj.Left)
	}
	s.Seek(1000)
	if obj.Left != 100 {
		t.Fatalf("left after slide = %v, want rest position", obj.Left)
	}
	if obj.Top != 50 {
		t.Fatalf("top = %v, horizontal slide must not move it", obj.Top)
	}
}

func TestSlideInFromBottomUsesCanvasHeight(t *testing.T) {
	s, _ := newTestStore()
	addTestText(t, s, "a", 0, 5000)
	s.AddAnimation(&Animation{
		TargetID: "a",
		Type:     AnimationSlideIn,
		Duration: 1000,
		Props:    AnimationProps{Direction: DirectionBottom},
	})
	obj, _ := s.Object("a")

	s.Seek(0)
	if obj.Top != 450 {
		t.Fatalf("top at start = %v, want canvas height", obj.Top)
	}
	s.Seek(1000)
	if obj.Top != 50 {
		t.Fatalf("top after slide = %v, want rest position", obj.Top)
	}
}

func TestSlideInClipPathSweepsMask(t *testing.T) {
	s, _ := newTestStore()
	addTestText(t, s, "a", 0, 5000)
	s.AddAnimation(&Animation{
		TargetID: "a",
		Type:     AnimationSlideIn,
		Duration: 1000,
		Props:    AnimationProps{Direction: DirectionLeft, UseClipPath: true},
	})
	obj, _ := s.Object("a")

	s.Seek(0)
	if obj.Clip == nil {
		t.Fatal("clip mask not created")
	}
	if obj.Clip.W != 0 {
		t.Fatalf("mask width at start = %v, want 0", obj.Clip.W)
	}
	if obj.Clip.X != 100 || obj.Clip.Y != 50 {
		t.Fatalf("mask anchor = (%v,%v), want object corner", obj.Clip.X, obj.Clip.Y)
	}
	if obj.Left != 100 {
		t.Fatal("clip slide must not move the object")
	}

	s.Seek(1000)
	if obj.Clip.W != 50 {
		t.Fatalf("mask width after sweep = %v, want full bounds", obj.Clip.W)
	}
}

func TestSlideOutExitsInWindowBeforeEnd(t *testing.T) {
	s, _ := newTestStore()
	addTestText(t, s, "a", 0, 5000)
	s.AddAnimation(&Animation{
		TargetID: "a",
		Type:     AnimationSlideOut,
		Duration: 1000,
		Props:    AnimationProps{Direction: DirectionRight},
	})
	obj, _ := s.Object("a")

	s.Seek(4000)
	if obj.Left != 100 {
		t.Fatalf("left at exit start = %v, want rest position", obj.Left)
	}
	s.Seek(5000)
	if obj.Left != 800 {
		t.Fatalf("left at end = %v, want canvas width", obj.Left)
	}
}

func TestBreakTextSplitsAndReveals(t *testing.T) {
	s, _ := newTestStore()
	el := addTestText(t, s, "a", 0, 5000)
	el.Props.Text.Text = "ab c"
	s.UpdateElement(el)

	s.AddAnimation(&Animation{
		TargetID: "a",
		Type:     AnimationBreakText,
		Duration: 1000,
		Props:    AnimationProps{TextMode: TextModeCharacter},
	})
	obj, _ := s.Object("a")

	got, _ := s.Element("a")
	if len(got.Props.Text.SplitTexts) != 4 {
		t.Fatalf("split segments = %d, want 4 characters", len(got.Props.Text.SplitTexts))
	}
	if strings.Join(got.Props.Text.SplitTexts, "") != "ab c" {
		t.Fatal("segment concatenation must equal the original text")
	}

	s.Seek(0)
	if obj.Reveal != 0 {
		t.Fatalf("reveal at start = %v, want 0", obj.Reveal)
	}
	s.Seek(500)
	if obj.Reveal != 2 {
		t.Fatalf("reveal mid-animation = %v, want 2", obj.Reveal)
	}
	s.Seek(1000)
	if obj.Reveal != 4 {
		t.Fatalf("reveal at end = %v, want all segments", obj.Reveal)
	}
}

func TestBreakTextWordMode(t *testing.T) {
	got := splitText("ab cd e", TextModeWord)
	want := []string{"ab ", "cd ", "e"}
	if len(got) != len(want) {
		t.Fatalf("segments = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("segment %d = %q, want %q", i, got[i], want[i])
		}
	}
	if strings.Join(got, "") != "ab cd e" {
		t.Fatal("word segments must concatenate to the original")
	}
}

func TestBreakTextOnNonTextIsInert(t *testing.T) {
	s, _ := newTestStore()
	s.AddElement(&Element{
		ID:        "img",
		Type:      ElementImage,
		TimeFrame: TimeFrame{End: 5000},
		Placement: DefaultPlacement(),
		Props:     Props{Media: &MediaProps{}},
	})
	if err := s.AddAnimation(&Animation{TargetID: "img", Type: AnimationBreakText}); err != nil {
		t.Fatalf("add animation: %v", err)
	}
	// the animation is registered but contributes nothing
	if len(s.Animations()) != 1 {
		t.Fatal("animation not registered")
	}
	obj, _ := s.Object("img")
	s.Seek(500)
	if obj.Reveal != 0 || obj.Opacity != 1 {
		t.Fatal("inert animation mutated the object")
	}
}

func TestUpdateAnimationRebuilds(t *testing.T) {
	s, _ := newTestStore()
	addTestText(t, s, "a", 0, 5000)
	anim := &Animation{ID: "anim", TargetID: "a", Type: AnimationFadeIn, Duration: 1000}
	s.AddAnimation(anim)
	obj, _ := s.Object("a")

	s.Seek(500)
	if math.Abs(obj.Opacity-0.5) > 1e-9 {
		t.Fatalf("opacity = %v, want 0.5 for 1s fade", obj.Opacity)
	}

	if err := s.UpdateAnimation(&Animation{ID: "anim", TargetID: "a", Type: AnimationFadeIn, Duration: 500}); err != nil {
		t.Fatalf("update animation: %v", err)
	}
	s.Seek(500)
	if obj.Opacity != 1 {
		t.Fatalf("opacity = %v, want 1 after shortening the fade", obj.Opacity)
	}

	err := s.UpdateAnimation(&Animation{ID: "ghost", TargetID: "a", Type: AnimationFadeIn})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestRemoveAnimationRestoresRestState(t *testing.T) {
	s, _ := newTestStore()
	addTestText(t, s, "a", 1000, 5000)
	anim := &Animation{ID: "anim", TargetID: "a", Type: AnimationFadeIn, Duration: 500}
	s.AddAnimation(anim)
	obj, _ := s.Object("a")

	s.Seek(1000)
	if obj.Opacity != 0 {
		t.Fatalf("opacity = %v, want 0 at fade start", obj.Opacity)
	}

	if err := s.RemoveAnimation("anim"); err != nil {
		t.Fatalf("remove animation: %v", err)
	}
	if obj.Opacity != 1 {
		t.Fatalf("opacity = %v, want rest state after removal", obj.Opacity)
	}
	if err := s.RemoveAnimation("anim"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestTimeFramePatchMovesAnimationAnchor(t *testing.T) {
	s, _ := newTestStore()
	addTestText(t, s, "a", 0, 5000)
	s.AddAnimation(&Animation{TargetID: "a", Type: AnimationFadeOut, Duration: 500})
	obj, _ := s.Object("a")

	end := 2000
	if err := s.UpdateTimeFrame("a", TimeFramePatch{End: &end}); err != nil {
		t.Fatalf("patch: %v", err)
	}
	s.Seek(2000)
	if obj.Opacity != 0 {
		t.Fatalf("opacity = %v, fade-out anchor must follow the new end", obj.Opacity)
	}
	s.Seek(1000)
	if math.Abs(obj.Opacity-0) < 1e-9 {
		t.Fatal("fade-out started too early after anchor move")
	}
}

func TestRemovedElementLeavesAnimationInert(t *testing.T) {
	s, _ := newTestStore()
	addTestText(t, s, "a", 0, 5000)
	s.AddAnimation(&Animation{ID: "anim", TargetID: "a", Type: AnimationFadeIn})
	if err := s.RemoveElement("a"); err != nil {
		t.Fatalf("remove element: %v", err)
	}
	if len(s.Animations()) != 1 {
		t.Fatal("animation must stay registered after its target is removed")
	}
	// seeking with an orphaned animation must not panic
	s.Seek(500)

	// re-adding an element with the same id revives the animation on its own,
	// with no animation mutation in between
	addTestText(t, s, "a", 0, 5000)
	obj, _ := s.Object("a")
	s.Seek(0)
	if obj.Opacity != 0 {
		t.Fatalf("opacity = %v, revived animation must apply", obj.Opacity)
	}
}

func TestDuplicateAnimationIDRejected(t *testing.T) {
	s, _ := newTestStore()
	addTestText(t, s, "a", 0, 5000)
	if err := s.AddAnimation(&Animation{ID: "x", TargetID: "a", Type: AnimationFadeIn}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	err := s.AddAnimation(&Animation{ID: "x", TargetID: "a", Type: AnimationFadeOut})
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("got %v, want ErrDuplicateID", err)
	}
	if len(s.Animations()) != 1 {
		t.Fatal("rejected animation must not be registered")
	}
}

func TestZeroDurationTakesDefault(t *testing.T) {
	s, _ := newTestStore()
	addTestText(t, s, "a", 0, 5000)
	s.AddAnimation(&Animation{ID: "x", TargetID: "a", Type: AnimationFadeIn})
	if got := s.Animations()[0].Duration; got != defaultAnimationMs {
		t.Fatalf("duration = %v, want default %d", got, defaultAnimationMs)
	}
}
