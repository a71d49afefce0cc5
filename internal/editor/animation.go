package editor

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ivlev/cutroom/internal/canvas"
	"github.com/ivlev/cutroom/internal/tween"
)

const defaultAnimationMs = 1000

// Animations returns a snapshot in insertion order.
func (s *Store) Animations() []*Animation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Animation, len(s.animations))
	copy(out, s.animations)
	return out
}

// AddAnimation registers an animation and rebuilds the timeline. A zero
// duration takes the 1s default. Animations whose target does not resolve
// stay registered but contribute no tweens.
func (s *Store) AddAnimation(a *Animation) error {
	if a == nil {
		return errors.New("add animation: nil animation")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	for _, cur := range s.animations {
		if cur.ID == a.ID {
			return fmt.Errorf("add animation %s: %w", a.ID, ErrDuplicateID)
		}
	}
	if a.Duration <= 0 {
		a.Duration = defaultAnimationMs
	}
	s.animations = append(s.animations, a)
	s.rebuildAnimations()
	return nil
}

// UpdateAnimation replaces the animation with the same id and rebuilds.
func (s *Store) UpdateAnimation(a *Animation) error {
	if a == nil {
		return errors.New("update animation: nil animation")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.animations {
		if cur.ID == a.ID {
			if a.Duration <= 0 {
				a.Duration = defaultAnimationMs
			}
			s.animations[i] = a
			s.rebuildAnimations()
			return nil
		}
	}
	return fmt.Errorf("update animation %s: %w", a.ID, ErrNotFound)
}

// RemoveAnimation drops an animation and rebuilds, returning affected
// objects to their rest state.
func (s *Store) RemoveAnimation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.animations {
		if cur.ID == id {
			s.animations = append(s.animations[:i], s.animations[i+1:]...)
			s.rebuildAnimations()
			return nil
		}
	}
	return fmt.Errorf("remove animation %s: %w", id, ErrNotFound)
}

// SetAnimations replaces the whole animation list, preserving ids. Used
// when loading a project.
func (s *Store) SetAnimations(list []*Animation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.animations = make([]*Animation, 0, len(list))
	for _, a := range list {
		if a == nil {
			continue
		}
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if a.Duration <= 0 {
			a.Duration = defaultAnimationMs
		}
		s.animations = append(s.animations, a)
	}
	s.rebuildAnimations()
}

// animationTargets reports whether any registered animation targets the
// element id.
func (s *Store) animationTargets(id string) bool {
	for _, a := range s.animations {
		if a.TargetID == id {
			return true
		}
	}
	return false
}

// rebuildAnimations derives the tween timeline from scratch: every object
// returns to its rest state, the timeline is cleared and refilled in
// element order (animations in insertion order within each element), and a
// final seek restores the current position. Mutating derived state instead
// of patching it keeps reorderings and removals from leaving stale tweens
// behind.
func (s *Store) rebuildAnimations() {
	for _, el := range s.elements {
		if obj := s.objects[el.ID]; obj != nil {
			resetObject(el, obj)
		}
	}
	s.timeline.Clear()
	for _, el := range s.elements {
		obj := s.objects[el.ID]
		if obj == nil {
			continue
		}
		for _, a := range s.animations {
			if a.TargetID == el.ID {
				s.buildAnimation(el, obj, a)
			}
		}
	}
	s.timeline.Seek(s.currentTimeMs())
}

// resetObject restores the rest state an animation rebuild starts from.
func resetObject(el *Element, obj *canvas.Object) {
	applyPlacement(el, obj)
	obj.Opacity = 1
	obj.Clip = nil
	obj.Reveal = float64(len(obj.SplitTexts))
}

func (s *Store) buildAnimation(el *Element, obj *canvas.Object, a *Animation) {
	start := float64(el.TimeFrame.Start)
	end := float64(el.TimeFrame.End)
	switch a.Type {
	case AnimationFadeIn:
		s.timeline.Add(tween.Tween{
			Target: obj, Prop: canvas.PropOpacity,
			From: 0, To: 1,
			StartMs: start, DurationMs: a.Duration,
			Ease: tween.Linear,
		})
	case AnimationFadeOut:
		s.timeline.Add(tween.Tween{
			Target: obj, Prop: canvas.PropOpacity,
			From: 1, To: 0,
			StartMs: end - a.Duration, DurationMs: a.Duration,
			Ease: tween.Linear,
		})
	case AnimationSlideIn:
		s.buildSlide(obj, a, start, true)
	case AnimationSlideOut:
		s.buildSlide(obj, a, end-a.Duration, false)
	case AnimationBreakText:
		s.buildBreakText(el, obj, a)
	default:
		s.logger.Debug("unknown animation type",
			zap.String("id", a.ID),
			zap.String("type", string(a.Type)))
	}
}

// buildSlide animates an entrance or exit along one canvas edge. The plain
// variant moves the object from or to just outside the canvas; the clip
// variant keeps it in place and sweeps a reveal mask instead. The two are
// exclusive so object bounds stay stable while a mask is animating.
func (s *Store) buildSlide(obj *canvas.Object, a *Animation, startMs float64, in bool) {
	b := obj.Bounds()
	cw, ch := s.surface.Size()
	dir := a.Props.Direction
	if dir == "" {
		dir = DirectionLeft
	}

	add := func(prop canvas.Prop, from, to float64) {
		if !in {
			from, to = to, from
		}
		s.timeline.Add(tween.Tween{
			Target: obj, Prop: prop,
			From: from, To: to,
			StartMs: startMs, DurationMs: a.Duration,
			Ease: tween.EaseInOutCubic,
		})
	}

	if a.Props.UseClipPath {
		// Unanimated mask axes seed from the object bounds on first write.
		switch dir {
		case DirectionRight:
			add(canvas.PropClipX, b.X+b.W, b.X)
			add(canvas.PropClipWidth, 0, b.W)
		case DirectionTop:
			add(canvas.PropClipHeight, 0, b.H)
		case DirectionBottom:
			add(canvas.PropClipY, b.Y+b.H, b.Y)
			add(canvas.PropClipHeight, 0, b.H)
		default: // left
			add(canvas.PropClipWidth, 0, b.W)
		}
		return
	}

	switch dir {
	case DirectionRight:
		add(canvas.PropLeft, float64(cw), b.X)
	case DirectionTop:
		add(canvas.PropTop, -b.H, b.Y)
	case DirectionBottom:
		add(canvas.PropTop, float64(ch), b.Y)
	default: // left
		add(canvas.PropLeft, -b.W, b.X)
	}
}

// buildBreakText splits the target's text into per-character or per-word
// segments and reveals them across the animation window. The segments are
// written back to the element so saved projects keep them.
func (s *Store) buildBreakText(el *Element, obj *canvas.Object, a *Animation) {
	if el.Type != ElementText || el.Props.Text == nil {
		s.logger.Debug("text break targets non-text element",
			zap.String("id", a.ID),
			zap.String("target", a.TargetID))
		return
	}
	mode := a.Props.TextMode
	if mode == "" {
		mode = TextModeCharacter
	}
	split := splitText(el.Props.Text.Text, mode)
	el.Props.Text.SplitTexts = split
	obj.SplitTexts = split
	s.timeline.Add(tween.Tween{
		Target: obj, Prop: canvas.PropReveal,
		From: 0, To: float64(len(split)),
		StartMs: float64(el.TimeFrame.Start), DurationMs: a.Duration,
		Ease: tween.Linear,
	})
}

// splitText cuts s into reveal segments whose concatenation equals s.
// Word mode keeps trailing whitespace attached to the preceding word so
// spacing survives partial reveals.
func splitText(s, mode string) []string {
	if mode == TextModeWord {
		var parts []string
		var cur []rune
		for _, r := range s {
			cur = append(cur, r)
			if unicode.IsSpace(r) {
				parts = append(parts, string(cur))
				cur = cur[:0]
			}
		}
		if len(cur) > 0 {
			parts = append(parts, string(cur))
		}
		return parts
	}
	parts := make([]string, 0, len(s))
	for _, r := range s {
		parts = append(parts, string(r))
	}
	return parts
}
