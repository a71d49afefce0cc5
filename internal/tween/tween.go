// Package tween provides a seekable property timeline. Unlike a ticking
// animation loop, the timeline is stateless between calls: Seek applies the
// value of every registered tween for the given moment, so it can be driven
// backwards, repeated, or rebuilt without drift.
package tween

import (
	"sync"

	"github.com/ivlev/cutroom/internal/canvas"
)

// Ease maps linear progress in [0,1] to eased progress.
type Ease func(t float64) float64

func Linear(t float64) float64 { return t }

func EaseInOutCubic(t float64) float64 {
	if t < 0.5 {
		return 4 * t * t * t
	}
	p := -2*t + 2
	return 1 - p*p*p/2
}

// Tween moves one object property from From to To across a window on the
// global timeline, in milliseconds.
type Tween struct {
	Target     *canvas.Object
	Prop       canvas.Prop
	From       float64
	To         float64
	StartMs    float64
	DurationMs float64
	Ease       Ease
}

// Timeline is an ordered set of tweens. Insertion order is significant:
// when two tweens target the same property, the later one wins at Seek.
type Timeline struct {
	mu     sync.Mutex
	tweens []Tween
}

func NewTimeline() *Timeline {
	return &Timeline{}
}

// Add appends a tween and returns the timeline for chaining.
func (tl *Timeline) Add(tw Tween) *Timeline {
	if tw.Ease == nil {
		tw.Ease = Linear
	}
	tl.mu.Lock()
	tl.tweens = append(tl.tweens, tw)
	tl.mu.Unlock()
	return tl
}

// Clear drops every tween.
func (tl *Timeline) Clear() {
	tl.mu.Lock()
	tl.tweens = nil
	tl.mu.Unlock()
}

// Remove drops all tweens addressing the given target.
func (tl *Timeline) Remove(target *canvas.Object) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	kept := tl.tweens[:0]
	for _, tw := range tl.tweens {
		if tw.Target != target {
			kept = append(kept, tw)
		}
	}
	tl.tweens = kept
}

func (tl *Timeline) Len() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return len(tl.tweens)
}

// Seek applies every tween's value at the given timeline position. Progress
// is clamped, so positions before a tween's window pin the From value and
// positions after pin To.
func (tl *Timeline) Seek(ms float64) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	for _, tw := range tl.tweens {
		if tw.Target == nil {
			continue
		}
		tw.Target.SetProp(tw.Prop, tw.valueAt(ms))
	}
}

func (tw Tween) valueAt(ms float64) float64 {
	var p float64
	switch {
	case tw.DurationMs <= 0:
		if ms >= tw.StartMs {
			p = 1
		}
	default:
		p = (ms - tw.StartMs) / tw.DurationMs
		if p < 0 {
			p = 0
		} else if p > 1 {
			p = 1
		}
	}
	return tw.From + (tw.To-tw.From)*tw.Ease(p)
}
