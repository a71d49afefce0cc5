package editor

import (
	"math"
	"time"

	"go.uber.org/zap"
)

// The playback clock is logical: the store tracks a current key frame and
// derives wall time from it, so state is reproducible for any timeline
// position regardless of render pace.

func (s *Store) FPS() int {
	return s.fps
}

func (s *Store) MaxTimeMs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxTimeMs
}

// SetMaxTimeMs changes the timeline length and re-clamps every element's
// window to it.
func (s *Store) SetMaxTimeMs(ms int) {
	if ms <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxTimeMs = ms
	for _, el := range s.elements {
		s.clampTimeFrame(&el.TimeFrame)
	}
	s.rebuildAnimations()
	s.updateTimeTo(s.currentTimeMs())
}

func (s *Store) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *Store) CurrentKeyFrame() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentKeyFrame
}

// CurrentTimeMs converts the current key frame to milliseconds.
func (s *Store) CurrentTimeMs() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTimeMs()
}

func (s *Store) currentTimeMs() float64 {
	return float64(s.currentKeyFrame) * 1000 / float64(s.fps)
}

// SetCurrentTimeMs moves the clock by quantizing the position to the
// nearest key frame. It does not fan the time out; use Seek for that.
func (s *Store) SetCurrentTimeMs(ms float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setTimeMs(ms)
}

func (s *Store) setTimeMs(ms float64) {
	if ms < 0 {
		ms = 0
	}
	s.currentKeyFrame = int(math.Round(ms * float64(s.fps) / 1000))
}

// Seek moves the clock and reconciles visibility, animations, and media to
// the new position. Playback state is left untouched.
func (s *Store) Seek(ms float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setTimeMs(ms)
	s.updateTimeTo(s.currentTimeMs())
}

// SetPlaying starts or stops playback. Starting records the wall-clock
// anchor that Tick measures elapsed time against; both directions flip
// registered media elements to match.
func (s *Store) SetPlaying(playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = playing
	if playing {
		s.startedTime = s.now()
		s.startedTimePlay = s.currentTimeMs()
	}
	s.updateTimeTo(s.currentTimeMs())
}

// Tick advances the clock to the wall time of now while playing. Reaching
// the end of the timeline stops playback and rewinds to frame zero. The
// return value reports whether playback is still running.
func (s *Store) Tick(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing {
		return false
	}
	elapsed := float64(now.Sub(s.startedTime)) / float64(time.Millisecond)
	t := s.startedTimePlay + elapsed
	if t >= float64(s.maxTimeMs) {
		s.playing = false
		s.currentKeyFrame = 0
		s.updateTimeTo(0)
		s.surface.RenderAll()
		return false
	}
	s.setTimeMs(t)
	s.updateTimeTo(s.currentTimeMs())
	s.surface.RenderAll()
	return true
}

// updateTimeTo is the single integration point for a new timeline
// position: element visibility first, then the animation timeline, then
// registered media elements. Callers hold s.mu.
func (s *Store) updateTimeTo(ms float64) {
	for _, el := range s.elements {
		if obj := s.objects[el.ID]; obj != nil {
			obj.Visible = el.TimeFrame.Contains(ms)
		}
	}

	s.timeline.Seek(ms)

	for _, el := range s.elements {
		resourceID := mediaResourceID(el)
		if resourceID == "" {
			continue
		}
		m := s.mediaEls[resourceID]
		if m == nil {
			continue
		}
		local := (ms - float64(el.TimeFrame.Start)) / 1000
		if local < 0 {
			local = 0
		}
		if d := m.Duration(); d > 0 && local > d {
			local = d
		}
		m.SetCurrentTime(local)
		if s.playing && el.TimeFrame.Contains(ms) {
			if err := m.Play(); err != nil {
				s.logger.Debug("media play rejected",
					zap.String("element", el.ID),
					zap.Error(err))
			}
		} else {
			m.Pause()
		}
	}
}

// mediaResourceID extracts the media pool reference of an element, "" for
// types without backing media.
func mediaResourceID(el *Element) string {
	switch el.Type {
	case ElementVideo:
		if el.Props.Media != nil {
			return el.Props.Media.ResourceID
		}
	case ElementAudio:
		if el.Props.Audio != nil {
			return el.Props.Audio.ResourceID
		}
	}
	return ""
}

// pauseOrphanedMedia pauses registered media whose resource no longer
// backs any element. Media without a timeline element is outside the
// updateTimeTo fan-out and would play on unattended. Callers hold s.mu.
func (s *Store) pauseOrphanedMedia() {
	inUse := make(map[string]bool, len(s.elements))
	for _, el := range s.elements {
		if id := mediaResourceID(el); id != "" {
			inUse[id] = true
		}
	}
	for id, m := range s.mediaEls {
		if !inUse[id] {
			m.Pause()
		}
	}
}
