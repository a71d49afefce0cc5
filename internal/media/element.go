// Package media wraps playable resources (video and audio files) behind a
// small playback interface and supplies raw frame access for export.
package media

import (
	"fmt"
	"os"
	"sync"
)

// Element is the playback surface of one loaded media resource. It mirrors
// what a host player exposes: a seekable position within a fixed duration
// and a play/pause toggle. Play may fail, like an autoplay rejection, and
// callers are expected to log rather than abort.
type Element interface {
	// Duration returns the total length in seconds, 0 when unknown.
	Duration() float64
	CurrentTime() float64
	SetCurrentTime(seconds float64)
	Play() error
	Pause()
	Playing() bool
	// Size returns the natural pixel dimensions, 0x0 for audio-only media.
	Size() (w, h int)
	// HasAudio reports whether the media carries an audio stream. Silent
	// video must stay out of export audio muxing.
	HasAudio() bool
}

// FileElement is an Element backed by a file on disk, probed with ffprobe.
type FileElement struct {
	mu       sync.Mutex
	path     string
	duration float64
	width    int
	height   int
	hasAudio bool
	current  float64
	playing  bool
}

// NewFileElement probes path and returns a playable element. Audio files
// probe with zero dimensions, which is not an error.
func NewFileElement(path string) (*FileElement, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("media %s: %w", path, err)
	}
	duration, err := Duration(path)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", path, err)
	}
	w, h, err := Dimensions(path)
	if err != nil {
		w, h = 0, 0
	}
	hasAudio, err := HasAudio(path)
	if err != nil {
		hasAudio = false
	}
	return &FileElement{path: path, duration: duration, width: w, height: h, hasAudio: hasAudio}, nil
}

func (f *FileElement) Path() string {
	return f.path
}

func (f *FileElement) Duration() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.duration
}

func (f *FileElement) CurrentTime() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// SetCurrentTime seeks to the given position, clamped into [0, duration].
func (f *FileElement) SetCurrentTime(seconds float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	if f.duration > 0 && seconds > f.duration {
		seconds = f.duration
	}
	f.current = seconds
}

func (f *FileElement) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.duration <= 0 {
		return fmt.Errorf("media %s: zero duration, nothing to play", f.path)
	}
	f.playing = true
	return nil
}

func (f *FileElement) Pause() {
	f.mu.Lock()
	f.playing = false
	f.mu.Unlock()
}

func (f *FileElement) Playing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

func (f *FileElement) Size() (int, int) {
	return f.width, f.height
}

func (f *FileElement) HasAudio() bool {
	return f.hasAudio
}
