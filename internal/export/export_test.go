package export

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/ivlev/cutroom/internal/canvas"
	"github.com/ivlev/cutroom/internal/config"
	"github.com/ivlev/cutroom/internal/editor"
)

// fakeEncoder scripts the encoder side of the pipeline.
type fakeEncoder struct {
	cfg         SessionConfig
	session     *fakeSession
	beginErr    error
	writeErrAt  int // fail the n-th frame (1-based), 0 never
	finalizeErr error
}

func (f *fakeEncoder) Begin(ctx context.Context, cfg SessionConfig) (Session, error) {
	f.cfg = cfg
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	f.session = &fakeSession{
		output:      cfg.OutputPath,
		writeErrAt:  f.writeErrAt,
		finalizeErr: f.finalizeErr,
	}
	return f.session, nil
}

type fakeSession struct {
	frames      int
	firstPixel  color.RGBA
	tracks      []Track
	finalizes   int
	terminates  int
	writeErrAt  int
	finalizeErr error
	output      string
}

func (s *fakeSession) WriteFrame(frame *image.RGBA) error {
	s.frames++
	if s.frames == 1 {
		s.firstPixel = frame.RGBAAt(0, 0)
	}
	if s.writeErrAt > 0 && s.frames >= s.writeErrAt {
		return errors.New("encoder broke")
	}
	return nil
}

func (s *fakeSession) AddAudioTrack(t Track) {
	s.tracks = append(s.tracks, t)
}

func (s *fakeSession) Finalize(ctx context.Context) (string, error) {
	s.finalizes++
	if s.finalizeErr != nil {
		return "", s.finalizeErr
	}
	return s.output, nil
}

func (s *fakeSession) Terminate() {
	s.terminates++
}

// stubMedia stands in for a registered media resource.
type stubMedia struct {
	duration float64
	current  float64
	playing  bool
	hasAudio bool
}

func (m *stubMedia) Duration() float64        { return m.duration }
func (m *stubMedia) CurrentTime() float64     { return m.current }
func (m *stubMedia) SetCurrentTime(t float64) { m.current = t }
func (m *stubMedia) Play() error              { m.playing = true; return nil }
func (m *stubMedia) Pause()                   { m.playing = false }
func (m *stubMedia) Playing() bool            { return m.playing }
func (m *stubMedia) Size() (int, int)         { return 0, 0 }
func (m *stubMedia) HasAudio() bool           { return m.hasAudio }

func exportStore(t *testing.T, maxTimeMs int) *editor.Store {
	t.Helper()
	surface, err := canvas.New(64, 36, "#102030")
	if err != nil {
		t.Fatalf("canvas: %v", err)
	}
	cfg := config.Default()
	cfg.FPS = 30
	cfg.MaxTimeMs = maxTimeMs
	cfg.Width = 64
	cfg.Height = 36
	return editor.NewStore(cfg, surface, nil)
}

func TestRunEncodesEveryFrame(t *testing.T) {
	s := exportStore(t, 100) // 0.1s at 30fps = 3 frames
	enc := &fakeEncoder{}
	var lastFrame, lastTotal int

	out, err := New(s, enc, nil).Run(context.Background(), Options{
		OutputPath: "out.mp4",
		OnProgress: func(frame, total int) { lastFrame, lastTotal = frame, total },
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "out.mp4" {
		t.Fatalf("output = %q", out)
	}
	if enc.session.frames != 3 {
		t.Fatalf("frames written = %d, want 3", enc.session.frames)
	}
	if enc.session.finalizes != 1 {
		t.Fatalf("finalizes = %d, want exactly 1", enc.session.finalizes)
	}
	if enc.session.terminates == 0 {
		t.Fatal("terminate must be called even on success")
	}
	if lastFrame != 3 || lastTotal != 3 {
		t.Fatalf("progress = %d/%d, want 3/3", lastFrame, lastTotal)
	}
	// frames carry the rasterized canvas, not zeroed buffers
	if enc.session.firstPixel != (color.RGBA{16, 32, 48, 255}) {
		t.Fatalf("first pixel = %v, want canvas background", enc.session.firstPixel)
	}
}

func TestRunNoFrames(t *testing.T) {
	s := exportStore(t, 1) // quantizes to zero frames at 30fps
	_, err := New(s, &fakeEncoder{}, nil).Run(context.Background(), Options{OutputPath: "out.mp4"})
	if !errors.Is(err, ErrNoFrames) {
		t.Fatalf("got %v, want ErrNoFrames", err)
	}
}

func TestRunCollectsAudioTracks(t *testing.T) {
	s := exportStore(t, 5000)
	if err := s.AddElement(&editor.Element{
		ID:        "song",
		Type:      editor.ElementAudio,
		TimeFrame: editor.TimeFrame{Start: 1000, End: 4000},
		Props:     editor.Props{Audio: &editor.AudioProps{Src: "song.mp3"}},
	}); err != nil {
		t.Fatalf("add audio: %v", err)
	}
	// Zero placement keeps the video feeds out of the frame pass; only
	// their soundtracks matter here.
	s.RegisterMedia("res-talk", &stubMedia{duration: 2, hasAudio: true})
	if err := s.AddElement(&editor.Element{
		ID:        "talk",
		Type:      editor.ElementVideo,
		TimeFrame: editor.TimeFrame{Start: 500, End: 2500},
		Props:     editor.Props{Media: &editor.MediaProps{ResourceID: "res-talk", Src: "talk.mp4"}},
	}); err != nil {
		t.Fatalf("add video: %v", err)
	}
	s.RegisterMedia("res-screencap", &stubMedia{duration: 2})
	if err := s.AddElement(&editor.Element{
		ID:        "screencap",
		Type:      editor.ElementVideo,
		TimeFrame: editor.TimeFrame{End: 1000},
		Props:     editor.Props{Media: &editor.MediaProps{ResourceID: "res-screencap", Src: "screencap.mp4"}},
	}); err != nil {
		t.Fatalf("add silent video: %v", err)
	}
	if err := s.AddElement(&editor.Element{
		ID:        "caption",
		Type:      editor.ElementText,
		TimeFrame: editor.TimeFrame{End: 100},
		Placement: editor.DefaultPlacement(),
		Props:     editor.Props{Text: &editor.TextProps{Text: "x", FontSize: 10}},
	}); err != nil {
		t.Fatalf("add text: %v", err)
	}
	enc := &fakeEncoder{}

	if _, err := New(s, enc, nil).Run(context.Background(), Options{OutputPath: "out.mp4"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(enc.session.tracks) != 2 {
		t.Fatalf("tracks = %d, want the audio element and the video with sound", len(enc.session.tracks))
	}
	song, talk := enc.session.tracks[0], enc.session.tracks[1]
	if song.Src != "song.mp3" || song.OffsetMs != 1000 || song.DurationMs != 3000 {
		t.Fatalf("audio track = %+v", song)
	}
	if talk.Src != "talk.mp4" || talk.OffsetMs != 500 || talk.DurationMs != 2000 {
		t.Fatalf("video track = %+v", talk)
	}
	for _, tr := range enc.session.tracks {
		if tr.Src == "screencap.mp4" {
			t.Fatal("soundless video must not reach the audio mux")
		}
	}
}

func TestRunSkipsUnregisteredVideoAudio(t *testing.T) {
	s := exportStore(t, 2000)
	if err := s.AddElement(&editor.Element{
		ID:        "orphan",
		Type:      editor.ElementVideo,
		TimeFrame: editor.TimeFrame{End: 1500},
		Props:     editor.Props{Media: &editor.MediaProps{ResourceID: "missing", Src: "orphan.mp4"}},
	}); err != nil {
		t.Fatalf("add video: %v", err)
	}
	enc := &fakeEncoder{}

	if _, err := New(s, enc, nil).Run(context.Background(), Options{OutputPath: "out.mp4"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(enc.session.tracks) != 0 {
		t.Fatalf("tracks = %+v, want none for unregistered media", enc.session.tracks)
	}
}

func TestRunTerminatesOnWriteFailure(t *testing.T) {
	s := exportStore(t, 100)
	enc := &fakeEncoder{writeErrAt: 2}

	_, err := New(s, enc, nil).Run(context.Background(), Options{OutputPath: "out.mp4"})
	if err == nil {
		t.Fatal("expected write failure to surface")
	}
	if enc.session.finalizes != 0 {
		t.Fatal("failed session must not be finalized")
	}
	if enc.session.terminates == 0 {
		t.Fatal("failed session must be terminated")
	}
}

func TestRunPropagatesFinalizeError(t *testing.T) {
	s := exportStore(t, 100)
	enc := &fakeEncoder{finalizeErr: errors.New("mux failed")}

	_, err := New(s, enc, nil).Run(context.Background(), Options{OutputPath: "out.mp4"})
	if err == nil || err.Error() != "mux failed" {
		t.Fatalf("got %v, want finalize error", err)
	}
	if enc.session.terminates == 0 {
		t.Fatal("terminate must still run after finalize failure")
	}
}

func TestRunInheritsStoreSettings(t *testing.T) {
	s := exportStore(t, 100)
	if err := s.SetVideoFormat(editor.FormatWebM); err != nil {
		t.Fatalf("set format: %v", err)
	}
	enc := &fakeEncoder{}

	if _, err := New(s, enc, nil).Run(context.Background(), Options{OutputPath: "out.webm"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if enc.cfg.Format != "webm" {
		t.Fatalf("format = %q, want inherited webm", enc.cfg.Format)
	}
	if enc.cfg.FPS != 30 {
		t.Fatalf("fps = %d, want store's 30", enc.cfg.FPS)
	}
	if enc.cfg.Width != 64 || enc.cfg.Height != 36 {
		t.Fatalf("size = %dx%d, want canvas size", enc.cfg.Width, enc.cfg.Height)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	s := exportStore(t, 30000)
	enc := &fakeEncoder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(s, enc, nil).Run(ctx, Options{OutputPath: "out.mp4"})
	if err == nil {
		t.Fatal("cancelled export must fail")
	}
	if enc.session != nil && enc.session.finalizes != 0 {
		t.Fatal("cancelled export must not finalize")
	}
}

func TestRunBeginErrorPropagates(t *testing.T) {
	s := exportStore(t, 100)
	enc := &fakeEncoder{beginErr: errors.New("no encoder")}
	if _, err := New(s, enc, nil).Run(context.Background(), Options{OutputPath: "x.mp4"}); err == nil {
		t.Fatal("expected begin error")
	}
}
