package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/cutroom/internal/canvas"
	"github.com/ivlev/cutroom/internal/editor"
	"github.com/ivlev/cutroom/internal/media"
	"github.com/ivlev/cutroom/internal/system"
)

// ErrNoFrames means the timeline quantizes to zero output frames.
var ErrNoFrames = errors.New("no frames to export")

// Options tunes one export run. Zero values inherit from the store and the
// system defaults.
type Options struct {
	OutputPath   string
	Format       string // "" takes the store's format
	Encoder      string
	Quality      int
	FPS          int // 0 takes the store's frame rate
	OutputWidth  int // scaled output size; 0 keeps the canvas size
	OutputHeight int
	QueueDepth   int // in-flight frames; 0 sizes by available memory
	OnProgress   func(frame, total int)
}

// Exporter renders a store's timeline through an encoder session. Rendering
// and encoding run concurrently: one goroutine seeks the clock and
// rasterizes, the other feeds the encoder, with a bounded frame queue
// between them.
type Exporter struct {
	store  *editor.Store
	enc    Encoder
	logger *zap.Logger
}

func New(store *editor.Store, enc Encoder, logger *zap.Logger) *Exporter {
	if enc == nil {
		enc = FFmpegEncoder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{store: store, enc: enc, logger: logger}
}

// videoFeed pulls decoded frames for one video element during export.
type videoFeed struct {
	el     *editor.Element
	obj    *canvas.Object
	stream *media.FrameStream
	dead   bool
}

// Run exports the whole timeline and returns the output path.
func (e *Exporter) Run(ctx context.Context, opts Options) (string, error) {
	fps := opts.FPS
	if fps <= 0 {
		fps = e.store.FPS()
	}
	maxMs := e.store.MaxTimeMs()
	total := int(math.Round(float64(maxMs) / 1000 * float64(fps)))
	if total <= 0 {
		return "", ErrNoFrames
	}

	surface := e.store.Surface()
	width, height := surface.Size()
	format := opts.Format
	if format == "" {
		format = e.store.VideoFormat()
	}

	session, err := e.enc.Begin(ctx, SessionConfig{
		Width:        width,
		Height:       height,
		OutputWidth:  opts.OutputWidth,
		OutputHeight: opts.OutputHeight,
		FPS:          fps,
		Format:       format,
		Encoder:      opts.Encoder,
		Quality:      opts.Quality,
		OutputPath:   opts.OutputPath,
	})
	if err != nil {
		return "", err
	}
	defer session.Terminate()

	feeds := e.openFeeds(ctx, fps)
	defer func() {
		for _, f := range feeds {
			f.stream.Close()
		}
	}()

	for _, el := range e.store.Elements() {
		if t, ok := e.audioTrack(el); ok {
			session.AddAudioTrack(t)
		}
	}

	queueDepth := opts.QueueDepth
	if queueDepth <= 0 {
		queueDepth = system.FrameQueueDepth(width, height)
	}
	e.logger.Debug("export pipeline",
		zap.Int("frames", total),
		zap.Int("queueDepth", queueDepth),
		zap.String("format", format))

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	frames := make(chan *image.RGBA, queueDepth)

	g.Go(func() error {
		defer close(frames)
		for i := 0; i < total; i++ {
			if err := gctx.Err(); err != nil {
				return err
			}
			tMs := float64(i) * 1000 / float64(fps)
			e.store.Seek(tMs)
			e.advanceFeeds(feeds, tMs)

			buf := system.GetFrame(width, height)
			if err := surface.Rasterize(buf); err != nil {
				system.PutFrame(buf)
				return fmt.Errorf("frame %d: %w", i, err)
			}
			select {
			case frames <- buf:
			case <-gctx.Done():
				system.PutFrame(buf)
				return gctx.Err()
			}
			if opts.OnProgress != nil {
				opts.OnProgress(i+1, total)
			}
		}
		return nil
	})

	g.Go(func() error {
		for buf := range frames {
			err := session.WriteFrame(buf)
			system.PutFrame(buf)
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return "", err
	}

	out, err := session.Finalize(ctx)
	if err != nil {
		return "", err
	}
	e.logger.Info("export finished",
		zap.Int("frames", total),
		zap.String("output", out),
		zap.Duration("took", time.Since(start)))
	return out, nil
}

// openFeeds starts a frame stream per video element, scaled to the
// element's content size so decoding cost tracks on-canvas size. A video
// that cannot be decoded is skipped; its audio track still muxes.
func (e *Exporter) openFeeds(ctx context.Context, fps int) []*videoFeed {
	var feeds []*videoFeed
	for _, el := range e.store.Elements() {
		if el.Type != editor.ElementVideo || el.Props.Media == nil || el.Props.Media.Src == "" {
			continue
		}
		obj, ok := e.store.Object(el.ID)
		if !ok {
			continue
		}
		w := int(math.Round(obj.Width))
		h := int(math.Round(obj.Height))
		if w <= 0 || h <= 0 {
			continue
		}
		stream, err := media.OpenFrameStream(ctx, el.Props.Media.Src, w, h, fps, 0)
		if err != nil {
			e.logger.Warn("video frames unavailable",
				zap.String("element", el.ID),
				zap.String("src", el.Props.Media.Src),
				zap.Error(err))
			continue
		}
		feeds = append(feeds, &videoFeed{el: el, obj: obj, stream: stream})
	}
	return feeds
}

// advanceFeeds pulls one decoded frame for every video element visible at
// the given position. A feed that ends early keeps its last frame on
// screen.
func (e *Exporter) advanceFeeds(feeds []*videoFeed, tMs float64) {
	for _, f := range feeds {
		if f.dead || !f.el.TimeFrame.Contains(tMs) {
			continue
		}
		frame, err := f.stream.Next()
		if err != nil {
			f.dead = true
			e.logger.Debug("video stream ended",
				zap.String("element", f.el.ID),
				zap.Error(err))
			continue
		}
		f.obj.Image = frame
	}
}

// audioTrack maps an element onto an output audio track. Audio elements
// contribute their file; video elements contribute their soundtrack only
// when the registered media carries an audio stream. A silent input in the
// mux filtergraph has no ':a' stream and fails the whole pass, so silent
// and unregistered clips never reach it.
func (e *Exporter) audioTrack(el *editor.Element) (Track, bool) {
	var src string
	switch el.Type {
	case editor.ElementAudio:
		if el.Props.Audio != nil {
			src = el.Props.Audio.Src
		}
	case editor.ElementVideo:
		if el.Props.Media == nil {
			return Track{}, false
		}
		m, ok := e.store.MediaElement(el.Props.Media.ResourceID)
		if !ok || !m.HasAudio() {
			return Track{}, false
		}
		src = el.Props.Media.Src
	default:
		return Track{}, false
	}
	if src == "" {
		return Track{}, false
	}
	return Track{
		Src:        src,
		OffsetMs:   el.TimeFrame.Start,
		DurationMs: el.TimeFrame.End - el.TimeFrame.Start,
	}, true
}
