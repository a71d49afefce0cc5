// Package export renders a timeline into a video file. The exporter walks
// the clock frame by frame, rasterizes the canvas, and hands pixels to an
// encoder session; the bundled encoder drives ffmpeg over a raw RGBA pipe.
package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/ivlev/cutroom/internal/system"
)

// SessionConfig fixes the geometry and target of one encode session.
type SessionConfig struct {
	Width        int
	Height       int
	OutputWidth  int // scaled output width, 0 keeps the frame size
	OutputHeight int // scaled output height, 0 keeps the frame size
	FPS          int
	Format       string // container: "mp4" or "webm"
	Encoder      string // ffmpeg encoder name, "" auto-detects
	Quality      int    // quality knob, 0 uses the default
	OutputPath   string
}

// Track schedules one audio source on the output timeline.
type Track struct {
	Src        string
	OffsetMs   int
	DurationMs int
}

// Encoder opens encode sessions.
type Encoder interface {
	Begin(ctx context.Context, cfg SessionConfig) (Session, error)
}

// Session accepts frames and audio tracks for one output file. WriteFrame
// and AddAudioTrack may be called until Finalize; Finalize succeeds at most
// once; Terminate releases resources and discards partial output, and must
// be called regardless of outcome.
type Session interface {
	WriteFrame(frame *image.RGBA) error
	AddAudioTrack(t Track)
	Finalize(ctx context.Context) (string, error)
	Terminate()
}

const defaultQuality = 23

// FFmpegEncoder encodes through an external ffmpeg process: a raw RGBA
// video pass piped over stdin, then an audio mux pass when tracks were
// added.
type FFmpegEncoder struct{}

func (FFmpegEncoder) Begin(ctx context.Context, cfg SessionConfig) (Session, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("begin export: bad frame size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Width%2 != 0 || cfg.Height%2 != 0 {
		return nil, fmt.Errorf("begin export: frame size %dx%d must be even", cfg.Width, cfg.Height)
	}
	if (cfg.OutputWidth > 0) != (cfg.OutputHeight > 0) {
		return nil, fmt.Errorf("begin export: output scale needs both dimensions")
	}
	if cfg.OutputWidth > 0 && (cfg.OutputWidth%2 != 0 || cfg.OutputHeight%2 != 0) {
		return nil, fmt.Errorf("begin export: output size %dx%d must be even", cfg.OutputWidth, cfg.OutputHeight)
	}
	if cfg.FPS <= 0 {
		return nil, fmt.Errorf("begin export: bad frame rate %d", cfg.FPS)
	}
	if cfg.Format != "mp4" && cfg.Format != "webm" {
		return nil, fmt.Errorf("begin export: unknown format %q", cfg.Format)
	}
	if cfg.OutputPath == "" {
		return nil, fmt.Errorf("begin export: output path required")
	}

	encoderName := cfg.Encoder
	if encoderName == "" {
		encoderName = system.DetectEncoder(cfg.Format)
	}

	tmpDir, err := os.MkdirTemp("", "cutroom-export-")
	if err != nil {
		return nil, fmt.Errorf("begin export: %w", err)
	}
	tempVideo := filepath.Join(tmpDir, "video."+cfg.Format)

	cmd := exec.CommandContext(ctx, "ffmpeg", videoArgs(cfg, encoderName, tempVideo)...)
	s := &ffmpegSession{cfg: cfg, tmpDir: tmpDir, tempVideo: tempVideo, cmd: cmd}
	cmd.Stderr = &s.stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("begin export: %w", err)
	}
	s.stdin = stdin
	if err := cmd.Start(); err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("begin export: start ffmpeg: %w", err)
	}
	return s, nil
}

// videoArgs builds the raw-RGBA-to-file encode invocation.
func videoArgs(cfg SessionConfig, encoder, outPath string) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-framerate", strconv.Itoa(cfg.FPS),
		"-i", "-",
		"-pix_fmt", "yuv420p",
		"-c:v", encoder,
	}
	if cfg.OutputWidth > 0 && cfg.OutputHeight > 0 {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:%d", cfg.OutputWidth, cfg.OutputHeight))
	}
	args = append(args, qualityArgs(encoder, cfg.Quality)...)
	return append(args, outPath)
}

// qualityArgs translates the quality knob into the encoder's native option.
func qualityArgs(encoder string, quality int) []string {
	if quality <= 0 {
		quality = defaultQuality
	}
	switch encoder {
	case "h264_videotoolbox":
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", strconv.Itoa(quality)}
	case "libvpx-vp9", "libvpx":
		return []string{"-crf", strconv.Itoa(quality), "-b:v", "0"}
	default:
		return []string{"-crf", strconv.Itoa(quality), "-preset", "medium"}
	}
}

// muxArgs builds the second pass: copy the encoded video stream and mix the
// audio tracks at their timeline offsets.
func muxArgs(tempVideo string, tracks []Track, format, outPath string) []string {
	args := []string{"-y", "-i", tempVideo}
	for _, t := range tracks {
		args = append(args, "-i", t.Src)
	}

	var filter strings.Builder
	var labels []string
	for i, t := range tracks {
		dur := float64(t.DurationMs) / 1000
		fmt.Fprintf(&filter, "[%d:a]atrim=0:%.3f,adelay=%d|%d[a%d];",
			i+1, dur, t.OffsetMs, t.OffsetMs, i)
		labels = append(labels, fmt.Sprintf("[a%d]", i))
	}
	fmt.Fprintf(&filter, "%samix=inputs=%d:duration=longest[aout]",
		strings.Join(labels, ""), len(tracks))

	audioCodec := "aac"
	if format == "webm" {
		audioCodec = "libopus"
	}
	return append(args,
		"-filter_complex", filter.String(),
		"-map", "0:v",
		"-map", "[aout]",
		"-c:v", "copy",
		"-c:a", audioCodec,
		"-shortest",
		outPath)
}

type ffmpegSession struct {
	mu          sync.Mutex
	cfg         SessionConfig
	tmpDir      string
	tempVideo   string
	cmd         *exec.Cmd
	stdin       io.WriteCloser
	stderr      bytes.Buffer
	tracks      []Track
	frames      int
	closing     bool // Finalize entered, no more frames
	finalized   bool // Finalize succeeded
	terminated  bool
	wroteOutput bool // output file creation started
}

func (s *ffmpegSession) WriteFrame(frame *image.RGBA) error {
	if frame == nil {
		return fmt.Errorf("write frame: nil frame")
	}
	b := frame.Bounds()
	if b.Dx() != s.cfg.Width || b.Dy() != s.cfg.Height {
		return fmt.Errorf("write frame: %dx%d does not match session %dx%d",
			b.Dx(), b.Dy(), s.cfg.Width, s.cfg.Height)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing || s.terminated {
		return fmt.Errorf("write frame: session closed")
	}
	// Honor the stride: subimages carry padding between rows.
	rowLen := s.cfg.Width * 4
	for y := 0; y < s.cfg.Height; y++ {
		off := y * frame.Stride
		if _, err := s.stdin.Write(frame.Pix[off : off+rowLen]); err != nil {
			return fmt.Errorf("write frame %d: %w: %s", s.frames, err, s.stderrTail())
		}
	}
	s.frames++
	return nil
}

func (s *ffmpegSession) AddAudioTrack(t Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing || s.terminated || t.Src == "" {
		return
	}
	s.tracks = append(s.tracks, t)
}

// Finalize closes the frame pipe, waits for the video pass, and runs the
// audio mux pass when tracks are present.
func (s *ffmpegSession) Finalize(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated {
		return "", fmt.Errorf("finalize: session terminated")
	}
	if s.closing {
		return "", fmt.Errorf("finalize: already finalized")
	}
	s.closing = true

	s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		return "", fmt.Errorf("finalize: ffmpeg encode: %w: %s", err, s.stderrTail())
	}
	if s.frames == 0 {
		return "", fmt.Errorf("finalize: no frames written")
	}

	s.wroteOutput = true
	if len(s.tracks) == 0 {
		if err := moveFile(s.tempVideo, s.cfg.OutputPath); err != nil {
			return "", fmt.Errorf("finalize: %w", err)
		}
	} else {
		cmd := exec.CommandContext(ctx, "ffmpeg",
			muxArgs(s.tempVideo, s.tracks, s.cfg.Format, s.cfg.OutputPath)...)
		if out, err := cmd.CombinedOutput(); err != nil {
			return "", fmt.Errorf("finalize: audio mux: %w: %s", err, tail(string(out)))
		}
	}

	s.finalized = true
	os.RemoveAll(s.tmpDir)
	return s.cfg.OutputPath, nil
}

// Terminate releases everything a failed or abandoned session holds: the
// ffmpeg process, the temp directory, and any partially written output.
// After a successful Finalize it is a no-op. Idempotent.
func (s *ffmpegSession) Terminate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminated || s.finalized {
		s.terminated = true
		return
	}
	s.terminated = true
	s.stdin.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait()
	if s.wroteOutput {
		os.Remove(s.cfg.OutputPath)
	}
	os.RemoveAll(s.tmpDir)
}

func (s *ffmpegSession) stderrTail() string {
	return tail(s.stderr.String())
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 512 {
		s = "..." + s[len(s)-512:]
	}
	return s
}

// moveFile renames and falls back to copying across filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
