package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
)

// FrameStream decodes a file into consecutive raw RGBA frames at a fixed
// size and rate. It drives one ffmpeg process and reads its stdout, so
// frames arrive strictly in order.
type FrameStream struct {
	cmd    *exec.Cmd
	out    io.ReadCloser
	stderr bytes.Buffer
	width  int
	height int
	buf    []byte
	err    error
}

// OpenFrameStream starts decoding path at the given output size and frame
// rate, beginning offset seconds into the file.
func OpenFrameStream(ctx context.Context, path string, width, height, fps int, offset float64) (*FrameStream, error) {
	if width <= 0 || height <= 0 || fps <= 0 {
		return nil, fmt.Errorf("frame stream %s: bad geometry %dx%d@%d", path, width, height, fps)
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", streamArgs(path, width, height, fps, offset)...)
	s := &FrameStream{
		cmd:    cmd,
		width:  width,
		height: height,
		buf:    make([]byte, width*height*4),
	}
	cmd.Stderr = &s.stderr
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("frame stream %s: %w", path, err)
	}
	s.out = out
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("frame stream %s: start ffmpeg: %w", path, err)
	}
	return s, nil
}

func streamArgs(path string, width, height, fps int, offset float64) []string {
	args := []string{"-v", "error"}
	if offset > 0 {
		args = append(args, "-ss", strconv.FormatFloat(offset, 'f', 3, 64))
	}
	return append(args,
		"-i", path,
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", strconv.Itoa(fps),
		"-")
}

// Next returns the next decoded frame. The image aliases an internal buffer
// that the following Next call overwrites. io.EOF signals a clean end of
// stream; any error is sticky.
func (s *FrameStream) Next() (*image.RGBA, error) {
	if s.err != nil {
		return nil, s.err
	}
	if _, err := io.ReadFull(s.out, s.buf); err != nil {
		s.err = err
		return nil, err
	}
	return &image.RGBA{
		Pix:    s.buf,
		Stride: s.width * 4,
		Rect:   image.Rect(0, 0, s.width, s.height),
	}, nil
}

// Close stops the decoder and releases the pipe. Safe after an error.
func (s *FrameStream) Close() error {
	s.out.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait()
	return nil
}

// FrameAt decodes a single frame at the given position, for poster images
// and thumbnails.
func FrameAt(ctx context.Context, path string, seconds float64, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("frame at %s: bad size %dx%d", path, width, height)
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", frameArgs(path, seconds, width, height)...)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("frame at %s: %w", path, err)
	}
	need := width * height * 4
	if len(out) < need {
		return nil, fmt.Errorf("frame at %s: short read %d of %d bytes", path, len(out), need)
	}
	return &image.RGBA{
		Pix:    out[:need],
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}, nil
}

func frameArgs(path string, seconds float64, width, height int) []string {
	args := []string{"-v", "error"}
	if seconds > 0 {
		args = append(args, "-ss", strconv.FormatFloat(seconds, 'f', 3, 64))
	}
	return append(args,
		"-i", path,
		"-frames:v", "1",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-")
}
