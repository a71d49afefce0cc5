package media

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Duration reads the container duration in seconds with ffprobe.
func Duration(path string) (float64, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w", err)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	return d, nil
}

// HasAudio reports whether the file carries at least one audio stream.
// Screen recordings and generated clips are often silent, and offering a
// silent file to an audio mux fails the whole filtergraph.
func HasAudio(path string) (bool, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=index",
		"-of", "csv=p=0",
		path)
	out, err := cmd.Output()
	if err != nil {
		return false, fmt.Errorf("ffprobe audio streams: %w", err)
	}
	return strings.TrimSpace(string(out)) != "", nil
}

// Dimensions reads the first video stream's pixel size with ffprobe.
// Audio-only files return an error.
func Dimensions(path string) (int, int, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		path)
	out, err := cmd.Output()
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe dimensions: %w", err)
	}
	var w, h int
	if _, err := fmt.Sscanf(strings.TrimSpace(string(out)), "%dx%d", &w, &h); err != nil {
		return 0, 0, fmt.Errorf("parse dimensions %q: %w", strings.TrimSpace(string(out)), err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("no video stream in %s", path)
	}
	return w, h, nil
}
