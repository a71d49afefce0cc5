package system

import (
	"os/exec"
	"strings"
	"sync"
)

var probe struct {
	once  sync.Once
	avail map[string]bool
}

// availableEncoders runs ffmpeg once and caches the encoder list. A failed
// probe yields an empty set, which makes DetectEncoder fall back to the
// software encoders.
func availableEncoders() map[string]bool {
	probe.once.Do(func() {
		out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
		if err != nil {
			return
		}
		probe.avail = parseEncoders(string(out))
	})
	return probe.avail
}

// parseEncoders extracts encoder names from `ffmpeg -encoders` output. The
// listing has a flags column, a name column, and a description, separated
// from the legend by a dashed line.
func parseEncoders(out string) map[string]bool {
	names := make(map[string]bool)
	seenSeparator := false
	for _, line := range strings.Split(out, "\n") {
		if !seenSeparator {
			if strings.Contains(line, "------") {
				seenSeparator = true
			}
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			names[fields[1]] = true
		}
	}
	return names
}

// DetectEncoder picks the best available video encoder for a container:
// hardware H.264 when present, otherwise libx264 for mp4; VP9 for webm.
func DetectEncoder(format string) string {
	avail := availableEncoders()
	if format == "webm" {
		for _, name := range []string{"libvpx-vp9", "libvpx"} {
			if avail[name] {
				return name
			}
		}
		return "libvpx-vp9"
	}
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if avail[name] {
			return name
		}
	}
	return "libx264"
}
