package config

// Config carries the editing-session and export settings shared by the
// store, the export engine, and the CLI.
type Config struct {
	ProjectPath string
	OutputPath  string

	// Editing session
	FPS        int    // logical clock rate in frames per second
	MaxTimeMs  int    // timeline length in milliseconds
	Width      int    // canvas width in pixels
	Height     int    // canvas height in pixels
	Background string // canvas background, hex color

	// Export
	Format       string // container: "mp4" or "webm"
	ExportWidth  int    // scaled output width; 0 keeps canvas size
	ExportHeight int    // scaled output height; 0 keeps canvas size
	Encoder      string // ffmpeg video encoder name; "" auto-detects
	Quality      int    // encoder quality knob; 0 uses the encoder default
	QueueDepth   int    // in-flight export frames; 0 sizes by available memory
	Debug        bool
}

// Default returns the settings a fresh editing session starts with.
func Default() *Config {
	return &Config{
		FPS:        60,
		MaxTimeMs:  30000,
		Width:      800,
		Height:     450,
		Background: "#111111",
		Format:     "mp4",
	}
}
