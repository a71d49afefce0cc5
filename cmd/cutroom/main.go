package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/ivlev/cutroom/internal/canvas"
	"github.com/ivlev/cutroom/internal/config"
	"github.com/ivlev/cutroom/internal/editor"
	"github.com/ivlev/cutroom/internal/export"
	"github.com/ivlev/cutroom/internal/logging"
	"github.com/ivlev/cutroom/internal/media"
	"github.com/ivlev/cutroom/internal/project"
	"github.com/ivlev/cutroom/internal/source"
	"github.com/ivlev/cutroom/internal/system"
)

func main() {
	cfg := config.Default()

	projectPtr := flag.String("project", "", "Project YAML to load")
	outputPtr := flag.String("output", "", "Export the timeline to this video file (empty skips export)")
	formatPtr := flag.String("format", "", "Container: mp4 or webm (empty keeps the project setting)")
	fpsPtr := flag.Int("fps", cfg.FPS, "Logical clock rate, frames per second")
	maxTimePtr := flag.Int("max-time", cfg.MaxTimeMs, "Timeline length in milliseconds")
	widthPtr := flag.Int("width", cfg.Width, "Canvas width")
	heightPtr := flag.Int("height", cfg.Height, "Canvas height")
	backgroundPtr := flag.String("background", cfg.Background, "Canvas background, hex color")
	exportWidthPtr := flag.Int("export-width", 0, "Scaled output width (0 keeps the canvas size)")
	exportHeightPtr := flag.Int("export-height", 0, "Scaled output height (0 keeps the canvas size)")
	encoderPtr := flag.String("encoder", "", "ffmpeg video encoder (empty auto-detects)")
	qualityPtr := flag.Int("quality", 0, "Video quality (0 auto, x264: CRF 1-51, VideoToolbox: bitrate = Q*100kbit/s)")
	queuePtr := flag.Int("queue", 0, "In-flight export frames (0 sizes by available memory)")
	importPDFPtr := flag.String("import-pdf", "", "Render a PDF's pages into image resources")
	importImagesPtr := flag.String("import-images", "", "Register a picture or a directory of pictures as image resources")
	dpiPtr := flag.Int("dpi", 150, "Render resolution for PDF import")
	resourcesPtr := flag.String("resources-dir", "resources", "Directory for imported resource files")
	qrPtr := flag.String("qr", "", "Generate a QR overlay resource pointing at this link")
	savePtr := flag.String("save", "", "Write the session back to this project YAML")
	debugPtr := flag.Bool("debug", false, "Verbose logging")
	flag.Parse()

	if *projectPtr == "" && *outputPtr == "" && *importPDFPtr == "" &&
		*importImagesPtr == "" && *qrPtr == "" && *savePtr == "" {
		flag.Usage()
		os.Exit(2)
	}

	logger := logging.New(*debugPtr)
	defer logger.Sync()

	// Frame streaming opens one ffmpeg pipe per video element.
	if _, err := system.RaiseFileLimit(8192); err != nil {
		logger.Debug("file limit raise failed", zap.Error(err))
	}

	cfg.ProjectPath = *projectPtr
	cfg.OutputPath = *outputPtr
	cfg.FPS = *fpsPtr
	cfg.MaxTimeMs = *maxTimePtr
	cfg.Width = *widthPtr
	cfg.Height = *heightPtr
	cfg.Background = *backgroundPtr
	cfg.Format = *formatPtr
	cfg.ExportWidth = *exportWidthPtr
	cfg.ExportHeight = *exportHeightPtr
	cfg.Encoder = *encoderPtr
	cfg.Quality = *qualityPtr
	cfg.QueueDepth = *queuePtr
	cfg.Debug = *debugPtr

	surface, err := canvas.New(cfg.Width, cfg.Height, cfg.Background)
	if err != nil {
		log.Fatalf("[-] Canvas: %v", err)
	}
	store := editor.NewStore(cfg, surface, logger)

	if cfg.ProjectPath != "" {
		f, err := project.Load(cfg.ProjectPath)
		if err != nil {
			log.Fatalf("[-] %v", err)
		}
		if err := project.Apply(f, store); err != nil {
			log.Fatalf("[-] %v", err)
		}
		fmt.Printf("[*] Project %s: %d elements, %d animations\n",
			cfg.ProjectPath, len(store.Elements()), len(store.Animations()))
	}

	if *importPDFPtr != "" {
		importPDF(store, *importPDFPtr, *resourcesPtr, *dpiPtr)
	}
	if *importImagesPtr != "" {
		importImages(store, *importImagesPtr)
	}
	if *qrPtr != "" {
		importQR(store, *qrPtr, *resourcesPtr)
	}

	registerMedia(store, logger, store.VideoResources())
	registerMedia(store, logger, store.AudioResources())

	if *savePtr != "" {
		if err := project.Save(project.FromStore(store), *savePtr); err != nil {
			log.Fatalf("[-] %v", err)
		}
		fmt.Printf("[*] Project saved: %s\n", *savePtr)
	}

	if cfg.OutputPath == "" {
		return
	}

	encoderName := cfg.Encoder
	if encoderName == "" {
		format := cfg.Format
		if format == "" {
			format = store.VideoFormat()
		}
		encoderName = system.DetectEncoder(format)
		if strings.HasPrefix(encoderName, "h264_") {
			fmt.Printf("[*] Hardware encoder: %s\n", encoderName)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fps := store.FPS()
	out, err := export.New(store, nil, logger).Run(ctx, export.Options{
		OutputPath:   cfg.OutputPath,
		Format:       cfg.Format,
		Encoder:      encoderName,
		Quality:      cfg.Quality,
		OutputWidth:  cfg.ExportWidth,
		OutputHeight: cfg.ExportHeight,
		QueueDepth:   cfg.QueueDepth,
		OnProgress: func(frame, total int) {
			if frame%fps == 0 || frame == total {
				fmt.Printf("[>] Rendered %d/%d frames (%.0f%%)\n",
					frame, total, float64(frame)*100/float64(total))
			}
		},
	})
	if err != nil {
		log.Fatalf("[-] Export failed: %v", err)
	}
	fmt.Printf("[+++] Done: %s\n", out)
}

// importPDF renders every page into the resources directory and registers
// the results as image resources.
func importPDF(store *editor.Store, path, dir string, dpi int) {
	doc, err := source.OpenPDF(path)
	if err != nil {
		log.Fatalf("[-] %v", err)
	}
	defer doc.Close()

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	pages, err := source.Import(doc, dir, base, dpi)
	if err != nil {
		log.Fatalf("[-] %v", err)
	}
	for _, p := range pages {
		store.AddImageResource(p)
	}
	fmt.Printf("[*] Imported %d pages from %s\n", len(pages), path)
}

// importImages registers a picture, or every picture in a directory, as
// image resources. Files are referenced in place, not copied.
func importImages(store *editor.Store, path string) {
	set, err := source.OpenImages(path)
	if err != nil {
		log.Fatalf("[-] %v", err)
	}
	defer set.Close()
	for _, p := range set.Paths() {
		store.AddImageResource(p)
	}
	fmt.Printf("[*] Registered %d images from %s\n", set.Pages(), path)
}

func importQR(store *editor.Store, link, dir string) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Fatalf("[-] %v", err)
	}
	path := filepath.Join(dir, "qr.png")
	if err := source.QRCode(link, 256, path); err != nil {
		log.Fatalf("[-] %v", err)
	}
	store.AddImageResource(path)
	fmt.Printf("[*] QR overlay: %s\n", path)
}

// registerMedia probes each resource with ffprobe and binds the playable
// element to the store. Unreadable files are skipped so a missing asset
// degrades to a silent element instead of blocking the session.
func registerMedia(store *editor.Store, logger *zap.Logger, list []editor.Resource) {
	for _, res := range list {
		el, err := media.NewFileElement(res.Src)
		if err != nil {
			logger.Warn("media resource unavailable",
				zap.String("id", res.ID),
				zap.String("src", res.Src),
				zap.Error(err))
			continue
		}
		store.RegisterMedia(res.ID, el)
	}
}
