package main

import (
	"bufio"
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	imageannotator "github.com/menta2k/image-annotator"
	"github.com/menta2k/image-annotator/internal/config"
	"github.com/menta2k/image-annotator/internal/logging"
	"github.com/menta2k/image-annotator/internal/utils"
	"github.com/menta2k/image-annotator/pkg/fileio"
	"github.com/menta2k/image-annotator/pkg/prompt"
	"github.com/menta2k/image-annotator/pkg/render"
	"github.com/menta2k/image-annotator/pkg/scene"
)

func main() {
	var configPath, image, konfig, results, outDir, preview, logLevel string
	var scale float64
	var interactive bool

	flag.StringVar(&configPath, "config", "", "settings file (JSON); falls back to the user config file, then defaults")
	flag.StringVar(&image, "image", "", "background image path (jpg/png/gif/webp)")
	flag.StringVar(&konfig, "konfig", "", "marker config to load (konfig.json)")
	flag.StringVar(&results, "results", "", "results file to overlay ([[x, y], ...])")
	flag.Float64Var(&scale, "scale", 0, "scale override in px/m, 0=keep")
	flag.StringVar(&outDir, "out", "", "output directory (overrides settings)")
	flag.StringVar(&preview, "preview", "", "write a rendered preview with this name into the output directory")
	flag.StringVar(&logLevel, "loglevel", "", "log level: debug|info|warn|error (overrides settings)")
	flag.BoolVar(&interactive, "interactive", false, "start the interactive command loop")
	flag.Parse()
	if flag.NFlag() == 0 {
		log.Fatalf("usage: %s [-config settings.json] [-image bg.jpg] [-konfig konfig.json] [-results results.json] [-scale 2.5] [-out outdir] [-preview name] [-interactive]", filepath.Base(os.Args[0]))
	}

	cfg, err := config.Load(resolveConfigPath(configPath))
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}
	if outDir != "" {
		cfg.Output.Dir = outDir
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	cleanup, err := logging.Setup(cfg.Log.Level, cfg.Log.Dir)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	vp := scene.NewViewport(cfg.Viewport.WindowWidth, cfg.Viewport.WindowHeight, cfg.Viewport.ControlBarHeight)
	raster := render.NewRaster(vp)

	in := bufio.NewScanner(os.Stdin)
	picker := &argPicker{fallback: fileio.NewLinePickerFromScanner(in, os.Stdout)}
	if !interactive {
		picker.fallback = nil
	}

	a := imageannotator.New(raster,
		imageannotator.WithContext(ctx),
		imageannotator.WithViewport(vp),
		imageannotator.WithLogger(slog.Default()),
		imageannotator.WithMarkerSizes(cfg.Markers.UserRadius, cfg.Markers.ResultRadius),
		imageannotator.WithResultAlpha(cfg.Markers.ResultAlpha),
		imageannotator.WithFilename(cfg.Output.ConfigFilename),
		imageannotator.WithSaver(fileio.DirSaver{Dir: cfg.Output.Dir}),
		imageannotator.WithPicker(picker),
		imageannotator.WithPrompter(prompt.NewReaderFromScanner(in, os.Stdout)),
	)

	// Batch steps run in the order a user would click through them
	if image != "" {
		picker.Set(image)
		if err := a.LoadBackground(ctx); err != nil {
			log.Fatal(err)
		}
	}
	if scale != 0 {
		if err := a.SetScale(scale); err != nil {
			log.Fatalf("Invalid -scale: %v", err)
		}
	}
	if konfig != "" {
		picker.Set(konfig)
		if err := a.LoadConfig(ctx); err != nil {
			log.Fatal(err)
		}
	}
	if results != "" {
		picker.Set(results)
		if err := a.LoadResults(ctx); err != nil {
			log.Fatal(err)
		}
	}

	if interactive {
		r := newREPL(a, raster, cfg, picker, in, os.Stdout)
		if err := r.run(ctx); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := a.Save(ctx); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s", filepath.Join(cfg.Output.Dir, cfg.Output.ConfigFilename))

	if preview != "" {
		path, err := writePreview(raster, cfg, preview)
		if err != nil {
			log.Fatalf("preview failed: %v", err)
		}
		log.Printf("wrote %s", path)
	}
}

// resolveConfigPath returns path, or the user config file when path is empty
// and that file exists. An empty result selects the built-in defaults.
func resolveConfigPath(path string) string {
	if path != "" {
		return path
	}
	if def := config.GetConfigPath(); utils.FileExists(def) {
		return def
	}
	return ""
}

// writePreview renders the scene into the output directory and returns the path
func writePreview(raster *render.Raster, cfg *config.Config, name string) (string, error) {
	if err := utils.EnsureDir(cfg.Output.Dir); err != nil {
		return "", err
	}
	path := utils.GenerateOutputFilename(name, cfg.Output.Dir, "", "", previewFormat(name, cfg.Output.PreviewFormat))
	if err := raster.Save(path, filepath.Ext(path)[1:], cfg.Output.PreviewQuality, cfg.Output.PreviewLossless); err != nil {
		return "", err
	}
	return path, nil
}

// previewFormat prefers the extension given in name over the configured format
func previewFormat(name, fallback string) string {
	switch ext := utils.GetFileExtension(name); ext {
	case "png", "jpg", "jpeg", "webp":
		return ext
	default:
		return fallback
	}
}
