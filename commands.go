package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/df07/go-interactive-pathtracer/pkg/log"
	"github.com/df07/go-interactive-pathtracer/pkg/renderer"
	"github.com/df07/go-interactive-pathtracer/pkg/scene"
	"github.com/df07/go-interactive-pathtracer/web/server"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

func setupLogging(ctx *cli.Context) {
	log.SetLevel(log.Verbosity(ctx.GlobalBool("v"), ctx.GlobalBool("vv")))
}

// loadScene builds the scene selected by the --scene and --scene-file flags
func loadScene(ctx *cli.Context) (*scene.Scene, error) {
	width, height := ctx.Int("width"), ctx.Int("height")
	if width <= 0 || height <= 0 {
		return nil, renderer.ErrInvalidResolution
	}

	var (
		sc  *scene.Scene
		err error
	)
	if path := ctx.String("scene-file"); path != "" {
		sc, err = scene.LoadFile(path, width, height)
	} else {
		sc, err = scene.NewPreset(ctx.String("scene"), width, height)
	}
	if err != nil {
		return nil, err
	}

	if depth := ctx.Int("max-depth"); depth > 0 {
		sc.SamplingConfig.MaxDepth = depth
	}
	return sc, nil
}

func rendererConfig(ctx *cli.Context) renderer.Config {
	config := renderer.DefaultConfig()
	config.TileSize = ctx.Int("tile-size")
	config.NumWorkers = ctx.Int("workers")
	config.Synchronous = ctx.Bool("synchronous")
	config.TargetSamples = ctx.Int("spp")
	config.PostProcess.Exposure = ctx.Float64("exposure")
	config.PostProcess.ToneMapping = ctx.Bool("tonemap")
	return config
}

// RenderScene renders a still frame and saves it as PNG.
func RenderScene(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.Int("spp") <= 0 {
		return errors.New("spp must be positive")
	}

	sc, err := loadScene(ctx)
	if err != nil {
		return err
	}

	r, err := renderer.NewRenderer(sc, rendererConfig(ctx))
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Noticef("rendering %q at %dx%d with %d samples per pixel", sc.Name, ctx.Int("width"), ctx.Int("height"), ctx.Int("spp"))
	start := time.Now()

	frames, errs := r.RenderProgressive(runCtx, renderer.RenderOptions{StopAtTarget: true})

	var last renderer.FrameResult
	for frame := range frames {
		last = frame
		logger.Infof("%d/%d samples", frame.Stats.Samples, ctx.Int("spp"))
	}
	if err := <-errs; err != nil {
		if !errors.Is(err, context.Canceled) || last.Image == nil {
			return err
		}
		logger.Warning("render interrupted, saving partial result")
	}
	if last.Image == nil {
		return errors.New("no frame was rendered")
	}

	out := ctx.String("out")
	if out == "" {
		out = defaultOutputPath(sc.Name, time.Now())
	}
	if err := savePNG(out, last.Image); err != nil {
		return err
	}

	displayFrameStats(last.Stats, time.Since(start))
	logger.Noticef("render saved as %s", out)
	return nil
}

// ServeScene runs an interactive session behind the web server.
func ServeScene(ctx *cli.Context) error {
	setupLogging(ctx)

	sc, err := loadScene(ctx)
	if err != nil {
		return err
	}

	r, err := renderer.NewRenderer(sc, rendererConfig(ctx))
	if err != nil {
		return err
	}

	srv := server.NewServer(r, ctx.Int("port"), ctx.String("static"))
	log.SetSink(io.MultiWriter(os.Stderr, srv.Console()))
	defer log.SetSink(os.Stderr)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Noticef("serving %q, visit http://localhost:%d/api/stream for the live preview", sc.Name, ctx.Int("port"))
	return srv.Start(runCtx)
}

// ListScenes prints the built-in scenes, or the primitives of the named scene.
func ListScenes(ctx *cli.Context) error {
	setupLogging(ctx)
	w := ctx.App.Writer

	if ctx.NArg() > 0 {
		sc, err := scene.NewPreset(ctx.Args().First(), 400, 225)
		if err != nil {
			return err
		}
		sc.Describe(w)
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Scene", "Description"})
	for _, info := range scene.Presets() {
		table.Append([]string{info.Name, info.Description})
	}
	table.Render()
	return nil
}

func defaultOutputPath(sceneName string, now time.Time) string {
	timestamp := now.Format("20060102_150405")
	return filepath.Join("output", sceneName, fmt.Sprintf("render_%s.png", timestamp))
}

func savePNG(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return f.Close()
}

func displayFrameStats(stats renderer.FrameStats, total time.Duration) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Resolution", "Samples", "Tiles", "Workers", "Last iteration", "Rays/s"})
	table.Append([]string{
		fmt.Sprintf("%dx%d", stats.Width, stats.Height),
		fmt.Sprintf("%d", stats.Samples),
		fmt.Sprintf("%d", stats.Tiles),
		fmt.Sprintf("%d", stats.Workers),
		stats.Duration.String(),
		fmt.Sprintf("%.0f", stats.RaysPerSecond()),
	})
	table.SetFooter([]string{"", "", "", "", "TOTAL", total.Round(time.Millisecond).String()})

	table.Render()
	logger.Noticef("frame statistics\n%s", buf.String())
}
