package main

import (
	"os"

	"github.com/df07/go-interactive-pathtracer/pkg/log"
	"github.com/urfave/cli"
)

var logger = log.New("pathtracer")

func newApp() *cli.App {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "pathtracer"
	app.Usage = "interactive progressive path tracer"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}

	renderFlags := []cli.Flag{
		cli.StringFlag{
			Name:  "scene, s",
			Value: "default",
			Usage: "built-in scene to render (see the scenes command)",
		},
		cli.StringFlag{
			Name:  "scene-file, f",
			Usage: "load the scene from a text scene file instead of a built-in scene",
		},
		cli.IntFlag{
			Name:  "workers",
			Value: 0,
			Usage: "number of worker goroutines (0 = one per hardware thread)",
		},
		cli.BoolFlag{
			Name:  "synchronous",
			Usage: "trace on a single goroutine",
		},
		cli.IntFlag{
			Name:  "tile-size",
			Value: 16,
			Usage: "edge length of render tiles in pixels",
		},
		cli.IntFlag{
			Name:  "max-depth",
			Value: 0,
			Usage: "maximum path depth (0 = scene setting)",
		},
		cli.Float64Flag{
			Name:  "exposure",
			Value: 1.0,
			Usage: "camera exposure for tone-mapping",
		},
		cli.BoolFlag{
			Name:  "tonemap",
			Usage: "apply ACES filmic tone mapping",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render a scene to a PNG file",
			Description: `
Accumulate the requested number of samples per pixel and save the averaged
image. Without --out the image is written to output/<scene>/render_<timestamp>.png.`,
			Flags: append([]cli.Flag{
				cli.IntFlag{
					Name:  "width",
					Value: 400,
					Usage: "frame width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 225,
					Usage: "frame height",
				},
				cli.IntFlag{
					Name:  "spp",
					Value: 64,
					Usage: "samples per pixel",
				},
				cli.StringFlag{
					Name:  "out, o",
					Usage: "image filename for the rendered frame",
				},
			}, renderFlags...),
			Action: RenderScene,
		},
		{
			Name:  "serve",
			Usage: "render interactively and serve the live preview over HTTP",
			Description: `
Keep one render session running and stream every accumulated frame to
connected clients. Edits made through the API restart accumulation.`,
			Flags: append([]cli.Flag{
				cli.IntFlag{
					Name:  "width",
					Value: 640,
					Usage: "initial frame width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 360,
					Usage: "initial frame height",
				},
				cli.IntFlag{
					Name:  "spp",
					Value: 0,
					Usage: "stop accumulating after this many samples per pixel (0 = never)",
				},
				cli.IntFlag{
					Name:  "port, p",
					Value: 8080,
					Usage: "port to serve on",
				},
				cli.StringFlag{
					Name:  "static",
					Usage: "directory of static files to serve at /",
				},
			}, renderFlags...),
			Action: ServeScene,
		},
		{
			Name:      "scenes",
			Usage:     "list built-in scenes, or describe one",
			ArgsUsage: "[scene]",
			Action:    ListScenes,
		},
	}

	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}
