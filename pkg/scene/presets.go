package scene

import (
	"fmt"
	"sort"

	"github.com/df07/go-interactive-pathtracer/pkg/core"
)

// PresetInfo describes a built-in scene
type PresetInfo struct {
	Name        string
	Description string
}

type presetBuilder func(width, height int) *Scene

var presets = map[string]struct {
	description string
	build       presetBuilder
}{
	"default": {"checkered ground with glass, diffuse, metal and glossy spheres under a gradient sky", NewDefaultScene},
	"cornell": {"closed box with colored walls, an area light, a glass and a metal sphere", NewCornellScene},
}

// Presets lists the built-in scenes sorted by name
func Presets() []PresetInfo {
	infos := make([]PresetInfo, 0, len(presets))
	for name, p := range presets {
		infos = append(infos, PresetInfo{Name: name, Description: p.description})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// NewPreset builds the named scene for the given resolution
func NewPreset(name string, width, height int) (*Scene, error) {
	p, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown scene %q", name)
	}
	return p.build(width, height), nil
}

// NewDefaultScene creates a row of spheres with different materials on a checkered ground
func NewDefaultScene(width, height int) *Scene {
	camera := NewCamera(core.NewVec3(0.5, 0.35, -1.2), core.NewVec3(0, -0.15, 2), width, height)

	sky := NewSkydome(NewGradientSky(
		core.NewVec3(1, 0.578, 0.067),
		core.NewVec3(0.475, 0.91, 1.0),
	))

	s := NewScene("default", camera, sky)

	groundMat := NewDiffuse(core.NewVec3(1, 1, 1))
	groundMat.Texture = NewCheckerBoard(core.NewVec3(0.9, 0.9, 0.9), core.NewVec3(0.2, 0.2, 0.2), 0.1)
	ground := NewPlane("ground",
		core.NewVec3(-0.35, 0, 0),
		core.NewVec3(-0.35, 0, 1),
		core.NewVec3(1.35, 0, 0),
		groundMat)

	glass := NewSphere("glass", core.NewVec3(0, 0.125, 0.35), 0.125,
		NewGlass(core.NewVec3(0.985, 0.710, 0.401), 1.52))

	lambertMat := NewDiffuse(core.NewVec3(1, 1, 1))
	lambertMat.IoR = 1.225
	lambert := NewSphere("lambert", core.NewVec3(0.333, 0.125, 0.35), 0.125, lambertMat)

	metal := NewSphere("metal", core.NewVec3(0.666, 0.125, 0.35), 0.125,
		NewMetal(core.NewVec3(0.716, 0.716, 0.716), 0.025))

	glossMat := NewDiffuse(core.NewVec3(0.067, 0.698, 1))
	glossMat.Specularity = 0.25
	glossMat.Roughness = 0.375
	glossMat.IoR = 1.531
	gloss := NewSphere("gloss", core.NewVec3(1.0, 0.125, 0.35), 0.125, glossMat)

	s.Add(ground, glass, lambert, metal, gloss)
	return s
}

// NewCornellScene creates a unit Cornell box lit by a ceiling panel
func NewCornellScene(width, height int) *Scene {
	camera := NewDefaultCamera(width, height)
	s := NewScene("cornell", camera, NewSkydome(NewGradientSky(core.Vec3{}, core.Vec3{})))

	white := NewDiffuse(core.NewVec3(0.83, 0.83, 0.83))
	orange := NewDiffuse(core.NewVec3(1, 0.578, 0.067))
	blue := NewDiffuse(core.NewVec3(0.067, 0.698, 1))

	s.Add(
		NewPlane("bottom", core.NewVec3(0, 0, 0), core.NewVec3(0, 0, 1), core.NewVec3(1, 0, 0), white),
		NewPlane("left", core.NewVec3(0, 0, 0), core.NewVec3(0, 1, 0), core.NewVec3(0, 0, 1), orange),
		NewPlane("right", core.NewVec3(1, 0, 0), core.NewVec3(1, 0, 1), core.NewVec3(1, 1, 0), blue),
		NewPlane("back", core.NewVec3(0, 0, 1), core.NewVec3(0, 1, 1), core.NewVec3(1, 0, 1), white),
		NewPlane("top", core.NewVec3(0, 1, 0), core.NewVec3(1, 1, 0), core.NewVec3(0, 1, 1), white),
		NewPlane("light",
			core.NewVec3(0.3, 0.999, 0.3),
			core.NewVec3(0.7, 0.999, 0.3),
			core.NewVec3(0.3, 0.999, 0.7),
			NewEmissive(core.NewVec3(1, 0.95, 0.9), 4.0)),
		NewSphere("glass", core.NewVec3(0.7, 0.165, 0.35), 0.165,
			NewGlass(core.NewVec3(1, 1, 1), 1.5)),
		NewSphere("metal", core.NewVec3(0.3, 0.15, 0.7), 0.15,
			NewMetal(core.NewVec3(0.95, 0.92, 0.96), 0.02)),
	)
	return s
}
