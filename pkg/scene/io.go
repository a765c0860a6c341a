package scene

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/df07/go-interactive-pathtracer/pkg/core"
	"github.com/df07/go-interactive-pathtracer/pkg/loaders"
)

// Scene files are line oriented. Blank lines and lines starting with # are
// ignored. Recognised records:
//
//	name <scene-name>
//	camera px py pz dx dy dz
//	sampling maxDepth maxDistance rrMinBounces
//	skydome gradient br bg bb tr tg tb orientation emission background
//	skydome image <path> orientation emission background
//	sphere <name> cx cy cz radius <material>
//	plane <name> p0x p0y p0z p1x p1y p1z p2x p2y p2z <material>
//	plane-infinite <name> px py pz nx ny nz <material>
//	triangle <name> v0x v0y v0z v1x v1y v1z v2x v2y v2z <material>
//
// <material> is: r g b specularity roughness metalness ior density emissive
// strength dielectric, optionally followed by: checker ar ag ab br bg bb scale

const materialFields = 11

var geometryFields = map[PrimitiveType]int{
	SphereType:        4,
	PlaneType:         9,
	PlaneInfiniteType: 6,
	TriangleType:      9,
}

// LoadFile reads a scene file. Relative skydome image paths are resolved
// against the scene file's directory.
func LoadFile(path string, width, height int) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scene file: %w", err)
	}
	defer f.Close()

	return load(f, width, height, filepath.Dir(path))
}

// Load reads a scene from r
func Load(r io.Reader, width, height int) (*Scene, error) {
	return load(r, width, height, "")
}

func load(r io.Reader, width, height int, baseDir string) (*Scene, error) {
	s := NewScene("untitled", NewDefaultCamera(width, height), nil)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if err := parseLine(s, strings.Fields(line), baseDir, width, height); err != nil {
			return nil, fmt.Errorf("scene: line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}

	return s, nil
}

func parseLine(s *Scene, fields []string, baseDir string, width, height int) error {
	keyword, args := fields[0], fields[1:]

	switch keyword {
	case "name":
		if len(args) != 1 {
			return fmt.Errorf("name expects 1 value, got %d", len(args))
		}
		s.Name = args[0]
		return nil

	case "camera":
		v, err := parseFloats(args, 6)
		if err != nil {
			return fmt.Errorf("camera: %w", err)
		}
		s.Camera = NewCamera(core.NewVec3(v[0], v[1], v[2]), core.NewVec3(v[3], v[4], v[5]), width, height)
		return nil

	case "sampling":
		v, err := parseFloats(args, 3)
		if err != nil {
			return fmt.Errorf("sampling: %w", err)
		}
		s.SamplingConfig = SamplingConfig{
			MaxDepth:                  int(v[0]),
			MaxDistance:               v[1],
			RussianRouletteMinBounces: int(v[2]),
		}
		return nil

	case "skydome":
		sky, err := parseSkydome(args, baseDir)
		if err != nil {
			return fmt.Errorf("skydome: %w", err)
		}
		s.Skydome = sky
		return nil
	}

	ptype, err := ParsePrimitiveType(keyword)
	if err != nil {
		return err
	}
	p, err := parsePrimitive(ptype, args)
	if err != nil {
		return fmt.Errorf("%s: %w", keyword, err)
	}
	s.Add(p)
	return nil
}

func parseSkydome(args []string, baseDir string) (*Skydome, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("missing source kind")
	}

	var (
		source Environment
		rest   []string
	)

	switch args[0] {
	case "gradient":
		if len(args) < 7 {
			return nil, fmt.Errorf("gradient expects 6 color values")
		}
		v, err := parseFloats(args[1:7], 6)
		if err != nil {
			return nil, err
		}
		source = NewGradientSky(core.NewVec3(v[0], v[1], v[2]), core.NewVec3(v[3], v[4], v[5]))
		rest = args[7:]
	case "image":
		if len(args) < 2 {
			return nil, fmt.Errorf("missing image path")
		}
		path := args[1]
		if baseDir != "" && !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		data, err := loaders.LoadEnvironment(path)
		if err != nil {
			return nil, err
		}
		env := NewEquirectMap(data.Width, data.Height, data.Pixels)
		env.Source = args[1]
		source = env
		rest = args[2:]
	default:
		return nil, fmt.Errorf("unknown source kind %q", args[0])
	}

	v, err := parseFloats(rest, 3)
	if err != nil {
		return nil, err
	}

	sky := NewSkydome(source)
	sky.Orientation = v[0]
	sky.Emission = v[1]
	sky.BackgroundStrength = v[2]
	return sky, nil
}

func parsePrimitive(ptype PrimitiveType, args []string) (Primitive, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("missing name")
	}
	name := args[0]
	args = args[1:]

	n := geometryFields[ptype]
	if len(args) < n+materialFields {
		return nil, fmt.Errorf("expected %d values, got %d", n+materialFields, len(args))
	}

	g, err := parseFloats(args[:n], n)
	if err != nil {
		return nil, err
	}
	mat, err := parseMaterial(args[n:])
	if err != nil {
		return nil, err
	}

	vec := func(i int) core.Vec3 { return core.NewVec3(g[i], g[i+1], g[i+2]) }

	switch ptype {
	case SphereType:
		return NewSphere(name, vec(0), g[3], mat), nil
	case PlaneType:
		return NewPlane(name, vec(0), vec(3), vec(6), mat), nil
	case PlaneInfiniteType:
		return NewPlaneInfinite(name, vec(0), vec(3), mat), nil
	default:
		return NewTriangle(name, vec(0), vec(3), vec(6), mat), nil
	}
}

func parseMaterial(args []string) (Material, error) {
	v, err := parseFloats(args[:materialFields], materialFields)
	if err != nil {
		return Material{}, fmt.Errorf("material: %w", err)
	}

	m := Material{
		Color:            core.NewVec3(v[0], v[1], v[2]),
		Specularity:      v[3],
		Roughness:        v[4],
		Metalness:        v[5],
		IoR:              v[6],
		Density:          v[7],
		IsEmissive:       v[8] != 0,
		EmissiveStrength: v[9],
		IsDielectric:     v[10] != 0,
	}

	extra := args[materialFields:]
	if len(extra) == 0 {
		return m, nil
	}
	if extra[0] != "checker" {
		return Material{}, fmt.Errorf("unexpected %q after material", extra[0])
	}
	c, err := parseFloats(extra[1:], 7)
	if err != nil {
		return Material{}, fmt.Errorf("checker: %w", err)
	}
	m.Texture = NewCheckerBoard(core.NewVec3(c[0], c[1], c[2]), core.NewVec3(c[3], c[4], c[5]), c[6])
	return m, nil
}

func parseFloats(args []string, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(args))
	}
	out := make([]float64, n)
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", a)
		}
		out[i] = v
	}
	return out, nil
}

// Save writes the scene in the format read by Load. Image skydomes are
// written with the path they were loaded from.
func Save(w io.Writer, s *Scene) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# %s\n", s.Name)
	fmt.Fprintf(bw, "name %s\n", sanitizeName(s.Name))

	if s.Camera != nil {
		fmt.Fprintf(bw, "camera %s %s\n", formatFields(s.Camera.Position), formatFields(s.Camera.ViewDirection))
	}

	cfg := s.SamplingConfig
	fmt.Fprintf(bw, "sampling %d %s %d\n", cfg.MaxDepth, formatFloat(cfg.MaxDistance), cfg.RussianRouletteMinBounces)

	if sky := s.Skydome; sky != nil {
		tail := fmt.Sprintf("%s %s %s", formatFloat(sky.Orientation), formatFloat(sky.Emission), formatFloat(sky.BackgroundStrength))
		switch src := sky.Source.(type) {
		case *GradientSky:
			fmt.Fprintf(bw, "skydome gradient %s %s %s\n", formatFields(src.Bottom), formatFields(src.Top), tail)
		case *EquirectMap:
			if src.Source == "" {
				return fmt.Errorf("scene: skydome image has no source path")
			}
			fmt.Fprintf(bw, "skydome image %s %s\n", src.Source, tail)
		}
	}

	for _, p := range s.primitives {
		obj := p.Object()
		var geometry string
		switch prim := p.(type) {
		case *Sphere:
			geometry = fmt.Sprintf("%s %s", formatFields(prim.Position), formatFloat(prim.Radius))
		case *Plane:
			geometry = fmt.Sprintf("%s %s %s", formatFields(prim.P0), formatFields(prim.P1), formatFields(prim.P2))
		case *PlaneInfinite:
			geometry = fmt.Sprintf("%s %s", formatFields(prim.Position), formatFields(prim.Normal))
		case *Triangle:
			geometry = fmt.Sprintf("%s %s %s", formatFields(prim.V0), formatFields(prim.V1), formatFields(prim.V2))
		default:
			return fmt.Errorf("scene: cannot save primitive of type %s", p.Type())
		}
		fmt.Fprintf(bw, "%s %s %s %s\n", p.Type(), sanitizeName(obj.Name), geometry, formatMaterial(&obj.Material))
	}

	return bw.Flush()
}

// SaveFile writes the scene to path
func SaveFile(path string, s *Scene) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create scene file: %w", err)
	}
	if err := Save(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatMaterial(m *Material) string {
	out := fmt.Sprintf("%s %s %s %s %s %s %d %s %d",
		formatFields(m.Color),
		formatFloat(m.Specularity),
		formatFloat(m.Roughness),
		formatFloat(m.Metalness),
		formatFloat(m.IoR),
		formatFloat(m.Density),
		boolToInt(m.IsEmissive),
		formatFloat(m.EmissiveStrength),
		boolToInt(m.IsDielectric),
	)
	if c, ok := m.Texture.(*CheckerBoard); ok {
		out += fmt.Sprintf(" checker %s %s %s", formatFields(c.ColorA), formatFields(c.ColorB), formatFloat(c.Scale))
	}
	return out
}

func formatFields(v core.Vec3) string {
	return formatFloat(v.X) + " " + formatFloat(v.Y) + " " + formatFloat(v.Z)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func sanitizeName(name string) string {
	if name == "" {
		return "unnamed"
	}
	return strings.Join(strings.Fields(name), "_")
}
