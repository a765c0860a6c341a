package scene

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/df07/go-interactive-pathtracer/pkg/core"
	"github.com/olekukonko/tablewriter"
)

// SamplingConfig contains path tracing configuration
type SamplingConfig struct {
	MaxDepth                  int     // Maximum ray bounce depth
	MaxDistance               float64 // Hits beyond this distance are treated as misses
	RussianRouletteMinBounces int     // Bounces before Russian roulette can terminate a path
}

// DefaultSamplingConfig returns the interactive defaults
func DefaultSamplingConfig() SamplingConfig {
	return SamplingConfig{
		MaxDepth:                  15,
		MaxDistance:               100.0,
		RussianRouletteMinBounces: 0,
	}
}

// Edit is a deferred scene mutation applied between render iterations
type Edit func(*Scene)

// Scene owns the primitive arena, camera and environment.
//
// The fields read while tracing (the primitive list, Camera and Skydome) are
// only mutated from ApplyPending, which the renderer calls while no worker is
// tracing. Everything else goes through AddPrimitive, Enqueue and friends,
// which are safe to call from any goroutine.
type Scene struct {
	Name           string
	Camera         *Camera
	Skydome        *Skydome
	SamplingConfig SamplingConfig

	primitives []Primitive

	mu         sync.Mutex
	backBuffer []Primitive
	edits      []Edit

	updated atomic.Bool
}

// NewScene creates an empty scene
func NewScene(name string, camera *Camera, skydome *Skydome) *Scene {
	return &Scene{
		Name:           name,
		Camera:         camera,
		Skydome:        skydome,
		SamplingConfig: DefaultSamplingConfig(),
	}
}

// Primitives returns the live primitive list. Callers must not modify it and
// must not hold on to it across ApplyPending.
func (s *Scene) Primitives() []Primitive {
	return s.primitives
}

// Add appends primitives directly to the live list. Only for scene construction
// before rendering starts.
func (s *Scene) Add(primitives ...Primitive) {
	s.primitives = append(s.primitives, primitives...)
}

// AddPrimitive queues a primitive to be merged at the next ApplyPending
func (s *Scene) AddPrimitive(p Primitive) {
	s.mu.Lock()
	s.backBuffer = append(s.backBuffer, p)
	s.mu.Unlock()
	s.MarkUpdated()
}

// Enqueue queues an arbitrary edit to run at the next ApplyPending
func (s *Scene) Enqueue(edit Edit) {
	s.mu.Lock()
	s.edits = append(s.edits, edit)
	s.mu.Unlock()
	s.MarkUpdated()
}

// MarkForDelete flags the primitive at index for removal at the next ApplyPending
func (s *Scene) MarkForDelete(index int) {
	s.Enqueue(func(sc *Scene) {
		if index >= 0 && index < len(sc.primitives) {
			sc.primitives[index].Object().MarkedForDelete = true
		}
	})
}

// SetMaterial replaces the material of the primitive at index
func (s *Scene) SetMaterial(index int, material Material) {
	s.Enqueue(func(sc *Scene) {
		if index >= 0 && index < len(sc.primitives) {
			sc.primitives[index].Object().Material = material
		}
	})
}

// SetSkydome swaps the environment at the next ApplyPending
func (s *Scene) SetSkydome(skydome *Skydome) {
	s.Enqueue(func(sc *Scene) {
		sc.Skydome = skydome
	})
}

// MarkUpdated flags the scene as structurally modified
func (s *Scene) MarkUpdated() {
	s.updated.Store(true)
}

// ConsumeUpdated reports whether the scene changed since the last call and clears the flag
func (s *Scene) ConsumeUpdated() bool {
	return s.updated.Swap(false)
}

// HasPending reports whether edits or new primitives are waiting to be applied
func (s *Scene) HasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.edits) > 0 || len(s.backBuffer) > 0
}

// ApplyPending runs queued edits, merges the back buffer and compacts
// primitives marked for deletion. Must not run concurrently with tracing.
func (s *Scene) ApplyPending() {
	s.mu.Lock()
	edits := s.edits
	added := s.backBuffer
	s.edits = nil
	s.backBuffer = nil
	s.mu.Unlock()

	for _, edit := range edits {
		edit(s)
	}

	s.primitives = append(s.primitives, added...)

	kept := s.primitives[:0]
	for _, p := range s.primitives {
		if !p.Object().MarkedForDelete {
			kept = append(kept, p)
		}
	}
	// Clear the tail so removed primitives can be collected
	for i := len(kept); i < len(s.primitives); i++ {
		s.primitives[i] = nil
	}
	s.primitives = kept
}

// Describe writes a table of the scene's primitives
func (s *Scene) Describe(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"#", "Name", "Type", "Position", "Color", "Kind"})

	for i, p := range s.primitives {
		obj := p.Object()
		table.Append([]string{
			fmt.Sprint(i),
			obj.Name,
			p.Type().String(),
			formatVec(obj.Position),
			formatVec(obj.Material.Color),
			materialKind(&obj.Material),
		})
	}

	table.SetFooter([]string{"", "", "", "", "Primitives", fmt.Sprint(len(s.primitives))})
	table.Render()
}

func materialKind(m *Material) string {
	switch {
	case m.IsEmissive:
		return "emissive"
	case m.IsDielectric:
		return "dielectric"
	case m.Metalness > 0:
		return "metal"
	case m.Specularity > 0:
		return "glossy"
	default:
		return "diffuse"
	}
}

func formatVec(v core.Vec3) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}

// MoveCamera queues a camera translation
func (s *Scene) MoveCamera(direction MoveDirection, amount float64, modifier SpeedModifier) {
	s.Enqueue(func(sc *Scene) {
		sc.Camera.Move(direction, amount, modifier)
	})
}

// RotateCamera queues a camera rotation
func (s *Scene) RotateCamera(yaw, pitch float64) {
	s.Enqueue(func(sc *Scene) {
		sc.Camera.Rotate(yaw, pitch)
	})
}

// PlaceCamera queues an absolute camera placement
func (s *Scene) PlaceCamera(position, viewDirection core.Vec3) {
	s.Enqueue(func(sc *Scene) {
		sc.Camera.Position = position
		sc.Camera.ViewDirection = viewDirection
		w, h := sc.Camera.Resolution()
		sc.Camera.SetupVirtualPlane(w, h)
	})
}

// Replace queues swapping in the content of other, keeping the current resolution
func (s *Scene) Replace(other *Scene) {
	s.Enqueue(func(sc *Scene) {
		if sc.Camera != nil && other.Camera != nil {
			w, h := sc.Camera.Resolution()
			other.Camera.SetupVirtualPlane(w, h)
		}
		sc.Name = other.Name
		sc.Camera = other.Camera
		sc.Skydome = other.Skydome
		sc.SamplingConfig = other.SamplingConfig
		sc.primitives = append([]Primitive(nil), other.primitives...)
	})
}
