package scene

import (
	"math"

	"github.com/df07/go-interactive-pathtracer/pkg/core"
)

// Material describes how a primitive scatters or emits light
type Material struct {
	Color       core.Vec3 // Base color (albedo)
	Texture     Texture   // Optional spatial albedo override
	Specularity float64   // Base specular weight, Fresnel is added on top
	Roughness   float64   // Glossy perturbation of reflected rays
	Metalness   float64   // Fraction of specular reflection tinted by the albedo
	IoR         float64   // Index of refraction
	Density     float64   // Beer-Lambert absorption coefficient for dielectrics

	EmissiveStrength float64
	IsEmissive       bool
	IsDielectric     bool
}

// DefaultMaterial returns a white, fully diffuse material
func DefaultMaterial() Material {
	return Material{
		Color:            core.NewVec3(1, 1, 1),
		IoR:              1.0,
		EmissiveStrength: 1.0,
	}
}

// NewDiffuse creates an opaque diffuse material
func NewDiffuse(color core.Vec3) Material {
	m := DefaultMaterial()
	m.Color = color
	return m
}

// NewMetal creates a metallic material with the given roughness
func NewMetal(color core.Vec3, roughness float64) Material {
	m := DefaultMaterial()
	m.Color = color
	m.Specularity = 1.0
	m.Metalness = 1.0
	m.Roughness = roughness
	return m
}

// NewGlass creates a dielectric material
func NewGlass(color core.Vec3, ior float64) Material {
	m := DefaultMaterial()
	m.Color = color
	m.IoR = ior
	m.IsDielectric = true
	return m
}

// NewEmissive creates a light-emitting material
func NewEmissive(color core.Vec3, strength float64) Material {
	m := DefaultMaterial()
	m.Color = color
	m.EmissiveStrength = strength
	m.IsEmissive = true
	return m
}

// AlbedoAt returns the material color at a world-space point
func (m *Material) AlbedoAt(point core.Vec3) core.Vec3 {
	if m.Texture != nil {
		return m.Texture.Evaluate(point)
	}
	return m.Color
}

// Emission returns the radiance leaving an emissive surface
func (m *Material) Emission() core.Vec3 {
	return m.Color.Multiply(m.EmissiveStrength)
}

// Texture provides spatially varying albedo
type Texture interface {
	Evaluate(point core.Vec3) core.Vec3
}

// CheckerBoard is a solid 3D checker pattern
type CheckerBoard struct {
	ColorA, ColorB core.Vec3
	Scale          float64 // Edge length of one cell in world units
}

// NewCheckerBoard creates a checker texture with the given cell size
func NewCheckerBoard(a, b core.Vec3, scale float64) *CheckerBoard {
	return &CheckerBoard{ColorA: a, ColorB: b, Scale: scale}
}

// Evaluate returns ColorA or ColorB depending on the cell containing point
func (c *CheckerBoard) Evaluate(point core.Vec3) core.Vec3 {
	scale := c.Scale
	if scale <= 0 {
		scale = 1
	}

	// Offset keeps the pattern stable across the origin
	x := int(math.Floor((point.X + 500) / scale))
	y := int(math.Floor((point.Y + 500) / scale))
	z := int(math.Floor((point.Z + 500) / scale))

	if (x+y+z)%2 == 0 {
		return c.ColorA
	}
	return c.ColorB
}
