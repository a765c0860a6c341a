package scene

import (
	"fmt"

	"github.com/df07/go-interactive-pathtracer/pkg/core"
)

// PrimitiveType identifies the concrete shape behind a Primitive
type PrimitiveType int

const (
	SphereType PrimitiveType = iota
	PlaneType
	PlaneInfiniteType
	TriangleType
)

var primitiveTypeNames = map[PrimitiveType]string{
	SphereType:        "sphere",
	PlaneType:         "plane",
	PlaneInfiniteType: "plane-infinite",
	TriangleType:      "triangle",
}

func (t PrimitiveType) String() string {
	if name, ok := primitiveTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("primitive(%d)", int(t))
}

// ParsePrimitiveType converts a type name back into a PrimitiveType
func ParsePrimitiveType(name string) (PrimitiveType, error) {
	for t, n := range primitiveTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown primitive type %q", name)
}

// Primitive is anything a ray can be intersected against
type Primitive interface {
	// Intersect returns the closest hit with tMin < t < tMax
	Intersect(ray core.Ray, tMin, tMax float64) (HitRecord, bool)
	Type() PrimitiveType
	Object() *Base
}

// Base holds the state shared by every primitive
type Base struct {
	Name            string
	Position        core.Vec3
	Material        Material
	MarkedForDelete bool
}

// Object returns the shared primitive state
func (b *Base) Object() *Base {
	return b
}

// HitRecord describes a ray-primitive intersection
type HitRecord struct {
	T         float64
	Point     core.Vec3
	Normal    core.Vec3 // Outward geometric normal
	FrontFace bool      // True when the ray hit the outward side

	Primitive Primitive // Non-owning reference into the scene arena
	Index     int       // Arena index of Primitive

	// InsideMedium is true while the ray travels inside a dielectric volume
	InsideMedium bool
}

// SetFaceNormal records the outward normal and which side the ray hit
func (h *HitRecord) SetFaceNormal(ray core.Ray, outwardNormal core.Vec3) {
	h.FrontFace = ray.Direction.Dot(outwardNormal) < 0
	h.Normal = outwardNormal
}

// FacingNormal returns the normal oriented against the incoming ray
func (h *HitRecord) FacingNormal() core.Vec3 {
	if h.FrontFace {
		return h.Normal
	}
	return h.Normal.Negate()
}
