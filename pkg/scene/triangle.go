package scene

import (
	"github.com/df07/go-interactive-pathtracer/pkg/core"
)

// Triangle is a single triangle defined by three vertices
type Triangle struct {
	Base
	V0, V1, V2 core.Vec3

	e1, e2, normal core.Vec3
}

// NewTriangle creates a new triangle
func NewTriangle(name string, v0, v1, v2 core.Vec3, material Material) *Triangle {
	t := &Triangle{
		Base: Base{Name: name, Material: material},
		V0:   v0,
		V1:   v1,
		V2:   v2,
	}
	t.Setup()
	return t
}

// Setup recomputes edges, normal and centroid after the vertices change
func (t *Triangle) Setup() {
	t.e1 = t.V1.Subtract(t.V0)
	t.e2 = t.V2.Subtract(t.V0)
	t.normal = t.e1.Cross(t.e2).Normalize()
	t.Position = t.V0.Add(t.V1).Add(t.V2).Multiply(1.0 / 3.0)
}

// Type returns TriangleType
func (t *Triangle) Type() PrimitiveType { return TriangleType }

// Normal returns the triangle's outward normal, (V1-V0) × (V2-V0)
func (t *Triangle) Normal() core.Vec3 { return t.normal }

// Intersect tests if a ray intersects with the triangle using the Möller-Trumbore algorithm
func (t *Triangle) Intersect(ray core.Ray, tMin, tMax float64) (HitRecord, bool) {
	const epsilon = 1e-8

	h := ray.Direction.Cross(t.e2)
	a := t.e1.Dot(h)
	if a > -epsilon && a < epsilon {
		return HitRecord{}, false
	}

	f := 1.0 / a
	s := ray.Origin.Subtract(t.V0)
	u := f * s.Dot(h)
	if u < 0.0 || u > 1.0 {
		return HitRecord{}, false
	}

	q := s.Cross(t.e1)
	v := f * ray.Direction.Dot(q)
	if v < 0.0 || u+v > 1.0 {
		return HitRecord{}, false
	}

	dist := f * t.e2.Dot(q)
	if dist <= tMin || dist >= tMax {
		return HitRecord{}, false
	}

	hit := HitRecord{T: dist, Point: ray.At(dist), Primitive: t}
	hit.SetFaceNormal(ray, t.normal)
	return hit, true
}
