package scene

import (
	"math"

	"github.com/df07/go-interactive-pathtracer/pkg/core"
)

// Plane is a finite parallelogram spanned by three corner points:
// P0, P0 + (P1 - P0) and P0 + (P2 - P0).
type Plane struct {
	Base
	P0, P1, P2 core.Vec3

	u, v, normal, w core.Vec3
	d               float64
}

// NewPlane creates a finite plane from three corners
func NewPlane(name string, p0, p1, p2 core.Vec3, material Material) *Plane {
	p := &Plane{
		Base: Base{Name: name, Material: material},
		P0:   p0,
		P1:   p1,
		P2:   p2,
	}
	p.Setup()
	return p
}

// Setup recomputes the cached edge vectors after the corners change
func (p *Plane) Setup() {
	p.u = p.P1.Subtract(p.P0)
	p.v = p.P2.Subtract(p.P0)

	cross := p.u.Cross(p.v)
	p.normal = cross.Normalize()
	p.d = p.normal.Dot(p.P0)

	// w = n / (n · (u × v)) for barycentric coordinates
	p.w = p.normal.Multiply(1.0 / p.normal.Dot(cross))

	// Position is the center of the parallelogram
	p.Position = p.P0.Add(p.u.Multiply(0.5)).Add(p.v.Multiply(0.5))
}

// Type returns PlaneType
func (p *Plane) Type() PrimitiveType { return PlaneType }

// Normal returns the plane's outward normal, (P1-P0) × (P2-P0)
func (p *Plane) Normal() core.Vec3 { return p.normal }

// Intersect tests if a ray intersects with the plane
func (p *Plane) Intersect(ray core.Ray, tMin, tMax float64) (HitRecord, bool) {
	denominator := ray.Direction.Dot(p.normal)
	if math.Abs(denominator) < 1e-8 {
		return HitRecord{}, false
	}

	t := (p.d - ray.Origin.Dot(p.normal)) / denominator
	if t <= tMin || t >= tMax {
		return HitRecord{}, false
	}

	point := ray.At(t)
	hitVector := point.Subtract(p.P0)

	alpha := p.w.Dot(hitVector.Cross(p.v))
	beta := p.w.Dot(p.u.Cross(hitVector))
	if alpha < 0 || alpha > 1 || beta < 0 || beta > 1 {
		return HitRecord{}, false
	}

	hit := HitRecord{T: t, Point: point, Primitive: p}
	hit.SetFaceNormal(ray, p.normal)
	return hit, true
}

// PlaneInfinite is an unbounded plane through Position
type PlaneInfinite struct {
	Base
	Normal core.Vec3
}

// NewPlaneInfinite creates an infinite plane
func NewPlaneInfinite(name string, point, normal core.Vec3, material Material) *PlaneInfinite {
	return &PlaneInfinite{
		Base:   Base{Name: name, Position: point, Material: material},
		Normal: normal.Normalize(),
	}
}

// Type returns PlaneInfiniteType
func (p *PlaneInfinite) Type() PrimitiveType { return PlaneInfiniteType }

// Intersect tests if a ray intersects with the plane
func (p *PlaneInfinite) Intersect(ray core.Ray, tMin, tMax float64) (HitRecord, bool) {
	denominator := ray.Direction.Dot(p.Normal)
	if math.Abs(denominator) < 1e-8 {
		return HitRecord{}, false
	}

	t := p.Position.Subtract(ray.Origin).Dot(p.Normal) / denominator
	if t <= tMin || t >= tMax {
		return HitRecord{}, false
	}

	hit := HitRecord{T: t, Point: ray.At(t), Primitive: p}
	hit.SetFaceNormal(ray, p.Normal)
	return hit, true
}
