package scene

import (
	"math"

	"github.com/df07/go-interactive-pathtracer/pkg/core"
)

// Sphere is a sphere centered at Position
type Sphere struct {
	Base
	Radius float64
}

// NewSphere creates a new sphere
func NewSphere(name string, center core.Vec3, radius float64, material Material) *Sphere {
	return &Sphere{
		Base:   Base{Name: name, Position: center, Material: material},
		Radius: radius,
	}
}

// Type returns SphereType
func (s *Sphere) Type() PrimitiveType { return SphereType }

// Intersect tests if a ray intersects with the sphere
func (s *Sphere) Intersect(ray core.Ray, tMin, tMax float64) (HitRecord, bool) {
	oc := ray.Origin.Subtract(s.Position)

	// Quadratic equation coefficients: at² + bt + c = 0
	a := ray.Direction.Dot(ray.Direction)
	halfB := oc.Dot(ray.Direction)
	c := oc.Dot(oc) - s.Radius*s.Radius

	discriminant := halfB*halfB - a*c
	if discriminant < 0 {
		return HitRecord{}, false
	}

	sqrtD := math.Sqrt(discriminant)

	// Try the closer root first, then the far one (ray starting inside)
	root := (-halfB - sqrtD) / a
	if root <= tMin || root >= tMax {
		root = (-halfB + sqrtD) / a
		if root <= tMin || root >= tMax {
			return HitRecord{}, false
		}
	}

	hit := HitRecord{
		T:         root,
		Point:     ray.At(root),
		Primitive: s,
	}
	hit.SetFaceNormal(ray, hit.Point.Subtract(s.Position).Multiply(1.0/s.Radius))

	return hit, true
}
