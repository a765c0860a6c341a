package integrator

import (
	"github.com/df07/go-interactive-pathtracer/pkg/core"
	"github.com/df07/go-interactive-pathtracer/pkg/scene"
)

// Epsilon is the minimum hit distance, keeping spawned rays off their own surface
const Epsilon = 1e-4

// Integrator defines the interface for light transport algorithms
type Integrator interface {
	// RayColor returns the radiance arriving along a camera ray
	RayColor(ray core.Ray, sc *scene.Scene, sampler core.Sampler) core.Vec3
}

// Intersect finds the closest primitive hit with Epsilon < t < maxDistance
// by testing every primitive in the scene.
func Intersect(sc *scene.Scene, ray core.Ray, maxDistance float64) (scene.HitRecord, bool) {
	closest := maxDistance
	var best scene.HitRecord
	found := false

	for i, p := range sc.Primitives() {
		hit, ok := p.Intersect(ray, Epsilon, closest)
		if !ok {
			continue
		}
		closest = hit.T
		hit.Index = i
		best = hit
		found = true
	}

	return best, found
}

// Pick returns the arena index of the primitive seen along ray
func Pick(sc *scene.Scene, ray core.Ray) (int, bool) {
	maxDistance := sc.SamplingConfig.MaxDistance
	if maxDistance <= 0 {
		maxDistance = scene.DefaultSamplingConfig().MaxDistance
	}

	hit, ok := Intersect(sc, ray, maxDistance)
	if !ok {
		return -1, false
	}
	return hit.Index, true
}
