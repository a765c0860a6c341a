package integrator

import (
	"math"

	"github.com/df07/go-interactive-pathtracer/pkg/core"
	"github.com/df07/go-interactive-pathtracer/pkg/scene"
)

// PathTracingIntegrator implements recursive unidirectional path tracing
type PathTracingIntegrator struct {
	config scene.SamplingConfig
}

// NewPathTracingIntegrator creates a new path tracing integrator
func NewPathTracingIntegrator(config scene.SamplingConfig) *PathTracingIntegrator {
	if config.MaxDistance <= 0 {
		config.MaxDistance = scene.DefaultSamplingConfig().MaxDistance
	}
	return &PathTracingIntegrator{config: config}
}

// Config returns the sampling configuration in use
func (pt *PathTracingIntegrator) Config() scene.SamplingConfig {
	return pt.config
}

// RayColor computes the radiance for a camera ray
func (pt *PathTracingIntegrator) RayColor(ray core.Ray, sc *scene.Scene, sampler core.Sampler) core.Vec3 {
	return pt.TraceRadiance(sc, ray, pt.config.MaxDepth, scene.HitRecord{}, sampler)
}

// TraceRadiance returns the radiance arriving along ray with remaining bounces left.
// parent is the hit the ray was spawned from; an empty record marks a camera ray.
func (pt *PathTracingIntegrator) TraceRadiance(sc *scene.Scene, ray core.Ray, remaining int, parent scene.HitRecord, sampler core.Sampler) core.Vec3 {
	if remaining <= 0 {
		return core.Vec3{}
	}

	hit, isHit := Intersect(sc, ray, pt.config.MaxDistance)
	if !isHit {
		return sc.Skydome.Radiance(ray.Direction, parent.Primitive == nil)
	}
	hit.InsideMedium = parent.InsideMedium

	mat := &hit.Primitive.Object().Material

	var radiance core.Vec3
	switch {
	case mat.IsEmissive:
		radiance = mat.Emission()
	case mat.IsDielectric:
		radiance = pt.shadeDielectric(sc, ray, hit, mat, remaining, sampler)
	default:
		radiance = pt.shadeOpaque(sc, ray, hit, mat, remaining, sampler)
	}

	// Beer-Lambert absorption along the segment travelled inside a medium
	if parent.InsideMedium && parent.Primitive != nil {
		density := parent.Primitive.Object().Material.Density
		if density > 0 {
			distance := hit.Point.Subtract(parent.Point).Length()
			radiance = radiance.Multiply(math.Exp(-density * distance))
		}
	}

	return radiance
}

// shadeDielectric splits the path into Fresnel-weighted reflection and refraction
func (pt *PathTracingIntegrator) shadeDielectric(sc *scene.Scene, ray core.Ray, hit scene.HitRecord, mat *scene.Material, remaining int, sampler core.Sampler) core.Vec3 {
	reflectance, transmittance := core.FresnelSplit(ray.Direction, hit.Normal, mat.IoR)

	refracted, ok := core.Refract(ray.Direction, hit.Normal, mat.IoR)
	if !ok {
		// Total internal reflection
		reflectance, transmittance = 1, 0
	}

	var result core.Vec3

	if reflectance > 0 {
		normal := hit.FacingNormal()
		reflected := glossyReflect(ray.Direction, normal, mat.Roughness, sampler)
		// Reflected ray stays on the same side of the interface
		radiance := pt.TraceRadiance(sc, core.NewRay(hit.Point, reflected), remaining-1, hit, sampler)
		result = result.Add(radiance.Multiply(reflectance))
	}

	if transmittance > 0 {
		child := hit
		child.InsideMedium = !hit.InsideMedium
		radiance := pt.TraceRadiance(sc, core.NewRay(hit.Point, refracted), remaining-1, child, sampler)
		albedo := mat.AlbedoAt(hit.Point)
		result = result.Add(albedo.MultiplyVec(radiance).Multiply(transmittance))
	}

	return result
}

// shadeOpaque evaluates the diffuse and specular lobes of an opaque surface
func (pt *PathTracingIntegrator) shadeOpaque(sc *scene.Scene, ray core.Ray, hit scene.HitRecord, mat *scene.Material, remaining int, sampler core.Sampler) core.Vec3 {
	albedo := mat.AlbedoAt(hit.Point)

	// Russian roulette, once per bounce
	rrScale := 1.0
	bounce := pt.config.MaxDepth - remaining
	if bounce >= pt.config.RussianRouletteMinBounces {
		survival := max(0.1, min(0.9, albedo.MaxComponent()))
		if sampler.Get1D() > survival {
			return core.Vec3{}
		}
		rrScale = 1.0 / survival
	}

	// Opaque surfaces have no inside, so Fresnel always sees the entering side
	normal := hit.FacingNormal()

	specularity := math.Min(mat.Specularity+core.Fresnel(ray.Direction, normal, mat.IoR), 1.0)
	diffuse := 1.0 - specularity

	var result core.Vec3

	if diffuse > 0 {
		dir := core.RandomOnHemisphere(normal, sampler)
		cosTheta := dir.Dot(normal)
		incoming := pt.TraceRadiance(sc, core.NewRay(hit.Point, dir), remaining-1, hit, sampler)

		// Uniform hemisphere estimator: BRDF * L * cos / (1 / 2π)
		brdf := albedo.Multiply(1.0 / math.Pi)
		diffuseTerm := brdf.MultiplyVec(incoming).Multiply(2 * math.Pi * cosTheta)
		result = result.Add(diffuseTerm.Multiply(diffuse))
	}

	if specularity > 0 {
		reflected := glossyReflect(ray.Direction, normal, mat.Roughness, sampler)
		incoming := pt.TraceRadiance(sc, core.NewRay(hit.Point, reflected), remaining-1, hit, sampler)

		metallic := albedo.MultiplyVec(incoming).Multiply(mat.Metalness)
		plain := incoming.Multiply(1.0 - mat.Metalness)
		result = result.Add(metallic.Add(plain).Multiply(specularity))
	}

	return result.Multiply(rrScale)
}

// glossyReflect mirrors dir about normal and jitters the result by roughness.
// A jittered direction that would dip below the surface falls back to the mirror direction.
func glossyReflect(dir, normal core.Vec3, roughness float64, sampler core.Sampler) core.Vec3 {
	reflected := core.Reflect(dir, normal)
	if roughness <= 0 {
		return reflected
	}

	perturbed := reflected.Add(core.RandomUnitVector(sampler).Multiply(roughness)).Normalize()
	if perturbed.Dot(normal) <= 0 {
		return reflected
	}
	return perturbed
}
