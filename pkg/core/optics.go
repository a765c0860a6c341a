package core

import "math"

// Reflect mirrors the incoming direction about the normal
func Reflect(in, normal Vec3) Vec3 {
	// r = v - 2*dot(v,n)*n
	return in.Subtract(normal.Multiply(2 * in.Dot(normal)))
}

// Refract bends the incoming direction through an interface using Snell's law.
// The normal is the outward geometric normal; when the ray travels along the
// normal (exiting the medium) the normal is flipped and the index ratio swapped.
// Returns false on total internal reflection.
func Refract(in, normal Vec3, ior float64) (Vec3, bool) {
	etaI, etaT := 1.0, ior
	cosI := in.Dot(normal)
	n := normal

	if cosI > 0 {
		n = normal.Negate()
		etaI, etaT = etaT, etaI
	} else {
		cosI = -cosI
	}

	eta := etaI / etaT
	k := 1 - eta*eta*(1-cosI*cosI)
	if k < 0 {
		return Vec3{}, false
	}

	return in.Multiply(eta).Add(n.Multiply(eta*cosI - math.Sqrt(k))).Normalize(), true
}

// Fresnel returns the fraction of light reflected at a dielectric interface,
// averaging the perpendicular and parallel polarizations. The normal is the
// outward geometric normal. Total internal reflection returns 1.
func Fresnel(in, normal Vec3, ior float64) float64 {
	if ior == 1 {
		return 0
	}

	cosI := max(-1, min(1, in.Dot(normal)))
	etaI, etaT := 1.0, ior
	if cosI > 0 {
		etaI, etaT = etaT, etaI
	}

	sinT := etaI / etaT * math.Sqrt(math.Max(0, 1-cosI*cosI))
	if sinT >= 1 {
		return 1
	}

	cosT := math.Sqrt(math.Max(0, 1-sinT*sinT))
	cosI = math.Abs(cosI)

	rs := (etaT*cosI - etaI*cosT) / (etaT*cosI + etaI*cosT)
	rp := (etaI*cosI - etaT*cosT) / (etaI*cosI + etaT*cosT)

	return (rs*rs + rp*rp) / 2
}

// FresnelSplit returns the reflectance and transmittance at an interface
func FresnelSplit(in, normal Vec3, ior float64) (reflectance, transmittance float64) {
	reflectance = Fresnel(in, normal, ior)
	return reflectance, 1 - reflectance
}
