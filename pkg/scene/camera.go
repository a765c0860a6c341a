package scene

import (
	"math"

	"github.com/df07/go-interactive-pathtracer/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// MoveDirection is a camera-relative movement axis
type MoveDirection int

const (
	MoveForward MoveDirection = iota
	MoveBackward
	MoveLeft
	MoveRight
	MoveUp
	MoveDown
)

// SpeedModifier scales camera movement
type SpeedModifier int

const (
	SpeedNormal SpeedModifier = iota
	SpeedBoost
	SpeedSlow
)

// maxPitchCos bounds how close the view direction may get to the up axis
const maxPitchCos = 0.995

// Camera projects pixels onto a virtual image plane placed at Position + ViewDirection.
// The plane is one unit tall and aspect units wide. Left-handed: +Z is forward.
type Camera struct {
	Position      core.Vec3
	ViewDirection core.Vec3 // Direction and distance to the virtual plane center
	Up            core.Vec3

	Speed           float64
	BoostMultiplier float64
	SlowMultiplier  float64

	// Virtual plane, valid after SetupVirtualPlane
	screenCenter core.Vec3
	screenP0     core.Vec3 // Bottom left
	screenU      core.Vec3 // P0 -> bottom right
	screenV      core.Vec3 // P0 -> top left
	width        int
	height       int
	pixelSizeX   float64 // Half extent of a pixel in plane coordinates
	pixelSizeY   float64
}

// NewCamera creates a camera and sets up its virtual plane
func NewCamera(position, viewDirection core.Vec3, width, height int) *Camera {
	c := &Camera{
		Position:        position,
		ViewDirection:   viewDirection,
		Up:              core.NewVec3(0, 1, 0),
		Speed:           0.25,
		BoostMultiplier: 2.5,
		SlowMultiplier:  0.15,
	}
	c.SetupVirtualPlane(width, height)
	return c
}

// NewDefaultCamera looks down +Z at the unit box from (0.5, 0.5, -1)
func NewDefaultCamera(width, height int) *Camera {
	return NewCamera(core.NewVec3(0.5, 0.5, -1), core.NewVec3(0, 0, 1), width, height)
}

// basis returns the camera's right and up vectors
func (c *Camera) basis() (right, up core.Vec3) {
	forward := c.ViewDirection.Normalize()
	right = c.Up.Cross(forward).Normalize()
	if right.IsZero() {
		right = core.NewVec3(1, 0, 0)
	}
	up = forward.Cross(right).Normalize()
	return right, up
}

// SetupVirtualPlane recomputes the image plane for the current position,
// orientation and the given resolution.
func (c *Camera) SetupVirtualPlane(width, height int) {
	c.width = max(width, 1)
	c.height = max(height, 1)

	aspect := float64(c.width) / float64(c.height)
	xOffset := (aspect - 1.0) * 0.5

	right, up := c.basis()

	c.screenCenter = c.Position.Add(c.ViewDirection)
	c.screenP0 = c.screenCenter.
		Subtract(right.Multiply(0.5 + xOffset)).
		Subtract(up.Multiply(0.5))
	c.screenU = right.Multiply(1.0 + 2*xOffset)
	c.screenV = up

	c.pixelSizeX = 0.5 / float64(c.width)
	c.pixelSizeY = 0.5 / float64(c.height)
}

// Resolution returns the resolution of the current virtual plane
func (c *Camera) Resolution() (int, int) {
	return c.width, c.height
}

// GetRay returns a ray through pixel (x, y), where y = 0 is the bottom row.
// With a sampler the ray is jittered uniformly inside the pixel; without one
// it passes through the pixel center.
func (c *Camera) GetRay(x, y int, sampler core.Sampler) core.Ray {
	posX := (float64(x) + 0.5) / float64(c.width)
	posY := (float64(y) + 0.5) / float64(c.height)

	if sampler != nil {
		posX += core.RandomInRange(sampler, -c.pixelSizeX, c.pixelSizeX)
		posY += core.RandomInRange(sampler, -c.pixelSizeY, c.pixelSizeY)
	}

	screenPoint := c.screenP0.Add(c.screenU.Multiply(posX)).Add(c.screenV.Multiply(posY))
	return core.NewRay(c.Position, screenPoint.Subtract(c.Position))
}

// Move translates the camera along one of its axes by amount * Speed and
// refreshes the virtual plane.
func (c *Camera) Move(direction MoveDirection, amount float64, modifier SpeedModifier) {
	speed := c.Speed * amount
	switch modifier {
	case SpeedBoost:
		speed *= c.BoostMultiplier
	case SpeedSlow:
		speed *= c.SlowMultiplier
	}

	forward := c.ViewDirection.Normalize()
	right, _ := c.basis()
	up := c.Up.Normalize()

	var offset core.Vec3
	switch direction {
	case MoveForward:
		offset = forward
	case MoveBackward:
		offset = forward.Negate()
	case MoveRight:
		offset = right
	case MoveLeft:
		offset = right.Negate()
	case MoveUp:
		offset = up
	case MoveDown:
		offset = up.Negate()
	}

	c.Position = c.Position.Add(offset.Multiply(speed))
	c.SetupVirtualPlane(c.width, c.height)
}

// Rotate turns the view by yaw radians around the up axis and pitch radians
// around the right axis. Pitch that would align the view with the up axis is ignored.
func (c *Camera) Rotate(yaw, pitch float64) {
	dir := toMgl(c.ViewDirection)

	if yaw != 0 {
		dir = mgl64.QuatRotate(yaw, toMgl(c.Up.Normalize())).Rotate(dir)
	}

	if pitch != 0 {
		right, _ := c.basis()
		// Positive pitch looks up; right-hand rotation about right tilts forward down
		pitched := mgl64.QuatRotate(-pitch, toMgl(right)).Rotate(dir)
		if math.Abs(fromMgl(pitched).Normalize().Dot(c.Up.Normalize())) < maxPitchCos {
			dir = pitched
		}
	}

	c.ViewDirection = fromMgl(dir)
	c.SetupVirtualPlane(c.width, c.height)
}

func toMgl(v core.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

func fromMgl(v mgl64.Vec3) core.Vec3 {
	return core.NewVec3(v[0], v[1], v[2])
}
