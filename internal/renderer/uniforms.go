package renderer

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// UniformBufferObject matches the vertex shader's uniform block.
type UniformBufferObject struct {
	Model mgl32.Mat4
	View  mgl32.Mat4
	Proj  mgl32.Mat4
}

const rotationPeriod = 4.0

// NewUniforms spins the model a quarter turn per second around Z and looks
// at it from above with a Vulkan-style projection.
func NewUniforms(elapsed time.Duration, width, height int) UniformBufferObject {
	timePeriod := float32(math.Mod(elapsed.Seconds(), rotationPeriod))

	ubo := UniformBufferObject{}
	ubo.Model = mgl32.HomogRotate3D(timePeriod*mgl32.DegToRad(90.0), mgl32.Vec3{0, 0, 1})
	ubo.View = mgl32.LookAt(2, 2, 2, 0, 0, 0, 0, 0, 1)

	aspectRatio := float32(1)
	if height > 0 {
		aspectRatio = float32(width) / float32(height)
	}
	ubo.Proj = projection(mgl32.DegToRad(45), aspectRatio, 0.1, 10.0)

	return ubo
}

// projection is a right-handed perspective matrix with a [0, 1] depth range
// and Y pointing down in clip space.
func projection(fovy, aspect float32, near, far float64) mgl32.Mat4 {
	fmn, f := far-near, float32(1./math.Tan(float64(fovy)/2.0))
	return mgl32.Mat4{
		f / aspect, 0, 0, 0,
		0, -f, 0, 0,
		0, 0, float32(-far / fmn), -1,
		0, 0, float32(-(far * near) / fmn), 0,
	}
}
