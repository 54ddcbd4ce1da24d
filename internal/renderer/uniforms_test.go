package renderer

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

func TestUniformBufferSize(t *testing.T) {
	if got := uniformBufferSize(); got != 3*16*4 {
		t.Errorf("uniformBufferSize = %d, want %d", got, 3*16*4)
	}
	if binary.Size(UniformBufferObject{}) != uniformBufferSize() {
		t.Error("uniform size does not match encoded size")
	}
}

func TestNewUniformsRotation(t *testing.T) {
	start := NewUniforms(0, 800, 600)
	if !start.Model.ApproxEqual(mgl32.Ident4()) {
		t.Errorf("model at t=0 = %v, want identity", start.Model)
	}

	quarter := NewUniforms(time.Second, 800, 600)
	want := mgl32.HomogRotate3D(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1})
	if !quarter.Model.ApproxEqual(want) {
		t.Errorf("model at t=1s = %v, want %v", quarter.Model, want)
	}

	wrapped := NewUniforms(5*time.Second, 800, 600)
	if !wrapped.Model.ApproxEqual(quarter.Model) {
		t.Error("rotation does not repeat every 4 seconds")
	}
}

func TestProjectionFlipsY(t *testing.T) {
	ubo := NewUniforms(0, 800, 400)
	if ubo.Proj[5] >= 0 {
		t.Errorf("proj[1][1] = %v, want negative", ubo.Proj[5])
	}
	if got := -ubo.Proj[5] / ubo.Proj[0]; got < 1.999 || got > 2.001 {
		t.Errorf("aspect encoded in projection = %v, want 2", got)
	}
}

func TestNewUniformsZeroHeight(t *testing.T) {
	ubo := NewUniforms(0, 800, 0)
	for i, v := range ubo.Proj {
		if v != v {
			t.Fatalf("proj[%d] is NaN", i)
		}
	}
}
