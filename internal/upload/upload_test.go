package upload

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"

	"github.com/rovski/rovski/internal/gpu"
)

func TestEmptyPayloadRejected(t *testing.T) {
	u := &Uploader{}

	if _, err := u.UploadBuffer(nil, core1_0.BufferUsageVertexBuffer); !errors.Is(err, ErrEmptyPayload) {
		t.Errorf("UploadBuffer(nil) error = %v, want ErrEmptyPayload", err)
	}
	if _, err := u.UploadImage(nil, 4, 4, core1_0.FormatR8G8B8A8SRGB); !errors.Is(err, ErrEmptyPayload) {
		t.Errorf("UploadImage(nil) error = %v, want ErrEmptyPayload", err)
	}
	if _, err := u.UploadImage(make([]byte, 16), 0, 4, core1_0.FormatR8G8B8A8SRGB); !errors.Is(err, ErrEmptyPayload) {
		t.Errorf("UploadImage(width 0) error = %v, want ErrEmptyPayload", err)
	}
	if _, err := u.ReadBuffer(&Buffer{}); !errors.Is(err, ErrEmptyPayload) {
		t.Errorf("ReadBuffer(empty) error = %v, want ErrEmptyPayload", err)
	}
}

func TestLayoutTransition(t *testing.T) {
	toDst, err := layoutTransition(core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal)
	if err != nil {
		t.Fatalf("undefined -> transfer dst: %v", err)
	}
	if toDst.srcAccess != 0 || toDst.dstAccess != core1_0.AccessTransferWrite {
		t.Errorf("undefined -> transfer dst access = %v/%v", toDst.srcAccess, toDst.dstAccess)
	}
	if toDst.srcStage != core1_0.PipelineStageTopOfPipe || toDst.dstStage != core1_0.PipelineStageTransfer {
		t.Errorf("undefined -> transfer dst stages = %v/%v", toDst.srcStage, toDst.dstStage)
	}

	toRead, err := layoutTransition(core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal)
	if err != nil {
		t.Fatalf("transfer dst -> shader read: %v", err)
	}
	if toRead.srcAccess != core1_0.AccessTransferWrite || toRead.dstAccess != core1_0.AccessShaderRead {
		t.Errorf("transfer dst -> shader read access = %v/%v", toRead.srcAccess, toRead.dstAccess)
	}
	if toRead.dstStage != core1_0.PipelineStageFragmentShader {
		t.Errorf("transfer dst -> shader read dst stage = %v", toRead.dstStage)
	}

	if _, err := layoutTransition(core1_0.ImageLayoutShaderReadOnlyOptimal, core1_0.ImageLayoutUndefined); err == nil {
		t.Error("unsupported transition accepted")
	}
}

func TestUploadImageRejectsMismatchedPixels(t *testing.T) {
	u := &Uploader{}

	tests := []struct {
		name   string
		pixels int
		format core1_0.Format
	}{
		{"short rgba8", 16, core1_0.FormatR8G8B8A8SRGB},
		{"long rgba8", 65, core1_0.FormatR8G8B8A8SRGB},
		{"rgba8 sized for float", 64, core1_0.FormatR32G32B32A32SignedFloat},
		{"unsupported format", 64, core1_0.FormatR32SignedFloat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := u.UploadImage(make([]byte, tt.pixels), 4, 4, tt.format)
			if !errors.Is(err, gpu.ErrResourceCreation) {
				t.Errorf("UploadImage(%d bytes, 4x4) error = %v, want ErrResourceCreation", tt.pixels, err)
			}
		})
	}
}

func TestCheckPixelsExact(t *testing.T) {
	if err := checkPixels(make([]byte, 4*4*4), 4, 4, core1_0.FormatR8G8B8A8SRGB); err != nil {
		t.Errorf("checkPixels(64 bytes, 4x4 rgba8) = %v, want nil", err)
	}
}
