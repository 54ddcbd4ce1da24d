//go:build gpu

package upload

import (
	"bytes"
	"os"
	"runtime"
	"testing"

	"github.com/vkngwrapper/core/core1_0"

	"github.com/rovski/rovski/internal/gpu"
	"github.com/rovski/rovski/internal/window"
)

func TestMain(m *testing.M) {
	runtime.LockOSThread()
	os.Exit(m.Run())
}

func newTestContext(t *testing.T) *gpu.Context {
	t.Helper()

	win, err := window.New(window.Options{Title: "upload test", Width: 64, Height: 64})
	if err != nil {
		t.Skipf("no display: %v", err)
	}
	t.Cleanup(win.Destroy)

	loader, err := win.Loader()
	if err != nil {
		t.Skipf("no vulkan loader: %v", err)
	}

	ctx, err := gpu.Initialize(loader, win, gpu.Options{ApplicationName: "upload test"})
	if err != nil {
		t.Skipf("no usable device: %v", err)
	}
	t.Cleanup(ctx.Destroy)

	return ctx
}

func TestUploadBufferRoundTrip(t *testing.T) {
	ctx := newTestContext(t)

	u, err := New(ctx)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer u.Destroy()

	for _, k := range []int{1, 64, 4096} {
		data := make([]byte, k)
		for i := range data {
			data[i] = byte(i*7 + k)
		}

		buffer, err := u.UploadBuffer(data, core1_0.BufferUsageVertexBuffer)
		if err != nil {
			t.Fatalf("UploadBuffer(%d) returned error: %v", k, err)
		}

		got, err := u.ReadBuffer(buffer)
		buffer.Destroy()
		if err != nil {
			t.Fatalf("ReadBuffer(%d) returned error: %v", k, err)
		}

		if !bytes.Equal(got, data) {
			t.Errorf("round trip of %d bytes differs", k)
		}
	}
}

func TestUploadImage(t *testing.T) {
	ctx := newTestContext(t)

	u, err := New(ctx)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer u.Destroy()

	pixels := make([]byte, 8*8*4)
	image, err := u.UploadImage(pixels, 8, 8, core1_0.FormatR8G8B8A8SRGB)
	if err != nil {
		t.Fatalf("UploadImage returned error: %v", err)
	}
	defer image.Destroy()

	if image.Width != 8 || image.Height != 8 || image.Size < len(pixels) {
		t.Errorf("image = %dx%d with %d bytes", image.Width, image.Height, image.Size)
	}
}
