package renderer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/rovski/rovski/internal/config"
	"github.com/rovski/rovski/internal/gpu"
)

func TestLoadShadersMissingBlobNamesGenerateStep(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Renderer.VertexShader = filepath.Join(dir, "vert.spv")
	cfg.Renderer.FragmentShader = filepath.Join(dir, "frag.spv")

	r := &Renderer{cfg: cfg}
	err := r.loadShaders()
	if !errors.Is(err, gpu.ErrInitialization) {
		t.Fatalf("loadShaders error = %v, want ErrInitialization", err)
	}
	if !strings.Contains(err.Error(), "go generate ./assets/shaders") {
		t.Errorf("loadShaders error = %q, want it to name the go generate step", err)
	}
}

func TestLoadShaders(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Renderer.VertexShader = filepath.Join(dir, "vert.spv")
	cfg.Renderer.FragmentShader = filepath.Join(dir, "frag.spv")
	for _, path := range []string{cfg.Renderer.VertexShader, cfg.Renderer.FragmentShader} {
		if err := os.WriteFile(path, []byte{0x03, 0x02, 0x23, 0x07}, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	r := &Renderer{cfg: cfg}
	if err := r.loadShaders(); err != nil {
		t.Fatalf("loadShaders: %v", err)
	}
	if len(r.vertexShader) != 4 || len(r.fragmentShader) != 4 {
		t.Errorf("loaded %d and %d bytes, want 4 and 4", len(r.vertexShader), len(r.fragmentShader))
	}
}
