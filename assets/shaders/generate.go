// Package shaders holds the GLSL sources for the renderer's default
// pipeline. The compiled vert.spv and frag.spv are not checked in: run
// `go generate ./assets/shaders` with glslc from the Vulkan SDK on the PATH
// before the first `go run ./cmd/rovski`, or point ROVSKI_VERTEX_SHADER and
// ROVSKI_FRAGMENT_SHADER at existing blobs.
package shaders

//go:generate glslc shader.vert -o vert.spv
//go:generate glslc shader.frag -o frag.spv
