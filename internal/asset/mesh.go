// Package asset loads meshes, textures and SPIR-V shader blobs from disk.
package asset

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core/common"
)

// Vertex is the interleaved vertex record the pipeline consumes.
type Vertex struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
	TexCoord mgl32.Vec2
}

// Mesh is an indexed triangle list.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

// VertexBytes encodes the vertices in host byte order.
func (m *Mesh) VertexBytes() ([]byte, error) {
	return encode(m.Vertices)
}

// IndexBytes encodes the indices in host byte order.
func (m *Mesh) IndexBytes() ([]byte, error) {
	return encode(m.Indices)
}

func encode(data any) ([]byte, error) {
	buf := &bytes.Buffer{}
	err := binary.Write(buf, common.ByteOrder, data)
	if err != nil {
		return nil, errors.Wrap(err, "encode mesh data")
	}
	return buf.Bytes(), nil
}

// MeshSource produces the mesh to draw.
type MeshSource interface {
	Mesh() (*Mesh, error)
}

// Quad is a textured unit quad facing +Z.
type Quad struct{}

func (Quad) Mesh() (*Mesh, error) {
	return &Mesh{
		Vertices: []Vertex{
			{Position: mgl32.Vec3{-0.5, -0.5, 0}, Color: mgl32.Vec3{1, 0, 0}, TexCoord: mgl32.Vec2{1, 0}},
			{Position: mgl32.Vec3{0.5, -0.5, 0}, Color: mgl32.Vec3{0, 1, 0}, TexCoord: mgl32.Vec2{0, 0}},
			{Position: mgl32.Vec3{0.5, 0.5, 0}, Color: mgl32.Vec3{0, 0, 1}, TexCoord: mgl32.Vec2{0, 1}},
			{Position: mgl32.Vec3{-0.5, 0.5, 0}, Color: mgl32.Vec3{1, 1, 1}, TexCoord: mgl32.Vec2{1, 1}},
		},
		Indices: []uint32{0, 1, 2, 2, 3, 0},
	}, nil
}

// OBJFile reads a Wavefront OBJ mesh. MaterialPath is optional.
type OBJFile struct {
	Path         string
	MaterialPath string
}

func (f OBJFile) Mesh() (*Mesh, error) {
	meshFile, err := os.Open(f.Path)
	if err != nil {
		return nil, errors.Wrap(err, "open mesh")
	}
	defer meshFile.Close()

	var matReader io.Reader
	if f.MaterialPath != "" {
		matFile, err := os.Open(f.MaterialPath)
		if err != nil {
			return nil, errors.Wrap(err, "open mesh materials")
		}
		defer matFile.Close()
		matReader = matFile
	}

	mesh, err := DecodeOBJ(meshFile, matReader)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", f.Path)
	}

	log.WithFields(log.Fields{
		"path":     f.Path,
		"vertices": len(mesh.Vertices),
		"indices":  len(mesh.Indices),
	}).Info("loaded mesh")

	return mesh, nil
}

type objKey struct {
	vertex, uv int
}

// DecodeOBJ triangulates every face as a fan and shares vertices that use
// the same position and texture coordinate.
func DecodeOBJ(meshReader, matReader io.Reader) (*Mesh, error) {
	decoder, err := obj.DecodeReader(meshReader, matReader)
	if err != nil {
		return nil, err
	}

	mesh := &Mesh{}
	unique := make(map[objKey]uint32)

	addVertex := func(face obj.Face, faceIndex int) error {
		key := objKey{vertex: face.Vertices[faceIndex], uv: -1}
		if faceIndex < len(face.Uvs) {
			key.uv = face.Uvs[faceIndex]
		}

		index, exists := unique[key]
		if !exists {
			if (key.vertex+1)*3 > len(decoder.Vertices) {
				return errors.Newf("face references vertex %d of %d", key.vertex, len(decoder.Vertices)/3)
			}

			vert := Vertex{Position: mgl32.Vec3{
				decoder.Vertices[key.vertex*3],
				decoder.Vertices[key.vertex*3+1],
				decoder.Vertices[key.vertex*3+2],
			}, Color: mgl32.Vec3{1, 1, 1}}

			if key.uv >= 0 && (key.uv+1)*2 <= len(decoder.Uvs) {
				vert.TexCoord = mgl32.Vec2{
					decoder.Uvs[key.uv*2],
					1.0 - decoder.Uvs[key.uv*2+1],
				}
			}

			index = uint32(len(mesh.Vertices))
			mesh.Vertices = append(mesh.Vertices, vert)
			unique[key] = index
		}

		mesh.Indices = append(mesh.Indices, index)
		return nil
	}

	for _, decodedObj := range decoder.Objects {
		for _, face := range decodedObj.Faces {
			for i := 2; i < len(face.Vertices); i++ {
				for _, corner := range []int{0, i - 1, i} {
					if err := addVertex(face, corner); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	if len(mesh.Indices) == 0 {
		return nil, errors.New("mesh has no faces")
	}

	return mesh, nil
}
