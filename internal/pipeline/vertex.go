package pipeline

import (
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
)

// VertexLayout describes one interleaved vertex buffer binding.
type VertexLayout struct {
	Binding    core1_0.VertexInputBindingDescription
	Attributes []core1_0.VertexInputAttributeDescription
}

var attributeFormats = map[reflect.Kind][4]core1_0.Format{
	reflect.Float32: {
		core1_0.FormatR32SignedFloat,
		core1_0.FormatR32G32SignedFloat,
		core1_0.FormatR32G32B32SignedFloat,
		core1_0.FormatR32G32B32A32SignedFloat,
	},
	reflect.Int32: {
		core1_0.FormatR32SignedInt,
		core1_0.FormatR32G32SignedInt,
		core1_0.FormatR32G32B32SignedInt,
		core1_0.FormatR32G32B32A32SignedInt,
	},
	reflect.Uint32: {
		core1_0.FormatR32UnsignedInt,
		core1_0.FormatR32G32UnsignedInt,
		core1_0.FormatR32G32B32UnsignedInt,
		core1_0.FormatR32G32B32A32UnsignedInt,
	},
}

// AttributeFormat maps a component count and element kind to a vertex
// attribute format.
func AttributeFormat(components int, elem reflect.Kind) (core1_0.Format, error) {
	formats, ok := attributeFormats[elem]
	if !ok {
		return 0, errors.Newf("unsupported vertex element type %s", elem)
	}

	if components < 1 || components > len(formats) {
		return 0, errors.Newf("unsupported vertex component count %d", components)
	}

	return formats[components-1], nil
}

// LayoutOf derives a vertex layout from a struct value. Each exported field
// becomes one attribute at the next location; fields must be float32, int32
// or uint32 scalars or arrays of one to four of them, such as mgl32.Vec3.
func LayoutOf(vertex any) (VertexLayout, error) {
	var layout VertexLayout

	t := reflect.TypeOf(vertex)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return layout, errors.Newf("vertex record must be a struct, got %T", vertex)
	}

	layout.Binding = core1_0.VertexInputBindingDescription{
		Binding:   0,
		Stride:    int(t.Size()),
		InputRate: core1_0.VertexInputRateVertex,
	}

	location := 0
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		components, elem := 1, field.Type.Kind()
		if elem == reflect.Array {
			components, elem = field.Type.Len(), field.Type.Elem().Kind()
		}

		format, err := AttributeFormat(components, elem)
		if err != nil {
			return layout, errors.Wrapf(err, "vertex field %s", field.Name)
		}

		layout.Attributes = append(layout.Attributes, core1_0.VertexInputAttributeDescription{
			Binding:  0,
			Location: uint32(location),
			Format:   format,
			Offset:   int(field.Offset),
		})
		location++
	}

	if len(layout.Attributes) == 0 {
		return layout, errors.Newf("vertex record %s has no attributes", t)
	}

	return layout, nil
}
