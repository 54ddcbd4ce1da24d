package gpu

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
)

// FindMemoryType returns the first memory type whose bit is set in typeFilter
// and whose property flags include every flag in properties.
func FindMemoryType(types []core1_0.MemoryPropertyFlags, typeFilter uint32, properties core1_0.MemoryPropertyFlags) (int, error) {
	for i, flags := range types {
		if i >= 32 {
			break
		}
		typeBit := uint32(1) << uint(i)

		if (typeFilter&typeBit) != 0 && (flags&properties) == properties {
			return i, nil
		}
	}

	return 0, errors.Mark(
		errors.Newf("failed to find any suitable memory type for filter %#x, properties %s", typeFilter, properties),
		ErrResourceCreation)
}

// FindMemoryType looks up a memory type on the selected physical device.
func (c *Context) FindMemoryType(typeFilter uint32, properties core1_0.MemoryPropertyFlags) (int, error) {
	memProperties := c.PhysicalDevice.MemoryProperties()

	var types []core1_0.MemoryPropertyFlags
	for _, memoryType := range memProperties.MemoryTypes {
		types = append(types, memoryType.PropertyFlags)
	}

	return FindMemoryType(types, typeFilter, properties)
}
