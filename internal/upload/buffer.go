package upload

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"

	"github.com/rovski/rovski/internal/gpu"
)

// Buffer is a buffer handle with its dedicated memory allocation.
type Buffer struct {
	Handle core1_0.Buffer
	Memory core1_0.DeviceMemory
	Size   int
}

// Destroy releases the buffer before its memory. Either may be nil after a
// partial creation.
func (b *Buffer) Destroy() {
	if b.Handle != nil {
		b.Handle.Destroy(nil)
		b.Handle = nil
	}

	if b.Memory != nil {
		b.Memory.Free(nil)
		b.Memory = nil
	}
}

// NewBuffer creates a buffer of size bytes and binds it to freshly allocated
// memory with the requested properties. The buffer is shared across queue
// families when the device splits graphics and transfer work.
func NewBuffer(ctx *gpu.Context, size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (*Buffer, error) {
	sharingMode, queueFamilyIndices := ctx.Families.SharingMode()

	handle, _, err := ctx.Device.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:               size,
		Usage:              usage,
		SharingMode:        sharingMode,
		QueueFamilyIndices: queueFamilyIndices,
	})
	if err != nil {
		return nil, gpu.ResourceError(err, "create buffer of %d bytes", size)
	}
	buffer := &Buffer{Handle: handle, Size: size}

	memRequirements := handle.MemoryRequirements()
	memoryTypeIndex, err := ctx.FindMemoryType(memRequirements.MemoryTypeBits, properties)
	if err != nil {
		buffer.Destroy()
		return nil, err
	}

	buffer.Memory, _, err = ctx.Device.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		buffer.Destroy()
		return nil, gpu.ResourceError(err, "allocate %d bytes of buffer memory", memRequirements.Size)
	}

	_, err = handle.BindBufferMemory(buffer.Memory, 0)
	if err != nil {
		buffer.Destroy()
		return nil, gpu.ResourceError(err, "bind buffer memory")
	}

	return buffer, nil
}

// Write copies data into host-visible memory at offset. data is encoded
// with binary.Write, so it may be a byte slice or any fixed-size value.
func (b *Buffer) Write(offset int, data any) error {
	return WriteData(b.Memory, offset, data)
}

// WriteData maps memory, encodes data into it and unmaps it again.
func WriteData(memory core1_0.DeviceMemory, offset int, data any) error {
	bufferSize := binary.Size(data)
	if bufferSize < 0 {
		return errors.Newf("cannot encode %T into device memory", data)
	}

	memoryPtr, _, err := memory.Map(offset, bufferSize, 0)
	if err != nil {
		return errors.Wrap(err, "map memory")
	}
	defer memory.Unmap()

	dataBuffer := unsafe.Slice((*byte)(memoryPtr), bufferSize)

	buf := &bytes.Buffer{}
	err = binary.Write(buf, common.ByteOrder, data)
	if err != nil {
		return errors.Wrap(err, "encode data")
	}

	copy(dataBuffer, buf.Bytes())
	return nil
}

func readData(memory core1_0.DeviceMemory, size int) ([]byte, error) {
	memoryPtr, _, err := memory.Map(0, size, 0)
	if err != nil {
		return nil, errors.Wrap(err, "map memory")
	}
	defer memory.Unmap()

	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(memoryPtr), size))
	return out, nil
}
