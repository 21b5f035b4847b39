package waycore

import "github.com/waycore/waycore/internal/bufferimport"

// BufferHandle is the opaque client-buffer handle a wire layer hands to
// Surface.Attach. It is never dereferenced by the core beyond the Provider
// accessors below, which the wire layer's concrete buffer object
// implements; the core never owns the bytes/fds it describes. The only copy
// it makes is StageSharedMemory's staging copy on the renderer path.
type BufferHandle = bufferimport.Provider

// Buffer is the render-path descriptor produced by importing a
// BufferHandle: either a CPU-mapped SharedMemoryImage or a set of DMA
// plane descriptors.
type Buffer = bufferimport.Buffer

// SharedMemoryImage and DmaImage are the two variants a Buffer carries.
type SharedMemoryImage = bufferimport.SharedMemoryImage
type DmaImage = bufferimport.DmaImage

// DmaPlane describes one plane of a DMA-capable buffer.
type DmaPlane = bufferimport.DmaPlane

// Format is a DRM-style fourcc buffer format code.
type Format = bufferimport.Format

const (
	FormatARGB8888 = bufferimport.FormatARGB8888
	FormatXRGB8888 = bufferimport.FormatXRGB8888
)

// ImportBuffer translates handle into a render-ready Buffer descriptor.
// This is the Buffer Adapter (C1) entry point Output.Render calls once per
// mapped surface.
func ImportBuffer(handle BufferHandle) (*Buffer, error) {
	if handle == nil {
		return nil, NewError("import_buffer", 0, ErrCodeProtocol)
	}
	buf, err := bufferimport.Import(handle)
	if err != nil {
		return nil, WrapError("import_buffer", 0, ErrCodeResource, err)
	}
	return buf, nil
}

// StageSharedMemory copies img's bytes into a pooled staging buffer, for
// the renderer-present render path where a blit needs its own copy of a
// client's shared-memory bytes rather than reading them in place. Release
// the returned slice with PutStagingBuffer once the renderer has consumed
// it.
func StageSharedMemory(img *SharedMemoryImage) ([]byte, error) {
	return bufferimport.StageSharedMemory(img)
}

// PutStagingBuffer returns a slice obtained from StageSharedMemory to its
// size-bucketed pool.
func PutStagingBuffer(buf []byte) {
	bufferimport.PutStagingBuffer(buf)
}
