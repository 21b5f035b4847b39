package bufferimport

import (
	"sync"

	"github.com/waycore/waycore/internal/constants"
)

// staging buffers back the copy a renderer makes when blitting a client's
// shared-memory buffer into a swapchain buffer it owns (the non-zero-copy
// render path). Pooled by size bucket to avoid an allocation per frame.

var smallPool = sync.Pool{
	New: func() any {
		b := make([]byte, constants.StagingBufferSmall)
		return &b
	},
}

var mediumPool = sync.Pool{
	New: func() any {
		b := make([]byte, constants.StagingBufferMedium)
		return &b
	},
}

var largePool = sync.Pool{
	New: func() any {
		b := make([]byte, constants.StagingBufferLarge)
		return &b
	},
}

// GetStagingBuffer returns a pooled byte slice of at least size bytes.
// Sizes larger than the largest bucket are allocated directly and not
// pooled on return.
func GetStagingBuffer(size int) []byte {
	switch {
	case size <= constants.StagingBufferSmall:
		buf := smallPool.Get().(*[]byte)
		return (*buf)[:size]
	case size <= constants.StagingBufferMedium:
		buf := mediumPool.Get().(*[]byte)
		return (*buf)[:size]
	case size <= constants.StagingBufferLarge:
		buf := largePool.Get().(*[]byte)
		return (*buf)[:size]
	default:
		return make([]byte, size)
	}
}

// StageSharedMemory copies img's bytes into a pooled staging buffer sized
// to the image, bracketing the read with the provider's BeginAccess/
// EndAccess fences. This is the copy a renderer's blit needs before it can
// hand the bytes to a swapchain buffer it owns, since the source bytes are
// client-owned and must not be retained past EndAccess. The caller
// releases the returned slice with PutStagingBuffer once the renderer has
// consumed it.
func StageSharedMemory(img *SharedMemoryImage) ([]byte, error) {
	src, err := img.BeginAccess()
	if err != nil {
		return nil, err
	}
	defer img.EndAccess()

	staging := GetStagingBuffer(len(src))
	copy(staging, src)
	return staging, nil
}

// PutStagingBuffer returns a buffer obtained from GetStagingBuffer to its
// bucket's pool. Buffers larger than the largest bucket are dropped.
func PutStagingBuffer(buf []byte) {
	capacity := cap(buf)
	full := buf[:capacity]
	switch capacity {
	case constants.StagingBufferSmall:
		smallPool.Put(&full)
	case constants.StagingBufferMedium:
		mediumPool.Put(&full)
	case constants.StagingBufferLarge:
		largePool.Put(&full)
	}
}
