// Package bufferimport translates an opaque client buffer handle into a
// uniform Buffer descriptor a renderer or backend output can consume,
// discriminating shared-memory buffers from DMA buffers via a Provider the
// wire layer supplies.
package bufferimport

import "fmt"

// Format is a DRM-style fourcc buffer format code.
type Format uint32

// The minimum shared-memory formats every backend must accept.
const (
	FormatARGB8888 Format = 0x34325241 // 'AR24'
	FormatXRGB8888 Format = 0x34325258 // 'XR24'
)

// Provider is implemented by the wire layer's buffer object. The adapter
// never holds a reference to the client's resource beyond the lifetime of a
// single import call; the bytes or fds it describes remain client-owned.
type Provider interface {
	// IsDMA reports whether this handle backs a DMA-capable buffer. When
	// false, the shared-memory accessors are used instead.
	IsDMA() bool

	// Shared-memory accessors.
	Width() int
	Height() int
	Stride() int
	SHMFormat() Format

	// BeginAccess brackets a CPU read of the shared-memory bytes with the
	// provider's access fences (e.g. a pool-level lock or a memory
	// barrier) and returns a view into the backing bytes. EndAccess must
	// be called exactly once per BeginAccess, and BeginAccess must never
	// be called again before the matching EndAccess returns.
	BeginAccess() ([]byte, error)
	EndAccess()

	// DMA accessors.
	DMAFormat() Format
	DMAModifier() uint64
	Planes() []DmaPlane
}

// DmaPlane describes one plane of a DMA-capable buffer: an open file
// descriptor the backend may duplicate, its row stride, and its byte
// offset within the underlying allocation.
type DmaPlane struct {
	FD     int
	Stride uint32
	Offset uint32
}

// MaxDmaPlanes bounds the plane count a DMA buffer descriptor may carry.
const MaxDmaPlanes = 4

// SharedMemoryImage is a CPU-mapped image view into a client-owned shared
// memory allocation.
type SharedMemoryImage struct {
	Width, Height int
	Stride        int
	Format        Format

	provider Provider
	staged   []byte
}

// BeginAccess brackets a CPU read, delegating to the provider's fences.
// On an image produced by WithStagedBytes the staged copy is served
// instead and no provider fence is taken.
func (s *SharedMemoryImage) BeginAccess() ([]byte, error) {
	if s.staged != nil {
		return s.staged, nil
	}
	return s.provider.BeginAccess()
}

// EndAccess releases the access bracket opened by BeginAccess.
func (s *SharedMemoryImage) EndAccess() {
	if s.staged != nil {
		return
	}
	s.provider.EndAccess()
}

// WithStagedBytes returns a copy of s whose access bracket serves b
// instead of the client's shared memory, so a consumer can keep reading
// after the provider-side bracket has closed. b is typically a staging
// buffer filled by StageSharedMemory; the caller still owns it and
// returns it to the pool once the consumer is done.
func (s *SharedMemoryImage) WithStagedBytes(b []byte) *SharedMemoryImage {
	img := *s
	img.staged = b
	return &img
}

// Good reports whether the descriptor is usable: positive dimensions.
func (s *SharedMemoryImage) Good() bool {
	return s.Width > 0 && s.Height > 0
}

// DmaImage is a set of DMA-capable plane descriptors describing one buffer.
type DmaImage struct {
	Width, Height int
	Format        Format
	Modifier      uint64
	Planes        []DmaPlane
}

// Good reports whether the descriptor is usable: positive dimensions and
// at least one plane.
func (d *DmaImage) Good() bool {
	return d.Width > 0 && d.Height > 0 && len(d.Planes) >= 1
}

// Buffer is the tagged-variant descriptor handed to a renderer or backend
// output. Exactly one of SHM or DMA is non-nil.
type Buffer struct {
	SHM *SharedMemoryImage
	DMA *DmaImage
}

// Good reports whether the buffer is usable for rendering.
func (b *Buffer) Good() bool {
	switch {
	case b.SHM != nil:
		return b.SHM.Good()
	case b.DMA != nil:
		return b.DMA.Good()
	default:
		return false
	}
}

// Import discriminates the provider into a Buffer descriptor. It does not
// read any bytes eagerly; SharedMemoryImage.BeginAccess is the only path
// that touches the client's memory.
func Import(p Provider) (*Buffer, error) {
	if p == nil {
		return nil, fmt.Errorf("bufferimport: nil provider")
	}

	if p.IsDMA() {
		planes := p.Planes()
		if len(planes) > MaxDmaPlanes {
			return nil, fmt.Errorf("bufferimport: %d planes exceeds maximum of %d", len(planes), MaxDmaPlanes)
		}
		img := &DmaImage{
			Format:   p.DMAFormat(),
			Modifier: p.DMAModifier(),
			Planes:   planes,
		}
		// Width/Height for DMA buffers are carried by the provider through
		// the same accessors as shared memory; callers of a DMA-only
		// provider still populate Width/Height there.
		img.Width, img.Height = p.Width(), p.Height()
		return &Buffer{DMA: img}, nil
	}

	return &Buffer{SHM: &SharedMemoryImage{
		Width:    p.Width(),
		Height:   p.Height(),
		Stride:   p.Stride(),
		Format:   p.SHMFormat(),
		provider: p,
	}}, nil
}
