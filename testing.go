package waycore

import (
	"image"
	"sync"

	"github.com/waycore/waycore/internal/backendiface"
)

// MockOutputHandle is a backendiface.OutputHandle usable in tests without a
// real backend: it tracks ScheduleFrame/CommitFrame calls and lets a test
// fire its registered frame-ready callback directly.
type MockOutputHandle struct {
	mu sync.Mutex

	name        string
	description backendiface.OutputDescription
	modes       []backendiface.OutputMode
	scale       int

	scheduleCalls int
	commitCalls   int
	lastBounds    image.Rectangle
	lastBuffer    any
	commitErr     error

	onFrameReady func()
}

// NewMockOutputHandle constructs a mock output named name with one
// preferred 1920x1080@60 mode.
func NewMockOutputHandle(name string) *MockOutputHandle {
	return &MockOutputHandle{
		name:        name,
		description: backendiface.OutputDescription{Make: "waycore", Model: "mock"},
		scale:       1,
		modes:       []backendiface.OutputMode{{Width: 1920, Height: 1080, RefreshMilliHz: 60000, Preferred: true}},
	}
}

func (m *MockOutputHandle) Name() string                     { return m.name }
func (m *MockOutputHandle) Modes() []backendiface.OutputMode { return m.modes }
func (m *MockOutputHandle) Scale() int                       { return m.scale }

func (m *MockOutputHandle) Description() backendiface.OutputDescription {
	return m.description
}

func (m *MockOutputHandle) ScheduleFrame(priority int) {
	m.mu.Lock()
	m.scheduleCalls++
	m.mu.Unlock()
}

func (m *MockOutputHandle) CommitFrame(bounds image.Rectangle, buf any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commitCalls++
	m.lastBounds = bounds
	m.lastBuffer = buf
	return m.commitErr
}

func (m *MockOutputHandle) SetFrameReadyCallback(cb func()) {
	m.mu.Lock()
	m.onFrameReady = cb
	m.mu.Unlock()
}

// FireFrameReady invokes the callback AttachBackend registered, simulating
// the backend signaling a frame is ready to render.
func (m *MockOutputHandle) FireFrameReady() {
	m.mu.Lock()
	cb := m.onFrameReady
	m.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// SetCommitError makes every subsequent CommitFrame call fail with err,
// for exercising Output.Render's backend-error path.
func (m *MockOutputHandle) SetCommitError(err error) {
	m.mu.Lock()
	m.commitErr = err
	m.mu.Unlock()
}

// ScheduleCalls and CommitCalls report how many times each method fired,
// for assertions in tests driving the Output scheduling state machine.
func (m *MockOutputHandle) ScheduleCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scheduleCalls
}

func (m *MockOutputHandle) CommitCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commitCalls
}

// MockBackendImplementation is a backendiface.Implementation with no real
// device backing it: outputs and inputs are supplied directly by the test,
// Start/Deinit just flip a flag, and PollFDs returns whatever the test
// configured.
type MockBackendImplementation struct {
	mu sync.Mutex

	TypeName string
	StartOK  bool
	Fds      []backendiface.PollFD
	RenderFD int
	HasNode  bool
	Formats  []uint32
	outputs  []backendiface.OutputHandle
	inputs   []backendiface.InputHandle

	started    bool
	deinited   bool
	readyCalls int
}

// NewMockBackendImplementation constructs a mock implementation that
// starts successfully by default.
func NewMockBackendImplementation(typeName string) *MockBackendImplementation {
	return &MockBackendImplementation{TypeName: typeName, StartOK: true}
}

func (m *MockBackendImplementation) BackendType() string { return m.TypeName }

func (m *MockBackendImplementation) Start() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = m.StartOK
	return m.StartOK
}

func (m *MockBackendImplementation) PollFDs() []backendiface.PollFD { return m.Fds }

func (m *MockBackendImplementation) PrimaryRenderNode() (int, bool) { return m.RenderFD, m.HasNode }

func (m *MockBackendImplementation) SupportedFormats() []uint32 { return m.Formats }

func (m *MockBackendImplementation) OnReady() {
	m.mu.Lock()
	m.readyCalls++
	m.mu.Unlock()
}

func (m *MockBackendImplementation) Deinit() {
	m.mu.Lock()
	m.deinited = true
	m.mu.Unlock()
}

func (m *MockBackendImplementation) Outputs() []backendiface.OutputHandle { return m.outputs }
func (m *MockBackendImplementation) Inputs() []backendiface.InputHandle   { return m.inputs }

// AddOutput appends handle to the implementation's advertised output list,
// simulating a backend-added-output event.
func (m *MockBackendImplementation) AddOutput(handle backendiface.OutputHandle) {
	m.outputs = append(m.outputs, handle)
}

// RemoveOutput drops handle from the advertised output list, simulating a
// backend-removed-output event.
func (m *MockBackendImplementation) RemoveOutput(handle backendiface.OutputHandle) {
	for i, existing := range m.outputs {
		if existing == handle {
			m.outputs = append(m.outputs[:i], m.outputs[i+1:]...)
			return
		}
	}
}

// AddInput appends handle to the implementation's advertised input list.
func (m *MockBackendImplementation) AddInput(handle backendiface.InputHandle) {
	m.inputs = append(m.inputs, handle)
}

// MockInputHandle is a backendiface.InputHandle with a fixed capability
// mask.
type MockInputHandle struct {
	DeviceName string
	Caps       backendiface.InputCapabilities
}

func (m *MockInputHandle) Name() string { return m.DeviceName }
func (m *MockInputHandle) Capabilities() backendiface.InputCapabilities {
	return m.Caps
}

// Deinited and Started report whether Deinit/Start have been called, for
// lifecycle assertions.
func (m *MockBackendImplementation) Deinited() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deinited
}

func (m *MockBackendImplementation) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// MockRenderer is a Renderer that returns its input buffer unchanged (or a
// configured error), for exercising Output.Render's renderer-present path
// without a real GPU.
type MockRenderer struct {
	mu        sync.Mutex
	blitCalls int
	blitErr   error
}

func (r *MockRenderer) Blit(buf *Buffer) (*Buffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blitCalls++
	if r.blitErr != nil {
		return nil, r.blitErr
	}
	return buf, nil
}

// SetBlitError makes every subsequent Blit call fail with err.
func (r *MockRenderer) SetBlitError(err error) {
	r.mu.Lock()
	r.blitErr = err
	r.mu.Unlock()
}

// BlitCalls reports how many times Blit has been invoked.
func (r *MockRenderer) BlitCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blitCalls
}

// MockBufferHandle is a BufferHandle (bufferimport.Provider) usable in
// tests without a real wire-layer buffer object.
type MockBufferHandle struct {
	IsDMABuffer bool

	W, H, S int
	Fmt     Format

	DmaFmt    Format
	DmaMod    uint64
	DmaPlanes []DmaPlane

	beginCalls int
	endCalls   int
	beginErr   error
}

func (m *MockBufferHandle) IsDMA() bool       { return m.IsDMABuffer }
func (m *MockBufferHandle) Width() int        { return m.W }
func (m *MockBufferHandle) Height() int       { return m.H }
func (m *MockBufferHandle) Stride() int       { return m.S }
func (m *MockBufferHandle) SHMFormat() Format { return m.Fmt }

func (m *MockBufferHandle) BeginAccess() ([]byte, error) {
	m.beginCalls++
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	return make([]byte, m.S*m.H), nil
}

func (m *MockBufferHandle) EndAccess() { m.endCalls++ }

func (m *MockBufferHandle) DMAFormat() Format   { return m.DmaFmt }
func (m *MockBufferHandle) DMAModifier() uint64 { return m.DmaMod }
func (m *MockBufferHandle) Planes() []DmaPlane  { return m.DmaPlanes }

var (
	_ backendiface.OutputHandle   = (*MockOutputHandle)(nil)
	_ backendiface.InputHandle    = (*MockInputHandle)(nil)
	_ backendiface.Implementation = (*MockBackendImplementation)(nil)
	_ Renderer                    = (*MockRenderer)(nil)
	_ BufferHandle                = (*MockBufferHandle)(nil)
)
