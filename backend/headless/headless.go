// Package headless implements a backend with no real display hardware: it
// simulates one or more outputs ticking at a fixed interval, useful for
// running the compositor core under test or in CI. Each simulated output
// guards its own schedule state with its own mutex rather than sharing
// one lock across the backend.
package headless

import (
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"github.com/waycore/waycore/internal/backendiface"
)

// Config configures the headless backend.
type Config struct {
	NumOutputs    int
	FrameInterval time.Duration
}

// DefaultConfig returns a single simulated output ticking at 60Hz.
func DefaultConfig() Config {
	return Config{NumOutputs: 1, FrameInterval: time.Second / 60}
}

// Headless is a backendiface.Implementation with no real display hardware.
type Headless struct {
	cfg     Config
	logger  backendiface.Logger
	outputs []*output
}

var _ backendiface.Implementation = (*Headless)(nil)

// New constructs a Headless implementation. Start creates the simulated
// outputs; construction alone does not.
func New(cfg Config, logger backendiface.Logger) *Headless {
	if cfg.NumOutputs <= 0 {
		cfg.NumOutputs = 1
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = time.Second / 60
	}
	return &Headless{cfg: cfg, logger: logger}
}

func (h *Headless) BackendType() string { return "headless" }

// Start creates cfg.NumOutputs simulated outputs, each with its own
// pollable pipe that a background ticker writes to at FrameInterval.
func (h *Headless) Start() bool {
	for i := 0; i < h.cfg.NumOutputs; i++ {
		o, err := newOutput(fmt.Sprintf("HEADLESS-%d", i+1), h.cfg.FrameInterval)
		if err != nil {
			if h.logger != nil {
				h.logger.Errorf("headless: failed to create output %d: %v", i, err)
			}
			h.teardown()
			return false
		}
		h.outputs = append(h.outputs, o)
	}
	return true
}

func (h *Headless) teardown() {
	for _, o := range h.outputs {
		o.close()
	}
	h.outputs = nil
}

// PollFDs returns the read end of every simulated output's frame pipe.
func (h *Headless) PollFDs() []backendiface.PollFD {
	fds := make([]backendiface.PollFD, 0, len(h.outputs))
	for _, o := range h.outputs {
		o := o
		fds = append(fds, backendiface.PollFD{
			FD: int(o.readFD.Fd()),
			Callback: func() error {
				return o.drainFrameReady()
			},
		})
	}
	return fds
}

// PrimaryRenderNode always reports none: a headless backend has no GPU.
func (h *Headless) PrimaryRenderNode() (int, bool) { return 0, false }

// SupportedFormats reports the minimum shared-memory formats.
func (h *Headless) SupportedFormats() []uint32 {
	return []uint32{0x34325241, 0x34325258} // ARGB8888, XRGB8888
}

func (h *Headless) OnReady() {}

// Deinit stops every output's ticker and closes its pipe.
func (h *Headless) Deinit() {
	h.teardown()
}

func (h *Headless) Outputs() []backendiface.OutputHandle {
	handles := make([]backendiface.OutputHandle, len(h.outputs))
	for i, o := range h.outputs {
		handles[i] = o
	}
	return handles
}

func (h *Headless) Inputs() []backendiface.InputHandle { return nil }

// output is one simulated display. mu guards scheduled and frameReady; a
// small, independent critical section per output rather than one lock
// for the whole backend.
type output struct {
	name      string
	mu        sync.Mutex
	scheduled bool

	readFD, writeFD *os.File
	ticker          *time.Ticker
	done            chan struct{}

	frameReady func()
}

func newOutput(name string, interval time.Duration) (*output, error) {
	rd, wr, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	o := &output{
		name:    name,
		readFD:  rd,
		writeFD: wr,
		ticker:  time.NewTicker(interval),
		done:    make(chan struct{}),
	}
	go o.run()
	return o, nil
}

func (o *output) run() {
	for {
		select {
		case <-o.ticker.C:
			o.mu.Lock()
			due := o.scheduled
			o.mu.Unlock()
			if due {
				o.writeFD.Write([]byte{1})
			}
		case <-o.done:
			return
		}
	}
}

func (o *output) drainFrameReady() error {
	var buf [1]byte
	o.readFD.Read(buf[:])
	o.mu.Lock()
	o.scheduled = false
	cb := o.frameReady
	o.mu.Unlock()
	if cb != nil {
		cb()
	}
	return nil
}

func (o *output) close() {
	o.ticker.Stop()
	close(o.done)
	o.readFD.Close()
	o.writeFD.Close()
}

func (o *output) Name() string { return o.name }

// Description advertises a virtual output: no physical dimensions, no
// transform.
func (o *output) Description() backendiface.OutputDescription {
	return backendiface.OutputDescription{Make: "waycore", Model: "headless"}
}

func (o *output) Modes() []backendiface.OutputMode {
	return []backendiface.OutputMode{{Width: 1920, Height: 1080, RefreshMilliHz: 60000, Preferred: true}}
}

func (o *output) Scale() int { return 1 }

func (o *output) ScheduleFrame(priority int) {
	o.mu.Lock()
	o.scheduled = true
	o.mu.Unlock()
}

// CommitFrame accepts any buffer; a headless output has nowhere to present
// to, so committing always succeeds.
func (o *output) CommitFrame(bounds image.Rectangle, buf any) error {
	return nil
}

// SetFrameReadyCallback registers cb to run once drainFrameReady has
// cleared the scheduled flag for a given tick.
func (o *output) SetFrameReadyCallback(cb func()) {
	o.mu.Lock()
	o.frameReady = cb
	o.mu.Unlock()
}
