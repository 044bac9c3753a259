package sim

import "sync"

const (
	inputBufferOccupancyMetricKey = "sim_input_buffer_occupancy"
	inputBufferOverflowMetricKey  = "sim_input_buffer_overflow_total"
)

// InputBuffer stages input events in a fixed-size ring. Connection
// goroutines push concurrently without ever waiting on the tick thread,
// which drains the whole buffer once per tick.
type InputBuffer struct {
	mu      sync.Mutex
	data    []InputEvent
	head    int
	tail    int
	count   int
	metrics telemetryMetrics
}

type telemetryMetrics interface {
	Add(string, uint64)
	Store(string, uint64)
}

// NewInputBuffer constructs a ring buffer with the provided capacity.
func NewInputBuffer(capacity int, metrics telemetryMetrics) *InputBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &InputBuffer{
		data:    make([]InputEvent, capacity),
		metrics: metrics,
	}
}

// Capacity reports the maximum number of events the buffer can hold.
func (b *InputBuffer) Capacity() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Push stages an event, returning false if the buffer is full.
func (b *InputBuffer) Push(ev InputEvent) bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == len(b.data) {
		if b.metrics != nil {
			b.metrics.Add(inputBufferOverflowMetricKey, 1)
		}
		return false
	}
	b.data[b.tail] = ev
	b.tail = (b.tail + 1) % len(b.data)
	b.count++
	b.storeOccupancyLocked()
	return true
}

// Drain returns all staged events in FIFO order and clears the buffer.
func (b *InputBuffer) Drain() []InputEvent {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		return nil
	}
	events := make([]InputEvent, b.count)
	for i := 0; i < b.count; i++ {
		idx := (b.head + i) % len(b.data)
		events[i] = b.data[idx]
	}
	b.head = 0
	b.tail = 0
	b.count = 0
	b.storeOccupancyLocked()
	return events
}

// Len reports the number of staged events.
func (b *InputBuffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *InputBuffer) storeOccupancyLocked() {
	if b.metrics == nil {
		return
	}
	b.metrics.Store(inputBufferOccupancyMetricKey, uint64(b.count))
}
