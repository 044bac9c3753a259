package sim

import (
	"sync"
	"time"

	"vine-and-dine/server/internal/telemetry"
	"vine-and-dine/server/logging"
)

const (
	// InputRejectQueueLimit indicates an input was dropped by per-player
	// queue throttling.
	InputRejectQueueLimit = "queue_limit"
	// InputRejectQueueFull indicates the global input buffer is saturated.
	InputRejectQueueFull = "queue_full"
)

// LoopConfig tunes the input buffer and the tick cadence.
type LoopConfig struct {
	TickInterval   time.Duration
	InputCapacity  int
	PerPlayerLimit int
}

// DefaultLoopConfig returns the stock 125 ms cadence.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		TickInterval:   125 * time.Millisecond,
		InputCapacity:  256,
		PerPlayerLimit: 16,
	}
}

// LoopTickContext describes one scheduled tick.
type LoopTickContext struct {
	Now   time.Time
	Delta time.Duration
}

// LoopHooks let the owner react to loop activity. Advance runs on the
// dedicated tick goroutine with the drained inputs for this cycle.
type LoopHooks struct {
	Advance     func(ctx LoopTickContext, events []InputEvent)
	OnInputDrop func(reason string, ev InputEvent)
}

// Loop owns the fixed-period tick cadence and the staged-input queue.
// Producers enqueue without ever blocking on the tick goroutine.
type Loop struct {
	cfg    LoopConfig
	hooks  LoopHooks
	buffer *InputBuffer
	clock  logging.Clock
	logger telemetry.Logger

	queueMu        sync.Mutex
	perPlayerCount map[int]int
	dropCounts     map[int]uint64
}

// NewLoop wires a loop around a fresh input buffer.
func NewLoop(cfg LoopConfig, deps Deps, hooks LoopHooks) *Loop {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 125 * time.Millisecond
	}
	if cfg.InputCapacity <= 0 {
		cfg.InputCapacity = 256
	}
	clock := deps.Clock
	if clock == nil {
		clock = logging.SystemClock{}
	}
	return &Loop{
		cfg:            cfg,
		hooks:          hooks,
		buffer:         NewInputBuffer(cfg.InputCapacity, deps.Metrics),
		clock:          clock,
		logger:         deps.Logger,
		perPlayerCount: make(map[int]int),
		dropCounts:     make(map[int]uint64),
	}
}

// Pending reports the number of staged inputs.
func (l *Loop) Pending() int {
	if l == nil {
		return 0
	}
	return l.buffer.Len()
}

// Enqueue stages an input, enforcing per-player throttling and capacity.
func (l *Loop) Enqueue(ev InputEvent) (bool, string) {
	if l == nil {
		return false, InputRejectQueueFull
	}
	reason := ""
	var dropCount uint64
	l.queueMu.Lock()
	if l.cfg.PerPlayerLimit > 0 {
		count := l.perPlayerCount[ev.PlayerID]
		if count >= l.cfg.PerPlayerLimit {
			reason = InputRejectQueueLimit
			dropCount = l.incrementDropLocked(ev.PlayerID)
		} else {
			l.perPlayerCount[ev.PlayerID] = count + 1
		}
	}
	if reason == "" && !l.buffer.Push(ev) {
		reason = InputRejectQueueFull
		dropCount = l.incrementDropLocked(ev.PlayerID)
	}
	l.queueMu.Unlock()
	if reason != "" {
		l.reportDrop(reason, ev, dropCount)
		return false, reason
	}
	return true, ""
}

// Run drives the fixed-period loop until the stop channel closes.
func (l *Loop) Run(stop <-chan struct{}) {
	if l == nil {
		return
	}
	ticker := time.NewTicker(l.cfg.TickInterval)
	defer ticker.Stop()

	last := l.clock.Now()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			now := l.clock.Now()
			delta := now.Sub(last)
			if delta <= 0 {
				delta = l.cfg.TickInterval
			}
			last = now

			events := l.drainInputs()
			if l.hooks.Advance != nil {
				l.hooks.Advance(LoopTickContext{Now: now, Delta: delta}, events)
			}
		}
	}
}

func (l *Loop) drainInputs() []InputEvent {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	events := l.buffer.Drain()
	if len(l.perPlayerCount) > 0 {
		l.perPlayerCount = make(map[int]int)
	}
	return events
}

func (l *Loop) incrementDropLocked(playerID int) uint64 {
	count := l.dropCounts[playerID] + 1
	l.dropCounts[playerID] = count
	return count
}

func (l *Loop) reportDrop(reason string, ev InputEvent, count uint64) {
	if l.hooks.OnInputDrop != nil {
		l.hooks.OnInputDrop(reason, ev)
	}
	// Log on powers of two so a flooding client cannot flood the log too.
	if count > 0 && count&(count-1) == 0 && l.logger != nil {
		l.logger.Printf(
			"[backpressure] dropping input player=%d reason=%s count=%d limit=%d",
			ev.PlayerID, reason, count, l.cfg.PerPlayerLimit,
		)
	}
}
