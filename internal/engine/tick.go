// Package engine provides the tick loop that drives the boost scheduler,
// the simulator and the journal.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/talgya/harvest-boost/internal/clock"
	"github.com/talgya/harvest-boost/internal/config"
)

// Game-day layout: tick 0 is 06:00 on day 1.
const (
	TicksPerDay  = 24000
	TicksPerHour = 1000
	dawnOffset   = 6 * TicksPerHour

	pausePoll = 100 * time.Millisecond
)

type cadence struct {
	name  string
	every uint64
	fn    func(tick uint64)
}

// Engine drives the simulation forward. Each step advances the game clock
// by one tick and runs every cadence whose period divides the tick number.
type Engine struct {
	Interval time.Duration // Real time per tick at speed 1.0

	clock    *clock.Manual
	tick     atomic.Uint64
	speed    atomic.Uint64 // math.Float64bits
	running  atomic.Bool
	cadences []cadence

	mu   sync.Mutex
	stop context.CancelFunc
}

// NewEngine creates an engine that keeps clk in step with ticks.
func NewEngine(clk *clock.Manual) *Engine {
	e := &Engine{
		Interval: config.TickDuration,
		clock:    clk,
	}
	e.SetSpeed(1.0)
	return e
}

// Every registers fn to run on every nth tick. Cadences run in
// registration order and must be registered before Run.
func (e *Engine) Every(n uint64, name string, fn func(tick uint64)) {
	if n == 0 {
		n = 1
	}
	e.cadences = append(e.cadences, cadence{name: name, every: n, fn: fn})
}

// Tick returns the current tick counter.
func (e *Engine) Tick() uint64 { return e.tick.Load() }

// Speed returns the speed multiplier: 1.0 is real time, 0 is paused.
func (e *Engine) Speed() float64 { return math.Float64frombits(e.speed.Load()) }

// SetSpeed changes the speed multiplier.
func (e *Engine) SetSpeed(s float64) { e.speed.Store(math.Float64bits(max(s, 0))) }

// Running reports whether Run is active.
func (e *Engine) Running() bool { return e.running.Load() }

// Clock returns the game clock.
func (e *Engine) Clock() *clock.Manual { return e.clock }

// Run starts the simulation loop. Blocks until ctx is done or Stop is
// called.
func (e *Engine) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.stop = cancel
	e.mu.Unlock()
	defer cancel()

	e.running.Store(true)
	defer e.running.Store(false)
	slog.Info("tick engine started", "tick", e.Tick(), "speed", e.Speed(), "cadences", len(e.cadences))

	for {
		wait := pausePoll
		if speed := e.Speed(); speed > 0 {
			start := time.Now()
			e.Step()
			wait = time.Duration(float64(e.Interval)/speed) - time.Since(start)
		}
		select {
		case <-ctx.Done():
			slog.Info("tick engine stopped", "tick", e.Tick(), "time", GameTime(e.Tick()))
			return
		case <-time.After(max(wait, 0)):
		}
	}
}

// Stop halts a running loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stop != nil {
		e.stop()
	}
}

// Resume sets the tick counter, for continuing a saved run. Call before Run.
func (e *Engine) Resume(tick uint64) { e.tick.Store(tick) }

// RunTicks steps n times without sleeping.
func (e *Engine) RunTicks(n int) {
	for range n {
		e.Step()
	}
}

// Step advances the simulation by one tick.
func (e *Engine) Step() {
	t := e.tick.Add(1)
	e.clock.Advance(config.TickDuration)
	for _, c := range e.cadences {
		if t%c.every == 0 {
			e.runCadence(c, t)
		}
	}
}

func (e *Engine) runCadence(c cadence, t uint64) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("cadence panicked", "cadence", c.name, "tick", t, "panic", r)
		}
	}()
	c.fn(t)
}

// GameTime returns a human-readable in-game time for a tick number.
func GameTime(tick uint64) string {
	shifted := tick + dawnOffset
	day := shifted/TicksPerDay + 1
	t := shifted % TicksPerDay
	hours := t / TicksPerHour
	minutes := (t % TicksPerHour) * 60 / TicksPerHour
	return fmt.Sprintf("Day %d, %d:%02d", day, hours, minutes)
}
