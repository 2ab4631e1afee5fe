package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/talgya/harvest-boost/internal/boost"
	"github.com/talgya/harvest-boost/internal/config"
	"github.com/talgya/harvest-boost/internal/entropy"
	"github.com/talgya/harvest-boost/internal/feedback"
	"github.com/talgya/harvest-boost/internal/world"
)

// Agents is the roster the scheduler walks each invocation.
type Agents interface {
	OnlineAgents() []world.Agent
	Online(id world.AgentID) bool
}

// Report summarises one scheduler invocation.
type Report struct {
	Invocation   uint64
	Agents       int
	Recorded     int // agents whose presence was refreshed
	Transitions  int
	Failures     int
	SweptAgents  int
	SweptEntries int
	InfoRefresh  int
	Particles    int
}

// Scheduler is the periodic driver of the boost engine: it refreshes
// presence for agents standing near farmland, detects level changes, keeps
// the per-agent stores bounded and fans out cosmetic feedback.
type Scheduler struct {
	boosts   *boost.Service
	notifier *feedback.Notifier
	renderer *feedback.Renderer
	agents   Agents
	random   entropy.Source
	live     *config.Live

	invocations atomic.Uint64
}

func NewScheduler(boosts *boost.Service, notifier *feedback.Notifier, renderer *feedback.Renderer,
	agents Agents, random entropy.Source, live *config.Live) *Scheduler {
	return &Scheduler{
		boosts:   boosts,
		notifier: notifier,
		renderer: renderer,
		agents:   agents,
		random:   random,
		live:     live,
	}
}

// Register runs the scheduler every detection.check-interval ticks. The
// interval is re-read each tick so a reload takes effect immediately.
func (s *Scheduler) Register(e *Engine) {
	e.Every(1, "boost-scheduler", func(tick uint64) {
		if tick%uint64(s.live.Load().Detection.CheckInterval) == 0 {
			s.Invoke(context.Background())
		}
	})
}

// Invocations returns how many times the scheduler has run.
func (s *Scheduler) Invocations() uint64 { return s.invocations.Load() }

// Invoke performs one scheduler pass.
func (s *Scheduler) Invoke(ctx context.Context) Report {
	n := s.invocations.Add(1)
	cfg := s.live.Load()
	sched := cfg.Scheduler
	agents := s.agents.OnlineAgents()
	r := Report{Invocation: n, Agents: len(agents)}

	for _, a := range agents {
		if cfg.WorldDisabled(a.Location.World) {
			continue
		}
		s.guard(&r, a, "refresh", func() error { return s.refresh(ctx, a, &r) })
	}

	if n%uint64(sched.OfflineSweepEvery) == 0 {
		r.SweptAgents = s.boosts.Tracker.SweepStale(s.agents.Online)
		r.SweptEntries += s.notifier.SweepStale(s.agents.Online)
	}
	if n%uint64(sched.CacheSweepEvery) == 0 {
		r.SweptEntries += s.boosts.Cache.SweepExpired()
	}

	if n%uint64(sched.InfoEvery) == 0 {
		for _, a := range agents {
			if cfg.WorldDisabled(a.Location.World) {
				continue
			}
			s.guard(&r, a, "info", func() error {
				if s.notifier.MaybeRefreshInfoChannel(ctx, a) {
					r.InfoRefresh++
				}
				return nil
			})
		}
	}

	if cfg.Effects.Particles.Enabled && n%uint64(sched.ParticleEvery) == 0 {
		for _, a := range agents {
			if cfg.WorldDisabled(a.Location.World) {
				continue
			}
			s.guard(&r, a, "particles", func() error { return s.particles(ctx, a, cfg, &r) })
		}
	}

	if r.Failures > 0 || r.SweptAgents > 0 {
		slog.Debug("scheduler pass", "invocation", n, "agents", r.Agents, "failures", r.Failures,
			"swept_agents", r.SweptAgents, "swept_entries", r.SweptEntries)
	}
	return r
}

func (s *Scheduler) refresh(ctx context.Context, a world.Agent, r *Report) error {
	near, err := s.boosts.Probe.Near(a.Location)
	if near {
		s.boosts.Tracker.RecordActivity(a.ID, a.Location)
		r.Recorded++
	}
	// Level changes are still checked when the terrain probe fails.
	if s.notifier.OnTick(ctx, a) != feedback.KindNone {
		r.Transitions++
	}
	if err != nil {
		return fmt.Errorf("probe farmland: %w", err)
	}
	return nil
}

func (s *Scheduler) particles(ctx context.Context, a world.Agent, cfg *config.Config, r *Report) error {
	if !s.boosts.Cache.HasBoost(ctx, a.Location) {
		return nil
	}
	sched := cfg.Scheduler
	picked, err := s.boosts.Probe.Sample(a.Location, sched.ParticleRadius, sched.ParticleChance,
		sched.ParticlesPerAgent, s.random.Float64)
	for _, pos := range picked {
		s.renderer.CropParticles(a.Location.World, pos)
	}
	r.Particles += len(picked)
	if err != nil {
		return fmt.Errorf("sample farmland: %w", err)
	}
	return nil
}

// guard runs one per-agent step, converting panics and errors into a
// logged failure so the rest of the pass continues.
func (s *Scheduler) guard(r *Report, a world.Agent, step string, fn func() error) {
	defer func() {
		if p := recover(); p != nil {
			r.Failures++
			slog.Error("scheduler step panicked", "step", step, "agent", a.Name, "panic", p)
		}
	}()
	if err := fn(); err != nil {
		r.Failures++
		slog.Warn("scheduler step failed", "step", step, "agent", a.Name, "error", err)
	}
}
