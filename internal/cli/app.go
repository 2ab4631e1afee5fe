package cli

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/talgya/harvest-boost/internal/boost"
	"github.com/talgya/harvest-boost/internal/clock"
	"github.com/talgya/harvest-boost/internal/config"
	"github.com/talgya/harvest-boost/internal/engine"
	"github.com/talgya/harvest-boost/internal/entropy"
	"github.com/talgya/harvest-boost/internal/feedback"
	"github.com/talgya/harvest-boost/internal/hooks"
	"github.com/talgya/harvest-boost/internal/sim"
	"github.com/talgya/harvest-boost/internal/world"
)

// App is a fully wired simulated server: generated worlds, farmhands, the
// boost engine and its feedback, all driven by one tick engine.
type App struct {
	Live      *config.Live
	Seed      int64
	Engine    *engine.Engine
	Host      *world.Host
	Boosts    *boost.Service
	Notifier  *feedback.Notifier
	Surface   *sim.Surface
	Scheduler *engine.Scheduler
	Journal   *engine.Journal
	Sim       *sim.Simulation
}

// NewApp builds an App from cfg. Journal records go to store.
func NewApp(cfg *config.Config, store engine.JournalStore) *App {
	// Seed 0 means an unrepeatable run: random layout, crypto growth draws.
	seed := cfg.Simulation.Seed
	var draws entropy.Source
	if seed == 0 {
		seed = rand.Int63()
		draws = entropy.Crypto()
	} else {
		draws = entropy.NewSeeded(seed + 1)
	}
	live := config.NewLive(cfg)
	clk := clock.NewManual(time.Now())
	eng := engine.NewEngine(clk)

	host := world.NewHost()
	for i, name := range cfg.Simulation.Worlds {
		gen := world.DefaultGenConfig()
		gen.Name = name
		gen.Radius = cfg.Simulation.FieldRadius
		gen.Seed = seed + int64(i)*1000
		grid := world.GenerateFarmland(gen)
		host.LoadWorld(grid)
		slog.Info("world generated", "world", name, "blocks", grid.BlockCount(), "radius", gen.Radius)
	}

	boosts := boost.NewService(host, live, clk)
	surface := sim.NewSurface()
	renderer := feedback.NewRenderer(surface, live)
	notifier := feedback.NewNotifier(boosts.Cache, live, clk)
	journal := engine.NewJournal(store, eng.Tick)
	notifier.Subscribe(renderer)
	notifier.Subscribe(journal)

	growth := hooks.NewGrowth(boosts, renderer, host, draws, journal, live)
	activity := hooks.NewActivity(boosts, notifier, surface, live)
	scheduler := engine.NewScheduler(boosts, notifier, renderer, host, entropy.NewSeeded(seed+2), live)

	spawner := sim.NewSpawner(seed)
	var hands []*sim.Farmhand
	worlds := cfg.Simulation.Worlds
	for i, name := range worlds {
		n := cfg.Simulation.Farmhands / len(worlds)
		if i < cfg.Simulation.Farmhands%len(worlds) {
			n++
		}
		hands = append(hands, spawner.Spawn(n, name, world.DefaultGenConfig().Ground, cfg.Simulation.FieldRadius)...)
	}
	simulation := sim.New(host, activity, growth, live, hands, seed)

	simulation.Register(eng)
	scheduler.Register(eng)
	journal.Register(eng, uint64(cfg.Database.FlushInterval))

	slog.Info("harvest boost ready",
		"seed", seed,
		"worlds", len(worlds),
		"farmhands", len(hands),
		"plants", simulation.PlantCount(),
		"radius", cfg.Detection.Radius,
		"max_players", cfg.Boosts.MaxPlayers,
	)

	return &App{
		Live:      live,
		Seed:      seed,
		Engine:    eng,
		Host:      host,
		Boosts:    boosts,
		Notifier:  notifier,
		Surface:   surface,
		Scheduler: scheduler,
		Journal:   journal,
		Sim:       simulation,
	}
}

// Reload swaps in a new configuration and drops cached boosts.
func (a *App) Reload(cfg *config.Config) {
	a.Boosts.Reload(cfg)
}

// Close flushes the journal and stops background work.
func (a *App) Close() {
	if err := a.Journal.Flush(); err != nil {
		slog.Error("final journal flush failed", "error", err, "pending", a.Journal.Pending())
	}
	a.Boosts.Close()
}
