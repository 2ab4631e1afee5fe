// Package config holds the harvest boost configuration, its defaults, and
// the validation that keeps the engine from ever seeing invalid values.
// Gameplay durations are expressed in game ticks (see TickDuration).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strconv"
	"sync/atomic"
	"time"
)

// TickDuration is the wall-clock length of one game tick.
const TickDuration = 50 * time.Millisecond

// ErrInvalidConfig is returned when a configuration source cannot be decoded.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all harvest boost configuration.
type Config struct {
	Detection   DetectionConfig   `mapstructure:"detection" toml:"detection"`
	Boosts      BoostsConfig      `mapstructure:"boosts" toml:"boosts"`
	Enable      EnableConfig      `mapstructure:"enable" toml:"enable"`
	Effects     EffectsConfig     `mapstructure:"effects" toml:"effects"`
	Advanced    AdvancedConfig    `mapstructure:"advanced" toml:"advanced"`
	Performance PerformanceConfig `mapstructure:"performance" toml:"performance"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler" toml:"scheduler"`
	Server      ServerConfig      `mapstructure:"server" toml:"server"`
	Database    DatabaseConfig    `mapstructure:"database" toml:"database"`
	Simulation  SimulationConfig  `mapstructure:"simulation" toml:"simulation"`

	levels map[int]float64 // parsed Boosts.Levels, filled by Normalize
}

type DetectionConfig struct {
	Radius        int `mapstructure:"radius" toml:"radius"`                 // blocks
	CheckInterval int `mapstructure:"check-interval" toml:"check-interval"` // ticks between scheduler runs
}

type BoostsConfig struct {
	MaxPlayers int                `mapstructure:"max-players" toml:"max-players"`
	Levels     map[string]float64 `mapstructure:"levels" toml:"levels"` // farmer count → multiplier
}

type EnableConfig struct {
	Crops      bool `mapstructure:"crops" toml:"crops"`
	Saplings   bool `mapstructure:"saplings" toml:"saplings"`
	Bamboo     bool `mapstructure:"bamboo" toml:"bamboo"`
	TallPlants bool `mapstructure:"tall-plants" toml:"tall-plants"`
}

type EffectsConfig struct {
	Particles ParticlesConfig `mapstructure:"particles" toml:"particles"`
	ActionBar ActionBarConfig `mapstructure:"actionbar" toml:"actionbar"`
	Sounds    SoundsConfig    `mapstructure:"sounds" toml:"sounds"`
}

type ParticlesConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
	Type    string `mapstructure:"type" toml:"type"`
	Amount  int    `mapstructure:"amount" toml:"amount"`
}

type ActionBarConfig struct {
	Enabled        bool   `mapstructure:"enabled" toml:"enabled"`
	UpdateInterval int    `mapstructure:"update-interval" toml:"update-interval"` // ticks
	Format         string `mapstructure:"format" toml:"format"`
}

type SoundsConfig struct {
	Enabled        bool    `mapstructure:"enabled" toml:"enabled"`
	EnterBoostArea string  `mapstructure:"enter-boost-area" toml:"enter-boost-area"`
	BoostChange    string  `mapstructure:"boost-change" toml:"boost-change"`
	Volume         float64 `mapstructure:"volume" toml:"volume"`
	Pitch          float64 `mapstructure:"pitch" toml:"pitch"`
}

type AdvancedConfig struct {
	FarmingDetectionRadius int           `mapstructure:"farming-detection-radius" toml:"farming-detection-radius"` // blocks
	MinimumPresenceTime    int           `mapstructure:"minimum-presence-time" toml:"minimum-presence-time"`       // ticks
	Debug                  bool          `mapstructure:"debug" toml:"debug"`
	DisabledWorlds         []string      `mapstructure:"disabled-worlds" toml:"disabled-worlds"`
	XPBonus                XPBonusConfig `mapstructure:"xp-bonus" toml:"xp-bonus"`
}

type XPBonusConfig struct {
	Enabled  bool `mapstructure:"enabled" toml:"enabled"`
	PerLevel int  `mapstructure:"per-level" toml:"per-level"`
}

type PerformanceConfig struct {
	MaxCropsPerTick   int  `mapstructure:"max-crops-per-tick" toml:"max-crops-per-tick"`
	LocationCacheTime int  `mapstructure:"location-cache-time" toml:"location-cache-time"` // ticks
	AsyncRefresh      bool `mapstructure:"async-refresh" toml:"async-refresh"`
	ScanWorkers       int  `mapstructure:"scan-workers" toml:"scan-workers"`
}

// SchedulerConfig sets the cadence of each scheduler concern, counted in
// scheduler invocations (one invocation per Detection.CheckInterval ticks).
type SchedulerConfig struct {
	OfflineSweepEvery int     `mapstructure:"offline-sweep-every" toml:"offline-sweep-every"`
	CacheSweepEvery   int     `mapstructure:"cache-sweep-every" toml:"cache-sweep-every"`
	InfoEvery         int     `mapstructure:"info-every" toml:"info-every"`
	ParticleEvery     int     `mapstructure:"particle-every" toml:"particle-every"`
	ParticleRadius    int     `mapstructure:"particle-radius" toml:"particle-radius"`
	ParticleChance    float64 `mapstructure:"particle-chance" toml:"particle-chance"`
	ParticlesPerAgent int     `mapstructure:"particles-per-agent" toml:"particles-per-agent"`
}

type ServerConfig struct {
	Bind     string `mapstructure:"bind" toml:"bind"`
	Port     int    `mapstructure:"port" toml:"port"`
	AdminKey string `mapstructure:"admin-key" toml:"admin-key"`
}

type DatabaseConfig struct {
	Path          string `mapstructure:"path" toml:"path"`
	FlushInterval int    `mapstructure:"flush-interval" toml:"flush-interval"` // ticks
}

type SimulationConfig struct {
	Seed             int64    `mapstructure:"seed" toml:"seed"`
	Worlds           []string `mapstructure:"worlds" toml:"worlds"`
	Farmhands        int      `mapstructure:"farmhands" toml:"farmhands"`
	FieldRadius      int      `mapstructure:"field-radius" toml:"field-radius"`
	ActionChance     float64  `mapstructure:"action-chance" toml:"action-chance"`
	DisconnectChance float64  `mapstructure:"disconnect-chance" toml:"disconnect-chance"`
}

// Default returns a Config with the stock values.
func Default() *Config {
	c := &Config{
		Detection: DetectionConfig{
			Radius:        10,
			CheckInterval: 20,
		},
		Boosts: BoostsConfig{
			MaxPlayers: 4,
			Levels: map[string]float64{
				"1": 1.0,
				"2": 1.25,
				"3": 1.5,
				"4": 1.75,
			},
		},
		Enable: EnableConfig{
			Crops:      true,
			Saplings:   true,
			Bamboo:     true,
			TallPlants: true,
		},
		Effects: EffectsConfig{
			Particles: ParticlesConfig{
				Enabled: true,
				Type:    "HAPPY_VILLAGER",
				Amount:  3,
			},
			ActionBar: ActionBarConfig{
				Enabled:        true,
				UpdateInterval: 40,
				Format:         "Growth boosted by %boost%% (%players% farmers nearby!)",
			},
			Sounds: SoundsConfig{
				Enabled:        true,
				EnterBoostArea: "ENTITY_EXPERIENCE_ORB_PICKUP",
				BoostChange:    "BLOCK_NOTE_BLOCK_CHIME",
				Volume:         0.5,
				Pitch:          1.2,
			},
		},
		Advanced: AdvancedConfig{
			FarmingDetectionRadius: 3,
			MinimumPresenceTime:    100,
			DisabledWorlds:         []string{},
			XPBonus: XPBonusConfig{
				Enabled:  true,
				PerLevel: 1,
			},
		},
		Performance: PerformanceConfig{
			MaxCropsPerTick:   50,
			LocationCacheTime: 20,
			ScanWorkers:       4,
		},
		Scheduler: SchedulerConfig{
			OfflineSweepEvery: 20,
			CacheSweepEvery:   300,
			InfoEvery:         1,
			ParticleEvery:     3,
			ParticleRadius:    5,
			ParticleChance:    0.1,
			ParticlesPerAgent: 10,
		},
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 8420,
		},
		Database: DatabaseConfig{
			Path:          "data/harvestboost.db",
			FlushInterval: 200,
		},
		Simulation: SimulationConfig{
			Seed:             42,
			Worlds:           []string{"world"},
			Farmhands:        6,
			FieldRadius:      24,
			ActionChance:     0.05,
			DisconnectChance: 0.0005,
		},
	}
	c.levels = parseLevels(c.Boosts.Levels)
	return c
}

// Normalize replaces malformed or out-of-range values with their defaults,
// logging a warning for each correction.
func (c *Config) Normalize() {
	def := Default()

	positive := func(name string, v *int, fallback int) {
		if *v <= 0 {
			slog.Warn("config value must be positive, using default", "key", name, "value", *v, "default", fallback)
			*v = fallback
		}
	}
	positive("detection.radius", &c.Detection.Radius, def.Detection.Radius)
	positive("detection.check-interval", &c.Detection.CheckInterval, def.Detection.CheckInterval)
	positive("boosts.max-players", &c.Boosts.MaxPlayers, def.Boosts.MaxPlayers)
	positive("advanced.farming-detection-radius", &c.Advanced.FarmingDetectionRadius, def.Advanced.FarmingDetectionRadius)
	positive("effects.actionbar.update-interval", &c.Effects.ActionBar.UpdateInterval, def.Effects.ActionBar.UpdateInterval)
	positive("performance.location-cache-time", &c.Performance.LocationCacheTime, def.Performance.LocationCacheTime)
	positive("performance.scan-workers", &c.Performance.ScanWorkers, def.Performance.ScanWorkers)
	positive("performance.max-crops-per-tick", &c.Performance.MaxCropsPerTick, def.Performance.MaxCropsPerTick)
	positive("scheduler.offline-sweep-every", &c.Scheduler.OfflineSweepEvery, def.Scheduler.OfflineSweepEvery)
	positive("scheduler.cache-sweep-every", &c.Scheduler.CacheSweepEvery, def.Scheduler.CacheSweepEvery)
	positive("scheduler.info-every", &c.Scheduler.InfoEvery, def.Scheduler.InfoEvery)
	positive("scheduler.particle-every", &c.Scheduler.ParticleEvery, def.Scheduler.ParticleEvery)
	positive("scheduler.particle-radius", &c.Scheduler.ParticleRadius, def.Scheduler.ParticleRadius)
	positive("scheduler.particles-per-agent", &c.Scheduler.ParticlesPerAgent, def.Scheduler.ParticlesPerAgent)
	positive("database.flush-interval", &c.Database.FlushInterval, def.Database.FlushInterval)
	positive("simulation.field-radius", &c.Simulation.FieldRadius, def.Simulation.FieldRadius)

	if c.Advanced.MinimumPresenceTime < 0 {
		slog.Warn("minimum presence time cannot be negative, using default",
			"value", c.Advanced.MinimumPresenceTime, "default", def.Advanced.MinimumPresenceTime)
		c.Advanced.MinimumPresenceTime = def.Advanced.MinimumPresenceTime
	}
	if c.Scheduler.ParticleChance < 0 || c.Scheduler.ParticleChance > 1 {
		slog.Warn("particle chance must be within [0, 1], using default",
			"value", c.Scheduler.ParticleChance, "default", def.Scheduler.ParticleChance)
		c.Scheduler.ParticleChance = def.Scheduler.ParticleChance
	}
	if c.Simulation.Farmhands < 0 {
		slog.Warn("farmhand count cannot be negative, using none", "value", c.Simulation.Farmhands)
		c.Simulation.Farmhands = 0
	}
	if len(c.Simulation.Worlds) == 0 {
		slog.Warn("no simulated worlds configured, using default", "default", def.Simulation.Worlds)
		c.Simulation.Worlds = def.Simulation.Worlds
	}
	if c.Advanced.DisabledWorlds == nil {
		c.Advanced.DisabledWorlds = []string{}
	}

	c.levels = parseLevels(c.Boosts.Levels)
	for level, m := range c.levels {
		if m < 1.0 {
			slog.Warn("boost multiplier below 1.0, clamping", "level", level, "value", m)
			c.levels[level] = 1.0
		}
	}
	if !c.monotonic() {
		slog.Warn("boost table is not monotonically non-decreasing; feedback still follows farmer counts")
	}
	slog.Info("loaded boost levels", "count", len(c.levels), "max_players", c.Boosts.MaxPlayers)
}

func parseLevels(raw map[string]float64) map[int]float64 {
	levels := make(map[int]float64, len(raw))
	for k, v := range raw {
		n, err := strconv.Atoi(k)
		if err != nil || n < 0 {
			slog.Warn("ignoring boost level with non-numeric key", "key", k)
			continue
		}
		levels[n] = v
	}
	return levels
}

func (c *Config) monotonic() bool {
	prev := 1.0
	for i := 0; i <= c.Boosts.MaxPlayers; i++ {
		m, ok := c.levels[i]
		if !ok {
			m = 1.0
		}
		if m < prev {
			return false
		}
		prev = m
	}
	return true
}

// LevelTable returns the parsed farmer-count → multiplier table. Callers
// must not modify it.
func (c *Config) LevelTable() map[int]float64 {
	if c.levels == nil {
		return parseLevels(c.Boosts.Levels)
	}
	return c.levels
}

// Levels returns the configured level numbers in ascending order.
func (c *Config) Levels() []int {
	table := c.LevelTable()
	out := make([]int, 0, len(table))
	for l := range table {
		out = append(out, l)
	}
	sort.Ints(out)
	return out
}

// WorldDisabled reports whether boosts are switched off in the named world.
func (c *Config) WorldDisabled(world string) bool {
	return slices.Contains(c.Advanced.DisabledWorlds, world)
}

// Ticks converts a tick count to wall-clock time.
func Ticks(n int) time.Duration {
	return time.Duration(n) * TickDuration
}

func (c *Config) MinimumPresence() time.Duration { return Ticks(c.Advanced.MinimumPresenceTime) }
func (c *Config) CacheTTL() time.Duration        { return Ticks(c.Performance.LocationCacheTime) }
func (c *Config) InfoInterval() time.Duration    { return Ticks(c.Effects.ActionBar.UpdateInterval) }

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// Live holds the active configuration. Readers always see a complete
// snapshot; Store swaps in a new one on reload.
type Live struct {
	p atomic.Pointer[Config]
}

// NewLive wraps cfg for shared, reloadable access.
func NewLive(cfg *Config) *Live {
	l := &Live{}
	l.p.Store(cfg)
	return l
}

// Load returns the current snapshot. Callers must not mutate it.
func (l *Live) Load() *Config {
	return l.p.Load()
}

// Store replaces the current snapshot.
func (l *Live) Store(cfg *Config) {
	l.p.Store(cfg)
}
