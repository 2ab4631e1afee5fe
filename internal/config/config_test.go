package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Default()
	assert.Equal(t, 10, c.Detection.Radius)
	assert.Equal(t, 20, c.Detection.CheckInterval)
	assert.Equal(t, 4, c.Boosts.MaxPlayers)
	assert.Equal(t, []int{1, 2, 3, 4}, c.Levels())
	assert.Equal(t, 1.75, c.LevelTable()[4])
	assert.Equal(t, Ticks(100), c.MinimumPresence())
	assert.Equal(t, Ticks(20), c.CacheTTL())
	assert.Equal(t, "127.0.0.1:8420", c.ListenAddr())
}

func TestNormalizeCorrections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		check  func(*testing.T, *Config)
	}{
		{"zero radius", func(c *Config) { c.Detection.Radius = 0 }, func(t *testing.T, c *Config) {
			assert.Equal(t, 10, c.Detection.Radius)
		}},
		{"negative check interval", func(c *Config) { c.Detection.CheckInterval = -5 }, func(t *testing.T, c *Config) {
			assert.Equal(t, 20, c.Detection.CheckInterval)
		}},
		{"negative presence", func(c *Config) { c.Advanced.MinimumPresenceTime = -1 }, func(t *testing.T, c *Config) {
			assert.Equal(t, 100, c.Advanced.MinimumPresenceTime)
		}},
		{"zero presence allowed", func(c *Config) { c.Advanced.MinimumPresenceTime = 0 }, func(t *testing.T, c *Config) {
			assert.Zero(t, c.MinimumPresence())
		}},
		{"particle chance out of range", func(c *Config) { c.Scheduler.ParticleChance = 1.5 }, func(t *testing.T, c *Config) {
			assert.Equal(t, 0.1, c.Scheduler.ParticleChance)
		}},
		{"multiplier below one", func(c *Config) { c.Boosts.Levels["2"] = 0.5 }, func(t *testing.T, c *Config) {
			assert.Equal(t, 1.0, c.LevelTable()[2])
		}},
		{"non-numeric level", func(c *Config) { c.Boosts.Levels["many"] = 3 }, func(t *testing.T, c *Config) {
			assert.Equal(t, []int{1, 2, 3, 4}, c.Levels())
		}},
		{"nil disabled worlds", func(c *Config) { c.Advanced.DisabledWorlds = nil }, func(t *testing.T, c *Config) {
			assert.NotNil(t, c.Advanced.DisabledWorlds)
			assert.False(t, c.WorldDisabled("world"))
		}},
		{"no simulated worlds", func(c *Config) { c.Simulation.Worlds = nil }, func(t *testing.T, c *Config) {
			assert.Equal(t, []string{"world"}, c.Simulation.Worlds)
		}},
		{"negative farmhands", func(c *Config) { c.Simulation.Farmhands = -3 }, func(t *testing.T, c *Config) {
			assert.Zero(t, c.Simulation.Farmhands)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			c.Normalize()
			tt.check(t, c)
		})
	}
}

func TestLevelTableWithoutNormalize(t *testing.T) {
	c := &Config{Boosts: BoostsConfig{MaxPlayers: 2, Levels: map[string]float64{"2": 1.5}}}
	assert.Equal(t, map[int]float64{2: 1.5}, c.LevelTable())
	assert.Equal(t, []int{2}, c.Levels())
}

func TestWorldDisabled(t *testing.T) {
	c := Default()
	c.Advanced.DisabledWorlds = []string{"world_nether"}
	assert.True(t, c.WorldDisabled("world_nether"))
	assert.False(t, c.WorldDisabled("world"))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boost.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[detection]
radius = 16

[boosts]
max-players = 6

[boosts.levels]
5 = 2.0
6 = 2.5

[advanced]
disabled-worlds = ["world_the_end"]
minimum-presence-time = 40
`), 0o644))

	c, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, 16, c.Detection.Radius)
	assert.Equal(t, 20, c.Detection.CheckInterval, "unset keys keep defaults")
	assert.Equal(t, 6, c.Boosts.MaxPlayers)
	assert.Equal(t, 2.5, c.LevelTable()[6])
	assert.Equal(t, []int{5, 6}, c.Levels(), "file table replaces the stock levels")
	assert.True(t, c.WorldDisabled("world_the_end"))
	assert.Equal(t, Ticks(40), c.MinimumPresence())
}

func TestLoadLevelTableOmitsLevels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boost.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[boosts]
max-players = 4

[boosts.levels]
2 = 1.1
`), 0o644))

	c, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, map[int]float64{2: 1.1}, c.LevelTable(), "unlisted levels fall back to 1.0 in the curve")
}

func TestLoadWithoutLevelTableKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boost.toml")
	require.NoError(t, os.WriteFile(path, []byte("[detection]\nradius = 12\n"), 0o644))

	c, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, Default().LevelTable(), c.LevelTable())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("HARVESTBOOST_ADMIN_KEY", "hunter2")
	t.Setenv("HARVESTBOOST_PORT", "9000")
	path := filepath.Join(t.TempDir(), "boost.toml")
	require.NoError(t, WriteDefault(path, false))

	c, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", c.Server.AdminKey)
	assert.Equal(t, 9000, c.Server.Port)
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "harvestboost.toml")
	require.NoError(t, WriteDefault(path, false))
	assert.Error(t, WriteDefault(path, false), "existing file is kept")
	require.NoError(t, WriteDefault(path, true))

	c, err := Load(viper.New(), path)
	require.NoError(t, err)
	def := Default()
	assert.Equal(t, def.Detection, c.Detection)
	assert.Equal(t, def.Effects, c.Effects)
	assert.Equal(t, def.LevelTable(), c.LevelTable())
	assert.Equal(t, def.Simulation, c.Simulation)
}

func TestLive(t *testing.T) {
	a, b := Default(), Default()
	b.Boosts.MaxPlayers = 8
	l := NewLive(a)
	assert.Same(t, a, l.Load())
	l.Store(b)
	assert.Equal(t, 8, l.Load().Boosts.MaxPlayers)
}
