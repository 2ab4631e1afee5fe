package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/harvest-boost/internal/config"
	"github.com/talgya/harvest-boost/internal/persistence"
)

type memStore struct {
	mu       sync.Mutex
	feedback int
	growth   int
}

func (s *memStore) AppendFeedback(r []persistence.FeedbackRecord) error {
	s.mu.Lock()
	s.feedback += len(r)
	s.mu.Unlock()
	return nil
}

func (s *memStore) AppendGrowth(r []persistence.GrowthRecord) error {
	s.mu.Lock()
	s.growth += len(r)
	s.mu.Unlock()
	return nil
}

func smallConfig() *config.Config {
	cfg := config.Default()
	cfg.Simulation.Seed = 7
	cfg.Simulation.Worlds = []string{"world", "nether"}
	cfg.Simulation.Farmhands = 5
	cfg.Simulation.FieldRadius = 8
	cfg.Simulation.DisconnectChance = 0
	cfg.Normalize()
	return cfg
}

func TestNewAppWiring(t *testing.T) {
	app := NewApp(smallConfig(), &memStore{})
	t.Cleanup(app.Close)

	assert.Equal(t, []string{"nether", "world"}, app.Host.Worlds())
	hands := app.Sim.Farmhands()
	require.Len(t, hands, 5)
	perWorld := map[string]int{}
	for _, f := range hands {
		perWorld[f.Home.World]++
	}
	assert.Equal(t, map[string]int{"world": 3, "nether": 2}, perWorld)
	assert.Len(t, app.Host.OnlineAgents(), 5)
	assert.Positive(t, app.Sim.PlantCount())

	app.Engine.RunTicks(200)
	assert.EqualValues(t, 10, app.Scheduler.Invocations())
	assert.Equal(t, 20, app.Sim.Stats().Steps)
	assert.Zero(t, app.Journal.Pending(), "journal flushes on the last tick")
}

func TestNewAppDeterministic(t *testing.T) {
	a := NewApp(smallConfig(), &memStore{})
	t.Cleanup(a.Close)
	b := NewApp(smallConfig(), &memStore{})
	t.Cleanup(b.Close)

	ha, hb := a.Sim.Farmhands(), b.Sim.Farmhands()
	for i := range ha {
		assert.Equal(t, ha[i].ID, hb[i].ID)
		assert.Equal(t, ha[i].Name, hb[i].Name)
	}
	assert.Equal(t, a.Sim.PlantCount(), b.Sim.PlantCount())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// Flag variables outlive a single Execute.
	cfgFile, logLevelFlag = "", "info"
	inspectJSON, configForce = false, false
	inspectTicks, inspectEvents = 2400, 10
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "harvestboost dev")
}

func TestBadLogLevel(t *testing.T) {
	_, err := execute(t, "version", "--log-level", "loud")
	assert.Error(t, err)
	_, err = execute(t, "version", "--log-level", "info")
	assert.NoError(t, err)
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harvestboost.toml")

	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = execute(t, "config", "init", path)
	assert.Error(t, err, "refuses to overwrite")
	_, err = execute(t, "config", "init", "--force", path)
	require.NoError(t, err)

	out, err = execute(t, "config", "show", "--config", path, "--log-level", "warn")
	require.NoError(t, err)
	assert.Contains(t, out, "check-interval = 20")
	assert.Contains(t, out, "farming-detection-radius = 3")
}

func TestInspectJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "harvestboost.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[simulation]
seed = 11
worlds = ["world"]
farmhands = 4
field-radius = 10
disconnect-chance = 0.0
action-chance = 0.5
`), 0o644))

	out, err := execute(t, "inspect", "--config", path, "--log-level", "warn", "--ticks", "400", "--json", "--events", "5")
	require.NoError(t, err)

	var r Report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.EqualValues(t, 400, r.Tick)
	assert.EqualValues(t, 20, r.Invocations)
	assert.EqualValues(t, 11, r.Seed)
	require.Len(t, r.Farmhands, 4)
	for _, f := range r.Farmhands {
		assert.True(t, f.Online)
		assert.GreaterOrEqual(t, f.Multiplier, 1.0)
		assert.NotEmpty(t, f.Status)
	}
	assert.Equal(t, 40, r.Stats.Steps)
	assert.Positive(t, r.Stats.Actions)
	assert.LessOrEqual(t, len(r.Events), 5)
}

func TestInspectText(t *testing.T) {
	out, err := execute(t, "inspect", "--log-level", "warn", "--ticks", "40")
	require.NoError(t, err)
	assert.Contains(t, out, "FARMHAND")
	assert.Contains(t, out, "scheduler runs")
	assert.Contains(t, out, "journal:")
}
