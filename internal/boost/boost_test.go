package boost

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/harvest-boost/internal/clock"
	"github.com/talgya/harvest-boost/internal/config"
	"github.com/talgya/harvest-boost/internal/world"
)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func tick(clk *clock.Manual, n int) {
	clk.Advance(config.Ticks(n))
}

// fixture is a single-world host with one farmland block under the origin.
type fixture struct {
	clk     *clock.Manual
	live    *config.Live
	host    *world.Host
	service *Service
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	cfg.Normalize()

	grid := world.NewGrid("world", 63)
	grid.Set(world.BlockPos{X: 0, Y: 63, Z: 0}, world.Farmland)
	host := world.NewHost(grid, world.NewGrid("nether", 63))

	clk := clock.NewManual(epoch)
	live := config.NewLive(cfg)
	svc := NewService(host, live, clk)
	t.Cleanup(svc.Close)
	return &fixture{clk: clk, live: live, host: host, service: svc}
}

func (f *fixture) join(name string, loc world.Location) world.Agent {
	a := world.Agent{ID: uuid.New(), Name: name, Location: loc}
	f.host.Join(a)
	return a
}

// farmer joins an agent and reports farming activity where it stands.
func (f *fixture) farmer(name string, loc world.Location) world.Agent {
	a := f.join(name, loc)
	f.service.Tracker.RecordActivity(a.ID, loc)
	return a
}

type countingCounter struct {
	inner NeighborCounter
	calls atomic.Int32
}

func (c *countingCounter) CountQualifying(ctx context.Context, loc world.Location) (int, error) {
	c.calls.Add(1)
	return c.inner.CountQualifying(ctx, loc)
}

// stubCounter returns a fixed count, optionally blocking until released.
type stubCounter struct {
	mu    sync.Mutex
	count int
	err   error
	gate  chan struct{}
	calls atomic.Int32
}

func (s *stubCounter) set(count int, err error, gate chan struct{}) {
	s.mu.Lock()
	s.count, s.err, s.gate = count, err, gate
	s.mu.Unlock()
}

func (s *stubCounter) CountQualifying(context.Context, world.Location) (int, error) {
	s.calls.Add(1)
	s.mu.Lock()
	count, err, gate := s.count, s.err, s.gate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return count, err
}

func TestCurve(t *testing.T) {
	curve := CurveFor(config.Default())
	tests := []struct {
		count int
		want  float64
	}{
		{0, 1.0},
		{1, 1.0},
		{2, 1.25},
		{3, 1.5},
		{4, 1.75},
		{9, 1.75},
		{-3, 1.0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, curve.MultiplierFor(tt.count), "count %d", tt.count)
	}
	assert.Equal(t, 50, curve.PercentageFor(3))
	assert.Equal(t, 75, curve.PercentageFor(100))
}

func TestCurveIsMonotoneForMonotoneTable(t *testing.T) {
	curve := CurveFor(config.Default())
	prev := curve.MultiplierFor(0)
	for n := 1; n <= 20; n++ {
		m := curve.MultiplierFor(n)
		assert.GreaterOrEqual(t, m, prev)
		assert.GreaterOrEqual(t, m, 1.0)
		prev = m
	}
}

func TestCurveFloorsAtOne(t *testing.T) {
	curve := NewCurve(3, map[int]float64{1: 1.0, 2: 0.5})
	assert.Equal(t, 1.0, curve.MultiplierFor(2))
	assert.Equal(t, 1.0, curve.MultiplierFor(3))
	assert.Equal(t, 0, curve.PercentageFor(2))
}

func TestPresenceQualifiesAfterDwell(t *testing.T) {
	f := newFixture(t, nil)
	loc := world.At("world", 0.5, 64, 0.5)
	a := f.farmer("alice", loc)
	tracker := f.service.Tracker

	tick(f.clk, 99)
	assert.False(t, tracker.IsQualified(a.ID, loc))
	tick(f.clk, 1)
	assert.True(t, tracker.IsQualified(a.ID, loc))
	assert.Equal(t, config.Ticks(100), tracker.TimeInArea(a.ID))

	// Too far from the agent's farming spot.
	assert.False(t, tracker.IsQualified(a.ID, world.At("world", 10, 64, 10)))
	assert.False(t, tracker.IsQualified(uuid.New(), loc))
}

func TestPresenceAreaChangeResetsDwell(t *testing.T) {
	f := newFixture(t, nil)
	tracker := f.service.Tracker
	id := uuid.New()
	start := world.At("world", 0, 64, 0)

	tracker.RecordActivity(id, start)
	tick(f.clk, 40)
	tracker.RecordActivity(id, start.Add(2, 0, 0))
	p, ok := tracker.Lookup(id)
	require.True(t, ok)
	assert.Equal(t, epoch, p.EnteredAt, "moving within the area keeps the entry time")
	assert.Equal(t, start, p.Anchor)
	assert.Equal(t, start.Add(2, 0, 0), p.Latest)

	tick(f.clk, 40)
	tracker.RecordActivity(id, start.Add(5, 0, 0))
	p, _ = tracker.Lookup(id)
	assert.Equal(t, epoch.Add(config.Ticks(80)), p.EnteredAt)
	assert.Equal(t, start.Add(5, 0, 0), p.Anchor)
}

func TestPresenceAnchorDoesNotDrift(t *testing.T) {
	f := newFixture(t, nil)
	tracker := f.service.Tracker
	id := uuid.New()

	// Small steps each inside the radius of the previous one eventually
	// leave the original area.
	for x := 0; x <= 4; x++ {
		tracker.RecordActivity(id, world.At("world", float64(x), 64, 0))
		tick(f.clk, 10)
	}
	p, _ := tracker.Lookup(id)
	assert.Equal(t, epoch.Add(config.Ticks(40)), p.EnteredAt)
}

func TestPresenceRecordIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	tracker := f.service.Tracker
	id := uuid.New()
	loc := world.At("world", 3, 64, 3)

	tracker.RecordActivity(id, loc)
	first, _ := tracker.Lookup(id)
	tick(f.clk, 5)
	tracker.RecordActivity(id, loc)
	second, _ := tracker.Lookup(id)
	assert.Equal(t, first, second)
}

func TestPresenceWorldChangeIsNewArea(t *testing.T) {
	f := newFixture(t, nil)
	tracker := f.service.Tracker
	id := uuid.New()

	tracker.RecordActivity(id, world.At("world", 0, 64, 0))
	tick(f.clk, 200)
	tracker.RecordActivity(id, world.At("nether", 0, 64, 0))
	assert.Equal(t, time.Duration(0), tracker.TimeInArea(id))
}

func TestPresenceStaleWorldDroppedOnQuery(t *testing.T) {
	f := newFixture(t, nil)
	tracker := f.service.Tracker
	id := uuid.New()

	tracker.RecordActivity(id, world.At("world", 0, 64, 0))
	tick(f.clk, 200)
	assert.False(t, tracker.IsQualified(id, world.At("nether", 0, 64, 0)))
	_, ok := tracker.Lookup(id)
	assert.False(t, ok)
}

func TestPresenceSweepStale(t *testing.T) {
	f := newFixture(t, nil)
	online := f.farmer("alice", world.At("world", 0, 64, 0))
	offline := uuid.New()
	f.service.Tracker.RecordActivity(offline, world.At("world", 1, 64, 0))
	require.Equal(t, 2, f.service.Tracker.Len())

	removed := f.service.Tracker.SweepStale(f.host.Online)
	assert.Equal(t, 1, removed)
	_, ok := f.service.Tracker.Lookup(online.ID)
	assert.True(t, ok)
	_, ok = f.service.Tracker.Lookup(offline)
	assert.False(t, ok)
}

func TestScanRequiresFarmlandDistanceAndDwell(t *testing.T) {
	f := newFixture(t, nil)
	target := world.At("world", 0.5, 64, 0.5)

	f.farmer("near", world.At("world", 1.5, 64, 0.5))
	f.farmer("far", world.At("world", 30, 64, 30))
	f.join("idle", world.At("world", 0.5, 64, 1.5))
	tick(f.clk, 100)
	f.farmer("newcomer", world.At("world", 0.5, 64, 2.5))

	n, err := f.service.Scan.CountQualifying(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestScanIgnoresAgentsAwayFromFarmland(t *testing.T) {
	f := newFixture(t, nil)
	// Within detection radius of the target but more than the farming
	// radius from the only farmland block.
	loc := world.At("world", 7.5, 64, 0.5)
	f.farmer("alice", loc)
	tick(f.clk, 100)

	n, err := f.service.Scan.CountQualifying(context.Background(), loc)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestScanDisabledWorld(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Advanced.DisabledWorlds = []string{"world"}
	})
	loc := world.At("world", 0.5, 64, 0.5)
	f.farmer("alice", loc)
	tick(f.clk, 100)

	assert.Equal(t, 1.0, f.service.Cache.MultiplierAt(context.Background(), loc))
	n, err := f.service.Scan.CountQualifying(context.Background(), loc)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

type panickyTerrain struct{}

func (panickyTerrain) BlockAt(string, world.BlockPos) (world.Material, error) {
	panic("chunk unloaded mid-read")
}

func TestScanRecoversProbePanic(t *testing.T) {
	f := newFixture(t, nil)
	loc := world.At("world", 0.5, 64, 0.5)
	f.farmer("alice", loc)
	tick(f.clk, 100)

	probe := NewFarmlandProbe(panickyTerrain{}, f.live)
	scan := NewProximityScan(f.host, f.service.Tracker, probe, f.live)
	_, err := scan.CountQualifying(context.Background(), loc)
	require.Error(t, err)

	cache := NewCache(scan, f.live, f.clk)
	defer cache.Close()
	assert.Equal(t, 1.0, cache.MultiplierAt(context.Background(), loc))
	assert.Equal(t, 0, cache.Len())
}

func TestProbeSampleRespectsLimit(t *testing.T) {
	f := newFixture(t, nil)
	grid, _ := f.host.Grid("world")
	for x := 0; x < 5; x++ {
		grid.Set(world.BlockPos{X: x, Y: 64, Z: 2}, world.Wheat)
	}
	always := func() float64 { return 0 }
	never := func() float64 { return 0.99 }
	loc := world.At("world", 0.5, 64, 0.5)

	picked, err := f.service.Probe.Sample(loc, 5, 0.1, 3, always)
	require.NoError(t, err)
	assert.Len(t, picked, 3)

	picked, err = f.service.Probe.Sample(loc, 5, 0.1, 3, never)
	require.NoError(t, err)
	assert.Empty(t, picked)
}

func TestCooperationScenario(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Advanced.MinimumPresenceTime = 100
		c.Performance.LocationCacheTime = 20
	})
	counter := &countingCounter{inner: f.service.Scan}
	cache := NewCache(counter, f.live, f.clk)
	defer cache.Close()
	ctx := context.Background()
	target := world.At("world", 0.5, 64, 0.5)

	f.farmer("a", world.At("world", 0.5, 64, 0.5))
	f.farmer("b", world.At("world", 1.5, 64, 0.5))
	f.farmer("c", world.At("world", 0.5, 64, 1.5))
	tick(f.clk, 50)
	f.farmer("d", world.At("world", 1.5, 64, 1.5))
	tick(f.clk, 50)

	e := cache.Lookup(ctx, target)
	assert.Equal(t, 3, e.Count)
	assert.Equal(t, 1.5, e.Multiplier)
	assert.Equal(t, 50, e.Percentage())

	tick(f.clk, 50)
	e = cache.Lookup(ctx, target)
	assert.Equal(t, 4, e.Count)
	assert.Equal(t, 1.75, e.Multiplier)
	require.Equal(t, int32(2), counter.calls.Load())

	tick(f.clk, 1)
	assert.Equal(t, 1.75, cache.MultiplierAt(ctx, target))
	assert.True(t, cache.HasBoost(ctx, target))
	assert.Equal(t, int32(2), counter.calls.Load(), "fresh entry must be served from cache")
}

func TestCacheTTLIsStrict(t *testing.T) {
	f := newFixture(t, nil)
	stub := &stubCounter{}
	stub.set(2, nil, nil)
	cache := NewCache(stub, f.live, f.clk)
	defer cache.Close()
	ctx := context.Background()
	loc := world.At("world", 4.2, 64, 4.7)

	assert.Equal(t, 1.25, cache.MultiplierAt(ctx, loc))
	// Same block, different position inside it.
	assert.Equal(t, 2, cache.QualifyingCountAt(ctx, world.At("world", 4.9, 64.5, 4.1)))

	tick(f.clk, 20)
	assert.Equal(t, 25, cache.PercentageAt(ctx, loc))
	assert.Equal(t, int32(1), stub.calls.Load())

	tick(f.clk, 1)
	stub.set(3, nil, nil)
	assert.Equal(t, 1.5, cache.MultiplierAt(ctx, loc))
	assert.Equal(t, int32(2), stub.calls.Load())
}

func TestCacheRawCountAboveMax(t *testing.T) {
	f := newFixture(t, nil)
	stub := &stubCounter{}
	stub.set(7, nil, nil)
	cache := NewCache(stub, f.live, f.clk)
	defer cache.Close()

	e := cache.Lookup(context.Background(), world.At("world", 0, 64, 0))
	assert.Equal(t, 7, e.Count)
	assert.Equal(t, 1.75, e.Multiplier)
}

func TestCacheFailureKeepsPreviousEntry(t *testing.T) {
	f := newFixture(t, nil)
	stub := &stubCounter{}
	stub.set(3, nil, nil)
	cache := NewCache(stub, f.live, f.clk)
	defer cache.Close()
	ctx := context.Background()
	loc := world.At("world", 0, 64, 0)

	first := cache.Lookup(ctx, loc)
	tick(f.clk, 21)
	stub.set(0, errors.New("roster unavailable"), nil)
	again := cache.Lookup(ctx, loc)
	assert.Equal(t, first, again)

	fresh := world.At("world", 50, 64, 50)
	assert.Equal(t, 1.0, cache.MultiplierAt(ctx, fresh))
	assert.Equal(t, 1, cache.Len(), "failed computation is not cached")
}

func TestCacheInvalidateAndSweep(t *testing.T) {
	f := newFixture(t, nil)
	stub := &stubCounter{}
	stub.set(2, nil, nil)
	cache := NewCache(stub, f.live, f.clk)
	defer cache.Close()
	ctx := context.Background()

	a := world.At("world", 0, 64, 0)
	b := world.At("world", 10, 64, 0)
	cache.Lookup(ctx, a)
	tick(f.clk, 15)
	cache.Lookup(ctx, b)
	require.Equal(t, 2, cache.Len())

	tick(f.clk, 10)
	assert.Equal(t, 1, cache.SweepExpired())
	assert.Equal(t, 1, cache.Len())

	cache.Invalidate(b)
	assert.Equal(t, 0, cache.Len())
	cache.Lookup(ctx, b)
	assert.Equal(t, int32(3), stub.calls.Load())

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
}

func TestCacheAsyncServesStaleWhileRefreshing(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Performance.AsyncRefresh = true
	})
	stub := &stubCounter{}
	stub.set(2, nil, nil)
	cache := NewCache(stub, f.live, f.clk)
	defer cache.Close()
	ctx := context.Background()
	loc := world.At("world", 0, 64, 0)

	assert.Equal(t, 1.25, cache.MultiplierAt(ctx, loc))

	gate := make(chan struct{})
	stub.set(3, nil, gate)
	tick(f.clk, 21)
	assert.Equal(t, 1.25, cache.MultiplierAt(ctx, loc), "stale value served")
	assert.Equal(t, 1.25, cache.MultiplierAt(ctx, loc), "still stale while refresh runs")

	close(gate)
	cache.wg.Wait()
	assert.Equal(t, int32(2), stub.calls.Load(), "one refresh per block")
	assert.Equal(t, 1.5, cache.MultiplierAt(ctx, loc))
}

func TestCacheClearDiscardsInflightRefresh(t *testing.T) {
	f := newFixture(t, func(c *config.Config) {
		c.Performance.AsyncRefresh = true
	})
	stub := &stubCounter{}
	stub.set(3, nil, nil)
	cache := NewCache(stub, f.live, f.clk)
	defer cache.Close()
	ctx := context.Background()
	loc := world.At("world", 0, 64, 0)

	assert.Equal(t, 1.5, cache.MultiplierAt(ctx, loc))

	gate := make(chan struct{})
	stub.set(3, nil, gate)
	tick(f.clk, 21)
	assert.Equal(t, 1.5, cache.MultiplierAt(ctx, loc), "stale value served")
	require.Eventually(t, func() bool { return stub.calls.Load() == 2 },
		time.Second, time.Millisecond, "refresh is counting under the old table")

	next := config.Default()
	next.Performance.AsyncRefresh = true
	next.Boosts.Levels["3"] = 3.0
	next.Boosts.Levels["4"] = 3.5
	next.Normalize()
	f.live.Store(next)
	cache.Clear()

	close(gate)
	cache.wg.Wait()
	assert.Equal(t, 0, cache.Len(), "result from before the clear is ignored")

	stub.set(3, nil, nil)
	assert.Equal(t, 3.0, cache.MultiplierAt(ctx, loc))
	assert.Equal(t, int32(3), stub.calls.Load())
	assert.Equal(t, 1, cache.Len())
}

func TestServiceReloadClearsCache(t *testing.T) {
	f := newFixture(t, nil)
	loc := world.At("world", 0.5, 64, 0.5)
	f.farmer("a", loc)
	f.farmer("b", world.At("world", 1.5, 64, 0.5))
	tick(f.clk, 100)

	ctx := context.Background()
	assert.Equal(t, 1.25, f.service.Cache.MultiplierAt(ctx, loc))

	next := config.Default()
	next.Boosts.Levels["2"] = 2.0
	next.Normalize()
	f.service.Reload(next)
	assert.Equal(t, 0, f.service.Cache.Len())
	assert.Equal(t, 2.0, f.service.Cache.MultiplierAt(ctx, loc))
}

func TestInspect(t *testing.T) {
	f := newFixture(t, nil)
	loc := world.At("world", 0.5, 64, 0.5)
	a := f.farmer("alice", loc)
	tick(f.clk, 100)

	st := f.service.Inspect(context.Background(), a)
	assert.True(t, st.Tracked)
	assert.True(t, st.Qualifies)
	assert.Equal(t, 1, st.Count)
	assert.Equal(t, "Area: 0,64,0 | Time: 5,000ms | Qualifies: true | Boost: 1x", st.String())

	stranger := f.join("bob", world.At("world", 5, 64, 5))
	assert.Equal(t, "Not in farming area", f.service.Inspect(context.Background(), stranger).String())
}
