package boost

import (
	"math"

	"github.com/talgya/harvest-boost/internal/config"
)

// Curve maps a qualifying farmer count to a growth multiplier.
type Curve struct {
	maxLevel int
	table    map[int]float64
}

// NewCurve builds a curve from a level table. Counts above maxLevel are
// treated as maxLevel.
func NewCurve(maxLevel int, table map[int]float64) Curve {
	return Curve{maxLevel: maxLevel, table: table}
}

// CurveFor builds the curve described by a configuration snapshot.
func CurveFor(cfg *config.Config) Curve {
	return NewCurve(cfg.Boosts.MaxPlayers, cfg.LevelTable())
}

// MaxLevel returns the count at which the curve saturates.
func (c Curve) MaxLevel() int { return c.maxLevel }

// Clamp limits a count to [0, MaxLevel].
func (c Curve) Clamp(count int) int {
	return max(0, min(count, c.maxLevel))
}

// MultiplierFor returns the multiplier for count. Unconfigured levels and
// anything below 1.0 yield 1.0.
func (c Curve) MultiplierFor(count int) float64 {
	m, ok := c.table[c.Clamp(count)]
	if !ok || m < 1.0 {
		return 1.0
	}
	return m
}

// PercentageFor returns the bonus for count as a whole percentage.
func (c Curve) PercentageFor(count int) int {
	return Percentage(c.MultiplierFor(count))
}

// Percentage converts a multiplier to its rounded bonus percentage.
func Percentage(multiplier float64) int {
	return int(math.Round((multiplier - 1.0) * 100))
}
