// Package world provides the voxel host world: positions, the block grid,
// the online-agent roster, and procedural farmland generation.
package world

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// AgentID is the stable identity of an agent. Display names may change;
// the ID never does.
type AgentID = uuid.UUID

// Location is a continuous position inside a named world.
type Location struct {
	World string  `json:"world"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

// BlockPos is an integer block coordinate.
type BlockPos struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// AreaKey identifies a block within a world. Two locations share a key iff
// their floored block coordinates and world match.
type AreaKey struct {
	World string
	X     int
	Y     int
	Z     int
}

// At is shorthand for building a Location.
func At(world string, x, y, z float64) Location {
	return Location{World: world, X: x, Y: y, Z: z}
}

// Block returns the block containing the location.
func (l Location) Block() BlockPos {
	return BlockPos{
		X: int(math.Floor(l.X)),
		Y: int(math.Floor(l.Y)),
		Z: int(math.Floor(l.Z)),
	}
}

// Key derives the cache key for the location. Pure and total.
func (l Location) Key() AreaKey {
	b := l.Block()
	return AreaKey{World: l.World, X: b.X, Y: b.Y, Z: b.Z}
}

// Distance returns the Euclidean distance between two locations, or +Inf
// when they are in different worlds.
func (l Location) Distance(o Location) float64 {
	if l.World != o.World {
		return math.Inf(1)
	}
	dx := l.X - o.X
	dy := l.Y - o.Y
	dz := l.Z - o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Within reports whether o is in the same world and no farther than radius.
func (l Location) Within(o Location, radius float64) bool {
	return l.Distance(o) <= radius
}

// Add offsets the location.
func (l Location) Add(dx, dy, dz float64) Location {
	return Location{World: l.World, X: l.X + dx, Y: l.Y + dy, Z: l.Z + dz}
}

func (l Location) String() string {
	return fmt.Sprintf("%s(%.1f, %.1f, %.1f)", l.World, l.X, l.Y, l.Z)
}

// Add offsets the block position.
func (p BlockPos) Add(dx, dy, dz int) BlockPos {
	return BlockPos{X: p.X + dx, Y: p.Y + dy, Z: p.Z + dz}
}

// Corner returns the location of the block's minimum corner.
func (p BlockPos) Corner(world string) Location {
	return Location{World: world, X: float64(p.X), Y: float64(p.Y), Z: float64(p.Z)}
}

// Center returns the location at the middle of the block.
func (p BlockPos) Center(world string) Location {
	return p.Corner(world).Add(0.5, 0.5, 0.5)
}

func (k AreaKey) String() string {
	return fmt.Sprintf("%s:%d:%d:%d", k.World, k.X, k.Y, k.Z)
}

// Agent is a snapshot of an online agent.
type Agent struct {
	ID       AgentID  `json:"id"`
	Name     string   `json:"name"`
	Location Location `json:"location"`
}
