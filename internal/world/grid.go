package world

import (
	"fmt"
	"sort"
	"sync"
)

// Grid holds the blocks of one named world. Unset positions are air.
// Safe for concurrent use: the tick loop writes while scans and the API read.
type Grid struct {
	Name   string
	Ground int // Y of the first block above the surface

	mu     sync.RWMutex
	blocks map[BlockPos]Material
}

// NewGrid creates an empty world with the given surface height.
func NewGrid(name string, ground int) *Grid {
	return &Grid{
		Name:   name,
		Ground: ground,
		blocks: make(map[BlockPos]Material),
	}
}

// Get returns the block at p.
func (g *Grid) Get(p BlockPos) Material {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if m, ok := g.blocks[p]; ok {
		return m
	}
	return Air
}

// Set places a block at p. Setting air clears the position.
func (g *Grid) Set(p BlockPos, m Material) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if m == Air {
		delete(g.blocks, p)
		return
	}
	g.blocks[p] = m
}

// Find returns every position whose block satisfies match, in a stable order.
func (g *Grid) Find(match func(Material) bool) []BlockPos {
	g.mu.RLock()
	var out []BlockPos
	for p, m := range g.blocks {
		if match(m) {
			out = append(out, p)
		}
	}
	g.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
	return out
}

// BlockCount returns the number of non-air blocks.
func (g *Grid) BlockCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.blocks)
}

// MaterialCounts returns a summary of block type distribution.
func (g *Grid) MaterialCounts() map[Material]int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	counts := make(map[Material]int)
	for _, m := range g.blocks {
		counts[m]++
	}
	return counts
}

func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%s, blocks=%d)", g.Name, g.BlockCount())
}
