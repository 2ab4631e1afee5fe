// Package sim runs farmhand agents on generated farmland so the boost engine
// has something to measure: they walk their fields, till, plant and harvest,
// and drop off and back on line now and then.
package sim

import (
	"math/rand"

	"github.com/google/uuid"

	"github.com/talgya/harvest-boost/internal/world"
)

// Role steers which farming job a farmhand prefers.
type Role uint8

const (
	RoleTiller Role = iota
	RolePlanter
	RoleHarvester
	RoleForager
)

func (r Role) String() string {
	switch r {
	case RoleTiller:
		return "tiller"
	case RolePlanter:
		return "planter"
	case RoleHarvester:
		return "harvester"
	default:
		return "forager"
	}
}

// Farmhand is a simulated agent and the patch of land it works.
type Farmhand struct {
	ID     world.AgentID
	Name   string
	Role   Role
	Home   world.Location // centre of the patch it wanders
	Online bool

	pos world.Location
}

// Agent returns the host-facing snapshot of the farmhand.
func (f *Farmhand) Agent() world.Agent {
	return world.Agent{ID: f.ID, Name: f.Name, Location: f.pos}
}

// Location returns where the farmhand currently stands.
func (f *Farmhand) Location() world.Location { return f.pos }

// Spawner creates farmhands deterministically from a seed.
type Spawner struct {
	rng *rand.Rand
}

// NewSpawner creates a farmhand spawner with the given seed.
func NewSpawner(seed int64) *Spawner {
	return &Spawner{rng: rand.New(rand.NewSource(seed + 300))}
}

// Spawn creates n farmhands around the middle of a world. Homes cluster
// within a third of the field radius so crews overlap.
func (s *Spawner) Spawn(n int, worldName string, ground, fieldRadius int) []*Farmhand {
	spread := max(fieldRadius/3, 1)
	hands := make([]*Farmhand, 0, n)
	for i := 0; i < n; i++ {
		home := world.At(worldName,
			float64(s.rng.Intn(2*spread+1)-spread)+0.5,
			float64(ground),
			float64(s.rng.Intn(2*spread+1)-spread)+0.5,
		)
		id, err := uuid.NewRandomFromReader(s.rng)
		if err != nil {
			id = uuid.New()
		}
		hands = append(hands, &Farmhand{
			ID:     id,
			Name:   s.name(),
			Role:   Role(i % 4),
			Home:   home,
			Online: true,
			pos:    home,
		})
	}
	return hands
}

var (
	firstNames = []string{
		"Alder", "Bram", "Cora", "Dell", "Edda", "Fenn", "Greta", "Hale",
		"Ines", "Jory", "Kestra", "Linus", "Marla", "Nils", "Orla", "Pell",
		"Quill", "Rhea", "Sable", "Tam", "Ulla", "Vance", "Wren", "Yara",
	}
	lastNames = []string{
		"Barley", "Thatch", "Furrow", "Millstone", "Hedge", "Oakes",
		"Reed", "Sowerby", "Tiller", "Wheatley", "Brook", "Marsh",
	}
)

func (s *Spawner) name() string {
	return firstNames[s.rng.Intn(len(firstNames))] + " " + lastNames[s.rng.Intn(len(lastNames))]
}
