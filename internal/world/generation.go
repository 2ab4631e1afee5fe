// Farmland generation using layered simplex noise.
// A fertility layer decides where fields are tilled, a moisture layer places
// water and the plants that need it, and a variety layer picks which crop a
// field grows.
package world

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds farmland generation parameters.
type GenConfig struct {
	Name       string
	Radius     int   // Half-width of the square area to generate
	Seed       int64 // Random seed (0 = random)
	Ground     int   // Surface height; plants sit at this Y
	FieldLevel float64
	WaterLevel float64
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Name:       "world",
		Radius:     24,
		Seed:       0,
		Ground:     64,
		FieldLevel: 0.55,
		WaterLevel: 0.22,
	}
}

// SmallTestConfig returns a tiny world for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Name:       "test",
		Radius:     6,
		Seed:       42,
		Ground:     64,
		FieldLevel: 0.5,
		WaterLevel: 0.2,
	}
}

var fieldCrops = [...]Material{Wheat, Carrots, Potatoes, Beetroots, MelonStem, PumpkinStem}

// GenerateFarmland creates a world with tilled fields, water channels, and
// scattered saplings, bamboo, and tall plants.
func GenerateFarmland(cfg GenConfig) *Grid {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	fertility := opensimplex.NewNormalized(seed)
	moisture := opensimplex.NewNormalized(seed + 1)
	variety := opensimplex.NewNormalized(seed + 2)
	rng := rand.New(rand.NewSource(seed + 3))

	g := NewGrid(cfg.Name, cfg.Ground)
	surface := cfg.Ground - 1

	for x := -cfg.Radius; x <= cfg.Radius; x++ {
		for z := -cfg.Radius; z <= cfg.Radius; z++ {
			fx, fz := float64(x), float64(z)
			fert := octaveNoise(fertility, fx, fz, 3, 0.07, 0.5)
			wet := octaveNoise(moisture, fx, fz, 2, 0.05, 0.5)
			kind := octaveNoise(variety, fx, fz, 1, 0.03, 0.5)

			ground := BlockPos{X: x, Y: surface, Z: z}
			plant := BlockPos{X: x, Y: cfg.Ground, Z: z}
			g.Set(ground.Add(0, -1, 0), Stone)

			switch {
			case wet < cfg.WaterLevel:
				g.Set(ground, Water)
				if rng.Float64() < 0.3 {
					g.Set(ground.Add(0, -1, 0), Sand)
					if rng.Float64() < 0.5 {
						g.Set(ground, Kelp)
					} else {
						g.Set(ground, Seagrass)
					}
				}
			case wet < cfg.WaterLevel+0.05:
				// Banks: sand with sugar cane beside the water.
				g.Set(ground, Sand)
				if rng.Float64() < 0.4 {
					growColumn(g, plant, SugarCane, 1+rng.Intn(2))
				}
			case fert > cfg.FieldLevel:
				g.Set(ground, Farmland)
				crop := fieldCrops[int(kind*float64(len(fieldCrops)))%len(fieldCrops)]
				if rng.Float64() < 0.85 {
					g.Set(plant, crop)
				}
			case wet > 0.8:
				g.Set(ground, GrassBlock)
				if rng.Float64() < 0.25 {
					growColumn(g, plant, Bamboo, 1+rng.Intn(4))
				}
			case wet < 0.35 && fert < 0.3:
				g.Set(ground, Sand)
				if rng.Float64() < 0.08 {
					growColumn(g, plant, Cactus, 1+rng.Intn(2))
				}
			default:
				g.Set(ground, GrassBlock)
				r := rng.Float64()
				switch {
				case r < 0.03:
					g.Set(plant, OakSapling)
				case r < 0.05:
					g.Set(plant, BirchSapling)
				case r < 0.06:
					g.Set(plant, SweetBerryBush)
				}
			}
		}
	}

	// One composter per world at the origin, next to the fields.
	g.Set(BlockPos{X: 0, Y: cfg.Ground, Z: 0}, Composter)

	return g
}

func growColumn(g *Grid, base BlockPos, m Material, height int) {
	for i := 0; i < height; i++ {
		g.Set(base.Add(0, i, 0), m)
	}
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return math.Max(0, math.Min(1, total/maxVal))
}
