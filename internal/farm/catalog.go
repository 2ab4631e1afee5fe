// Package farm classifies materials into the farming categories the boost
// engine cares about. Category membership is gated by configuration; the
// activity tests (farming blocks, items, tools) are not.
package farm

import (
	"strings"

	"github.com/talgya/harvest-boost/internal/config"
	"github.com/talgya/harvest-boost/internal/world"
)

// Category groups farmable materials so each group can be switched off.
type Category uint8

const (
	CategoryNone Category = iota
	CategoryCrop
	CategorySapling
	CategoryBamboo
	CategoryTallPlant
)

func (c Category) String() string {
	switch c {
	case CategoryCrop:
		return "crops"
	case CategorySapling:
		return "saplings"
	case CategoryBamboo:
		return "bamboo"
	case CategoryTallPlant:
		return "tall-plants"
	default:
		return "none"
	}
}

// GrowthForm describes how a plant advances when it grows.
type GrowthForm uint8

const (
	FormNone      GrowthForm = iota
	FormAgeable              // advances through age stages in place
	FormHeight               // grows upward one block at a time
	FormStructure            // turns into a structure (trees)
)

// Catalog answers category questions for one configuration snapshot.
type Catalog struct {
	enabled config.EnableConfig
}

// NewCatalog builds a catalog from the enable switches.
func NewCatalog(enabled config.EnableConfig) Catalog {
	return Catalog{enabled: enabled}
}

// Enabled reports whether a category is switched on.
func (c Catalog) Enabled(cat Category) bool {
	switch cat {
	case CategoryCrop:
		return c.enabled.Crops
	case CategorySapling:
		return c.enabled.Saplings
	case CategoryBamboo:
		return c.enabled.Bamboo
	case CategoryTallPlant:
		return c.enabled.TallPlants
	default:
		return false
	}
}

// IsFarmableBlock reports whether a block counts as farmable terrain for the
// neighbor scan. Farmland counts with crops.
func (c Catalog) IsFarmableBlock(m world.Material) bool {
	if m == world.Farmland {
		return c.enabled.Crops
	}
	return c.Enabled(CategoryOf(m))
}

// IsBoostable reports whether growth of this block type is boosted.
func (c Catalog) IsBoostable(m world.Material) bool {
	return c.Enabled(CategoryOf(m))
}

// CategoryOf returns the category of a plant block, regardless of whether
// that category is enabled.
func CategoryOf(m world.Material) Category {
	name := string(m)
	switch {
	case isCrop(m):
		return CategoryCrop
	case m == world.Bamboo || m == world.BambooSapling:
		return CategoryBamboo
	case strings.Contains(name, "SAPLING") || strings.Contains(name, "MUSHROOM"):
		return CategorySapling
	case m == world.SugarCane || m == world.Cactus ||
		strings.Contains(name, "KELP") || strings.Contains(name, "SEAGRASS"):
		return CategoryTallPlant
	default:
		return CategoryNone
	}
}

func isCrop(m world.Material) bool {
	name := string(m)
	switch m {
	case world.SweetBerryBush, world.Cocoa, world.NetherWart:
		return true
	}
	for _, part := range []string{"WHEAT", "CARROTS", "POTATOES", "BEETROOT", "MELON", "PUMPKIN"} {
		if strings.Contains(name, part) {
			return true
		}
	}
	return false
}

// FormOf returns how a block grows.
func FormOf(m world.Material) GrowthForm {
	switch m {
	case world.Wheat, world.Carrots, world.Potatoes, world.Beetroots,
		world.SweetBerryBush, world.Cocoa, world.NetherWart,
		world.MelonStem, world.PumpkinStem:
		return FormAgeable
	case world.Bamboo, world.SugarCane, world.Cactus:
		return FormHeight
	}
	if CategoryOf(m) == CategorySapling {
		return FormStructure
	}
	return FormNone
}

// MaxHeight returns the tallest a height-based plant may grow, or 0.
func MaxHeight(m world.Material) int {
	switch m {
	case world.SugarCane, world.Cactus:
		return 3
	case world.Bamboo:
		return 12
	default:
		return 0
	}
}

// IsFarmingBlock reports whether acting on this block is farming activity.
func IsFarmingBlock(m world.Material) bool {
	if m == world.Farmland || m == world.Composter {
		return true
	}
	switch CategoryOf(m) {
	case CategoryCrop, CategorySapling:
		return true
	case CategoryBamboo:
		return m == world.Bamboo
	case CategoryTallPlant:
		return m == world.SugarCane || m == world.Cactus || strings.Contains(string(m), "KELP")
	}
	return false
}

// IsFarmableItem reports whether picking up this item is farming activity.
func IsFarmableItem(m world.Material) bool {
	name := string(m)
	for _, part := range []string{"SEEDS", "WHEAT", "CARROT", "POTATO", "BEETROOT", "PUMPKIN", "SAPLING", "MUSHROOM"} {
		if strings.Contains(name, part) {
			return true
		}
	}
	switch m {
	case world.MelonSlice, world.SweetBerries, world.CocoaBeans, world.NetherWart,
		world.SugarCane, world.Cactus, world.Bamboo, world.Kelp:
		return true
	}
	return false
}

// IsFarmingTool reports whether an item tills or tends crops.
func IsFarmingTool(m world.Material) bool {
	name := string(m)
	return strings.Contains(name, "HOE") || strings.Contains(name, "SEEDS") ||
		m == world.BoneMeal || m == world.WaterBucket || m == world.Shears
}
