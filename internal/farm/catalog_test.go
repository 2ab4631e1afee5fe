package farm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talgya/harvest-boost/internal/config"
	"github.com/talgya/harvest-boost/internal/world"
)

func allEnabled() config.EnableConfig {
	return config.EnableConfig{Crops: true, Saplings: true, Bamboo: true, TallPlants: true}
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		material world.Material
		want     Category
	}{
		{world.Wheat, CategoryCrop},
		{world.PumpkinStem, CategoryCrop},
		{world.NetherWart, CategoryCrop},
		{world.OakSapling, CategorySapling},
		{world.RedMushroom, CategorySapling},
		{world.Bamboo, CategoryBamboo},
		{world.BambooSapling, CategoryBamboo},
		{world.SugarCane, CategoryTallPlant},
		{world.KelpPlant, CategoryTallPlant},
		{world.Seagrass, CategoryTallPlant},
		{world.Stone, CategoryNone},
		{world.Farmland, CategoryNone},
	}
	for _, tt := range tests {
		t.Run(string(tt.material), func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryOf(tt.material))
		})
	}
}

func TestCatalogRespectsSwitches(t *testing.T) {
	enabled := allEnabled()
	c := NewCatalog(enabled)
	assert.True(t, c.IsFarmableBlock(world.Farmland))
	assert.True(t, c.IsFarmableBlock(world.Cactus))
	assert.False(t, c.IsFarmableBlock(world.Dirt))

	enabled.Crops = false
	enabled.TallPlants = false
	c = NewCatalog(enabled)
	assert.False(t, c.IsFarmableBlock(world.Farmland))
	assert.False(t, c.IsFarmableBlock(world.Wheat))
	assert.False(t, c.IsBoostable(world.Cactus))
	assert.True(t, c.IsBoostable(world.OakSapling))
}

func TestGrowthForms(t *testing.T) {
	assert.Equal(t, FormAgeable, FormOf(world.Carrots))
	assert.Equal(t, FormHeight, FormOf(world.SugarCane))
	assert.Equal(t, FormStructure, FormOf(world.BirchSapling))
	assert.Equal(t, FormNone, FormOf(world.Melon))

	assert.Equal(t, 3, MaxHeight(world.Cactus))
	assert.Equal(t, 12, MaxHeight(world.Bamboo))
	assert.Equal(t, 0, MaxHeight(world.Wheat))
}

func TestActivityClassification(t *testing.T) {
	assert.True(t, IsFarmingBlock(world.Composter))
	assert.True(t, IsFarmingBlock(world.Kelp))
	assert.False(t, IsFarmingBlock(world.Seagrass))
	assert.False(t, IsFarmingBlock(world.GrassBlock))

	assert.True(t, IsFarmableItem(world.WheatSeeds))
	assert.True(t, IsFarmableItem(world.MelonSlice))
	assert.False(t, IsFarmableItem(world.Stone))

	assert.True(t, IsFarmingTool(world.IronHoe))
	assert.True(t, IsFarmingTool(world.BoneMeal))
	assert.False(t, IsFarmingTool(world.MelonSlice))
}
