package world

// Material names a block or item type.
type Material string

// Blocks.
const (
	Air            Material = "AIR"
	Stone          Material = "STONE"
	Dirt           Material = "DIRT"
	GrassBlock     Material = "GRASS_BLOCK"
	Sand           Material = "SAND"
	Water          Material = "WATER"
	Farmland       Material = "FARMLAND"
	Composter      Material = "COMPOSTER"
	Wheat          Material = "WHEAT"
	Carrots        Material = "CARROTS"
	Potatoes       Material = "POTATOES"
	Beetroots      Material = "BEETROOTS"
	Melon          Material = "MELON"
	MelonStem      Material = "MELON_STEM"
	Pumpkin        Material = "PUMPKIN"
	PumpkinStem    Material = "PUMPKIN_STEM"
	SweetBerryBush Material = "SWEET_BERRY_BUSH"
	Cocoa          Material = "COCOA"
	NetherWart     Material = "NETHER_WART"
	OakSapling     Material = "OAK_SAPLING"
	BirchSapling   Material = "BIRCH_SAPLING"
	RedMushroom    Material = "RED_MUSHROOM"
	BrownMushroom  Material = "BROWN_MUSHROOM"
	Bamboo         Material = "BAMBOO"
	BambooSapling  Material = "BAMBOO_SAPLING"
	SugarCane      Material = "SUGAR_CANE"
	Cactus         Material = "CACTUS"
	Kelp           Material = "KELP"
	KelpPlant      Material = "KELP_PLANT"
	Seagrass       Material = "SEAGRASS"
)

// Items.
const (
	WheatSeeds    Material = "WHEAT_SEEDS"
	BeetrootSeeds Material = "BEETROOT_SEEDS"
	PumpkinSeeds  Material = "PUMPKIN_SEEDS"
	MelonSeeds    Material = "MELON_SEEDS"
	Carrot        Material = "CARROT"
	Potato        Material = "POTATO"
	Beetroot      Material = "BEETROOT"
	MelonSlice    Material = "MELON_SLICE"
	SweetBerries  Material = "SWEET_BERRIES"
	CocoaBeans    Material = "COCOA_BEANS"
	BoneMeal      Material = "BONE_MEAL"
	WoodenHoe     Material = "WOODEN_HOE"
	IronHoe       Material = "IRON_HOE"
	WaterBucket   Material = "WATER_BUCKET"
	Shears        Material = "SHEARS"
)
