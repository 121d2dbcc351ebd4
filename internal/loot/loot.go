// Package loot implements LootManager (C9): the seeded LCG, chest drop
// tables, the shop roll, purchase validation, and enemy currency drops.
// The LCG is the one formula spec.md mandates verbatim and is therefore
// hand-written rather than sourced from a library (see SPEC_FULL.md); the
// table-of-structs idiom for the weapon progression table is grounded on
// the teacher's weapons.go.
package loot

import (
	"hash/fnv"

	"dropzone/internal/sim"
)

// HashID turns a chest or NPC ID into the idHash NewLCG expects, so every
// room derives the same per-entity seed from the same string ID.
func HashID(id string) int64 {
	h := fnv.New64a()
	h.Write([]byte(id))
	return int64(h.Sum64())
}

// LCG implements spec.md §4.9's mandated generator: s = (s*16807) mod
// (2^31-1), the minimal standard Lehmer generator. Never replace this with
// math/rand — determinism requires this exact recurrence.
type LCG struct {
	state int64
}

const lcgModulus = 2147483647 // 2^31 - 1
const lcgMultiplier = 16807

// NewLCG seeds the generator from worldSeed combined with a per-chest or
// per-enemy hash, per spec.md "fully seeded from worldSeed + hash(id)".
func NewLCG(worldSeed int64, idHash int64) *LCG {
	s := (worldSeed ^ idHash) % lcgModulus
	if s <= 0 {
		s += lcgModulus - 1
	}
	return &LCG{state: s}
}

// Next advances the generator and returns the new state.
func (l *LCG) Next() int64 {
	l.state = (l.state * lcgMultiplier) % lcgModulus
	return l.state
}

// Float64 returns a value in [0,1).
func (l *LCG) Float64() float64 {
	return float64(l.Next()) / float64(lcgModulus)
}

// Intn returns a value in [0,n).
func (l *LCG) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(l.Next() % int64(n))
}

// Rarity enumerates item rarity tiers.
type Rarity uint8

const (
	RarityCommon Rarity = iota
	RarityUncommon
	RarityRare
	RarityEpic
	RarityLegendary
)

// DropEntry is one weighted chest-drop table row.
type DropEntry struct {
	Stat      string
	Rarity    Rarity
	Weight    float64
	ValueLow  float64
	ValueHigh float64
	IsPercent bool
}

// DropTable is a rarity-weighted set of possible drops, optionally
// restricted to boss-tier rarities (Epic/Legendary only).
type DropTable struct {
	entries []DropEntry
}

func NewDropTable(entries []DropEntry) *DropTable { return &DropTable{entries: entries} }

// Roll samples one drop, restricting to Epic/Legendary when bossOnly is
// set (spec.md: "boss chests restricted to Epic/Legendary").
func (dt *DropTable) Roll(rng *LCG, bossOnly bool) sim.InventoryItem {
	var pool []DropEntry
	for _, e := range dt.entries {
		if bossOnly && e.Rarity != RarityEpic && e.Rarity != RarityLegendary {
			continue
		}
		pool = append(pool, e)
	}
	if len(pool) == 0 {
		pool = dt.entries
	}

	var total float64
	for _, e := range pool {
		total += e.Weight
	}
	r := rng.Float64() * total
	var cum float64
	chosen := pool[len(pool)-1]
	for _, e := range pool {
		cum += e.Weight
		if r <= cum {
			chosen = e
			break
		}
	}

	value := chosen.ValueLow + rng.Float64()*(chosen.ValueHigh-chosen.ValueLow)
	return sim.InventoryItem{Stat: chosen.Stat, Value: value, IsPercent: chosen.IsPercent, Rarity: rarityString(chosen.Rarity)}
}

func rarityString(r Rarity) string {
	switch r {
	case RarityUncommon:
		return "uncommon"
	case RarityRare:
		return "rare"
	case RarityEpic:
		return "epic"
	case RarityLegendary:
		return "legendary"
	default:
		return "common"
	}
}

// ShopItem is one entry in a room's shop inventory.
type ShopItem struct {
	sim.InventoryItem
	PriceDucats int
	PriceVP     int
	Cosmetic    bool
	Name        string
}

// RollShop builds a shop inventory: 4 Epic + 4 Legendary stat items plus a
// fixed cosmetic set, per spec.md §4.9.
func RollShop(rng *LCG, statTable *DropTable, cosmetics []ShopItem) []ShopItem {
	items := make([]ShopItem, 0, 8+len(cosmetics))
	for i := 0; i < 4; i++ {
		items = append(items, ShopItem{InventoryItem: epicOnly(rng, statTable), PriceDucats: 400 + rng.Intn(200)})
	}
	for i := 0; i < 4; i++ {
		items = append(items, ShopItem{InventoryItem: legendaryOnly(rng, statTable), PriceDucats: 900 + rng.Intn(300)})
	}
	items = append(items, cosmetics...)
	return items
}

func epicOnly(rng *LCG, dt *DropTable) sim.InventoryItem {
	for {
		item := dt.Roll(rng, true)
		if item.Rarity == "epic" {
			return item
		}
	}
}

func legendaryOnly(rng *LCG, dt *DropTable) sim.InventoryItem {
	for i := 0; i < 50; i++ {
		item := dt.Roll(rng, true)
		if item.Rarity == "legendary" {
			return item
		}
	}
	return dt.Roll(rng, true)
}

// Purchase validates funds, deducts them, appends the item to the
// player's inventory and marks it sold. Returns a ValidationError-style
// bool rather than an error type since the taxonomy package is an ambient
// concern, not loot-specific (callers wrap with gameerr.Validation).
func Purchase(p *sim.Player, item ShopItem, useVP bool) bool {
	if useVP {
		if p.VictoryPoints < item.PriceVP {
			return false
		}
		p.VictoryPoints -= item.PriceVP
	} else {
		if p.Ducats < item.PriceDucats {
			return false
		}
		p.Ducats -= item.PriceDucats
	}
	item.InventoryItem.Sold = true
	p.Inventory = append(p.Inventory, item.InventoryItem)
	RecomputeStats(p)
	return true
}

// RecomputeStats derives HealthMax/StaminaMax from base values plus
// equipped flat/percent inventory bonuses.
func RecomputeStats(p *sim.Player) {
	const baseHealth = 100.0
	const baseStamina = 100.0

	flatHealth, pctHealth := 0.0, 0.0
	flatStamina, pctStamina := 0.0, 0.0
	for _, item := range p.Inventory {
		switch item.Stat {
		case "health":
			if item.IsPercent {
				pctHealth += item.Value
			} else {
				flatHealth += item.Value
			}
		case "stamina":
			if item.IsPercent {
				pctStamina += item.Value
			} else {
				flatStamina += item.Value
			}
		}
	}
	p.HealthMax = int((baseHealth + flatHealth) * (1 + pctHealth/100))
	p.StaminaMax = (baseStamina + flatStamina) * (1 + pctStamina/100)
	if p.Health > p.HealthMax {
		p.Health = p.HealthMax
	}
}

// DefaultStatDropTable returns the rarity-weighted stat roll table used for
// chest drops and the shop roll.
func DefaultStatDropTable() *DropTable {
	return NewDropTable([]DropEntry{
		{Stat: "health", Rarity: RarityCommon, Weight: 30, ValueLow: 5, ValueHigh: 15},
		{Stat: "stamina", Rarity: RarityCommon, Weight: 30, ValueLow: 5, ValueHigh: 15},
		{Stat: "moveSpeed", Rarity: RarityUncommon, Weight: 20, ValueLow: 2, ValueHigh: 6, IsPercent: true},
		{Stat: "damage", Rarity: RarityUncommon, Weight: 20, ValueLow: 5, ValueHigh: 10, IsPercent: true},
		{Stat: "critChance", Rarity: RarityRare, Weight: 12, ValueLow: 2, ValueHigh: 5, IsPercent: true},
		{Stat: "attackSpeed", Rarity: RarityRare, Weight: 12, ValueLow: 3, ValueHigh: 8, IsPercent: true},
		{Stat: "damage", Rarity: RarityEpic, Weight: 6, ValueLow: 12, ValueHigh: 20, IsPercent: true},
		{Stat: "lifesteal", Rarity: RarityEpic, Weight: 6, ValueLow: 3, ValueHigh: 6, IsPercent: true},
		{Stat: "damage", Rarity: RarityLegendary, Weight: 2, ValueLow: 22, ValueHigh: 35, IsPercent: true},
		{Stat: "critChance", Rarity: RarityLegendary, Weight: 2, ValueLow: 8, ValueHigh: 15, IsPercent: true},
	})
}

// EnemyDropRoll is a per-enemy-type currency drop configuration.
type EnemyDropRoll struct {
	Chance               float64
	DucatsMin, DucatsMax int
	MarkersMin, MarkersMax int
}

// DefaultEnemyDrops gives each enemy type a modest, independently-seeded
// currency drop chance.
func DefaultEnemyDrops() map[sim.EnemyType]EnemyDropRoll {
	return map[sim.EnemyType]EnemyDropRoll{
		sim.EnemyBasic:      {Chance: 0.3, DucatsMin: 1, DucatsMax: 5},
		sim.EnemyProjectile: {Chance: 0.35, DucatsMin: 2, DucatsMax: 6},
		sim.EnemyLicker:     {Chance: 0.4, DucatsMin: 3, DucatsMax: 8, MarkersMin: 0, MarkersMax: 1},
		sim.EnemyBoomer:     {Chance: 0.45, DucatsMin: 3, DucatsMax: 9},
		sim.EnemyBigboy:     {Chance: 0.6, DucatsMin: 8, DucatsMax: 20, MarkersMin: 1, MarkersMax: 2},
		sim.EnemyWallguy:    {Chance: 0.35, DucatsMin: 2, DucatsMax: 7},
	}
}

// RollEnemyDrop resolves one enemy's currency drop using an independently
// seeded LCG (caller seeds it with worldSeed + hash(enemyId)).
func RollEnemyDrop(rng *LCG, roll EnemyDropRoll) (ducats, markers int) {
	if rng.Float64() > roll.Chance {
		return 0, 0
	}
	ducats = roll.DucatsMin + rng.Intn(roll.DucatsMax-roll.DucatsMin+1)
	if roll.MarkersMax > roll.MarkersMin {
		markers = roll.MarkersMin + rng.Intn(roll.MarkersMax-roll.MarkersMin+1)
	}
	return ducats, markers
}

// WeaponStats is one weapon's per-loot-level progression row, generalized
// from the teacher's weapons.go table-of-structs idiom.
type WeaponStats struct {
	Name               string
	LootLevel          int
	PrimaryMultiplier  float64
	SecondaryMultiplier float64
}

// DefaultWeaponTable returns the 8-weapon x 7-loot-level progression
// table spec.md's configuration surface names.
func DefaultWeaponTable() map[string][7]WeaponStats {
	weapons := []string{"fists", "knife", "sword", "axe", "katana", "hammer", "scythe", "rifle"}
	table := make(map[string][7]WeaponStats, len(weapons))
	for _, w := range weapons {
		var levels [7]WeaponStats
		for lvl := 0; lvl < 7; lvl++ {
			levels[lvl] = WeaponStats{
				Name:                w,
				LootLevel:           lvl,
				PrimaryMultiplier:   1.0 + float64(lvl)*0.15,
				SecondaryMultiplier: 1.0 + float64(lvl)*0.1,
			}
		}
		table[w] = levels
	}
	return table
}
